// Package handlers implements the gateway's HTTP endpoints: OpenAI-style
// chat completions, Anthropic-style messages, and the model listing.
//
// Both completion handlers share one pipeline. The request body is parsed
// and reduced to the neutral conversation form, encoded into a framed
// upstream request, and the response stream is decoded by a session. The
// dialect only decides which pkg/adapter rendering consumes the event
// stream:
//
//   - streaming requests feed a stream adapter and frame its chunks as SSE
//   - non-streaming requests feed an accumulator and answer with one JSON
//     body
//
// # Request Flow
//
//  1. Parse and validate the body (pkg/proxy).
//  2. Resolve the model id and its mode suffixes against configuration.
//  3. Build the upstream conversation and encode it.
//  4. Open the upstream exchange and decode it through pkg/session.
//  5. Render events in the requesting dialect.
//  6. Account the request: metrics, logs, and a usage record.
//
// # Failure Shapes
//
// Failures before the first byte answer with a mapped HTTP status and the
// dialect's error envelope. Failures after streaming starts ride in-band:
// the OpenAI dialect emits an error payload followed by [DONE], the
// Anthropic dialect an error event. Either way the usage record and the
// upstream error counter capture the failure code.
package handlers
