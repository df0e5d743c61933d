// Package proxy translates between the gateway's public HTTP dialects and
// the neutral conversation model the upstream exchange speaks.
//
// The package covers the request half of each endpoint: parsing bodies
// into pkg/proxy/types structures, resolving model names and their mode
// suffixes, and reducing both dialects' message histories to an
// upstream.Conversation. It also owns the response plumbing the handlers
// share: SSE framing, JSON writing, and the mapping from errors to HTTP
// answers in each dialect's error envelope.
//
// # Request Flow
//
//  1. Middleware assigns a request id, logs, and caps the body size.
//  2. ParseChatCompletions or ParseMessages decodes and validates the body.
//  3. ResolveModel strips mode suffixes ("-thinking", "-max", "-online")
//     and checks the model against the configured listing.
//  4. ChatConversation or MessagesConversation builds the neutral form.
//  5. The handler encodes it, opens the upstream exchange, and renders the
//     event stream through a pkg/adapter stream adapter or accumulator.
//
// # Model Suffixes
//
// Clients select modes by suffixing the model id. "claude-3.7-sonnet-max"
// requests max mode, "claude-3.7-sonnet-thinking" requests reasoning
// output, and "-online" asks for web results; suffixes compose in that
// order from the base id. An Anthropic request with a thinking parameter
// set to "enabled" behaves as if "-thinking" were part of the model id.
//
// # Error Envelopes
//
// Failures before any bytes stream are answered with the HTTP status from
// MapError and a body in the requesting dialect's envelope:
//
//	{"error":{"code":"model_not_supported","message":"..."}}
//	{"type":"error","error":{"type":"model_not_supported","message":"..."}}
//
// Failures after streaming starts cannot change the status line; they are
// carried as the dialect's in-stream error payload instead.
package proxy
