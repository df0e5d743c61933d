// Package upstream speaks the proprietary chat protocol: it encodes neutral
// conversations into framed protobuf requests, issues them over a pooled
// HTTP client, and decodes the framed response stream into normalized
// events.
//
// The decoder is deliberately tolerant. Production streams interleave frame
// kinds and message variants that this gateway does not model, and new ones
// appear without notice; anything uninterpretable is counted and skipped so
// a stream never dies on an unknown input. Shape errors at the framing layer
// (truncation, oversized frames) are the only fatal conditions, and those
// surface from pkg/wire rather than from this package.
package upstream
