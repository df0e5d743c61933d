// cursor-api is a self-hosted gateway that exposes the Cursor editor
// backend through the two chat API shapes most tooling already speaks.
//
// It serves OpenAI chat completions and Anthropic messages over HTTP,
// translating both onto the upstream stream protocol, providing:
//   - /v1/chat/completions and /v1/messages on one listener
//   - Streaming (SSE) and buffered responses from one decode pipeline
//   - Model listing with thinking-variant resolution
//   - Prometheus metrics and health reporting
//   - Usage accounting with a queryable SQLite store
//
// Usage:
//
//	# Start server with default configuration
//	cursor-api run
//
//	# Start with custom configuration file
//	cursor-api run --config /path/to/config.yaml
//
//	# Show version information
//	cursor-api version
//
//	# Query recorded usage
//	cursor-api usage query --time-range "2026-08-01T00:00:00Z/2026-08-02T00:00:00Z"
//
//	# Export usage records for offline analysis
//	cursor-api usage export --output usage.jsonl
//
// For complete documentation, see: https://github.com/RelientS/cursor-api
package main

func main() {
	Execute()
}
