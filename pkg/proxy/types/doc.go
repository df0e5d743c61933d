// Package types holds the request bodies the gateway accepts on its two
// completion endpoints: the OpenAI chat-completion shape and the Anthropic
// messages shape.
//
// Both shapes allow message content to be either a bare JSON string or an
// array of typed parts, so the content fields stay raw until a handler
// flattens them. Fields the gateway does not act on (sampling parameters,
// penalties, metadata) are absent here; unknown JSON fields are ignored
// during decoding, which keeps stock OpenAI and Anthropic SDKs working
// without modification:
//
//	# Python OpenAI SDK
//	from openai import OpenAI
//	client = OpenAI(base_url="http://localhost:3000/v1")
//	response = client.chat.completions.create(
//	    model="claude-3.5-sonnet",
//	    messages=[{"role": "user", "content": "Hello!"}]
//	)
//
//	# Python Anthropic SDK
//	from anthropic import Anthropic
//	client = Anthropic(base_url="http://localhost:3000")
//	message = client.messages.create(
//	    model="claude-3.5-sonnet",
//	    max_tokens=1024,
//	    messages=[{"role": "user", "content": "Hello!"}]
//	)
//
// Response bodies have no types in this package: streaming and
// non-streaming responses are rendered by pkg/adapter.
package types
