package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ChatCompletionRequest is the body of POST /v1/chat/completions.
//
// Model and Messages are required. Tools are forwarded upstream as-is;
// tool_choice and sampling parameters are accepted but not acted on, since
// the upstream exchange does not expose them.
type ChatCompletionRequest struct {
	Model         string         `json:"model"`
	Messages      []ChatMessage  `json:"messages"`
	Stream        bool           `json:"stream,omitempty"`
	StreamOptions *StreamOptions `json:"stream_options,omitempty"`
	Tools         []ChatTool     `json:"tools,omitempty"`
}

// StreamOptions tunes streaming responses.
type StreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// IncludeUsage reports whether the client asked for a trailing usage chunk.
func (r *ChatCompletionRequest) IncludeUsage() bool {
	return r.StreamOptions != nil && r.StreamOptions.IncludeUsage
}

// ChatMessage is one entry of the messages array. Content stays raw because
// the wire format allows both a string and an array of typed parts.
type ChatMessage struct {
	Role       string          `json:"role"`
	Content    json.RawMessage `json:"content,omitempty"`
	ToolCalls  []ChatToolCall  `json:"tool_calls,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
}

// Text flattens the content field. A JSON string is returned as-is; an
// array of parts returns its text parts joined with newlines, skipping
// non-text parts such as images.
func (m *ChatMessage) Text() string {
	return flattenContent(m.Content)
}

// ChatTool declares one function the model may call.
type ChatTool struct {
	Type     string       `json:"type"`
	Function ChatFunction `json:"function"`
}

// ChatFunction is the function half of a tool declaration. Parameters is a
// JSON Schema object and is forwarded without interpretation.
type ChatFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// ChatToolCall is a tool invocation echoed back by the client inside an
// assistant message of the conversation history.
type ChatToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function ChatFunctionCall `json:"function"`
}

// ChatFunctionCall carries the called function's name and its arguments as
// a JSON-encoded string, matching the OpenAI wire format.
type ChatFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Validate checks the structural requirements the gateway enforces before
// any conversion work starts.
func (r *ChatCompletionRequest) Validate() error {
	if r.Model == "" {
		return &ValidationError{Field: "model", Message: "model is required"}
	}
	if len(r.Messages) == 0 {
		return &ValidationError{Field: "messages", Message: "message array cannot be empty", Code: "empty_messages"}
	}
	for i, msg := range r.Messages {
		switch msg.Role {
		case "system", "developer", "user", "assistant":
		case "tool":
			if msg.ToolCallID == "" {
				return &ValidationError{
					Field:   fmt.Sprintf("messages[%d].tool_call_id", i),
					Message: "tool messages require a tool_call_id",
				}
			}
		case "":
			return &ValidationError{
				Field:   fmt.Sprintf("messages[%d].role", i),
				Message: "role is required",
			}
		default:
			return &ValidationError{
				Field:   fmt.Sprintf("messages[%d].role", i),
				Message: fmt.Sprintf("unsupported role %q", msg.Role),
			}
		}
	}
	for i, tool := range r.Tools {
		if tool.Function.Name == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("tools[%d].function.name", i),
				Message: "tool function name is required",
			}
		}
	}
	return nil
}

type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func flattenContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var parts []contentPart
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}
	texts := make([]string, 0, len(parts))
	for _, part := range parts {
		if part.Type == "text" {
			texts = append(texts, part.Text)
		}
	}
	return strings.Join(texts, "\n")
}
