package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MessagesRequest is the body of POST /v1/messages.
//
// Model and Messages are required. MaxTokens is required by the Anthropic
// wire format and validated as such, though the upstream exchange imposes
// its own output limits. System accepts either a string or an array of
// text blocks.
type MessagesRequest struct {
	Model     string          `json:"model"`
	Messages  []MessageParam  `json:"messages"`
	System    json.RawMessage `json:"system,omitempty"`
	MaxTokens int             `json:"max_tokens"`
	Stream    bool            `json:"stream,omitempty"`
	Tools     []MessagesTool  `json:"tools,omitempty"`
	Thinking  *ThinkingParam  `json:"thinking,omitempty"`
}

// MessageParam is one conversation entry. Content stays raw because the
// wire format allows both a string and an array of content blocks.
type MessageParam struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// Blocks decodes the content field into its block list. A bare JSON string
// decodes as a single text block.
func (m *MessageParam) Blocks() ([]ContentBlockParam, error) {
	if len(m.Content) == 0 {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(m.Content, &s); err == nil {
		return []ContentBlockParam{{Type: "text", Text: s}}, nil
	}
	var blocks []ContentBlockParam
	if err := json.Unmarshal(m.Content, &blocks); err != nil {
		return nil, fmt.Errorf("decode message content: %w", err)
	}
	return blocks, nil
}

// ContentBlockParam is one typed block of a message's content array. Type
// selects which of the remaining fields are meaningful: text blocks carry
// Text; thinking blocks carry Thinking and Signature; redacted_thinking
// blocks carry Data; tool_use blocks carry ID, Name and Input; tool_result
// blocks carry ToolUseID, Content and IsError.
type ContentBlockParam struct {
	Type string `json:"type"`

	Text string `json:"text,omitempty"`

	Thinking  string `json:"thinking,omitempty"`
	Signature string `json:"signature,omitempty"`

	Data string `json:"data,omitempty"`

	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

// MessagesTool declares one tool in the Anthropic shape.
type MessagesTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
}

// ThinkingParam enables extended thinking for the request. The token
// budget is accepted for wire compatibility; the upstream exchange sizes
// reasoning on its own.
type ThinkingParam struct {
	Type         string `json:"type"`
	BudgetTokens int    `json:"budget_tokens,omitempty"`
}

// Enabled reports whether the request asked for extended thinking.
func (t *ThinkingParam) Enabled() bool {
	return t != nil && t.Type == "enabled"
}

// Validate checks the structural requirements the gateway enforces before
// any conversion work starts.
func (r *MessagesRequest) Validate() error {
	if r.Model == "" {
		return &ValidationError{Field: "model", Message: "model is required"}
	}
	if len(r.Messages) == 0 {
		return &ValidationError{Field: "messages", Message: "message array cannot be empty", Code: "empty_messages"}
	}
	if r.MaxTokens <= 0 {
		return &ValidationError{Field: "max_tokens", Message: "max_tokens must be a positive integer"}
	}
	for i, msg := range r.Messages {
		switch msg.Role {
		case "user", "assistant":
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
		if tool.Name == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("tools[%d].name", i),
				Message: "tool name is required",
			}
		}
	}
	return nil
}

// SystemText flattens a system field: a JSON string returns as-is, an
// array of text blocks returns their texts joined with newlines.
func SystemText(raw json.RawMessage) string {
	return blockText(raw)
}

// ToolResultText flattens a tool_result block's content, which may be
// absent, a string, or an array of text blocks.
func ToolResultText(raw json.RawMessage) string {
	return blockText(raw)
}

func blockText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var blocks []ContentBlockParam
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return ""
	}
	texts := make([]string, 0, len(blocks))
	for _, block := range blocks {
		if block.Type == "text" {
			texts = append(texts, block.Text)
		}
	}
	return strings.Join(texts, "\n")
}
