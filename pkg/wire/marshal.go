package wire

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Marshal returns the binary wire encoding of the envelope.
func (m *RequestEnvelope) Marshal() []byte {
	var b []byte
	if m.Request != nil {
		b = appendMessage(b, 1, m.Request.appendTo(nil))
	}
	if m.ToolResult != nil {
		b = appendMessage(b, 2, m.ToolResult.appendTo(nil))
	}
	return b
}

// Marshal returns the binary wire encoding of the envelope.
func (m *ResponseEnvelope) Marshal() []byte {
	var b []byte
	if m.ToolCall != nil {
		b = appendMessage(b, 1, m.ToolCall.appendTo(nil))
	}
	if m.Response != nil {
		b = appendMessage(b, 2, m.Response.appendTo(nil))
	}
	return b
}

func (m *ChatRequest) appendTo(b []byte) []byte {
	for _, msg := range m.Conversation {
		b = appendMessage(b, 1, msg.appendTo(nil))
	}
	if m.ExplicitContext != nil {
		b = appendMessage(b, 3, m.ExplicitContext.appendTo(nil))
	}
	if m.ModelDetails != nil {
		b = appendMessage(b, 5, m.ModelDetails.appendTo(nil))
	}
	b = appendBool(b, 13, m.ShouldCache)
	b = appendBool(b, 22, m.IsChat)
	b = appendString(b, 23, m.ConversationID)
	b = appendBool(b, 27, m.IsAgentic)
	b = appendPackedKinds(b, 29, m.SupportedTools)
	for _, t := range m.McpTools {
		b = appendMessage(b, 34, t.appendTo(nil))
	}
	b = appendEnum(b, 46, int32(m.UnifiedMode))
	b = appendBool(b, 48, m.ShouldDisableTools)
	b = appendEnum(b, 49, int32(m.ThinkingLevel))
	b = appendString(b, 54, m.UnifiedModeName)
	return b
}

func (m *ConversationMessage) appendTo(b []byte) []byte {
	b = appendString(b, 1, m.Text)
	b = appendEnum(b, 2, int32(m.Type))
	b = appendString(b, 13, m.BubbleID)
	for _, r := range m.ToolResults {
		b = appendMessage(b, 18, r.appendTo(nil))
	}
	b = appendBool(b, 29, m.IsAgentic)
	b = appendString(b, 32, m.ServerBubbleID)
	for _, w := range m.WebReferences {
		b = appendMessage(b, 36, w.appendTo(nil))
	}
	if m.Thinking != nil {
		b = appendMessage(b, 45, m.Thinking.appendTo(nil))
	}
	b = appendEnum(b, 47, int32(m.UnifiedMode))
	b = appendPackedKinds(b, 51, m.SupportedTools)
	return b
}

func (m *MessageToolResult) appendTo(b []byte) []byte {
	b = appendString(b, 1, m.ToolCallID)
	b = appendString(b, 2, m.ToolName)
	b = appendUint32(b, 3, m.ToolIndex)
	b = appendString(b, 5, m.RawArgs)
	if m.Result != nil {
		b = appendMessage(b, 8, m.Result.appendTo(nil))
	}
	if m.Error != nil {
		b = appendMessage(b, 9, m.Error.appendTo(nil))
	}
	if m.ToolCall != nil {
		b = appendMessage(b, 11, m.ToolCall.appendTo(nil))
	}
	b = appendString(b, 12, m.ModelCallID)
	return b
}

func (m *ExplicitContext) appendTo(b []byte) []byte {
	return appendString(b, 1, m.Context)
}

func (m *ModelDetails) appendTo(b []byte) []byte {
	b = appendString(b, 1, m.ModelName)
	b = appendBool(b, 5, m.EnableSlowPool)
	b = appendBool(b, 8, m.MaxMode)
	return b
}

func (m *McpTool) appendTo(b []byte) []byte {
	b = appendString(b, 1, m.Name)
	b = appendString(b, 2, m.Description)
	b = appendString(b, 3, m.Parameters)
	b = appendString(b, 4, m.ServerName)
	return b
}

func (m *McpParams) appendTo(b []byte) []byte {
	for _, t := range m.Tools {
		b = appendMessage(b, 1, t.appendTo(nil))
	}
	return b
}

func (m *McpResult) appendTo(b []byte) []byte {
	b = appendString(b, 1, m.SelectedTool)
	b = appendString(b, 2, m.Result)
	return b
}

func (m *ToolResultError) appendTo(b []byte) []byte {
	return appendString(b, 2, m.ModelVisibleError)
}

func (m *ToolCall) appendTo(b []byte) []byte {
	b = appendEnum(b, 1, int32(m.Tool))
	b = appendString(b, 3, m.ToolCallID)
	b = appendString(b, 9, m.Name)
	b = appendString(b, 10, m.RawArgs)
	b = appendBool(b, 14, m.IsStreaming)
	b = appendBool(b, 15, m.IsLastMessage)
	if m.McpParams != nil {
		b = appendMessage(b, 27, m.McpParams.appendTo(nil))
	}
	b = appendUint32Ptr(b, 48, m.ToolIndex)
	b = appendString(b, 49, m.ModelCallID)
	return b
}

func (m *ToolResult) appendTo(b []byte) []byte {
	b = appendEnum(b, 1, int32(m.Tool))
	if m.Error != nil {
		b = appendMessage(b, 8, m.Error.appendTo(nil))
	}
	if m.McpResult != nil {
		b = appendMessage(b, 28, m.McpResult.appendTo(nil))
	}
	b = appendString(b, 35, m.ToolCallID)
	b = appendString(b, 48, m.ModelCallID)
	b = appendUint32Ptr(b, 49, m.ToolIndex)
	return b
}

func (m *ChatResponse) appendTo(b []byte) []byte {
	b = appendString(b, 1, m.Text)
	if m.WebCitation != nil {
		b = appendMessage(b, 11, m.WebCitation.appendTo(nil))
	}
	if m.Thinking != nil {
		b = appendMessage(b, 25, m.Thinking.appendTo(nil))
	}
	if m.Usage != nil {
		b = appendMessage(b, 40, m.Usage.appendTo(nil))
	}
	return b
}

func (m *WebCitation) appendTo(b []byte) []byte {
	for _, r := range m.References {
		b = appendMessage(b, 1, r.appendTo(nil))
	}
	return b
}

func (m *WebReference) appendTo(b []byte) []byte {
	b = appendString(b, 1, m.URL)
	b = appendString(b, 2, m.Title)
	b = appendString(b, 3, m.Chunk)
	return b
}

func (m *Thinking) appendTo(b []byte) []byte {
	b = appendString(b, 1, m.Text)
	b = appendString(b, 2, m.Signature)
	b = appendString(b, 3, m.RedactedThinking)
	return b
}

func (m *TokenUsage) appendTo(b []byte) []byte {
	b = appendUint32(b, 1, m.InputTokens)
	b = appendUint32(b, 2, m.OutputTokens)
	b = appendUint32(b, 3, m.CacheWriteTokens)
	b = appendUint32(b, 4, m.CacheReadTokens)
	b = appendDouble(b, 5, m.TotalCents)
	return b
}

// Zero values are omitted, matching implicit field presence. Pointer-typed
// fields encode whenever non-nil so a genuine zero survives the trip.

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeBool(v))
}

func appendUint32(b []byte, num protowire.Number, v uint32) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

func appendUint32Ptr(b []byte, num protowire.Number, v *uint32) []byte {
	if v == nil {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(*v))
}

func appendEnum(b []byte, num protowire.Number, v int32) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func appendMessage(b []byte, num protowire.Number, body []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, body)
}

func appendPackedKinds(b []byte, num protowire.Number, kinds []ToolKind) []byte {
	if len(kinds) == 0 {
		return b
	}
	packed := make([]byte, 0, 2*len(kinds))
	for _, k := range kinds {
		packed = protowire.AppendVarint(packed, uint64(k))
	}
	return appendMessage(b, num, packed)
}
