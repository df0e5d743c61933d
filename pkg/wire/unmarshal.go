package wire

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Unmarshal parses the binary wire encoding of the envelope into m.
// Unknown fields are skipped.
func (m *RequestEnvelope) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		var err error
		switch {
		case num == 1 && typ == protowire.BytesType:
			m.Request = new(ChatRequest)
			b, err = takeMessage(b, m.Request.unmarshal)
		case num == 2 && typ == protowire.BytesType:
			m.ToolResult = new(ToolResult)
			b, err = takeMessage(b, m.ToolResult.unmarshal)
		default:
			b, err = skipField(b, num, typ)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Unmarshal parses the binary wire encoding of the envelope into m.
// Unknown fields are skipped.
func (m *ResponseEnvelope) Unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		var err error
		switch {
		case num == 1 && typ == protowire.BytesType:
			m.ToolCall = new(ToolCall)
			b, err = takeMessage(b, m.ToolCall.unmarshal)
		case num == 2 && typ == protowire.BytesType:
			m.Response = new(ChatResponse)
			b, err = takeMessage(b, m.Response.unmarshal)
		default:
			b, err = skipField(b, num, typ)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *ChatRequest) unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		var err error
		switch {
		case num == 1 && typ == protowire.BytesType:
			msg := new(ConversationMessage)
			if b, err = takeMessage(b, msg.unmarshal); err == nil {
				m.Conversation = append(m.Conversation, msg)
			}
		case num == 3 && typ == protowire.BytesType:
			m.ExplicitContext = new(ExplicitContext)
			b, err = takeMessage(b, m.ExplicitContext.unmarshal)
		case num == 5 && typ == protowire.BytesType:
			m.ModelDetails = new(ModelDetails)
			b, err = takeMessage(b, m.ModelDetails.unmarshal)
		case num == 13 && typ == protowire.VarintType:
			m.ShouldCache, b, err = takeBool(b)
		case num == 22 && typ == protowire.VarintType:
			m.IsChat, b, err = takeBool(b)
		case num == 23 && typ == protowire.BytesType:
			m.ConversationID, b, err = takeString(b)
		case num == 27 && typ == protowire.VarintType:
			m.IsAgentic, b, err = takeBool(b)
		case num == 29:
			m.SupportedTools, b, err = takeKinds(b, num, typ, m.SupportedTools)
		case num == 34 && typ == protowire.BytesType:
			tool := new(McpTool)
			if b, err = takeMessage(b, tool.unmarshal); err == nil {
				m.McpTools = append(m.McpTools, tool)
			}
		case num == 46 && typ == protowire.VarintType:
			var v uint64
			if v, b, err = takeVarint(b); err == nil {
				m.UnifiedMode = ChatMode(v)
			}
		case num == 48 && typ == protowire.VarintType:
			m.ShouldDisableTools, b, err = takeBool(b)
		case num == 49 && typ == protowire.VarintType:
			var v uint64
			if v, b, err = takeVarint(b); err == nil {
				m.ThinkingLevel = ThinkingLevel(v)
			}
		case num == 54 && typ == protowire.BytesType:
			m.UnifiedModeName, b, err = takeString(b)
		default:
			b, err = skipField(b, num, typ)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *ConversationMessage) unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		var err error
		switch {
		case num == 1 && typ == protowire.BytesType:
			m.Text, b, err = takeString(b)
		case num == 2 && typ == protowire.VarintType:
			var v uint64
			if v, b, err = takeVarint(b); err == nil {
				m.Type = MessageType(v)
			}
		case num == 13 && typ == protowire.BytesType:
			m.BubbleID, b, err = takeString(b)
		case num == 18 && typ == protowire.BytesType:
			r := new(MessageToolResult)
			if b, err = takeMessage(b, r.unmarshal); err == nil {
				m.ToolResults = append(m.ToolResults, r)
			}
		case num == 29 && typ == protowire.VarintType:
			m.IsAgentic, b, err = takeBool(b)
		case num == 32 && typ == protowire.BytesType:
			m.ServerBubbleID, b, err = takeString(b)
		case num == 36 && typ == protowire.BytesType:
			w := new(WebReference)
			if b, err = takeMessage(b, w.unmarshal); err == nil {
				m.WebReferences = append(m.WebReferences, w)
			}
		case num == 45 && typ == protowire.BytesType:
			m.Thinking = new(Thinking)
			b, err = takeMessage(b, m.Thinking.unmarshal)
		case num == 47 && typ == protowire.VarintType:
			var v uint64
			if v, b, err = takeVarint(b); err == nil {
				m.UnifiedMode = ChatMode(v)
			}
		case num == 51:
			m.SupportedTools, b, err = takeKinds(b, num, typ, m.SupportedTools)
		default:
			b, err = skipField(b, num, typ)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *MessageToolResult) unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		var err error
		switch {
		case num == 1 && typ == protowire.BytesType:
			m.ToolCallID, b, err = takeString(b)
		case num == 2 && typ == protowire.BytesType:
			m.ToolName, b, err = takeString(b)
		case num == 3 && typ == protowire.VarintType:
			var v uint64
			if v, b, err = takeVarint(b); err == nil {
				m.ToolIndex = uint32(v)
			}
		case num == 5 && typ == protowire.BytesType:
			m.RawArgs, b, err = takeString(b)
		case num == 8 && typ == protowire.BytesType:
			m.Result = new(ToolResult)
			b, err = takeMessage(b, m.Result.unmarshal)
		case num == 9 && typ == protowire.BytesType:
			m.Error = new(ToolResultError)
			b, err = takeMessage(b, m.Error.unmarshal)
		case num == 11 && typ == protowire.BytesType:
			m.ToolCall = new(ToolCall)
			b, err = takeMessage(b, m.ToolCall.unmarshal)
		case num == 12 && typ == protowire.BytesType:
			m.ModelCallID, b, err = takeString(b)
		default:
			b, err = skipField(b, num, typ)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *ExplicitContext) unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		var err error
		switch {
		case num == 1 && typ == protowire.BytesType:
			m.Context, b, err = takeString(b)
		default:
			b, err = skipField(b, num, typ)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *ModelDetails) unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		var err error
		switch {
		case num == 1 && typ == protowire.BytesType:
			m.ModelName, b, err = takeString(b)
		case num == 5 && typ == protowire.VarintType:
			m.EnableSlowPool, b, err = takeBool(b)
		case num == 8 && typ == protowire.VarintType:
			m.MaxMode, b, err = takeBool(b)
		default:
			b, err = skipField(b, num, typ)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *McpTool) unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		var err error
		switch {
		case num == 1 && typ == protowire.BytesType:
			m.Name, b, err = takeString(b)
		case num == 2 && typ == protowire.BytesType:
			m.Description, b, err = takeString(b)
		case num == 3 && typ == protowire.BytesType:
			m.Parameters, b, err = takeString(b)
		case num == 4 && typ == protowire.BytesType:
			m.ServerName, b, err = takeString(b)
		default:
			b, err = skipField(b, num, typ)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *McpParams) unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		var err error
		switch {
		case num == 1 && typ == protowire.BytesType:
			tool := new(McpTool)
			if b, err = takeMessage(b, tool.unmarshal); err == nil {
				m.Tools = append(m.Tools, tool)
			}
		default:
			b, err = skipField(b, num, typ)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *McpResult) unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		var err error
		switch {
		case num == 1 && typ == protowire.BytesType:
			m.SelectedTool, b, err = takeString(b)
		case num == 2 && typ == protowire.BytesType:
			m.Result, b, err = takeString(b)
		default:
			b, err = skipField(b, num, typ)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *ToolResultError) unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		var err error
		switch {
		case num == 2 && typ == protowire.BytesType:
			m.ModelVisibleError, b, err = takeString(b)
		default:
			b, err = skipField(b, num, typ)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *ToolCall) unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		var err error
		switch {
		case num == 1 && typ == protowire.VarintType:
			var v uint64
			if v, b, err = takeVarint(b); err == nil {
				m.Tool = ToolKind(v)
			}
		case num == 3 && typ == protowire.BytesType:
			m.ToolCallID, b, err = takeString(b)
		case num == 9 && typ == protowire.BytesType:
			m.Name, b, err = takeString(b)
		case num == 10 && typ == protowire.BytesType:
			m.RawArgs, b, err = takeString(b)
		case num == 14 && typ == protowire.VarintType:
			m.IsStreaming, b, err = takeBool(b)
		case num == 15 && typ == protowire.VarintType:
			m.IsLastMessage, b, err = takeBool(b)
		case num == 27 && typ == protowire.BytesType:
			m.McpParams = new(McpParams)
			b, err = takeMessage(b, m.McpParams.unmarshal)
		case num == 48 && typ == protowire.VarintType:
			var v uint64
			if v, b, err = takeVarint(b); err == nil {
				idx := uint32(v)
				m.ToolIndex = &idx
			}
		case num == 49 && typ == protowire.BytesType:
			m.ModelCallID, b, err = takeString(b)
		default:
			b, err = skipField(b, num, typ)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *ToolResult) unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		var err error
		switch {
		case num == 1 && typ == protowire.VarintType:
			var v uint64
			if v, b, err = takeVarint(b); err == nil {
				m.Tool = ToolKind(v)
			}
		case num == 8 && typ == protowire.BytesType:
			m.Error = new(ToolResultError)
			b, err = takeMessage(b, m.Error.unmarshal)
		case num == 28 && typ == protowire.BytesType:
			m.McpResult = new(McpResult)
			b, err = takeMessage(b, m.McpResult.unmarshal)
		case num == 35 && typ == protowire.BytesType:
			m.ToolCallID, b, err = takeString(b)
		case num == 48 && typ == protowire.BytesType:
			m.ModelCallID, b, err = takeString(b)
		case num == 49 && typ == protowire.VarintType:
			var v uint64
			if v, b, err = takeVarint(b); err == nil {
				idx := uint32(v)
				m.ToolIndex = &idx
			}
		default:
			b, err = skipField(b, num, typ)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *ChatResponse) unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		var err error
		switch {
		case num == 1 && typ == protowire.BytesType:
			m.Text, b, err = takeString(b)
		case num == 11 && typ == protowire.BytesType:
			m.WebCitation = new(WebCitation)
			b, err = takeMessage(b, m.WebCitation.unmarshal)
		case num == 25 && typ == protowire.BytesType:
			m.Thinking = new(Thinking)
			b, err = takeMessage(b, m.Thinking.unmarshal)
		case num == 40 && typ == protowire.BytesType:
			m.Usage = new(TokenUsage)
			b, err = takeMessage(b, m.Usage.unmarshal)
		default:
			b, err = skipField(b, num, typ)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *WebCitation) unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		var err error
		switch {
		case num == 1 && typ == protowire.BytesType:
			r := new(WebReference)
			if b, err = takeMessage(b, r.unmarshal); err == nil {
				m.References = append(m.References, r)
			}
		default:
			b, err = skipField(b, num, typ)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *WebReference) unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		var err error
		switch {
		case num == 1 && typ == protowire.BytesType:
			m.URL, b, err = takeString(b)
		case num == 2 && typ == protowire.BytesType:
			m.Title, b, err = takeString(b)
		case num == 3 && typ == protowire.BytesType:
			m.Chunk, b, err = takeString(b)
		default:
			b, err = skipField(b, num, typ)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *Thinking) unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		var err error
		switch {
		case num == 1 && typ == protowire.BytesType:
			m.Text, b, err = takeString(b)
		case num == 2 && typ == protowire.BytesType:
			m.Signature, b, err = takeString(b)
		case num == 3 && typ == protowire.BytesType:
			m.RedactedThinking, b, err = takeString(b)
		default:
			b, err = skipField(b, num, typ)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *TokenUsage) unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		var err error
		switch {
		case num == 1 && typ == protowire.VarintType:
			var v uint64
			if v, b, err = takeVarint(b); err == nil {
				m.InputTokens = uint32(v)
			}
		case num == 2 && typ == protowire.VarintType:
			var v uint64
			if v, b, err = takeVarint(b); err == nil {
				m.OutputTokens = uint32(v)
			}
		case num == 3 && typ == protowire.VarintType:
			var v uint64
			if v, b, err = takeVarint(b); err == nil {
				m.CacheWriteTokens = uint32(v)
			}
		case num == 4 && typ == protowire.VarintType:
			var v uint64
			if v, b, err = takeVarint(b); err == nil {
				m.CacheReadTokens = uint32(v)
			}
		case num == 5 && typ == protowire.Fixed64Type:
			var v uint64
			if v, b, err = takeFixed64(b); err == nil {
				m.TotalCents = math.Float64frombits(v)
			}
		default:
			b, err = skipField(b, num, typ)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func takeString(b []byte) (string, []byte, error) {
	v, n := protowire.ConsumeString(b)
	if n < 0 {
		return "", b, protowire.ParseError(n)
	}
	return v, b[n:], nil
}

func takeVarint(b []byte) (uint64, []byte, error) {
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, b, protowire.ParseError(n)
	}
	return v, b[n:], nil
}

func takeBool(b []byte) (bool, []byte, error) {
	v, rest, err := takeVarint(b)
	return protowire.DecodeBool(v), rest, err
}

func takeFixed64(b []byte) (uint64, []byte, error) {
	v, n := protowire.ConsumeFixed64(b)
	if n < 0 {
		return 0, b, protowire.ParseError(n)
	}
	return v, b[n:], nil
}

func takeMessage(b []byte, unmarshal func([]byte) error) ([]byte, error) {
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return b, protowire.ParseError(n)
	}
	if err := unmarshal(v); err != nil {
		return b, err
	}
	return b[n:], nil
}

// takeKinds accepts both packed and unpacked encodings of a repeated
// enum field.
func takeKinds(b []byte, num protowire.Number, typ protowire.Type, dst []ToolKind) ([]ToolKind, []byte, error) {
	switch typ {
	case protowire.BytesType:
		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return dst, b, protowire.ParseError(n)
		}
		for len(v) > 0 {
			x, xn := protowire.ConsumeVarint(v)
			if xn < 0 {
				return dst, b, protowire.ParseError(xn)
			}
			dst = append(dst, ToolKind(x))
			v = v[xn:]
		}
		return dst, b[n:], nil
	case protowire.VarintType:
		x, rest, err := takeVarint(b)
		if err != nil {
			return dst, b, err
		}
		return append(dst, ToolKind(x)), rest, nil
	default:
		rest, err := skipField(b, num, typ)
		return dst, rest, err
	}
}

func skipField(b []byte, num protowire.Number, typ protowire.Type) ([]byte, error) {
	n := protowire.ConsumeFieldValue(num, typ, b)
	if n < 0 {
		return b, protowire.ParseError(n)
	}
	return b[n:], nil
}
