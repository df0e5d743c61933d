package upstream

import (
	"strings"

	"github.com/google/uuid"

	"github.com/RelientS/cursor-api/pkg/toolid"
	"github.com/RelientS/cursor-api/pkg/wire"
)

// Role identifies the author of a neutral conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolDecl declares one callable tool.
type ToolDecl struct {
	Name        string
	Description string
	InputSchema string // JSON Schema, serialized
}

// ThinkingBlock replays prior assistant reasoning. Signature must survive
// the round trip or the upstream rejects the replayed block.
type ThinkingBlock struct {
	Text      string
	Signature string
	Redacted  string
}

// ToolOutcome is a client-reported tool result. ID is the composite id the
// client quotes back; the model-call identity inside it is recovered during
// encoding. Name and Args describe the originating call when the downstream
// shape carries them.
type ToolOutcome struct {
	ID      string
	Name    string
	Args    string
	Content string
	IsError bool
}

// Turn is one neutral conversation turn. Results is populated on RoleTool
// turns only.
type Turn struct {
	Role     Role
	Text     string
	Thinking []ThinkingBlock
	Results  []ToolOutcome
}

// Conversation is the neutral request model both downstream dialects reduce
// to before encoding.
type Conversation struct {
	System         string
	Turns          []Turn
	Tools          []ToolDecl
	Model          string
	MaxMode        bool
	EnableSlowPool bool
	Thinking       bool
	ConversationID string
}

// Mode names the upstream expects alongside the numeric mode enum.
const (
	askModeName   = "Ask"
	agentModeName = "Agent"
)

// The upstream accepts a constant index on replayed calls.
const replayToolIndex = 1

// Encode builds the complete framed request body for one conversation turn.
func Encode(conv *Conversation) []byte {
	env := &wire.RequestEnvelope{Request: buildRequest(conv)}
	return wire.EncodeFrame(wire.KindProto<<1, env.Marshal())
}

func buildRequest(conv *Conversation) *wire.ChatRequest {
	isChat := len(conv.Tools) == 0
	isAgentic := !isChat

	var supported []wire.ToolKind
	mode := wire.ChatModeChat
	modeName := askModeName
	if isAgentic {
		supported = []wire.ToolKind{wire.ToolKindMcp}
		mode = wire.ChatModeAgent
		modeName = agentModeName
	}

	messages := buildMessages(conv.Turns, mode, isAgentic)
	// Tool support is read off the final message as well as the request.
	if len(messages) > 0 {
		messages[len(messages)-1].SupportedTools = supported
	}

	conversationID := conv.ConversationID
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	var thinking wire.ThinkingLevel
	if conv.Thinking {
		thinking = wire.ThinkingLevelHigh
	}

	req := &wire.ChatRequest{
		Conversation: messages,
		ModelDetails: &wire.ModelDetails{
			ModelName:      conv.Model,
			EnableSlowPool: conv.EnableSlowPool,
			MaxMode:        conv.MaxMode,
		},
		ShouldCache:        true,
		IsChat:             isChat,
		ConversationID:     conversationID,
		IsAgentic:          isAgentic,
		SupportedTools:     supported,
		McpTools:           buildTools(conv.Tools),
		UnifiedMode:        mode,
		ShouldDisableTools: isChat,
		ThinkingLevel:      thinking,
		UnifiedModeName:    modeName,
	}
	if conv.System != "" {
		req.ExplicitContext = &wire.ExplicitContext{Context: conv.System}
	}
	return req
}

func buildMessages(turns []Turn, mode wire.ChatMode, isAgentic bool) []*wire.ConversationMessage {
	messages := make([]*wire.ConversationMessage, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case RoleUser:
			messages = append(messages, &wire.ConversationMessage{
				Text:        turn.Text,
				Type:        wire.MessageTypeHuman,
				BubbleID:    uuid.NewString(),
				IsAgentic:   isAgentic,
				UnifiedMode: mode,
			})
		case RoleAssistant:
			messages = append(messages, &wire.ConversationMessage{
				Text:           turn.Text,
				Type:           wire.MessageTypeAssistant,
				BubbleID:       uuid.NewString(),
				ServerBubbleID: uuid.NewString(),
				Thinking:       mergeThinking(turn.Thinking),
				UnifiedMode:    mode,
			})
		case RoleTool:
			if len(turn.Results) == 0 {
				continue
			}
			// Resolved calls replay as an assistant-authored message
			// carrying the results.
			messages = append(messages, &wire.ConversationMessage{
				Type:           wire.MessageTypeAssistant,
				BubbleID:       uuid.NewString(),
				ServerBubbleID: uuid.NewString(),
				ToolResults:    buildToolResults(turn.Results),
				UnifiedMode:    mode,
			})
		}
	}
	return messages
}

func buildToolResults(outcomes []ToolOutcome) []*wire.MessageToolResult {
	results := make([]*wire.MessageToolResult, 0, len(outcomes))
	for _, out := range outcomes {
		id := toolid.Parse(out.ID)
		idx := uint32(replayToolIndex)

		var callErr *wire.ToolResultError
		if out.IsError {
			callErr = &wire.ToolResultError{ModelVisibleError: out.Content}
		}

		results = append(results, &wire.MessageToolResult{
			ToolCallID:  id.ToolCallID,
			ToolName:    out.Name,
			ToolIndex:   replayToolIndex,
			RawArgs:     out.Args,
			ModelCallID: id.ModelCallID,
			Error:       callErr,
			Result: &wire.ToolResult{
				Tool:        wire.ToolKindMcp,
				ToolCallID:  id.ToolCallID,
				ModelCallID: id.ModelCallID,
				ToolIndex:   &idx,
				Error:       callErr,
				McpResult: &wire.McpResult{
					SelectedTool: out.Name,
					Result:       out.Content,
				},
			},
			ToolCall: &wire.ToolCall{
				Tool:       wire.ToolKindMcp,
				ToolCallID: out.ID,
				Name:       out.Name,
				ToolIndex:  &idx,
				McpParams: &wire.McpParams{Tools: []*wire.McpTool{{
					Name:       out.Name,
					Parameters: out.Args,
				}}},
			},
		})
	}
	return results
}

func buildTools(tools []ToolDecl) []*wire.McpTool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]*wire.McpTool, 0, len(tools))
	for _, t := range tools {
		out = append(out, &wire.McpTool{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.InputSchema,
			ServerName:  sanitizeToolName(t.Name),
		})
	}
	return out
}

// mergeThinking keeps a single replayed block intact, signature included.
// Multiple blocks collapse to their joined text; signatures cannot survive
// a merge.
func mergeThinking(blocks []ThinkingBlock) *wire.Thinking {
	switch len(blocks) {
	case 0:
		return nil
	case 1:
		return &wire.Thinking{
			Text:             blocks[0].Text,
			Signature:        blocks[0].Signature,
			RedactedThinking: blocks[0].Redacted,
		}
	default:
		var sb strings.Builder
		for _, b := range blocks {
			sb.WriteString(b.Text)
		}
		return &wire.Thinking{Text: sb.String()}
	}
}

// sanitizeToolName reduces a tool name to the character set the upstream
// accepts for server names: dots and whitespace become underscores, other
// non [a-zA-Z0-9_-] characters are dropped.
func sanitizeToolName(name string) string {
	var sb strings.Builder
	sb.Grow(len(name))
	for _, c := range name {
		switch {
		case c == '.' || c == ' ' || c == '\t' || c == '\n' || c == '\r':
			sb.WriteByte('_')
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '-':
			sb.WriteRune(c)
		}
	}
	return sb.String()
}
