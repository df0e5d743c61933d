package wire

// ToolKind identifies the upstream tool family carried on tool calls and
// results. The gateway only originates Mcp declarations; WebSearch appears
// on inbound calls when the upstream searches on its own.
type ToolKind int32

const (
	ToolKindUnspecified ToolKind = 0
	ToolKindWebSearch   ToolKind = 18
	ToolKindMcp         ToolKind = 19
)

// MessageType distinguishes the author of a conversation message.
type MessageType int32

const (
	MessageTypeUnspecified MessageType = 0
	MessageTypeHuman       MessageType = 1
	MessageTypeAssistant   MessageType = 2
)

// ChatMode selects the upstream conversation mode. Agent mode enables
// tool calling.
type ChatMode int32

const (
	ChatModeUnspecified ChatMode = 0
	ChatModeChat        ChatMode = 1
	ChatModeAgent       ChatMode = 2
)

// ThinkingLevel requests extended reasoning from models that support it.
type ThinkingLevel int32

const (
	ThinkingLevelUnspecified ThinkingLevel = 0
	ThinkingLevelMedium      ThinkingLevel = 1
	ThinkingLevelHigh        ThinkingLevel = 2
)

// RequestEnvelope is the outbound wire message. Exactly one of Request and
// ToolResult is set: a new conversation turn, or the client-side result of
// a tool call the upstream asked for.
type RequestEnvelope struct {
	Request    *ChatRequest // field 1
	ToolResult *ToolResult  // field 2
}

// ChatRequest carries one full conversation turn upstream.
type ChatRequest struct {
	Conversation       []*ConversationMessage // field 1
	ExplicitContext    *ExplicitContext       // field 3
	ModelDetails       *ModelDetails          // field 5
	ShouldCache        bool                   // field 13
	IsChat             bool                   // field 22
	ConversationID     string                 // field 23
	IsAgentic          bool                   // field 27
	SupportedTools     []ToolKind             // field 29, packed
	McpTools           []*McpTool             // field 34
	UnifiedMode        ChatMode               // field 46
	ShouldDisableTools bool                   // field 48
	ThinkingLevel      ThinkingLevel          // field 49
	UnifiedModeName    string                 // field 54
}

// ConversationMessage is one bubble of conversation history.
type ConversationMessage struct {
	Text           string               // field 1
	Type           MessageType          // field 2
	BubbleID       string               // field 13
	ToolResults    []*MessageToolResult // field 18
	IsAgentic      bool                 // field 29
	ServerBubbleID string               // field 32
	WebReferences  []*WebReference      // field 36
	Thinking       *Thinking            // field 45
	UnifiedMode    ChatMode             // field 47
	SupportedTools []ToolKind           // field 51, packed
}

// MessageToolResult replays a resolved tool call inside conversation
// history: what was called, what came back, and the model-call identity
// recovered from the composite tool-call id.
type MessageToolResult struct {
	ToolCallID  string           // field 1
	ToolName    string           // field 2
	ToolIndex   uint32           // field 3
	RawArgs     string           // field 5
	Result      *ToolResult      // field 8
	Error       *ToolResultError // field 9
	ToolCall    *ToolCall        // field 11
	ModelCallID string           // field 12
}

// ExplicitContext carries system-prompt text upstream.
type ExplicitContext struct {
	Context string // field 1
}

// ModelDetails names the upstream model for a request.
type ModelDetails struct {
	ModelName      string // field 1
	EnableSlowPool bool   // field 5
	MaxMode        bool   // field 8
}

// McpTool declares one callable tool to the upstream. Parameters holds the
// JSON Schema of the tool's arguments, serialized.
type McpTool struct {
	Name        string // field 1
	Description string // field 2
	Parameters  string // field 3
	ServerName  string // field 4
}

// McpParams is the tool-declaration set attached to an inbound tool call.
type McpParams struct {
	Tools []*McpTool // field 1
}

// McpResult is the payload of a completed tool call sent back upstream.
type McpResult struct {
	SelectedTool string // field 1
	Result       string // field 2
}

// ToolResultError reports a failed tool execution in model-visible form.
type ToolResultError struct {
	ModelVisibleError string // field 2
}

// ResponseEnvelope is one inbound wire message. Exactly one of ToolCall and
// Response is set.
type ResponseEnvelope struct {
	ToolCall *ToolCall     // field 1
	Response *ChatResponse // field 2
}

// ToolCall announces, or streams arguments for, one upstream-initiated tool
// invocation.
//
// The first announcement for a call carries IsStreaming=true and empty
// RawArgs; argument fragments follow on subsequent ToolCall messages with
// the same ToolIndex. ToolIndex is a pointer because index zero is a valid
// position and absence is meaningful.
type ToolCall struct {
	Tool          ToolKind   // field 1
	ToolCallID    string     // field 3
	Name          string     // field 9
	RawArgs       string     // field 10
	IsStreaming   bool       // field 14
	IsLastMessage bool       // field 15
	McpParams     *McpParams // field 27
	ToolIndex     *uint32    // field 48
	ModelCallID   string     // field 49
}

// ToolResult carries a finished tool execution back upstream, correlated to
// the originating call by ToolCallID and, when known, ModelCallID.
type ToolResult struct {
	Tool        ToolKind         // field 1
	Error       *ToolResultError // field 8
	McpResult   *McpResult       // field 28
	ToolCallID  string           // field 35
	ModelCallID string           // field 48
	ToolIndex   *uint32          // field 49
}

// ChatResponse is one inbound content message: a text fragment, a thinking
// fragment, web citations, or final usage.
type ChatResponse struct {
	Text        string       // field 1
	WebCitation *WebCitation // field 11
	Thinking    *Thinking    // field 25
	Usage       *TokenUsage  // field 40
}

// WebCitation groups the web references attached to a response fragment.
type WebCitation struct {
	References []*WebReference // field 1
}

// WebReference is one cited web source.
type WebReference struct {
	URL   string // field 1
	Title string // field 2
	Chunk string // field 3
}

// Thinking is a reasoning fragment. Signature arrives on the last fragment
// of a block; RedactedThinking replaces Text when the upstream withholds
// the content.
type Thinking struct {
	Text             string // field 1
	Signature        string // field 2
	RedactedThinking string // field 3
}

// TokenUsage is the end-of-stream accounting message.
type TokenUsage struct {
	InputTokens      uint32  // field 1
	OutputTokens     uint32  // field 2
	CacheWriteTokens uint32  // field 3
	CacheReadTokens  uint32  // field 4
	TotalCents       float64 // field 5
}
