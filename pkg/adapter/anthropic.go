package adapter

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/RelientS/cursor-api/pkg/toolid"
	"github.com/RelientS/cursor-api/pkg/upstream"
)

// SSE event names of the Anthropic dialect.
const (
	eventMessageStart      = "message_start"
	eventPing              = "ping"
	eventContentBlockStart = "content_block_start"
	eventContentBlockDelta = "content_block_delta"
	eventContentBlockStop  = "content_block_stop"
	eventMessageDelta      = "message_delta"
	eventMessageStop       = "message_stop"
	eventError             = "error"
)

// AnthropicMessage is the message object: the whole non-streaming response,
// and the embryonic form inside message_start.
type AnthropicMessage struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	Role         string         `json:"role"`
	Model        string         `json:"model"`
	Content      []any          `json:"content"`
	StopReason   *string        `json:"stop_reason"`
	StopSequence *string        `json:"stop_sequence"`
	Usage        anthropicUsage `json:"usage"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type anthropicMessageStart struct {
	Type    string           `json:"type"`
	Message AnthropicMessage `json:"message"`
}

type anthropicPing struct {
	Type string `json:"type"`
}

type anthropicBlockStart struct {
	Type         string `json:"type"`
	Index        int    `json:"index"`
	ContentBlock any    `json:"content_block"`
}

type anthropicBlockDelta struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
	Delta any    `json:"delta"`
}

type anthropicBlockStop struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
}

type anthropicMessageDelta struct {
	Type  string                    `json:"type"`
	Delta anthropicMessageDeltaBody `json:"delta"`
	Usage anthropicDeltaUsage       `json:"usage"`
}

type anthropicMessageDeltaBody struct {
	StopReason   string  `json:"stop_reason"`
	StopSequence *string `json:"stop_sequence"`
}

type anthropicDeltaUsage struct {
	OutputTokens int `json:"output_tokens"`
}

type anthropicMessageStop struct {
	Type string `json:"type"`
}

// Content blocks. Streaming block starts carry the empty payload fields
// explicitly, so none of them is omitempty except the thinking signature,
// which only appears on completed blocks.
type anthropicTextBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicThinkingBlock struct {
	Type      string `json:"type"`
	Thinking  string `json:"thinking"`
	Signature string `json:"signature,omitempty"`
}

type anthropicToolUseBlock struct {
	Type  string          `json:"type"`
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// Block deltas, one type per delta kind.
type anthropicTextDelta struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicThinkingDelta struct {
	Type     string `json:"type"`
	Thinking string `json:"thinking"`
}

type anthropicSignatureDelta struct {
	Type      string `json:"type"`
	Signature string `json:"signature"`
}

type anthropicInputJSONDelta struct {
	Type        string `json:"type"`
	PartialJSON string `json:"partial_json"`
}

type anthropicErrorEnvelope struct {
	Type  string             `json:"type"`
	Error anthropicErrorBody `json:"error"`
}

type anthropicErrorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// AnthropicError renders the dialect's error envelope.
func AnthropicError(code, message string) []byte {
	return encodeJSON(anthropicErrorEnvelope{
		Type:  "error",
		Error: anthropicErrorBody{Type: code, Message: message},
	})
}

type blockKind int

const (
	blockNone blockKind = iota
	blockText
	blockThinking
	blockTool
)

// Anthropic streams upstream events as the typed SSE sequence: message_start
// on the first content-bearing event, one ping after the first block opens,
// then block start/delta/stop cycles, message_delta and message_stop.
//
// A failed stream ends with a single error event instead of message_stop.
type Anthropic struct {
	id    string
	model string

	started     bool
	pingPending bool
	block       blockKind
	index       int
	sawTool     bool

	inputTokens  int
	outputTokens int
	done         bool
}

// NewAnthropic creates a streaming adapter for one response.
func NewAnthropic(model string) *Anthropic {
	return &Anthropic{
		id:    "msg_" + uuid.NewString(),
		model: model,
	}
}

// ID returns the message id shared by all events of this stream.
func (a *Anthropic) ID() string { return a.id }

// Feed implements StreamAdapter.
func (a *Anthropic) Feed(event upstream.Event) []Chunk {
	if a.done {
		return nil
	}
	switch ev := event.(type) {
	case upstream.TextDelta:
		chunks := a.ensureBlock(blockText, anthropicTextBlock{Type: "text"})
		return append(chunks, a.blockDelta(anthropicTextDelta{Type: "text_delta", Text: ev.Text}))

	case upstream.ReasoningDelta:
		if ev.Redacted != "" {
			return nil
		}
		var chunks []Chunk
		if ev.Text != "" {
			chunks = a.ensureBlock(blockThinking, anthropicThinkingBlock{Type: "thinking"})
			chunks = append(chunks, a.blockDelta(anthropicThinkingDelta{Type: "thinking_delta", Thinking: ev.Text}))
		}
		if ev.Signature != "" {
			chunks = append(chunks, a.ensureBlock(blockThinking, anthropicThinkingBlock{Type: "thinking"})...)
			chunks = append(chunks, a.blockDelta(anthropicSignatureDelta{Type: "signature_delta", Signature: ev.Signature}))
		}
		return chunks

	case upstream.ToolCallBegin:
		a.sawTool = true
		chunks := a.ensureMessage()
		chunks = append(chunks, a.closeBlock()...)
		return append(chunks, a.openBlock(blockTool, anthropicToolUseBlock{
			Type:  "tool_use",
			ID:    toolid.Format(ev.ToolCallID, ev.ModelCallID),
			Name:  ev.Name,
			Input: json.RawMessage("{}"),
		})...)

	case upstream.ToolCallArgsDelta:
		if a.block != blockTool || ev.Args == "" {
			return nil
		}
		return []Chunk{a.blockDelta(anthropicInputJSONDelta{Type: "input_json_delta", PartialJSON: ev.Args})}

	case upstream.ToolCallEnd:
		if a.block != blockTool {
			return nil
		}
		return a.closeBlock()

	case upstream.Usage:
		a.inputTokens = int(ev.InputTokens) + int(ev.CacheWriteTokens) + int(ev.CacheReadTokens)
		a.outputTokens = int(ev.OutputTokens)
		return nil

	case upstream.Done:
		a.done = true
		stop := "end_turn"
		if a.sawTool {
			stop = "tool_use"
		}
		chunks := a.ensureMessage()
		chunks = append(chunks, a.closeBlock()...)
		chunks = append(chunks, Chunk{Event: eventMessageDelta, Data: encodeJSON(anthropicMessageDelta{
			Type:  eventMessageDelta,
			Delta: anthropicMessageDeltaBody{StopReason: stop},
			Usage: anthropicDeltaUsage{OutputTokens: a.outputTokens},
		})})
		return append(chunks, Chunk{Event: eventMessageStop, Data: encodeJSON(anthropicMessageStop{Type: eventMessageStop})})

	case upstream.ErrorSignal:
		a.done = true
		return []Chunk{{Event: eventError, Data: AnthropicError(ev.Code, SignalMessage(ev))}}

	default:
		return nil
	}
}

func (a *Anthropic) ensureMessage() []Chunk {
	if a.started {
		return nil
	}
	a.started = true
	a.pingPending = true
	return []Chunk{{Event: eventMessageStart, Data: encodeJSON(anthropicMessageStart{
		Type: eventMessageStart,
		Message: AnthropicMessage{
			ID:      a.id,
			Type:    "message",
			Role:    "assistant",
			Model:   a.model,
			Content: []any{},
		},
	})}}
}

func (a *Anthropic) ensureBlock(kind blockKind, block any) []Chunk {
	chunks := a.ensureMessage()
	if a.block == kind {
		return chunks
	}
	chunks = append(chunks, a.closeBlock()...)
	return append(chunks, a.openBlock(kind, block)...)
}

func (a *Anthropic) openBlock(kind blockKind, block any) []Chunk {
	a.block = kind
	chunks := []Chunk{{Event: eventContentBlockStart, Data: encodeJSON(anthropicBlockStart{
		Type:         eventContentBlockStart,
		Index:        a.index,
		ContentBlock: block,
	})}}
	if a.pingPending {
		a.pingPending = false
		chunks = append(chunks, Chunk{Event: eventPing, Data: encodeJSON(anthropicPing{Type: eventPing})})
	}
	return chunks
}

func (a *Anthropic) closeBlock() []Chunk {
	if a.block == blockNone {
		return nil
	}
	chunk := Chunk{Event: eventContentBlockStop, Data: encodeJSON(anthropicBlockStop{
		Type:  eventContentBlockStop,
		Index: a.index,
	})}
	a.block = blockNone
	a.index++
	return []Chunk{chunk}
}

func (a *Anthropic) blockDelta(delta any) Chunk {
	return Chunk{Event: eventContentBlockDelta, Data: encodeJSON(anthropicBlockDelta{
		Type:  eventContentBlockDelta,
		Index: a.index,
		Delta: delta,
	})}
}

// accBlock is one accumulated content block in stream order.
type accBlock struct {
	kind      blockKind
	text      strings.Builder
	signature string
	toolID    string
	toolName  string
	args      strings.Builder
}

// AnthropicAccumulator collects a whole stream into one message object for
// non-streaming callers.
type AnthropicAccumulator struct {
	id    string
	model string

	blocks  []*accBlock
	curTool int
	sawTool bool
	usage   anthropicUsage
	failure *upstream.ErrorSignal
}

// NewAnthropicAccumulator creates an accumulator for one response.
func NewAnthropicAccumulator(model string) *AnthropicAccumulator {
	return &AnthropicAccumulator{
		id:      "msg_" + uuid.NewString(),
		model:   model,
		curTool: -1,
	}
}

func (a *AnthropicAccumulator) last(kind blockKind) *accBlock {
	if n := len(a.blocks); n > 0 && a.blocks[n-1].kind == kind {
		return a.blocks[n-1]
	}
	block := &accBlock{kind: kind}
	a.blocks = append(a.blocks, block)
	return block
}

// Feed folds one event into the accumulated message.
func (a *AnthropicAccumulator) Feed(event upstream.Event) {
	switch ev := event.(type) {
	case upstream.TextDelta:
		a.last(blockText).text.WriteString(ev.Text)
	case upstream.ReasoningDelta:
		if ev.Redacted != "" {
			return
		}
		block := a.last(blockThinking)
		block.text.WriteString(ev.Text)
		if ev.Signature != "" {
			block.signature = ev.Signature
		}
	case upstream.ToolCallBegin:
		a.sawTool = true
		a.blocks = append(a.blocks, &accBlock{
			kind:     blockTool,
			toolID:   toolid.Format(ev.ToolCallID, ev.ModelCallID),
			toolName: ev.Name,
		})
		a.curTool = len(a.blocks) - 1
	case upstream.ToolCallArgsDelta:
		if a.curTool >= 0 {
			a.blocks[a.curTool].args.WriteString(ev.Args)
		}
	case upstream.ToolCallEnd:
		a.curTool = -1
	case upstream.Usage:
		a.usage = anthropicUsage{
			InputTokens:  int(ev.InputTokens) + int(ev.CacheWriteTokens) + int(ev.CacheReadTokens),
			OutputTokens: int(ev.OutputTokens),
		}
	case upstream.ErrorSignal:
		a.failure = &ev
	}
}

// Result returns the completed message, or the stream's failure signal.
func (a *AnthropicAccumulator) Result() (*AnthropicMessage, *upstream.ErrorSignal) {
	if a.failure != nil {
		return nil, a.failure
	}

	content := make([]any, 0, len(a.blocks))
	for _, block := range a.blocks {
		switch block.kind {
		case blockText:
			content = append(content, anthropicTextBlock{Type: "text", Text: block.text.String()})
		case blockThinking:
			content = append(content, anthropicThinkingBlock{
				Type:      "thinking",
				Thinking:  block.text.String(),
				Signature: block.signature,
			})
		case blockTool:
			input := json.RawMessage("{}")
			if args := block.args.String(); json.Valid([]byte(args)) && args != "" {
				input = json.RawMessage(args)
			}
			content = append(content, anthropicToolUseBlock{
				Type:  "tool_use",
				ID:    block.toolID,
				Name:  block.toolName,
				Input: input,
			})
		}
	}

	stop := "end_turn"
	if a.sawTool {
		stop = "tool_use"
	}
	return &AnthropicMessage{
		ID:         a.id,
		Type:       "message",
		Role:       "assistant",
		Model:      a.model,
		Content:    content,
		StopReason: &stop,
		Usage:      a.usage,
	}, nil
}
