package adapter

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/RelientS/cursor-api/pkg/toolid"
	"github.com/RelientS/cursor-api/pkg/upstream"
)

const (
	objectChatCompletion      = "chat.completion"
	objectChatCompletionChunk = "chat.completion.chunk"

	// openAIDone terminates every OpenAI-shape stream, error paths included.
	openAIDone = "[DONE]"
)

// Emission structs for the OpenAI dialect. Chunks reuse the response-level
// frame; the delta and message arms differ between streaming and aggregate
// responses.
type openAIChunk struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Created int64          `json:"created"`
	Model   string         `json:"model,omitempty"`
	Choices []openAIChoice `json:"choices,omitempty"`
	// Usage is raw so chunks can carry an explicit null when the caller
	// asked for usage, matching the reference dialect.
	Usage json.RawMessage `json:"usage,omitempty"`
}

type openAIChoice struct {
	Index        int            `json:"index"`
	Delta        *openAIDelta   `json:"delta,omitempty"`
	Message      *openAIMessage `json:"message,omitempty"`
	FinishReason *string        `json:"finish_reason"`
}

type openAIDelta struct {
	Role             string                `json:"role,omitempty"`
	Content          string                `json:"content,omitempty"`
	ReasoningContent string                `json:"reasoning_content,omitempty"`
	ToolCalls        []openAIToolCallDelta `json:"tool_calls,omitempty"`
	Annotations      []openAIAnnotation    `json:"annotations,omitempty"`
}

type openAIMessage struct {
	Role             string             `json:"role"`
	Content          string             `json:"content"`
	ReasoningContent string             `json:"reasoning_content,omitempty"`
	ToolCalls        []openAIToolCall   `json:"tool_calls,omitempty"`
	Annotations      []openAIAnnotation `json:"annotations,omitempty"`
}

type openAIToolCallDelta struct {
	Index    int                `json:"index"`
	ID       string             `json:"id,omitempty"`
	Type     string             `json:"type,omitempty"`
	Function openAIToolFunction `json:"function"`
}

type openAIToolCall struct {
	ID       string             `json:"id"`
	Type     string             `json:"type"`
	Function openAIToolFunction `json:"function"`
}

type openAIToolFunction struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments"`
}

type openAIAnnotation struct {
	Type        string            `json:"type"`
	URLCitation openAIURLCitation `json:"url_citation"`
}

type openAIURLCitation struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

type openAIUsage struct {
	PromptTokens        int                        `json:"prompt_tokens"`
	CompletionTokens    int                        `json:"completion_tokens"`
	TotalTokens         int                        `json:"total_tokens"`
	PromptTokensDetails *openAIPromptTokensDetails `json:"prompt_tokens_details,omitempty"`
}

type openAIPromptTokensDetails struct {
	CachedTokens int `json:"cached_tokens"`
}

type openAIErrorEnvelope struct {
	Error openAIErrorBody `json:"error"`
}

type openAIErrorBody struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// OpenAIError renders the dialect's error envelope.
func OpenAIError(code, message string) []byte {
	return encodeJSON(openAIErrorEnvelope{Error: openAIErrorBody{Code: code, Message: message}})
}

// OpenAICompletion is a complete non-streaming response.
type OpenAICompletion struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Created int64          `json:"created"`
	Model   string         `json:"model"`
	Choices []openAIChoice `json:"choices"`
	Usage   *openAIUsage   `json:"usage"`
}

func convertOpenAIUsage(u upstream.Usage) *openAIUsage {
	prompt := int(u.InputTokens) + int(u.CacheReadTokens) + int(u.CacheWriteTokens)
	usage := &openAIUsage{
		PromptTokens:     prompt,
		CompletionTokens: int(u.OutputTokens),
		TotalTokens:      prompt + int(u.OutputTokens),
	}
	if u.CacheReadTokens > 0 {
		usage.PromptTokensDetails = &openAIPromptTokensDetails{
			CachedTokens: int(u.CacheReadTokens),
		}
	}
	return usage
}

// OpenAI streams upstream events as chat.completion.chunk lines. The first
// content-bearing chunk announces the assistant role and the model; the
// finish chunk carries the only non-null finish_reason.
type OpenAI struct {
	id           string
	model        string
	created      int64
	includeUsage bool

	started   bool
	sawTool   bool
	toolIndex map[uint32]int
	usage     *openAIUsage
	done      bool
}

// NewOpenAI creates a streaming adapter for one response. includeUsage
// mirrors stream_options.include_usage: chunks carry an explicit null
// usage and a final usage chunk precedes the terminator.
func NewOpenAI(model string, includeUsage bool) *OpenAI {
	return &OpenAI{
		id:           "chatcmpl-" + uuid.NewString(),
		model:        model,
		created:      time.Now().Unix(),
		includeUsage: includeUsage,
		toolIndex:    make(map[uint32]int),
	}
}

// ID returns the response id shared by all chunks of this stream.
func (a *OpenAI) ID() string { return a.id }

// Feed implements StreamAdapter.
func (a *OpenAI) Feed(event upstream.Event) []Chunk {
	if a.done {
		return nil
	}
	switch ev := event.(type) {
	case upstream.TextDelta:
		return a.deltaChunk(openAIDelta{Content: ev.Text})

	case upstream.ReasoningDelta:
		// Signatures and redacted reasoning have no OpenAI rendering.
		if ev.Text == "" {
			return nil
		}
		return a.deltaChunk(openAIDelta{ReasoningContent: ev.Text})

	case upstream.ToolCallBegin:
		a.sawTool = true
		index := len(a.toolIndex)
		a.toolIndex[ev.Index] = index
		return a.deltaChunk(openAIDelta{ToolCalls: []openAIToolCallDelta{{
			Index:    index,
			ID:       toolid.Format(ev.ToolCallID, ev.ModelCallID),
			Type:     "function",
			Function: openAIToolFunction{Name: ev.Name},
		}}})

	case upstream.ToolCallArgsDelta:
		index, ok := a.toolIndex[ev.Index]
		if !ok {
			return nil
		}
		return a.deltaChunk(openAIDelta{ToolCalls: []openAIToolCallDelta{{
			Index:    index,
			Function: openAIToolFunction{Arguments: ev.Args},
		}}})

	case upstream.WebCitation:
		return a.deltaChunk(openAIDelta{Annotations: convertAnnotations(ev.References)})

	case upstream.Usage:
		a.usage = convertOpenAIUsage(ev)
		return nil

	case upstream.Done:
		a.done = true
		finish := "stop"
		if a.sawTool {
			finish = "tool_calls"
		}
		chunks := []Chunk{{Data: encodeJSON(openAIChunk{
			ID:      a.id,
			Object:  objectChatCompletionChunk,
			Created: a.created,
			Choices: []openAIChoice{{Delta: &openAIDelta{}, FinishReason: &finish}},
			Usage:   a.nullUsage(),
		})}}
		if a.includeUsage {
			usage := a.usage
			if usage == nil {
				usage = &openAIUsage{}
			}
			chunks = append(chunks, Chunk{Data: encodeJSON(openAIChunk{
				ID:      a.id,
				Object:  objectChatCompletionChunk,
				Created: a.created,
				Usage:   encodeJSON(usage),
			})})
		}
		return append(chunks, Chunk{Data: []byte(openAIDone)})

	case upstream.ErrorSignal:
		a.done = true
		return []Chunk{
			{Data: encodeJSON(openAIErrorEnvelope{Error: openAIErrorBody{
				Code:    ev.Code,
				Message: SignalMessage(ev),
			}})},
			{Data: []byte(openAIDone)},
		}

	default:
		return nil
	}
}

func (a *OpenAI) deltaChunk(delta openAIDelta) []Chunk {
	chunk := openAIChunk{
		ID:      a.id,
		Object:  objectChatCompletionChunk,
		Created: a.created,
		Usage:   a.nullUsage(),
	}
	if !a.started {
		a.started = true
		chunk.Model = a.model
		delta.Role = "assistant"
	}
	chunk.Choices = []openAIChoice{{Delta: &delta}}
	return []Chunk{{Data: encodeJSON(chunk)}}
}

func (a *OpenAI) nullUsage() json.RawMessage {
	if !a.includeUsage {
		return nil
	}
	return json.RawMessage("null")
}

func convertAnnotations(refs []upstream.WebReference) []openAIAnnotation {
	annotations := make([]openAIAnnotation, 0, len(refs))
	for _, ref := range refs {
		annotations = append(annotations, openAIAnnotation{
			Type:        "url_citation",
			URLCitation: openAIURLCitation{URL: ref.URL, Title: ref.Title},
		})
	}
	return annotations
}

// OpenAIAccumulator collects a whole stream into one chat.completion
// response for non-streaming callers.
type OpenAIAccumulator struct {
	id      string
	model   string
	created int64

	content     strings.Builder
	reasoning   strings.Builder
	annotations []openAIAnnotation
	calls       []openAIToolCall
	args        []strings.Builder
	byIndex     map[uint32]int
	usage       *openAIUsage
	failure     *upstream.ErrorSignal
}

// NewOpenAIAccumulator creates an accumulator for one response.
func NewOpenAIAccumulator(model string) *OpenAIAccumulator {
	return &OpenAIAccumulator{
		id:      "chatcmpl-" + uuid.NewString(),
		model:   model,
		created: time.Now().Unix(),
		byIndex: make(map[uint32]int),
	}
}

// Feed folds one event into the accumulated response.
func (a *OpenAIAccumulator) Feed(event upstream.Event) {
	switch ev := event.(type) {
	case upstream.TextDelta:
		a.content.WriteString(ev.Text)
	case upstream.ReasoningDelta:
		a.reasoning.WriteString(ev.Text)
	case upstream.WebCitation:
		a.annotations = append(a.annotations, convertAnnotations(ev.References)...)
	case upstream.ToolCallBegin:
		a.byIndex[ev.Index] = len(a.calls)
		a.calls = append(a.calls, openAIToolCall{
			ID:       toolid.Format(ev.ToolCallID, ev.ModelCallID),
			Type:     "function",
			Function: openAIToolFunction{Name: ev.Name},
		})
		a.args = append(a.args, strings.Builder{})
	case upstream.ToolCallArgsDelta:
		if index, ok := a.byIndex[ev.Index]; ok {
			a.args[index].WriteString(ev.Args)
		}
	case upstream.Usage:
		a.usage = convertOpenAIUsage(ev)
	case upstream.ErrorSignal:
		a.failure = &ev
	}
}

// Result returns the completed response, or the stream's failure signal.
func (a *OpenAIAccumulator) Result() (*OpenAICompletion, *upstream.ErrorSignal) {
	if a.failure != nil {
		return nil, a.failure
	}

	message := &openAIMessage{
		Role:             "assistant",
		Content:          a.content.String(),
		ReasoningContent: a.reasoning.String(),
		Annotations:      a.annotations,
	}
	finish := "stop"
	if len(a.calls) > 0 {
		finish = "tool_calls"
		message.ToolCalls = make([]openAIToolCall, len(a.calls))
		for i, call := range a.calls {
			call.Function.Arguments = a.args[i].String()
			message.ToolCalls[i] = call
		}
	}

	usage := a.usage
	if usage == nil {
		usage = &openAIUsage{}
	}
	return &OpenAICompletion{
		ID:      a.id,
		Object:  objectChatCompletion,
		Created: a.created,
		Model:   a.model,
		Choices: []openAIChoice{{Message: message, FinishReason: &finish}},
		Usage:   usage,
	}, nil
}
