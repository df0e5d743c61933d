package adapter

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/RelientS/cursor-api/pkg/upstream"
)

func decodeOpenAIChunk(t *testing.T, chunk Chunk) openAIChunk {
	t.Helper()
	var out openAIChunk
	if err := json.Unmarshal(chunk.Data, &out); err != nil {
		t.Fatalf("decode chunk %q: %v", chunk.Data, err)
	}
	return out
}

func soleDelta(t *testing.T, chunk Chunk) openAIDelta {
	t.Helper()
	decoded := decodeOpenAIChunk(t, chunk)
	if len(decoded.Choices) != 1 || decoded.Choices[0].Delta == nil {
		t.Fatalf("chunk has no delta choice: %s", chunk.Data)
	}
	return *decoded.Choices[0].Delta
}

func TestOpenAI_TextStream(t *testing.T) {
	a := NewOpenAI("gpt-4o", false)
	chunks := feedAll(t, a,
		upstream.TextDelta{Text: "Hel"},
		upstream.TextDelta{Text: "lo"},
		upstream.Done{},
	)
	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d", len(chunks))
	}

	first := decodeOpenAIChunk(t, chunks[0])
	if first.Object != objectChatCompletionChunk {
		t.Errorf("object = %q", first.Object)
	}
	if !strings.HasPrefix(first.ID, "chatcmpl-") {
		t.Errorf("id = %q", first.ID)
	}
	if first.Model != "gpt-4o" {
		t.Errorf("first chunk model = %q", first.Model)
	}
	delta := soleDelta(t, chunks[0])
	if delta.Role != "assistant" || delta.Content != "Hel" {
		t.Errorf("first delta = %+v", delta)
	}
	if !strings.Contains(string(chunks[0].Data), `"finish_reason":null`) {
		t.Errorf("finish_reason not null: %s", chunks[0].Data)
	}

	second := decodeOpenAIChunk(t, chunks[1])
	if second.Model != "" {
		t.Errorf("model repeated on second chunk: %q", second.Model)
	}
	if second.ID != first.ID {
		t.Errorf("id changed mid-stream: %q vs %q", second.ID, first.ID)
	}
	if delta := soleDelta(t, chunks[1]); delta.Role != "" || delta.Content != "lo" {
		t.Errorf("second delta = %+v", delta)
	}

	finish := decodeOpenAIChunk(t, chunks[2])
	if fr := finish.Choices[0].FinishReason; fr == nil || *fr != "stop" {
		t.Errorf("finish_reason = %v", fr)
	}
	if strings.Contains(string(chunks[2].Data), `"usage"`) {
		t.Errorf("usage present without include_usage: %s", chunks[2].Data)
	}

	if string(chunks[3].Data) != openAIDone {
		t.Errorf("terminator = %q", chunks[3].Data)
	}
}

func TestOpenAI_ToolCallFlow(t *testing.T) {
	a := NewOpenAI("gpt-4o", false)
	chunks := feedAll(t, a,
		upstream.ToolCallBegin{Index: 0, ToolCallID: "call_1", ModelCallID: "mc1", Name: "search"},
		upstream.ToolCallArgsDelta{Index: 0, Args: `{"q":`},
		upstream.ToolCallArgsDelta{Index: 0, Args: `"x"}`},
		upstream.ToolCallBegin{Index: 1, ToolCallID: "call_2", ModelCallID: "mc1", Name: "search"},
		upstream.Done{},
	)
	if len(chunks) != 6 {
		t.Fatalf("expected 6 chunks, got %d", len(chunks))
	}

	open := soleDelta(t, chunks[0])
	if open.Role != "assistant" {
		t.Errorf("first chunk missing role: %+v", open)
	}
	want := openAIToolCallDelta{
		Index:    0,
		ID:       "call_1\nmc_mc1",
		Type:     "function",
		Function: openAIToolFunction{Name: "search"},
	}
	if !reflect.DeepEqual(open.ToolCalls[0], want) {
		t.Errorf("call announcement = %+v, want %+v", open.ToolCalls[0], want)
	}

	frag := soleDelta(t, chunks[1]).ToolCalls[0]
	if frag.ID != "" || frag.Type != "" || frag.Function.Name != "" {
		t.Errorf("fragment repeats announcement fields: %+v", frag)
	}
	if frag.Index != 0 || frag.Function.Arguments != `{"q":` {
		t.Errorf("fragment = %+v", frag)
	}
	if got := soleDelta(t, chunks[2]).ToolCalls[0].Function.Arguments; got != `"x"}` {
		t.Errorf("second fragment arguments = %q", got)
	}

	second := soleDelta(t, chunks[3]).ToolCalls[0]
	if second.Index != 1 || second.ID != "call_2\nmc_mc1" {
		t.Errorf("second announcement = %+v", second)
	}

	finish := decodeOpenAIChunk(t, chunks[4])
	if fr := finish.Choices[0].FinishReason; fr == nil || *fr != "tool_calls" {
		t.Errorf("finish_reason = %v", fr)
	}
	if string(chunks[5].Data) != openAIDone {
		t.Errorf("terminator = %q", chunks[5].Data)
	}
}

func TestOpenAI_UpstreamIndexMapping(t *testing.T) {
	a := NewOpenAI("gpt-4o", false)
	feedAll(t, a,
		upstream.ToolCallBegin{Index: 5, ToolCallID: "c5", ModelCallID: "m", Name: "first"},
		upstream.ToolCallBegin{Index: 9, ToolCallID: "c9", ModelCallID: "m", Name: "second"},
	)

	chunks := a.Feed(upstream.ToolCallArgsDelta{Index: 9, Args: "{}"})
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if call := soleDelta(t, chunks[0]).ToolCalls[0]; call.Index != 1 {
		t.Errorf("downstream index = %d, want 1", call.Index)
	}

	if got := a.Feed(upstream.ToolCallArgsDelta{Index: 2, Args: "{}"}); got != nil {
		t.Errorf("fragment for unknown call emitted %d chunks", len(got))
	}
}

func TestOpenAI_IncludeUsage(t *testing.T) {
	a := NewOpenAI("gpt-4o", true)
	chunks := feedAll(t, a,
		upstream.TextDelta{Text: "hi"},
		upstream.Usage{InputTokens: 10, OutputTokens: 7, CacheWriteTokens: 5, CacheReadTokens: 3},
		upstream.Done{},
	)
	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d", len(chunks))
	}
	for _, chunk := range chunks[:2] {
		if !strings.Contains(string(chunk.Data), `"usage":null`) {
			t.Errorf("delta chunk missing null usage: %s", chunk.Data)
		}
	}

	var usageChunk struct {
		Choices []json.RawMessage `json:"choices"`
		Usage   openAIUsage       `json:"usage"`
	}
	if err := json.Unmarshal(chunks[2].Data, &usageChunk); err != nil {
		t.Fatalf("decode usage chunk: %v", err)
	}
	if len(usageChunk.Choices) != 0 {
		t.Errorf("usage chunk carries choices: %s", chunks[2].Data)
	}
	want := openAIUsage{
		PromptTokens:        18,
		CompletionTokens:    7,
		TotalTokens:         25,
		PromptTokensDetails: &openAIPromptTokensDetails{CachedTokens: 3},
	}
	if !reflect.DeepEqual(usageChunk.Usage, want) {
		t.Errorf("usage = %+v, want %+v", usageChunk.Usage, want)
	}

	if string(chunks[3].Data) != openAIDone {
		t.Errorf("terminator = %q", chunks[3].Data)
	}
}

func TestOpenAI_ReasoningAndCitations(t *testing.T) {
	a := NewOpenAI("gpt-4o", false)

	chunks := a.Feed(upstream.ReasoningDelta{Text: "mull"})
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if delta := soleDelta(t, chunks[0]); delta.ReasoningContent != "mull" || delta.Role != "assistant" {
		t.Errorf("reasoning delta = %+v", delta)
	}

	if got := a.Feed(upstream.ReasoningDelta{Signature: "c2ln"}); got != nil {
		t.Errorf("signature emitted %d chunks", len(got))
	}
	if got := a.Feed(upstream.ReasoningDelta{Redacted: "opaque"}); got != nil {
		t.Errorf("redacted reasoning emitted %d chunks", len(got))
	}

	chunks = a.Feed(upstream.WebCitation{References: []upstream.WebReference{
		{URL: "https://example.com", Title: "Example"},
	}})
	ann := soleDelta(t, chunks[0]).Annotations[0]
	if ann.Type != "url_citation" || ann.URLCitation.URL != "https://example.com" || ann.URLCitation.Title != "Example" {
		t.Errorf("annotation = %+v", ann)
	}
}

func TestOpenAI_ErrorSignal(t *testing.T) {
	a := NewOpenAI("gpt-4o", false)
	a.Feed(upstream.TextDelta{Text: "partial"})

	chunks := a.Feed(upstream.ErrorSignal{Code: "rate_limited", Message: "rate limited", Detail: "too many requests"})
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	var envelope openAIErrorEnvelope
	if err := json.Unmarshal(chunks[0].Data, &envelope); err != nil {
		t.Fatalf("decode error chunk: %v", err)
	}
	if envelope.Error.Code != "rate_limited" || envelope.Error.Message != "too many requests" {
		t.Errorf("error body = %+v", envelope.Error)
	}
	if string(chunks[1].Data) != openAIDone {
		t.Errorf("terminator = %q", chunks[1].Data)
	}

	if got := a.Feed(upstream.Done{}); got != nil {
		t.Errorf("adapter emitted %d chunks after terminal event", len(got))
	}
}

func TestOpenAIAccumulator(t *testing.T) {
	acc := NewOpenAIAccumulator("gpt-4o")
	for _, ev := range []upstream.Event{
		upstream.ReasoningDelta{Text: "think"},
		upstream.TextDelta{Text: "Hello "},
		upstream.TextDelta{Text: "world"},
		upstream.ToolCallBegin{Index: 0, ToolCallID: "c1", ModelCallID: "m1", Name: "search"},
		upstream.ToolCallArgsDelta{Index: 0, Args: `{"q":`},
		upstream.ToolCallArgsDelta{Index: 0, Args: `"x"}`},
		upstream.ToolCallEnd{Index: 0},
		upstream.Usage{InputTokens: 4, OutputTokens: 2},
		upstream.Done{},
	} {
		acc.Feed(ev)
	}

	completion, failure := acc.Result()
	if failure != nil {
		t.Fatalf("unexpected failure: %v", failure)
	}
	if completion.Object != objectChatCompletion {
		t.Errorf("object = %q", completion.Object)
	}
	message := completion.Choices[0].Message
	if message.Role != "assistant" || message.Content != "Hello world" {
		t.Errorf("message = %+v", message)
	}
	if message.ReasoningContent != "think" {
		t.Errorf("reasoning_content = %q", message.ReasoningContent)
	}
	call := message.ToolCalls[0]
	if call.ID != "c1\nmc_m1" || call.Function.Name != "search" {
		t.Errorf("tool call = %+v", call)
	}
	if call.Function.Arguments != `{"q":"x"}` {
		t.Errorf("arguments = %q", call.Function.Arguments)
	}
	if fr := completion.Choices[0].FinishReason; fr == nil || *fr != "tool_calls" {
		t.Errorf("finish_reason = %v", fr)
	}
	if completion.Usage.PromptTokens != 4 || completion.Usage.CompletionTokens != 2 {
		t.Errorf("usage = %+v", completion.Usage)
	}
}

func TestOpenAIAccumulator_Failure(t *testing.T) {
	acc := NewOpenAIAccumulator("gpt-4o")
	acc.Feed(upstream.TextDelta{Text: "partial"})
	acc.Feed(upstream.ErrorSignal{Code: "unavailable", Message: "upstream gone"})

	completion, failure := acc.Result()
	if completion != nil {
		t.Errorf("completion returned alongside failure")
	}
	if failure == nil || failure.Code != "unavailable" {
		t.Errorf("failure = %+v", failure)
	}
}
