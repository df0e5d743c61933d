package wire

import (
	"reflect"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

func uint32p(v uint32) *uint32 { return &v }

func TestRequestEnvelope_RoundTrip(t *testing.T) {
	env := &RequestEnvelope{
		Request: &ChatRequest{
			Conversation: []*ConversationMessage{
				{
					Text:           "What is the weather in Paris?",
					Type:           MessageTypeHuman,
					BubbleID:       "b-1",
					SupportedTools: []ToolKind{ToolKindMcp},
				},
				{
					Text:           "Let me check.",
					Type:           MessageTypeAssistant,
					BubbleID:       "b-2",
					ServerBubbleID: "sb-2",
					IsAgentic:      true,
					Thinking: &Thinking{
						Text:      "the user wants weather",
						Signature: "sig-abc",
					},
					ToolResults: []*MessageToolResult{
						{
							ToolCallID:  "call_1",
							ToolName:    "get_weather",
							ToolIndex:   2,
							RawArgs:     `{"city":"Paris"}`,
							ModelCallID: "mc-77",
							Result: &ToolResult{
								Tool:       ToolKindMcp,
								ToolCallID: "call_1",
								McpResult:  &McpResult{SelectedTool: "get_weather", Result: `{"temp":21}`},
							},
						},
					},
				},
			},
			ExplicitContext: &ExplicitContext{Context: "You are terse."},
			ModelDetails:    &ModelDetails{ModelName: "gpt-4o", MaxMode: true},
			ShouldCache:     true,
			ConversationID:  "conv-123",
			IsAgentic:       true,
			SupportedTools:  []ToolKind{ToolKindMcp, ToolKindWebSearch},
			McpTools: []*McpTool{
				{Name: "get_weather", Description: "Fetch weather", Parameters: `{"type":"object"}`, ServerName: "gateway"},
			},
			UnifiedMode:     ChatModeAgent,
			ThinkingLevel:   ThinkingLevelHigh,
			UnifiedModeName: "agent",
		},
	}

	var got RequestEnvelope
	if err := got.Unmarshal(env.Marshal()); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !reflect.DeepEqual(&got, env) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", &got, env)
	}
}

func TestRequestEnvelope_ToolResultArm(t *testing.T) {
	env := &RequestEnvelope{
		ToolResult: &ToolResult{
			Tool:        ToolKindMcp,
			ToolCallID:  "call_9",
			ModelCallID: "mc-9",
			ToolIndex:   uint32p(0),
			McpResult:   &McpResult{SelectedTool: "search", Result: `{"hits":[]}`},
		},
	}

	var got RequestEnvelope
	if err := got.Unmarshal(env.Marshal()); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got.Request != nil {
		t.Error("expected no chat request on tool-result envelope")
	}
	if !reflect.DeepEqual(got.ToolResult, env.ToolResult) {
		t.Errorf("tool result mismatch:\n got %+v\nwant %+v", got.ToolResult, env.ToolResult)
	}
	// Index zero must survive: absence and zero are different things.
	if got.ToolResult.ToolIndex == nil {
		t.Fatal("expected tool index present")
	}
	if *got.ToolResult.ToolIndex != 0 {
		t.Errorf("expected tool index 0, got %d", *got.ToolResult.ToolIndex)
	}
}

func TestResponseEnvelope_RoundTrip(t *testing.T) {
	cases := []struct {
		name string
		env  *ResponseEnvelope
	}{
		{
			name: "tool call",
			env: &ResponseEnvelope{
				ToolCall: &ToolCall{
					Tool:        ToolKindMcp,
					ToolCallID:  "call_abc",
					Name:        "search",
					IsStreaming: true,
					ToolIndex:   uint32p(3),
					ModelCallID: "mc-55",
				},
			},
		},
		{
			name: "args fragment",
			env: &ResponseEnvelope{
				ToolCall: &ToolCall{RawArgs: `{"q":"go`, ToolIndex: uint32p(3)},
			},
		},
		{
			name: "text",
			env: &ResponseEnvelope{
				Response: &ChatResponse{Text: "hello "},
			},
		},
		{
			name: "thinking with signature",
			env: &ResponseEnvelope{
				Response: &ChatResponse{Thinking: &Thinking{Text: "hmm", Signature: "s1"}},
			},
		},
		{
			name: "citations",
			env: &ResponseEnvelope{
				Response: &ChatResponse{WebCitation: &WebCitation{References: []*WebReference{
					{URL: "https://example.com", Title: "Example", Chunk: "snippet"},
				}}},
			},
		},
		{
			name: "usage",
			env: &ResponseEnvelope{
				Response: &ChatResponse{Usage: &TokenUsage{
					InputTokens:     120,
					OutputTokens:    48,
					CacheReadTokens: 64,
					TotalCents:      0.35,
				}},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got ResponseEnvelope
			if err := got.Unmarshal(tc.env.Marshal()); err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			if !reflect.DeepEqual(&got, tc.env) {
				t.Errorf("round trip mismatch:\n got %+v\nwant %+v", &got, tc.env)
			}
		})
	}
}

func TestUnmarshal_SkipsUnknownFields(t *testing.T) {
	// A future upstream revision: known text field surrounded by fields
	// this decoder has never heard of.
	var inner []byte
	inner = protowire.AppendTag(inner, 900, protowire.VarintType)
	inner = protowire.AppendVarint(inner, 7)
	inner = appendString(inner, 1, "kept")
	inner = protowire.AppendTag(inner, 901, protowire.BytesType)
	inner = protowire.AppendBytes(inner, []byte("mystery payload"))
	inner = protowire.AppendTag(inner, 902, protowire.Fixed32Type)
	inner = protowire.AppendFixed32(inner, 42)

	var b []byte
	b = appendMessage(b, 2, inner)

	var env ResponseEnvelope
	if err := env.Unmarshal(b); err != nil {
		t.Fatalf("Unmarshal failed on unknown fields: %v", err)
	}
	if env.Response == nil {
		t.Fatal("expected response arm set")
	}
	if env.Response.Text != "kept" {
		t.Errorf("expected text %q, got %q", "kept", env.Response.Text)
	}
}

func TestUnmarshal_AcceptsUnpackedKinds(t *testing.T) {
	var req []byte
	req = protowire.AppendTag(req, 29, protowire.VarintType)
	req = protowire.AppendVarint(req, uint64(ToolKindMcp))
	req = protowire.AppendTag(req, 29, protowire.VarintType)
	req = protowire.AppendVarint(req, uint64(ToolKindWebSearch))

	var b []byte
	b = appendMessage(b, 1, req)

	var env RequestEnvelope
	if err := env.Unmarshal(b); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	want := []ToolKind{ToolKindMcp, ToolKindWebSearch}
	if !reflect.DeepEqual(env.Request.SupportedTools, want) {
		t.Errorf("expected tools %v, got %v", want, env.Request.SupportedTools)
	}
}

func TestUnmarshal_TruncatedPayload(t *testing.T) {
	env := &ResponseEnvelope{Response: &ChatResponse{Text: "some longer text body"}}
	raw := env.Marshal()

	var got ResponseEnvelope
	if err := got.Unmarshal(raw[:len(raw)-4]); err == nil {
		t.Error("expected error on truncated payload")
	}
}
