package upstream

import (
	"bytes"
	"compress/gzip"
	"reflect"
	"testing"

	"github.com/RelientS/cursor-api/pkg/wire"
)

func protoFrame(t *testing.T, env *wire.ResponseEnvelope) *wire.Frame {
	t.Helper()
	return &wire.Frame{Tag: wire.KindProto << 1, Payload: env.Marshal()}
}

func textFrame(t *testing.T, text string) *wire.Frame {
	t.Helper()
	return protoFrame(t, &wire.ResponseEnvelope{Response: &wire.ChatResponse{Text: text}})
}

func controlFrame(body string) *wire.Frame {
	return &wire.Frame{Tag: wire.KindJSON << 1, Payload: []byte(body)}
}

func toolCallFrame(t *testing.T, tc *wire.ToolCall) *wire.Frame {
	t.Helper()
	return protoFrame(t, &wire.ResponseEnvelope{ToolCall: tc})
}

func feedAll(ctx *Context, frames ...*wire.Frame) []Event {
	var events []Event
	for _, f := range frames {
		events = append(events, ctx.Feed(f)...)
	}
	return events
}

func TestContext_TextStream(t *testing.T) {
	ctx := NewContext(IdentityCollapse)
	if ctx.State() != StateIdle {
		t.Fatalf("new context state = %v, want %v", ctx.State(), StateIdle)
	}

	events := ctx.Feed(textFrame(t, "Hello"))
	if want := []Event{TextDelta{Text: "Hello"}}; !reflect.DeepEqual(events, want) {
		t.Fatalf("events = %#v, want %#v", events, want)
	}
	if ctx.State() != StateStreaming {
		t.Fatalf("state after first event = %v, want %v", ctx.State(), StateStreaming)
	}

	events = ctx.Feed(controlFrame("{}"))
	if want := []Event{Done{}}; !reflect.DeepEqual(events, want) {
		t.Fatalf("events = %#v, want %#v", events, want)
	}
	if ctx.State() != StateCompleted {
		t.Fatalf("state after end = %v, want %v", ctx.State(), StateCompleted)
	}
}

func TestContext_MultiFieldMessageKeepsOrder(t *testing.T) {
	ctx := NewContext(IdentityCollapse)
	events := ctx.Feed(protoFrame(t, &wire.ResponseEnvelope{Response: &wire.ChatResponse{
		Text: "answer",
		WebCitation: &wire.WebCitation{References: []*wire.WebReference{
			{URL: "https://example.com", Title: "Example", Chunk: "snippet"},
		}},
		Thinking: &wire.Thinking{Text: "because"},
		Usage:    &wire.TokenUsage{InputTokens: 10, OutputTokens: 4},
	}}))

	want := []Event{
		TextDelta{Text: "answer"},
		WebCitation{References: []WebReference{
			{URL: "https://example.com", Title: "Example", Chunk: "snippet"},
		}},
		ReasoningDelta{Text: "because"},
		Usage{InputTokens: 10, OutputTokens: 4},
	}
	if !reflect.DeepEqual(events, want) {
		t.Fatalf("events = %#v, want %#v", events, want)
	}
}

func TestContext_ToolCallLifecycle(t *testing.T) {
	ctx := NewContext(IdentityCollapse)

	events := feedAll(ctx,
		toolCallFrame(t, &wire.ToolCall{
			ToolCallID:  "call_1",
			ModelCallID: "m1",
			Name:        "search",
			RawArgs:     `{"q":`,
		}),
		toolCallFrame(t, &wire.ToolCall{RawArgs: `"go"}`}),
		toolCallFrame(t, &wire.ToolCall{
			ToolCallID:  "call_2",
			ModelCallID: "m2",
			Name:        "fetch",
		}),
		controlFrame("{}"),
	)

	want := []Event{
		ToolCallBegin{Index: 0, ToolCallID: "call_1", ModelCallID: "m1", Name: "search"},
		ToolCallArgsDelta{Index: 0, Args: `{"q":`},
		ToolCallArgsDelta{Index: 0, Args: `"go"}`},
		ToolCallEnd{Index: 0},
		ToolCallBegin{Index: 1, ToolCallID: "call_2", ModelCallID: "m1", Name: "fetch"},
		ToolCallEnd{Index: 1},
		Done{},
	}
	if !reflect.DeepEqual(events, want) {
		t.Fatalf("events = %#v, want %#v", events, want)
	}
	if ctx.ArgsLen() != len(`{"q":`)+len(`"go"}`) {
		t.Errorf("ArgsLen = %d, want %d", ctx.ArgsLen(), len(`{"q":`)+len(`"go"}`))
	}
}

func TestContext_IdentityCollapse(t *testing.T) {
	ctx := NewContext(IdentityCollapse)
	events := feedAll(ctx,
		toolCallFrame(t, &wire.ToolCall{ToolCallID: "c1", ModelCallID: "mA", Name: "a"}),
		toolCallFrame(t, &wire.ToolCall{ToolCallID: "c2", ModelCallID: "mB", Name: "b"}),
		toolCallFrame(t, &wire.ToolCall{ToolCallID: "c3", Name: "c"}),
	)

	var got []string
	for _, e := range events {
		if begin, ok := e.(ToolCallBegin); ok {
			got = append(got, begin.ModelCallID)
		}
	}
	if want := []string{"mA", "mA", "mA"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("model call ids = %v, want %v", got, want)
	}
}

func TestContext_IdentityPassthrough(t *testing.T) {
	ctx := NewContext(IdentityPassthrough)
	events := feedAll(ctx,
		toolCallFrame(t, &wire.ToolCall{ToolCallID: "c1", ModelCallID: "mA", Name: "a"}),
		toolCallFrame(t, &wire.ToolCall{ToolCallID: "c2", ModelCallID: "mB", Name: "b"}),
		toolCallFrame(t, &wire.ToolCall{ToolCallID: "c3", Name: "c"}),
	)

	var got []string
	for _, e := range events {
		if begin, ok := e.(ToolCallBegin); ok {
			got = append(got, begin.ModelCallID)
		}
	}
	if want := []string{"mA", "mB", ""}; !reflect.DeepEqual(got, want) {
		t.Fatalf("model call ids = %v, want %v", got, want)
	}
}

func TestContext_CollapseAdoptsFirstNonEmptyIdentity(t *testing.T) {
	ctx := NewContext(IdentityCollapse)
	events := feedAll(ctx,
		toolCallFrame(t, &wire.ToolCall{ToolCallID: "c1", Name: "a"}),
		toolCallFrame(t, &wire.ToolCall{ToolCallID: "c2", ModelCallID: "mB", Name: "b"}),
		toolCallFrame(t, &wire.ToolCall{ToolCallID: "c3", ModelCallID: "mC", Name: "c"}),
	)

	var got []string
	for _, e := range events {
		if begin, ok := e.(ToolCallBegin); ok {
			got = append(got, begin.ModelCallID)
		}
	}
	if want := []string{"", "mB", "mB"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("model call ids = %v, want %v", got, want)
	}
}

func TestContext_WireIndexWins(t *testing.T) {
	five := uint32(5)
	two := uint32(2)
	ctx := NewContext(IdentityCollapse)
	events := feedAll(ctx,
		toolCallFrame(t, &wire.ToolCall{ToolCallID: "c1", Name: "a", ToolIndex: &five}),
		toolCallFrame(t, &wire.ToolCall{ToolCallID: "c2", Name: "b"}),
		// Stale wire index must not move the stream backwards.
		toolCallFrame(t, &wire.ToolCall{ToolCallID: "c3", Name: "c", ToolIndex: &two}),
	)

	var got []uint32
	for _, e := range events {
		if begin, ok := e.(ToolCallBegin); ok {
			got = append(got, begin.Index)
		}
	}
	if want := []uint32{5, 6, 7}; !reflect.DeepEqual(got, want) {
		t.Fatalf("indices = %v, want %v", got, want)
	}
}

func TestContext_FragmentRouting(t *testing.T) {
	t.Run("explicit index", func(t *testing.T) {
		three := uint32(3)
		ctx := NewContext(IdentityCollapse)
		feedAll(ctx, toolCallFrame(t, &wire.ToolCall{ToolCallID: "c1", Name: "a"}))
		events := ctx.Feed(toolCallFrame(t, &wire.ToolCall{RawArgs: "x", ToolIndex: &three}))
		want := []Event{ToolCallArgsDelta{Index: 3, Args: "x"}}
		if !reflect.DeepEqual(events, want) {
			t.Fatalf("events = %#v, want %#v", events, want)
		}
	})

	t.Run("no open call", func(t *testing.T) {
		ctx := NewContext(IdentityCollapse)
		if events := ctx.Feed(toolCallFrame(t, &wire.ToolCall{RawArgs: "x"})); events != nil {
			t.Fatalf("expected orphan fragment to be dropped, got %#v", events)
		}
		if ctx.Skipped() != 1 {
			t.Errorf("Skipped = %d, want 1", ctx.Skipped())
		}
	})
}

func TestContext_SkipsMalformedInput(t *testing.T) {
	ctx := NewContext(IdentityCollapse)

	frames := []*wire.Frame{
		// Unknown frame kind.
		{Tag: 5 << 1, Payload: []byte("??")},
		// Compression flag set but payload is not gzip.
		{Tag: wire.KindProto<<1 | 0x01, Payload: []byte("not gzip")},
		// Payload is not a decodable message.
		{Tag: wire.KindProto << 1, Payload: []byte{0xff, 0xff, 0xff}},
		// Valid envelope bytes with neither arm populated (unknown field 3).
		{Tag: wire.KindProto << 1, Payload: []byte{0x18, 0x00}},
		// Control frame that is neither the end marker nor an error.
		controlFrame(`[1,2,3]`),
		// Empty payload, skipped before any decoding.
		{Tag: wire.KindProto << 1, Payload: nil},
	}
	for _, f := range frames {
		if events := ctx.Feed(f); events != nil {
			t.Fatalf("frame %v produced events %#v", f.Tag, events)
		}
	}

	if ctx.State() != StateIdle {
		t.Errorf("state = %v, want %v", ctx.State(), StateIdle)
	}
	// The empty payload is counted as processed but not skipped.
	if ctx.Processed() != len(frames) {
		t.Errorf("Processed = %d, want %d", ctx.Processed(), len(frames))
	}
	if ctx.Skipped() != len(frames)-1 {
		t.Errorf("Skipped = %d, want %d", ctx.Skipped(), len(frames)-1)
	}

	// The stream is still usable afterwards.
	events := ctx.Feed(textFrame(t, "still alive"))
	if want := []Event{TextDelta{Text: "still alive"}}; !reflect.DeepEqual(events, want) {
		t.Fatalf("events = %#v, want %#v", events, want)
	}
}

func TestContext_CompressedFrame(t *testing.T) {
	env := &wire.ResponseEnvelope{Response: &wire.ChatResponse{Text: "compressed"}}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(env.Marshal()); err != nil {
		t.Fatalf("gzip write failed: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close failed: %v", err)
	}

	ctx := NewContext(IdentityCollapse)
	events := ctx.Feed(&wire.Frame{Tag: wire.KindProto<<1 | 0x01, Payload: buf.Bytes()})
	if want := []Event{TextDelta{Text: "compressed"}}; !reflect.DeepEqual(events, want) {
		t.Fatalf("events = %#v, want %#v", events, want)
	}
}

func TestContext_ErrorSignal(t *testing.T) {
	body := `{"error":{"code":"resource_exhausted","message":"quota exceeded",` +
		`"details":[{"debug":{"error":"ERROR_QUOTA","details":{"title":"Quota",` +
		`"detail":"monthly limit reached","isExpected":true}}}]}}`

	ctx := NewContext(IdentityCollapse)
	feedAll(ctx, toolCallFrame(t, &wire.ToolCall{ToolCallID: "c1", Name: "a"}))

	events := ctx.Feed(controlFrame(body))
	want := []Event{ErrorSignal{
		Code:     "ERROR_QUOTA",
		Message:  "quota exceeded",
		Detail:   "monthly limit reached",
		Expected: true,
	}}
	if !reflect.DeepEqual(events, want) {
		t.Fatalf("events = %#v, want %#v", events, want)
	}
	if ctx.State() != StateFailed {
		t.Errorf("state = %v, want %v", ctx.State(), StateFailed)
	}
}

func TestContext_TerminalStateDropsFrames(t *testing.T) {
	for _, terminal := range []string{"{}", `{"error":{"code":"internal"}}`} {
		ctx := NewContext(IdentityCollapse)
		ctx.Feed(controlFrame(terminal))
		before := ctx.Processed()

		if events := ctx.Feed(textFrame(t, "late")); events != nil {
			t.Fatalf("terminal %q: late frame produced events %#v", terminal, events)
		}
		if ctx.Processed() != before {
			t.Errorf("terminal %q: late frame counted as processed", terminal)
		}
	}
}

func TestParseErrorSignal(t *testing.T) {
	tests := []struct {
		name string
		body string
		want ErrorSignal
		ok   bool
	}{
		{
			name: "plain code and message",
			body: `{"error":{"code":"unauthenticated","message":"bad token"}}`,
			want: ErrorSignal{Code: "unauthenticated", Message: "bad token"},
			ok:   true,
		},
		{
			name: "debug error overrides code",
			body: `{"error":{"code":"internal","details":[{"debug":{"error":"ERROR_X","details":{"title":"X happened"}}}]}}`,
			want: ErrorSignal{Code: "ERROR_X", Message: "X happened"},
			ok:   true,
		},
		{
			name: "missing code falls back to unknown",
			body: `{"error":{"message":"something"}}`,
			want: ErrorSignal{Code: "unknown", Message: "something"},
			ok:   true,
		},
		{
			name: "empty object is not a signal",
			body: `{"error":{}}`,
			ok:   false,
		},
		{
			name: "malformed json is not a signal",
			body: `{"error":`,
			ok:   false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseErrorSignal([]byte(tt.body))
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("signal = %#v, want %#v", got, tt.want)
			}
		})
	}
}
