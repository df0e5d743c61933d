package session

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/RelientS/cursor-api/pkg/adapter"
	"github.com/RelientS/cursor-api/pkg/upstream"
	"github.com/RelientS/cursor-api/pkg/wire"
)

func respFrame(t *testing.T, env *wire.ResponseEnvelope) []byte {
	t.Helper()
	return wire.EncodeFrame(wire.KindProto<<1, env.Marshal())
}

func textFrame(t *testing.T, text string) []byte {
	t.Helper()
	return respFrame(t, &wire.ResponseEnvelope{Response: &wire.ChatResponse{Text: text}})
}

func controlFrame(body string) []byte {
	return wire.EncodeFrame(wire.KindJSON<<1, []byte(body))
}

func bodyOf(parts ...[]byte) io.ReadCloser {
	return io.NopCloser(bytes.NewReader(bytes.Join(parts, nil)))
}

func drain(t *testing.T, s *Session) []upstream.Event {
	t.Helper()
	var events []upstream.Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case event, ok := <-s.Events():
			if !ok {
				return events
			}
			events = append(events, event)
		case <-timeout:
			t.Fatalf("session did not finish; got %d events", len(events))
		}
	}
}

type trackedBody struct {
	io.Reader
	closed bool
}

func (b *trackedBody) Close() error {
	b.closed = true
	return nil
}

func TestSession_DeliversEventsInOrder(t *testing.T) {
	body := &trackedBody{Reader: bytes.NewReader(bytes.Join([][]byte{
		textFrame(t, "Hel"),
		textFrame(t, "lo"),
		controlFrame("{}"),
	}, nil))}

	s := Start(context.Background(), body, Config{})
	events := drain(t, s)

	want := []upstream.Event{
		upstream.TextDelta{Text: "Hel"},
		upstream.TextDelta{Text: "lo"},
		upstream.Done{},
	}
	if len(events) != len(want) {
		t.Fatalf("events = %#v, want %#v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event %d = %#v, want %#v", i, events[i], want[i])
		}
	}

	stats := s.Stats()
	if stats.Frames != 3 || stats.Skipped != 0 || stats.State != upstream.StateCompleted {
		t.Errorf("stats = %+v", stats)
	}
	if !body.closed {
		t.Error("response body not closed")
	}
}

// Drives the whole pipeline: two announcements whose second carries a
// different model-call identity, collapsed by the decoder, rendered by the
// OpenAI adapter with composite ids.
func TestSession_ToolCallsThroughOpenAIAdapter(t *testing.T) {
	body := bodyOf(
		respFrame(t, &wire.ResponseEnvelope{ToolCall: &wire.ToolCall{
			ToolCallID: "c1", ModelCallID: "m1", Name: "search",
		}}),
		respFrame(t, &wire.ResponseEnvelope{ToolCall: &wire.ToolCall{RawArgs: `{"q":`}}),
		respFrame(t, &wire.ResponseEnvelope{ToolCall: &wire.ToolCall{RawArgs: `"x"}`}}),
		respFrame(t, &wire.ResponseEnvelope{ToolCall: &wire.ToolCall{
			ToolCallID: "c2", ModelCallID: "m2", Name: "search",
		}}),
		controlFrame("{}"),
	)

	s := Start(context.Background(), body, Config{IdentityPolicy: upstream.IdentityCollapse})
	out := adapter.NewOpenAI("gpt-4o", false)
	var chunks []adapter.Chunk
	for event := range s.Events() {
		chunks = append(chunks, out.Feed(event)...)
	}

	if len(chunks) != 6 {
		t.Fatalf("expected 6 chunks, got %d", len(chunks))
	}
	first := string(chunks[0].Data)
	if !strings.Contains(first, `"id":"c1\nmc_m1"`) || !strings.Contains(first, `"name":"search"`) {
		t.Errorf("first announcement chunk = %s", first)
	}
	if got := string(chunks[1].Data); !strings.Contains(got, `"arguments":"{\"q\":"`) {
		t.Errorf("first fragment chunk = %s", got)
	}
	// The second call carries the collapsed identity, not its own.
	if got := string(chunks[3].Data); !strings.Contains(got, `"id":"c2\nmc_m1"`) {
		t.Errorf("second announcement chunk = %s", got)
	}
	if got := string(chunks[4].Data); !strings.Contains(got, `"finish_reason":"tool_calls"`) {
		t.Errorf("finish chunk = %s", got)
	}
	if string(chunks[5].Data) != "[DONE]" {
		t.Errorf("terminator = %q", chunks[5].Data)
	}
}

func TestSession_TruncatedStreamSynthesizesError(t *testing.T) {
	partial := textFrame(t, "never finished")[:7]
	body := bodyOf(textFrame(t, "ok"), partial)

	s := Start(context.Background(), body, Config{})
	events := drain(t, s)

	if len(events) != 2 {
		t.Fatalf("events = %#v", events)
	}
	if events[0] != (upstream.TextDelta{Text: "ok"}) {
		t.Errorf("first event = %#v", events[0])
	}
	sig, ok := events[1].(upstream.ErrorSignal)
	if !ok {
		t.Fatalf("last event = %#v, want ErrorSignal", events[1])
	}
	if sig.Code != "unavailable" || !strings.Contains(sig.Message, "mid-frame") {
		t.Errorf("signal = %+v", sig)
	}
	if stats := s.Stats(); stats.State != upstream.StateStreaming {
		t.Errorf("final decoder state = %v", stats.State)
	}
}

func TestSession_EOFWithoutDoneSynthesizesError(t *testing.T) {
	s := Start(context.Background(), bodyOf(textFrame(t, "ok")), Config{})
	events := drain(t, s)

	if len(events) != 2 {
		t.Fatalf("events = %#v", events)
	}
	sig, ok := events[1].(upstream.ErrorSignal)
	if !ok {
		t.Fatalf("last event = %#v, want ErrorSignal", events[1])
	}
	if sig.Code != "unavailable" || !strings.Contains(sig.Message, "before the stream completed") {
		t.Errorf("signal = %+v", sig)
	}
}

func TestSession_OversizedFrameSynthesizesError(t *testing.T) {
	huge := wire.EncodeFrame(wire.KindProto<<1, bytes.Repeat([]byte{0x0a}, 64))
	s := Start(context.Background(), bodyOf(huge), Config{MaxFrameSize: 16})
	events := drain(t, s)

	if len(events) != 1 {
		t.Fatalf("events = %#v", events)
	}
	sig, ok := events[0].(upstream.ErrorSignal)
	if !ok {
		t.Fatalf("event = %#v, want ErrorSignal", events[0])
	}
	if sig.Code != "internal" || !strings.Contains(sig.Detail, "exceeds limit") {
		t.Errorf("signal = %+v", sig)
	}
}

func TestSession_UpstreamErrorSignalIsTerminal(t *testing.T) {
	body := bodyOf(
		textFrame(t, "partial"),
		controlFrame(`{"error":{"code":"resource_exhausted","message":"quota exceeded"}}`),
		textFrame(t, "after failure"),
	)

	s := Start(context.Background(), body, Config{})
	events := drain(t, s)

	if len(events) != 2 {
		t.Fatalf("events = %#v", events)
	}
	sig, ok := events[1].(upstream.ErrorSignal)
	if !ok {
		t.Fatalf("last event = %#v, want ErrorSignal", events[1])
	}
	if sig.Code != "resource_exhausted" || sig.Message != "quota exceeded" {
		t.Errorf("signal = %+v", sig)
	}
	if stats := s.Stats(); stats.State != upstream.StateFailed {
		t.Errorf("final decoder state = %v", stats.State)
	}
}

func TestSession_SkipsUninterpretableFrames(t *testing.T) {
	unknown := wire.EncodeFrame(5<<1, []byte{0xde, 0xad})
	body := bodyOf(textFrame(t, "a"), unknown, textFrame(t, "b"), controlFrame("{}"))

	s := Start(context.Background(), body, Config{})
	events := drain(t, s)

	want := []upstream.Event{
		upstream.TextDelta{Text: "a"},
		upstream.TextDelta{Text: "b"},
		upstream.Done{},
	}
	if len(events) != len(want) {
		t.Fatalf("events = %#v, want %#v", events, want)
	}
	if stats := s.Stats(); stats.Frames != 4 || stats.Skipped != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestSession_CancelStopsDelivery(t *testing.T) {
	parts := make([][]byte, 0, 8)
	for i := 0; i < 8; i++ {
		parts = append(parts, textFrame(t, "x"))
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := Start(ctx, bodyOf(parts...), Config{ChannelCapacity: 1})
	cancel()

	events := drain(t, s)
	for _, event := range events {
		switch event.(type) {
		case upstream.Done, upstream.ErrorSignal:
			t.Fatalf("terminal event delivered after cancellation: %#v", event)
		}
	}
}
