package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func postMessages(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestMessages_NonStreaming(t *testing.T) {
	up := &scriptedUpstream{frames: [][]byte{
		textFrame(t, "Hello"),
		textFrame(t, " there"),
		usageFrame(t, 9, 3),
		doneFrame(),
	}}
	g := newTestGateway(up, nil)

	rec := httptest.NewRecorder()
	g.Messages(rec, postMessages(`{
		"model": "claude-3.5-sonnet",
		"max_tokens": 1024,
		"messages": [{"role": "user", "content": "hi"}]
	}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var message struct {
		Type    string `json:"type"`
		Role    string `json:"role"`
		Model   string `json:"model"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		StopReason string `json:"stop_reason"`
		Usage      struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &message); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if message.Type != "message" || message.Role != "assistant" || message.Model != "claude-3.5-sonnet" {
		t.Errorf("header fields = %q %q %q", message.Type, message.Role, message.Model)
	}
	if len(message.Content) != 1 || message.Content[0].Type != "text" || message.Content[0].Text != "Hello there" {
		t.Errorf("content = %+v", message.Content)
	}
	if message.StopReason != "end_turn" {
		t.Errorf("stop_reason = %q, want end_turn", message.StopReason)
	}
	if message.Usage.InputTokens != 9 || message.Usage.OutputTokens != 3 {
		t.Errorf("usage = %+v", message.Usage)
	}
}

func TestMessages_Streaming(t *testing.T) {
	up := &scriptedUpstream{frames: [][]byte{
		textFrame(t, "Hi"),
		usageFrame(t, 3, 1),
		doneFrame(),
	}}
	g := newTestGateway(up, nil)

	rec := httptest.NewRecorder()
	g.Messages(rec, postMessages(`{
		"model": "claude-3.5-sonnet",
		"max_tokens": 1024,
		"messages": [{"role": "user", "content": "hi"}],
		"stream": true
	}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	body := rec.Body.String()
	for _, event := range []string{
		"event: message_start",
		"event: content_block_start",
		"event: content_block_delta",
		"event: content_block_stop",
		"event: message_delta",
		"event: message_stop",
	} {
		if !strings.Contains(body, event+"\n") {
			t.Errorf("stream missing %q:\n%s", event, body)
		}
	}
	if !strings.Contains(body, `"text":"Hi"`) {
		t.Errorf("stream missing the text delta:\n%s", body)
	}
}

func TestMessages_ThinkingSelectsVariant(t *testing.T) {
	up := &scriptedUpstream{frames: [][]byte{
		textFrame(t, "ok"),
		doneFrame(),
	}}
	g := newTestGateway(up, nil)

	rec := httptest.NewRecorder()
	g.Messages(rec, postMessages(`{
		"model": "claude-3.7-sonnet",
		"max_tokens": 1024,
		"messages": [{"role": "user", "content": "hi"}],
		"thinking": {"type": "enabled", "budget_tokens": 2048}
	}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if model := sentModel(t, up.sent); model != "claude-3.7-sonnet-thinking" {
		t.Errorf("upstream model = %q, want claude-3.7-sonnet-thinking", model)
	}

	// The answer still names the model the client asked for.
	var message struct {
		Model string `json:"model"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &message); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if message.Model != "claude-3.7-sonnet" {
		t.Errorf("response model = %q, want claude-3.7-sonnet", message.Model)
	}
}

func TestMessages_UpstreamFailure(t *testing.T) {
	up := &scriptedUpstream{frames: [][]byte{
		errorFrame("unauthenticated", "bad token"),
	}}
	g := newTestGateway(up, nil)

	rec := httptest.NewRecorder()
	g.Messages(rec, postMessages(`{
		"model": "claude-3.5-sonnet",
		"max_tokens": 1024,
		"messages": [{"role": "user", "content": "hi"}]
	}`))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	var body struct {
		Type  string `json:"type"`
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body.Type != "error" || body.Error.Type != "unauthenticated" || body.Error.Message != "bad token" {
		t.Errorf("envelope = %+v", body)
	}
}

func TestMessages_InvalidRequest(t *testing.T) {
	g := newTestGateway(&scriptedUpstream{}, nil)

	rec := httptest.NewRecorder()
	g.Messages(rec, postMessages(`{
		"model": "claude-3.5-sonnet",
		"messages": [{"role": "user", "content": "hi"}]
	}`))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var body struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body.Type != "error" {
		t.Errorf("envelope type = %q, want error", body.Type)
	}
}

func TestMessages_MethodNotAllowed(t *testing.T) {
	g := newTestGateway(&scriptedUpstream{}, nil)

	rec := httptest.NewRecorder()
	g.Messages(rec, httptest.NewRequest(http.MethodGet, "/v1/messages", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}
