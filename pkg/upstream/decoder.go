package upstream

import (
	"bytes"
	"encoding/json"

	"github.com/RelientS/cursor-api/pkg/wire"
)

// IdentityPolicy controls how the decoder treats the model-call identity
// on tool-call announcements. The upstream issues a fresh identity per
// model call, but bills all calls of one turn against the first; collapsing
// to the first observed identity keeps follow-up turns on the same bill.
type IdentityPolicy string

const (
	// IdentityCollapse rewrites every announcement to carry the first
	// model-call identity observed on the stream.
	IdentityCollapse IdentityPolicy = "collapse"

	// IdentityPassthrough forwards announced identities untouched.
	IdentityPassthrough IdentityPolicy = "passthrough"
)

// State is the decode position of a stream.
type State int

const (
	StateIdle State = iota
	StateStreaming
	StateCompleted
	StateFailed
)

// String returns the state name for logs.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Context is the per-stream decoder. It consumes raw frames one at a time
// and emits normalized events in frame order. A Context serves exactly one
// stream and is not safe for concurrent use.
//
// Frames that cannot be interpreted (unknown kind, failed decompression,
// undecodable payload, empty envelope) are skipped and counted, never
// fatal. The stream ends at the first Done or ErrorSignal; frames after
// that are dropped.
type Context struct {
	policy IdentityPolicy

	state       State
	processed   int
	skipped     int
	argsLen     int
	modelCallID string

	nextIndex uint32
	openIndex uint32
	hasOpen   bool
}

// NewContext creates a decoder for one stream. An empty policy defaults
// to IdentityCollapse.
func NewContext(policy IdentityPolicy) *Context {
	if policy == "" {
		policy = IdentityCollapse
	}
	return &Context{policy: policy}
}

// State reports the current decode state.
func (c *Context) State() State { return c.state }

// Processed reports how many frames have been fed, including skipped ones.
func (c *Context) Processed() int { return c.processed }

// Skipped reports how many fed frames were dropped as uninterpretable.
func (c *Context) Skipped() int { return c.skipped }

// ArgsLen reports the accumulated length of all tool-argument fragments.
func (c *Context) ArgsLen() int { return c.argsLen }

// Feed decodes one frame and returns the events it implies, which may be
// none. After the stream reaches a terminal state Feed returns nil.
func (c *Context) Feed(frame *wire.Frame) []Event {
	if c.state == StateCompleted || c.state == StateFailed {
		return nil
	}
	c.processed++

	if len(frame.Payload) == 0 {
		return nil
	}
	body, err := frame.Body()
	if err != nil {
		c.skipped++
		return nil
	}

	var events []Event
	switch frame.Kind() {
	case wire.KindProto:
		events = c.feedProto(body)
	case wire.KindJSON:
		events = c.feedControl(body)
	default:
		c.skipped++
	}

	if c.state == StateIdle && len(events) > 0 {
		c.state = StateStreaming
	}
	return events
}

func (c *Context) feedProto(body []byte) []Event {
	var env wire.ResponseEnvelope
	if err := env.Unmarshal(body); err != nil {
		c.skipped++
		return nil
	}
	switch {
	case env.ToolCall != nil:
		return c.feedToolCall(env.ToolCall)
	case env.Response != nil:
		return c.feedResponse(env.Response)
	default:
		c.skipped++
		return nil
	}
}

// feedToolCall handles both announcements (carrying a call id or name) and
// bare argument fragments.
func (c *Context) feedToolCall(tc *wire.ToolCall) []Event {
	if tc.ToolCallID != "" || tc.Name != "" {
		var events []Event
		if c.hasOpen {
			events = append(events, ToolCallEnd{Index: c.openIndex})
		}

		index := c.nextIndex
		if tc.ToolIndex != nil && *tc.ToolIndex >= c.nextIndex {
			index = *tc.ToolIndex
		}
		c.nextIndex = index + 1
		c.openIndex = index
		c.hasOpen = true

		modelCallID := tc.ModelCallID
		switch {
		case c.modelCallID == "" && modelCallID != "":
			c.modelCallID = modelCallID
		case c.modelCallID != "" && c.policy == IdentityCollapse:
			modelCallID = c.modelCallID
		}

		events = append(events, ToolCallBegin{
			Index:       index,
			ToolCallID:  tc.ToolCallID,
			ModelCallID: modelCallID,
			Name:        tc.Name,
		})
		if tc.RawArgs != "" {
			c.argsLen += len(tc.RawArgs)
			events = append(events, ToolCallArgsDelta{Index: index, Args: tc.RawArgs})
		}
		return events
	}

	if tc.RawArgs == "" {
		c.skipped++
		return nil
	}
	var index uint32
	switch {
	case tc.ToolIndex != nil:
		index = *tc.ToolIndex
	case c.hasOpen:
		index = c.openIndex
	default:
		// Fragment with no call to attach to.
		c.skipped++
		return nil
	}
	c.argsLen += len(tc.RawArgs)
	return []Event{ToolCallArgsDelta{Index: index, Args: tc.RawArgs}}
}

// feedResponse maps one content message to events in field order. A single
// message may carry several populated fields.
func (c *Context) feedResponse(r *wire.ChatResponse) []Event {
	var events []Event
	if r.Text != "" {
		events = append(events, TextDelta{Text: r.Text})
	}
	if r.WebCitation != nil && len(r.WebCitation.References) > 0 {
		refs := make([]WebReference, 0, len(r.WebCitation.References))
		for _, ref := range r.WebCitation.References {
			refs = append(refs, WebReference{URL: ref.URL, Title: ref.Title, Chunk: ref.Chunk})
		}
		events = append(events, WebCitation{References: refs})
	}
	if r.Thinking != nil {
		events = append(events, ReasoningDelta{
			Text:      r.Thinking.Text,
			Signature: r.Thinking.Signature,
			Redacted:  r.Thinking.RedactedThinking,
		})
	}
	if r.Usage != nil {
		events = append(events, Usage{
			InputTokens:      r.Usage.InputTokens,
			OutputTokens:     r.Usage.OutputTokens,
			CacheWriteTokens: r.Usage.CacheWriteTokens,
			CacheReadTokens:  r.Usage.CacheReadTokens,
			TotalCents:       r.Usage.TotalCents,
		})
	}
	if len(events) == 0 {
		c.skipped++
	}
	return events
}

// feedControl handles the JSON control kind: "{}" ends the stream, any
// parseable error object fails it, anything else is skipped.
func (c *Context) feedControl(body []byte) []Event {
	if bytes.Equal(bytes.TrimSpace(body), []byte("{}")) {
		var events []Event
		if c.hasOpen {
			events = append(events, ToolCallEnd{Index: c.openIndex})
			c.hasOpen = false
		}
		events = append(events, Done{})
		c.state = StateCompleted
		return events
	}

	sig, ok := parseErrorSignal(body)
	if !ok {
		c.skipped++
		return nil
	}
	c.state = StateFailed
	return []Event{sig}
}

// parseErrorSignal reads the connect-style error body the upstream sends
// on its JSON control frames. Parsing is lenient: any recognizable field
// is used, and a body with none is not an error signal at all.
func parseErrorSignal(body []byte) (ErrorSignal, bool) {
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
			Details []struct {
				Debug struct {
					Error   string `json:"error"`
					Details struct {
						Title      string `json:"title"`
						Detail     string `json:"detail"`
						IsExpected bool   `json:"isExpected"`
					} `json:"details"`
				} `json:"debug"`
			} `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ErrorSignal{}, false
	}

	sig := ErrorSignal{
		Code:    envelope.Error.Code,
		Message: envelope.Error.Message,
	}
	for _, d := range envelope.Error.Details {
		if d.Debug.Error != "" {
			sig.Code = d.Debug.Error
		}
		if d.Debug.Details.Title != "" && sig.Message == "" {
			sig.Message = d.Debug.Details.Title
		}
		if d.Debug.Details.Detail != "" {
			sig.Detail = d.Debug.Details.Detail
		}
		if d.Debug.Details.IsExpected {
			sig.Expected = true
		}
	}
	if sig.Code == "" && sig.Message == "" && sig.Detail == "" {
		return ErrorSignal{}, false
	}
	if sig.Code == "" {
		sig.Code = "unknown"
	}
	return sig, true
}
