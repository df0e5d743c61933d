package upstream

import "fmt"

// Event is one normalized occurrence decoded from the upstream stream.
// The set of implementations is closed; consumers switch on the concrete
// type and must tolerate variants they do not handle.
type Event interface {
	isEvent()
}

// TextDelta is an incremental piece of assistant-visible content.
type TextDelta struct {
	Text string
}

// ReasoningDelta is an incremental piece of model reasoning. Signature
// arrives on the final fragment of a reasoning block; Redacted replaces
// Text when the upstream withholds the reasoning content.
type ReasoningDelta struct {
	Text      string
	Signature string
	Redacted  string
}

// ToolCallBegin announces one tool invocation. Index is unique and
// monotonically increasing within a stream.
type ToolCallBegin struct {
	Index       uint32
	ToolCallID  string
	ModelCallID string
	Name        string
}

// ToolCallArgsDelta is an incremental piece of the arguments JSON for the
// call at Index.
type ToolCallArgsDelta struct {
	Index uint32
	Args  string
}

// ToolCallEnd closes the call at Index. Emitted when a new announcement
// supersedes an open call and when the stream completes.
type ToolCallEnd struct {
	Index uint32
}

// WebReference is one cited web source.
type WebReference struct {
	URL   string
	Title string
	Chunk string
}

// WebCitation carries the web references attached to a response fragment.
type WebCitation struct {
	References []WebReference
}

// Usage is the end-of-stream token accounting.
type Usage struct {
	InputTokens      uint32
	OutputTokens     uint32
	CacheWriteTokens uint32
	CacheReadTokens  uint32
	TotalCents       float64
}

// ErrorSignal is the upstream's in-band failure report. It is terminal:
// no further events follow it.
type ErrorSignal struct {
	Code     string
	Message  string
	Detail   string
	Expected bool
}

// Error implements the error interface so the signal can travel error
// paths as well as the event channel.
func (e ErrorSignal) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("upstream error %s: %s", e.Code, e.Detail)
	}
	if e.Message != "" {
		return fmt.Sprintf("upstream error %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("upstream error %s", e.Code)
}

// Done marks normal stream completion. Terminal.
type Done struct{}

func (TextDelta) isEvent()         {}
func (ReasoningDelta) isEvent()    {}
func (ToolCallBegin) isEvent()     {}
func (ToolCallArgsDelta) isEvent() {}
func (ToolCallEnd) isEvent()       {}
func (WebCitation) isEvent()       {}
func (Usage) isEvent()             {}
func (ErrorSignal) isEvent()       {}
func (Done) isEvent()              {}
