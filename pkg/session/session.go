// Package session runs the decode half of one upstream exchange: frames are
// read off the response body, decoded into normalized events and handed to
// the consumer over a bounded channel. The two stages run concurrently; a
// full channel blocks the decode stage until the consumer catches up, and a
// cancelled context tears both down.
//
// The event channel always delivers a terminal event (Done or ErrorSignal)
// before closing, unless the context is cancelled first. Transport failures,
// truncated streams and oversized frames become synthesized ErrorSignal
// events rather than silent closes.
package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/RelientS/cursor-api/pkg/upstream"
	"github.com/RelientS/cursor-api/pkg/wire"
)

// DefaultChannelCapacity bounds the event channel when Config leaves
// ChannelCapacity zero.
const DefaultChannelCapacity = 100

// Config controls one session's pipeline.
type Config struct {
	// ChannelCapacity bounds the event channel between the decode stage and
	// the consumer. Zero selects DefaultChannelCapacity.
	ChannelCapacity int

	// MaxFrameSize caps one frame's declared payload length. Zero selects
	// the wire package default.
	MaxFrameSize uint32

	// IdentityPolicy selects how tool-call announcements resolve their
	// model-call identity. Empty selects upstream.IdentityCollapse.
	IdentityPolicy upstream.IdentityPolicy

	// Logger receives decode-stage diagnostics. Nil selects slog.Default.
	Logger *slog.Logger
}

// Stats describes a finished decode stage.
type Stats struct {
	// Frames counts every frame fed to the decoder, skipped ones included.
	Frames int
	// Skipped counts frames dropped as uninterpretable.
	Skipped int
	// State is the decoder's final state.
	State upstream.State
}

// Session is one running exchange. Events delivers the decoded stream;
// Stats blocks until the decode stage has finished.
type Session struct {
	events chan upstream.Event
	done   chan struct{}
	stats  Stats
}

// Start launches the decode stage over body and returns immediately. The
// stage owns body and closes it when it exits.
func Start(ctx context.Context, body io.ReadCloser, cfg Config) *Session {
	capacity := cfg.ChannelCapacity
	if capacity <= 0 {
		capacity = DefaultChannelCapacity
	}
	policy := cfg.IdentityPolicy
	if policy == "" {
		policy = upstream.IdentityCollapse
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Session{
		events: make(chan upstream.Event, capacity),
		done:   make(chan struct{}),
	}
	go s.run(ctx, body, cfg.MaxFrameSize, policy, logger)
	return s
}

// Events returns the event channel. It is closed after the terminal event.
func (s *Session) Events() <-chan upstream.Event { return s.events }

// Stats returns the decode-stage counters. It blocks until the stage exits,
// so call it after Events has closed.
func (s *Session) Stats() Stats {
	<-s.done
	return s.stats
}

func (s *Session) run(ctx context.Context, body io.ReadCloser, maxFrame uint32, policy upstream.IdentityPolicy, logger *slog.Logger) {
	defer close(s.events)
	defer body.Close()

	reader := wire.NewStreamReader(body, maxFrame)
	decoder := upstream.NewContext(policy)
	start := time.Now()
	defer func() {
		s.stats = Stats{
			Frames:  decoder.Processed(),
			Skipped: decoder.Skipped(),
			State:   decoder.State(),
		}
		close(s.done)
	}()

	for {
		frame, err := reader.Next()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			signal := synthesizeSignal(err)
			logger.Warn("upstream stream aborted",
				"error", err,
				"code", signal.Code,
				"frames", decoder.Processed(),
			)
			s.emit(ctx, signal)
			return
		}
		for _, event := range decoder.Feed(frame) {
			if !s.emit(ctx, event) {
				return
			}
		}
		if state := decoder.State(); state == upstream.StateCompleted || state == upstream.StateFailed {
			logger.Debug("upstream stream finished",
				"state", state.String(),
				"frames", decoder.Processed(),
				"skipped", decoder.Skipped(),
				"duration", time.Since(start),
			)
			return
		}
	}
}

func (s *Session) emit(ctx context.Context, event upstream.Event) bool {
	select {
	case s.events <- event:
		return true
	case <-ctx.Done():
		return false
	}
}

// synthesizeSignal converts a transport or framing failure into the
// terminal event the consumer is owed.
func synthesizeSignal(err error) upstream.ErrorSignal {
	var tooLarge *wire.FrameTooLargeError
	if errors.As(err, &tooLarge) {
		return upstream.ErrorSignal{
			Code:    "internal",
			Message: "oversized upstream frame",
			Detail:  err.Error(),
		}
	}
	var truncated *wire.TruncatedFrameError
	if errors.As(err, &truncated) {
		return upstream.ErrorSignal{
			Code:    "unavailable",
			Message: "upstream ended mid-frame",
			Detail:  err.Error(),
		}
	}
	if errors.Is(err, io.EOF) {
		return upstream.ErrorSignal{
			Code:    "unavailable",
			Message: "upstream ended before the stream completed",
		}
	}
	return upstream.ErrorSignal{
		Code:    "unavailable",
		Message: "upstream read failed",
		Detail:  err.Error(),
	}
}
