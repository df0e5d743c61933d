package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/RelientS/cursor-api/pkg/adapter"
	"github.com/RelientS/cursor-api/pkg/config"
	"github.com/RelientS/cursor-api/pkg/proxy"
	"github.com/RelientS/cursor-api/pkg/session"
	"github.com/RelientS/cursor-api/pkg/telemetry/logging"
	"github.com/RelientS/cursor-api/pkg/telemetry/metrics"
	"github.com/RelientS/cursor-api/pkg/upstream"
	"github.com/RelientS/cursor-api/pkg/usage"
	"github.com/RelientS/cursor-api/pkg/usage/recorder"
)

// Upstream issues one framed exchange against the chat backend. It is
// satisfied by *upstream.Client.
type Upstream interface {
	Stream(ctx context.Context, body []byte) (io.ReadCloser, error)
}

// Options carries the collaborators a Gateway needs. Upstream and Store
// are required. A nil Metrics collector records into a private registry,
// a nil Recorder disables usage accounting, and a nil Logger selects
// slog.Default.
type Options struct {
	Upstream Upstream
	Store    *config.Store
	Metrics  *metrics.Collector
	Recorder *recorder.Recorder
	Logger   *slog.Logger
}

// Gateway owns the completion endpoints. One Gateway serves all requests
// concurrently; per-request state lives in the session pipeline.
type Gateway struct {
	upstream Upstream
	store    *config.Store
	metrics  *metrics.Collector
	recorder *recorder.Recorder
	logger   *slog.Logger
}

// NewGateway assembles a Gateway from its collaborators.
func NewGateway(opts Options) *Gateway {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	collector := opts.Metrics
	if collector == nil {
		collector = metrics.NewCollector(nil, nil)
	}
	return &Gateway{
		upstream: opts.Upstream,
		store:    opts.Store,
		metrics:  collector,
		recorder: opts.Recorder,
		logger:   logger,
	}
}

// outcome captures the terminal facts of one event stream: the usage
// frame if one arrived, the error signal if the stream failed, and
// whether it completed cleanly.
type outcome struct {
	usage  *upstream.Usage
	signal *upstream.ErrorSignal
	done   bool
}

func (o *outcome) observe(event upstream.Event) {
	switch ev := event.(type) {
	case upstream.Usage:
		u := ev
		o.usage = &u
	case upstream.ErrorSignal:
		sig := ev
		o.signal = &sig
	case upstream.Done:
		o.done = true
	}
}

// failureOutcome synthesizes an outcome for exchanges that never produced
// an event stream, so refusals account the same way as in-stream errors.
func failureOutcome(code, message string) *outcome {
	return &outcome{signal: &upstream.ErrorSignal{Code: code, Message: message}}
}

// exchange encodes conv and opens the upstream stream, handing the
// response body to a decode session configured from the live config.
func (g *Gateway) exchange(ctx context.Context, cfg *config.Config, conv *upstream.Conversation) (*session.Session, error) {
	body, err := g.upstream.Stream(ctx, upstream.Encode(conv))
	if err != nil {
		return nil, err
	}
	g.metrics.SessionStarted()
	return session.Start(ctx, body, session.Config{
		ChannelCapacity: cfg.Session.ChannelCapacity,
		MaxFrameSize:    uint32(cfg.Session.MaxFrameSize),
		IdentityPolicy:  upstream.IdentityPolicy(cfg.Adapter.IdentityPolicy),
		Logger:          g.logger,
	}), nil
}

// streamEvents renders the session through ad, framing chunks as SSE. The
// status line goes out before the first event, so later failures ride in
// the stream. If the client write fails the loop keeps draining events;
// the canceled request context unwinds the session shortly after.
func (g *Gateway) streamEvents(ctx context.Context, w http.ResponseWriter, sess *session.Session, ad adapter.StreamAdapter) (*outcome, int) {
	proxy.SetSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	sw := proxy.NewSSEWriter(w)

	out := &outcome{}
	var writeErr error
	for event := range sess.Events() {
		out.observe(event)
		for _, chunk := range ad.Feed(event) {
			if writeErr != nil {
				continue
			}
			if writeErr = sw.Write(chunk); writeErr != nil {
				slog.DebugContext(ctx, "client write failed, draining stream", "error", writeErr)
			}
		}
	}
	return out, sw.Bytes()
}

// feeder consumes decoded events; both dialect accumulators satisfy it.
type feeder interface {
	Feed(event upstream.Event)
}

// collectEvents drains the session into acc for a non-streaming answer.
func collectEvents(sess *session.Session, acc feeder) *outcome {
	out := &outcome{}
	for event := range sess.Events() {
		out.observe(event)
		acc.Feed(event)
	}
	return out
}

// exchangeResult gathers everything the accounting pass needs about one
// finished request.
type exchangeResult struct {
	dialect string
	model   string
	stream  bool
	status  int
	started time.Time
	out     *outcome
	bytes   int
	stats   *session.Stats
}

// finish accounts one request: request metrics, token and frame counters,
// the upstream error counter, and a usage record.
func (g *Gateway) finish(ctx context.Context, res exchangeResult) {
	duration := time.Since(res.started)
	g.metrics.RecordRequest(res.dialect, res.model, strconv.Itoa(res.status), duration)
	if res.bytes > 0 {
		g.metrics.RecordResponseBytes(res.dialect, res.bytes)
	}
	if res.stats != nil {
		g.metrics.RecordFrames(res.stats.Frames, res.stats.Skipped)
		g.metrics.SessionEnded()
	}

	out := res.out
	if out == nil {
		out = &outcome{}
	}
	if out.usage != nil {
		g.metrics.RecordTokens(res.model,
			int(out.usage.InputTokens),
			int(out.usage.OutputTokens),
			int(out.usage.CacheWriteTokens),
			int(out.usage.CacheReadTokens),
		)
	}
	if out.signal != nil {
		g.metrics.RecordUpstreamError(out.signal.Code)
	}

	if g.recorder == nil {
		return
	}
	record := &usage.Record{
		RequestID: logging.GetRequestID(ctx),
		Dialect:   res.dialect,
		Model:     res.model,
		Stream:    res.stream,
		Status:    recordStatus(ctx, res.status, out),
		Duration:  duration,
	}
	if out.usage != nil {
		record.InputTokens = int64(out.usage.InputTokens)
		record.OutputTokens = int64(out.usage.OutputTokens)
		record.CacheWriteTokens = int64(out.usage.CacheWriteTokens)
		record.CacheReadTokens = int64(out.usage.CacheReadTokens)
		record.TotalCents = out.usage.TotalCents
	}
	if out.signal != nil {
		record.ErrorCode = out.signal.Code
		record.ErrorMessage = out.signal.Message
		record.ErrorDetail = out.signal.Detail
	}
	if err := g.recorder.Record(record); err != nil {
		slog.DebugContext(ctx, "usage record dropped", "error", err)
	}
}

func recordStatus(ctx context.Context, status int, out *outcome) string {
	switch {
	case out.signal != nil:
		return usage.StatusFailure
	case errors.Is(ctx.Err(), context.Canceled):
		return usage.StatusCanceled
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return usage.StatusFailure
	case status >= 400:
		return usage.StatusFailure
	default:
		return usage.StatusSuccess
	}
}

// refuse answers a request that never reached the upstream and records
// the request metric under the mapped status.
func (g *Gateway) refuse(w http.ResponseWriter, r *http.Request, dialect, model string, started time.Time, err error) {
	status, code, message := proxy.MapError(err)
	slog.WarnContext(r.Context(), "request refused",
		"status", status,
		"code", code,
		"error", message,
	)
	proxy.WriteError(w, dialect, err)
	g.metrics.RecordRequest(dialect, model, strconv.Itoa(status), time.Since(started))
}
