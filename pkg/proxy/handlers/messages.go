package handlers

import (
	"net/http"
	"time"

	"github.com/RelientS/cursor-api/pkg/adapter"
	"github.com/RelientS/cursor-api/pkg/proxy"
	"github.com/RelientS/cursor-api/pkg/telemetry/logging"
)

// Messages serves POST /v1/messages in the Anthropic dialect.
func (g *Gateway) Messages(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	ctx := logging.WithDialect(r.Context(), proxy.DialectAnthropic)
	r = r.WithContext(ctx)

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		proxy.WriteErrorBody(w, proxy.DialectAnthropic, http.StatusMethodNotAllowed,
			proxy.CodeMethodNotAllowed, "messages require POST")
		return
	}

	req, err := proxy.ParseMessages(r)
	if err != nil {
		g.refuse(w, r, proxy.DialectAnthropic, "", started, err)
		return
	}
	ctx = logging.WithModel(ctx, req.Model)
	r = r.WithContext(ctx)

	// A thinking parameter switches the model variant the same way the
	// "-thinking" suffix does.
	modelID := req.Model
	if req.Thinking.Enabled() {
		modelID = proxy.WithThinkingSuffix(modelID)
	}

	cfg := g.store.Current()
	model, err := proxy.ResolveModel(cfg, modelID)
	if err != nil {
		g.refuse(w, r, proxy.DialectAnthropic, req.Model, started, err)
		return
	}
	conv, err := proxy.MessagesConversation(req, model)
	if err != nil {
		g.refuse(w, r, proxy.DialectAnthropic, req.Model, started, err)
		return
	}

	g.logger.InfoContext(ctx, "messages request",
		"stream", req.Stream,
		"messages", len(req.Messages),
		"tools", len(conv.Tools),
		"thinking", model.Thinking,
		"upstream_model", model.Upstream,
	)

	sess, err := g.exchange(ctx, cfg, conv)
	if err != nil {
		status, code, message := proxy.MapError(err)
		proxy.WriteError(w, proxy.DialectAnthropic, err)
		g.finish(ctx, exchangeResult{
			dialect: proxy.DialectAnthropic,
			model:   req.Model,
			stream:  req.Stream,
			status:  status,
			started: started,
			out:     failureOutcome(code, message),
		})
		return
	}

	if req.Stream {
		ad := adapter.NewAnthropic(req.Model)
		out, bytes := g.streamEvents(ctx, w, sess, ad)
		stats := sess.Stats()
		g.finish(ctx, exchangeResult{
			dialect: proxy.DialectAnthropic,
			model:   req.Model,
			stream:  true,
			status:  http.StatusOK,
			started: started,
			out:     out,
			bytes:   bytes,
			stats:   &stats,
		})
		return
	}

	acc := adapter.NewAnthropicAccumulator(req.Model)
	out := collectEvents(sess, acc)
	stats := sess.Stats()

	status := http.StatusOK
	var bytes int
	if message, sig := acc.Result(); sig != nil {
		status = adapter.StatusForCode(sig.Code)
		proxy.WriteErrorBody(w, proxy.DialectAnthropic, status, sig.Code, adapter.SignalMessage(*sig))
	} else {
		bytes, err = proxy.WriteJSON(w, http.StatusOK, message)
		if err != nil {
			g.logger.WarnContext(ctx, "response write failed", "error", err)
		}
	}
	g.finish(ctx, exchangeResult{
		dialect: proxy.DialectAnthropic,
		model:   req.Model,
		stream:  false,
		status:  status,
		started: started,
		out:     out,
		bytes:   bytes,
		stats:   &stats,
	})
}
