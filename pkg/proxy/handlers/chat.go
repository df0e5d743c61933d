package handlers

import (
	"net/http"
	"time"

	"github.com/RelientS/cursor-api/pkg/adapter"
	"github.com/RelientS/cursor-api/pkg/proxy"
	"github.com/RelientS/cursor-api/pkg/telemetry/logging"
)

// ChatCompletions serves POST /v1/chat/completions in the OpenAI dialect.
func (g *Gateway) ChatCompletions(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	ctx := logging.WithDialect(r.Context(), proxy.DialectOpenAI)
	r = r.WithContext(ctx)

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		proxy.WriteErrorBody(w, proxy.DialectOpenAI, http.StatusMethodNotAllowed,
			proxy.CodeMethodNotAllowed, "chat completions require POST")
		return
	}

	req, err := proxy.ParseChatCompletions(r)
	if err != nil {
		g.refuse(w, r, proxy.DialectOpenAI, "", started, err)
		return
	}
	ctx = logging.WithModel(ctx, req.Model)
	r = r.WithContext(ctx)

	cfg := g.store.Current()
	model, err := proxy.ResolveModel(cfg, req.Model)
	if err != nil {
		g.refuse(w, r, proxy.DialectOpenAI, req.Model, started, err)
		return
	}
	conv := proxy.ChatConversation(req, model)

	g.logger.InfoContext(ctx, "chat completion request",
		"stream", req.Stream,
		"messages", len(req.Messages),
		"tools", len(conv.Tools),
		"upstream_model", model.Upstream,
	)

	sess, err := g.exchange(ctx, cfg, conv)
	if err != nil {
		status, code, message := proxy.MapError(err)
		proxy.WriteError(w, proxy.DialectOpenAI, err)
		g.finish(ctx, exchangeResult{
			dialect: proxy.DialectOpenAI,
			model:   model.ID,
			stream:  req.Stream,
			status:  status,
			started: started,
			out:     failureOutcome(code, message),
		})
		return
	}

	if req.Stream {
		ad := adapter.NewOpenAI(model.ID, req.IncludeUsage())
		out, bytes := g.streamEvents(ctx, w, sess, ad)
		stats := sess.Stats()
		g.finish(ctx, exchangeResult{
			dialect: proxy.DialectOpenAI,
			model:   model.ID,
			stream:  true,
			status:  http.StatusOK,
			started: started,
			out:     out,
			bytes:   bytes,
			stats:   &stats,
		})
		return
	}

	acc := adapter.NewOpenAIAccumulator(model.ID)
	out := collectEvents(sess, acc)
	stats := sess.Stats()

	status := http.StatusOK
	var bytes int
	if completion, sig := acc.Result(); sig != nil {
		status = adapter.StatusForCode(sig.Code)
		proxy.WriteErrorBody(w, proxy.DialectOpenAI, status, sig.Code, adapter.SignalMessage(*sig))
	} else {
		bytes, err = proxy.WriteJSON(w, http.StatusOK, completion)
		if err != nil {
			g.logger.WarnContext(ctx, "response write failed", "error", err)
		}
	}
	g.finish(ctx, exchangeResult{
		dialect: proxy.DialectOpenAI,
		model:   model.ID,
		stream:  false,
		status:  status,
		started: started,
		out:     out,
		bytes:   bytes,
		stats:   &stats,
	})
}
