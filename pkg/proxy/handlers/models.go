package handlers

import (
	"net/http"

	"github.com/RelientS/cursor-api/pkg/proxy"
)

// Model listing timestamps are fixed; clients treat them as opaque.
const modelCreated = 1706659200

type modelEntry struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

type modelList struct {
	Object string       `json:"object"`
	Data   []modelEntry `json:"data"`
}

// Models serves GET /v1/models from the configured model list.
func (g *Gateway) Models(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		proxy.WriteErrorBody(w, proxy.DialectOpenAI, http.StatusMethodNotAllowed,
			proxy.CodeMethodNotAllowed, "model listing requires GET")
		return
	}

	cfg := g.store.Current()
	list := modelList{Object: "list", Data: make([]modelEntry, 0, len(cfg.Models))}
	for _, model := range cfg.Models {
		list.Data = append(list.Data, modelEntry{
			ID:      model.ID,
			Object:  "model",
			Created: modelCreated,
			OwnedBy: model.OwnedBy,
		})
	}
	if _, err := proxy.WriteJSON(w, http.StatusOK, list); err != nil {
		g.logger.WarnContext(r.Context(), "response write failed", "error", err)
	}
}
