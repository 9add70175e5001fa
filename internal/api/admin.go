package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type healthResponse struct {
	Status     string            `json:"status"`
	Generator  string            `json:"generator,omitempty"`
	Components map[string]string `json:"components"`
	Timestamp  time.Time         `json:"timestamp"`
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "healthy", Generator: a.deps.Generator, Components: map[string]string{}, Timestamp: time.Now().UTC()}
	if resp.Generator == "" {
		resp.Generator = "none"
	}

	names := make([]string, 0, len(a.deps.Checks))
	for name := range a.deps.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	for _, name := range names {
		if err := a.deps.Checks[name](ctx); err != nil {
			a.logger.Warn("health check failed", zap.String("component", name), zap.Error(err))
			resp.Components[name] = "unavailable"
			resp.Status = "degraded"
			continue
		}
		resp.Components[name] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (a *API) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if a.deps.Cache == nil {
		writeError(w, http.StatusServiceUnavailable, "response cache disabled")
		return
	}
	if err := a.deps.Cache.InvalidateAll(r.Context()); err != nil {
		a.logger.Error("cache clear failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "cache clear failed")
		return
	}
	a.logger.Info("response cache cleared")
	writeJSON(w, http.StatusOK, map[string]any{"status": "cache cleared", "timestamp": time.Now().UTC()})
}

func (a *API) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	if a.deps.Cache == nil {
		writeError(w, http.StatusServiceUnavailable, "response cache disabled")
		return
	}
	writeJSON(w, http.StatusOK, a.deps.Cache.Stats(r.Context()))
}

func (a *API) handleDebugConversation(w http.ResponseWriter, r *http.Request) {
	if a.deps.Contexts == nil {
		writeError(w, http.StatusServiceUnavailable, "context store disabled")
		return
	}
	c := a.deps.Contexts.Get(r.Context(), chi.URLParam(r, "id"))
	if c == nil {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"context":    c,
		"missing":    c.MissingInfo(),
		"follow_ups": c.FollowUps(),
	})
}

func (a *API) handleReset(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ConversationID string `json:"conversation_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ConversationID == "" {
		writeError(w, http.StatusBadRequest, "conversation_id is required")
		return
	}
	if a.deps.Contexts == nil {
		writeError(w, http.StatusServiceUnavailable, "context store disabled")
		return
	}
	if err := a.deps.Contexts.Reset(r.Context(), body.ConversationID); err != nil {
		a.logger.Error("conversation reset failed", zap.String("conversation_id", body.ConversationID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "reset failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset", "conversation_id": body.ConversationID})
}
