// Package api is the HTTP surface: streaming chat over WebSocket and SSE,
// direct catalog lookups and operational endpoints.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ziadkadry99/partsdesk/internal/audit"
	"github.com/ziadkadry99/partsdesk/internal/catalog"
	"github.com/ziadkadry99/partsdesk/internal/convctx"
	"github.com/ziadkadry99/partsdesk/internal/logging"
	"github.com/ziadkadry99/partsdesk/internal/respcache"
	"github.com/ziadkadry99/partsdesk/internal/router"
	"github.com/ziadkadry99/partsdesk/internal/stream"
)

// Resolver runs one chat request. router.Router implements it.
type Resolver interface {
	Handle(ctx context.Context, req router.Request, sink stream.Sink) (router.Classification, error)
}

// HealthCheck reports whether one dependency is usable.
type HealthCheck func(ctx context.Context) error

// Deps are the collaborators behind the routes. Cache and Catalog may be
// nil; their routes then answer 503. A nil Audit leaves /api/turns unmounted.
type Deps struct {
	Resolver  Resolver
	Contexts  *convctx.Store
	Cache     respcache.Cache
	Catalog   catalog.Store
	Compat    router.Checker
	Audit     *audit.Store
	Generator string
	Checks    map[string]HealthCheck
}

// API serves the routes registered by RegisterRoutes.
type API struct {
	deps   Deps
	logger *zap.Logger
	buffer int
}

// Option configures an API.
type Option func(*API)

func WithLogger(l *zap.Logger) Option {
	return func(a *API) { a.logger = logging.OrNop(l) }
}

// WithBuffer sets the per-request fragment buffer.
func WithBuffer(n int) Option {
	return func(a *API) { a.buffer = n }
}

// New creates the API.
func New(deps Deps, opts ...Option) *API {
	a := &API{deps: deps, logger: zap.NewNop(), buffer: stream.DefaultBuffer}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RegisterRoutes mounts every route on r. Streaming routes are bounded by
// the router's request deadline; the rest get a fixed timeout.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Get("/api/chat/ws", a.handleWebSocket)
	r.Post("/api/chat", a.handleChat)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))

		r.Get("/api/health", a.handleHealth)
		r.Post("/api/cache/clear", a.handleCacheClear)
		r.Get("/api/cache/stats", a.handleCacheStats)
		r.Get("/api/debug/conversation/{id}", a.handleDebugConversation)
		r.Post("/api/reset", a.handleReset)

		r.Post("/api/search/parts", a.handleSearchParts)
		r.Post("/api/search/repairs", a.handleSearchRepairs)
		r.Get("/api/part/{id}", a.handleGetPart)
		r.Post("/api/compatibility", a.handleCompatibility)

		if a.deps.Audit != nil {
			audit.RegisterRoutes(r, a.deps.Audit)
		}
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
