package audit

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the turn audit endpoints under /api/turns.
func RegisterRoutes(r chi.Router, store *Store) {
	r.Route("/api/turns", func(r chi.Router) {
		r.Get("/", handleQuery(store))
		r.Get("/summary", handleSummary(store))
		r.Get("/{id}", handleGetByID(store))
	})
}

func parseFilter(r *http.Request) QueryFilter {
	q := r.URL.Query()
	filter := QueryFilter{
		ConversationID: q.Get("conversation"),
		Tier:           q.Get("tier"),
		Outcome:        Outcome(q.Get("outcome")),
	}
	if v := q.Get("since"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.Since = &t
		}
	}
	if v := q.Get("until"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.Until = &t
		}
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil {
		filter.Limit = n
	}
	if n, err := strconv.Atoi(q.Get("offset")); err == nil {
		filter.Offset = n
	}
	return filter
}

func handleQuery(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := parseFilter(r)
		if filter.Limit <= 0 {
			filter.Limit = 100
		}
		entries, err := store.Query(r.Context(), filter)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

func handleSummary(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := store.Summarize(r.Context(), parseFilter(r))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

func handleGetByID(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entry, err := store.GetByID(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, entry)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
