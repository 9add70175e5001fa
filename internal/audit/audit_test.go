package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/partsdesk/internal/db"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func seed(t *testing.T, store *Store) {
	t.Helper()
	entries := []Entry{
		{ID: "t1", Timestamp: base, ConversationID: "c1", Query: "what is PS11746591", Tier: "fast_path", Intent: "general", Confidence: 1, Outcome: OutcomeDone, ElapsedMS: 4},
		{ID: "t2", Timestamp: base.Add(time.Minute), ConversationID: "c1", Query: "my dishwasher is not draining", Tier: "tool_pipeline", Intent: "troubleshooting", Confidence: 0.4, Outcome: OutcomeDone, ElapsedMS: 900},
		{ID: "t3", Timestamp: base.Add(2 * time.Minute), ConversationID: "c2", Query: "my dishwasher is not draining", Tier: "cache", Intent: "troubleshooting", Confidence: 1, Outcome: OutcomeDone, ElapsedMS: 2},
		{ID: "t4", Timestamp: base.Add(3 * time.Minute), ConversationID: "c2", Query: "ice maker broken", Tier: "tool_pipeline", Intent: "troubleshooting", Outcome: OutcomeFailed, FailureKind: "request_timeout", Reason: "request timed out", ElapsedMS: 30000},
	}
	for _, e := range entries {
		if err := store.Log(context.Background(), e); err != nil {
			t.Fatalf("Log(%s): %v", e.ID, err)
		}
	}
}

func TestLogAndGetByID(t *testing.T) {
	store := setupStore(t)
	seed(t, store)

	got, err := store.GetByID(context.Background(), "t4")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Outcome != OutcomeFailed {
		t.Errorf("Outcome = %q, want %q", got.Outcome, OutcomeFailed)
	}
	if got.FailureKind != "request_timeout" || got.Reason != "request timed out" {
		t.Errorf("failure = %q/%q", got.FailureKind, got.Reason)
	}
	if !got.Timestamp.Equal(base.Add(3 * time.Minute)) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, base.Add(3*time.Minute))
	}
	if got.ElapsedMS != 30000 {
		t.Errorf("ElapsedMS = %d, want 30000", got.ElapsedMS)
	}
}

func TestLogGeneratesIDAndTimestamp(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	if err := store.Log(ctx, Entry{Tier: "cache", Outcome: OutcomeDone}); err != nil {
		t.Fatalf("Log: %v", err)
	}
	entries, err := store.Query(ctx, QueryFilter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].ID == "" {
		t.Error("expected generated ID")
	}
	if entries[0].Timestamp.IsZero() {
		t.Error("expected generated timestamp")
	}
}

func TestLogRejectsUnknownOutcome(t *testing.T) {
	store := setupStore(t)
	if err := store.Log(context.Background(), Entry{Tier: "cache", Outcome: "maybe"}); err == nil {
		t.Fatal("expected constraint error for unknown outcome")
	}
}

func TestGetByIDNotFound(t *testing.T) {
	store := setupStore(t)
	if _, err := store.GetByID(context.Background(), "missing"); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestQueryFilters(t *testing.T) {
	store := setupStore(t)
	seed(t, store)
	ctx := context.Background()
	since := base.Add(90 * time.Second)

	tests := []struct {
		name   string
		filter QueryFilter
		want   []string
	}{
		{"all newest first", QueryFilter{}, []string{"t4", "t3", "t2", "t1"}},
		{"conversation", QueryFilter{ConversationID: "c1"}, []string{"t2", "t1"}},
		{"tier", QueryFilter{Tier: "tool_pipeline"}, []string{"t4", "t2"}},
		{"outcome", QueryFilter{Outcome: OutcomeFailed}, []string{"t4"}},
		{"since", QueryFilter{Since: &since}, []string{"t4", "t3"}},
		{"limit offset", QueryFilter{Limit: 2, Offset: 1}, []string{"t3", "t2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := store.Query(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			var ids []string
			for _, e := range entries {
				ids = append(ids, e.ID)
			}
			if len(ids) != len(tt.want) {
				t.Fatalf("ids = %v, want %v", ids, tt.want)
			}
			for i := range ids {
				if ids[i] != tt.want[i] {
					t.Fatalf("ids = %v, want %v", ids, tt.want)
				}
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	store := setupStore(t)
	seed(t, store)

	summary, err := store.Summarize(context.Background(), QueryFilter{})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if len(summary) != 3 {
		t.Fatalf("got %d tiers, want 3: %+v", len(summary), summary)
	}
	pipeline := summary[2]
	if pipeline.Tier != "tool_pipeline" || pipeline.Turns != 2 || pipeline.Failed != 1 {
		t.Errorf("tool_pipeline summary = %+v", pipeline)
	}
	if pipeline.AvgElapsedMS != 15450 {
		t.Errorf("AvgElapsedMS = %v, want 15450", pipeline.AvgElapsedMS)
	}
}

func TestDeleteBefore(t *testing.T) {
	store := setupStore(t)
	seed(t, store)
	ctx := context.Background()

	deleted, err := store.DeleteBefore(ctx, base.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("DeleteBefore: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}
	entries, _ := store.Query(ctx, QueryFilter{})
	if len(entries) != 2 {
		t.Errorf("remaining = %d, want 2", len(entries))
	}
}

func newRouter(store *Store) chi.Router {
	r := chi.NewRouter()
	RegisterRoutes(r, store)
	return r
}

func TestHTTPQuery(t *testing.T) {
	store := setupStore(t)
	seed(t, store)

	req := httptest.NewRequest(http.MethodGet, "/api/turns?conversation=c2&limit=10", nil)
	rec := httptest.NewRecorder()
	newRouter(store).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var entries []Entry
	if err := json.NewDecoder(rec.Body).Decode(&entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 2 || entries[0].ID != "t4" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestHTTPSummary(t *testing.T) {
	store := setupStore(t)
	seed(t, store)

	req := httptest.NewRequest(http.MethodGet, "/api/turns/summary?outcome=done", nil)
	rec := httptest.NewRecorder()
	newRouter(store).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var summary []TierSummary
	if err := json.NewDecoder(rec.Body).Decode(&summary); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(summary) != 3 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestHTTPGetByID(t *testing.T) {
	store := setupStore(t)
	seed(t, store)

	rec := httptest.NewRecorder()
	newRouter(store).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/turns/t1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got Entry
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Query != "what is PS11746591" {
		t.Errorf("Query = %q", got.Query)
	}

	rec = httptest.NewRecorder()
	newRouter(store).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/turns/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
