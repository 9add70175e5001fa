// Package audit keeps a trail of resolved chat turns: which tier answered,
// what the question was classified as and how the stream ended.
package audit

import "time"

// Outcome is how a turn's stream ended.
type Outcome string

const (
	OutcomeDone      Outcome = "done"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
)

// Entry is a single resolved turn.
type Entry struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	ConversationID string    `json:"conversation_id"`
	Query          string    `json:"query"`
	Tier           string    `json:"tier"`
	Intent         string    `json:"intent"`
	Confidence     float64   `json:"confidence"`
	Outcome        Outcome   `json:"outcome"`
	FailureKind    string    `json:"failure_kind,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	ElapsedMS      int64     `json:"elapsed_ms"`
}

// TierSummary aggregates turns answered by one tier.
type TierSummary struct {
	Tier         string  `json:"tier"`
	Turns        int     `json:"turns"`
	Failed       int     `json:"failed"`
	Cancelled    int     `json:"cancelled"`
	AvgElapsedMS float64 `json:"avg_elapsed_ms"`
}
