package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/partsdesk/internal/catalog"
	"github.com/ziadkadry99/partsdesk/internal/failure"
	"github.com/ziadkadry99/partsdesk/internal/router"
	"github.com/ziadkadry99/partsdesk/internal/stream"
)

type chatRequest struct {
	Query          string `json:"query"`
	ConversationID string `json:"conversation_id"`
	Stream         bool   `json:"stream"`
}

// chatReply is the aggregated form of one fragment sequence.
type chatReply struct {
	Response       string            `json:"response"`
	Parts          []catalog.Part    `json:"parts,omitempty"`
	Repairs        []catalog.Repair  `json:"repairs,omitempty"`
	Articles       []catalog.Article `json:"articles,omitempty"`
	ConversationID string            `json:"conversation_id"`
	Tier           router.Tier       `json:"tier,omitempty"`
	ResponseTimeMS int64             `json:"response_time_ms"`
	Error          string            `json:"error,omitempty"`
}

func (a *API) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.ConversationID == "" {
		req.ConversationID = uuid.NewString()
	}
	rreq := router.Request{ConversationID: req.ConversationID, Query: req.Query}

	if req.Stream {
		a.serveEvents(w, r, rreq)
		return
	}

	start := time.Now()
	sink := &stream.Collector{ConversationID: req.ConversationID}
	class, err := a.deps.Resolver.Handle(r.Context(), rreq, sink)
	if r.Context().Err() != nil {
		return
	}

	reply := aggregate(sink.Fragments())
	reply.ConversationID = req.ConversationID
	reply.Tier = class.Tier
	reply.ResponseTimeMS = time.Since(start).Milliseconds()

	status := http.StatusOK
	if reply.Error != "" {
		status = statusFor(err)
	}
	writeJSON(w, status, reply)
}

// serveEvents writes one server-sent event per fragment.
func (a *API) serveEvents(w http.ResponseWriter, r *http.Request, req router.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Conversation-ID", req.ConversationID)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	_ = a.streamTo(r.Context(), req, func(v any) error {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
}

func aggregate(frags []stream.Fragment) chatReply {
	var reply chatReply
	var text strings.Builder
	for _, f := range frags {
		switch p := f.Payload.(type) {
		case stream.AnswerTextPayload:
			text.WriteString(p.Text)
		case stream.PartsPayload:
			reply.Parts = append(reply.Parts, p.Parts...)
		case stream.RepairsPayload:
			reply.Repairs = append(reply.Repairs, p.Repairs...)
		case stream.ArticlesPayload:
			reply.Articles = append(reply.Articles, p.Articles...)
		case stream.FailedPayload:
			reply.Error = p.Reason
		}
	}
	reply.Response = text.String()
	return reply
}

func statusFor(err error) int {
	switch failure.KindOf(err) {
	case failure.RequestTimeout:
		return http.StatusGatewayTimeout
	case failure.NoResults, failure.ClassificationAmbiguous:
		return http.StatusOK
	case failure.CollaboratorUnavailable, failure.CollaboratorTimeout:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
