package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ziadkadry99/partsdesk/internal/router"
	"github.com/ziadkadry99/partsdesk/internal/stream"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// chatMessage is the inbound WebSocket frame.
type chatMessage struct {
	Type           string `json:"type"` // "message"
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
}

// protocolError is sent for frames that never became a request. It has no
// payload, so clients can tell it from a failed fragment.
type protocolError struct {
	Type           string `json:"type"` // "error"
	ConversationID string `json:"conversation_id,omitempty"`
	Message        string `json:"message"`
}

type inbound struct {
	msg chatMessage
	bad string
}

func (a *API) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// Reading stops when the peer goes away, which cancels any request in
	// flight on this connection.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	frames := make(chan inbound)
	go func() {
		defer cancel()
		defer close(frames)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					a.logger.Debug("websocket read", zap.Error(err))
				}
				return
			}
			var in inbound
			if err := json.Unmarshal(data, &in.msg); err != nil {
				in.bad = "invalid message format"
			}
			select {
			case frames <- in:
			case <-ctx.Done():
				return
			}
		}
	}()

	for in := range frames {
		switch {
		case in.bad != "":
			a.sendError(conn, "", in.bad)
		case in.msg.Type != "message":
			a.sendError(conn, in.msg.ConversationID, "unknown message type: "+in.msg.Type)
		case strings.TrimSpace(in.msg.Content) == "":
			a.sendError(conn, in.msg.ConversationID, "content is required")
		default:
			if err := a.streamTo(ctx, router.Request{ConversationID: in.msg.ConversationID, Query: in.msg.Content}, conn.WriteJSON); err != nil {
				return
			}
		}
	}
}

// streamTo runs req and hands each fragment to write in order. A write error
// abandons the request and is returned.
func (a *API) streamTo(ctx context.Context, req router.Request, write func(v any) error) error {
	if req.ConversationID == "" {
		req.ConversationID = uuid.NewString()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	em := stream.NewEmitter(req.ConversationID, a.buffer)
	go func() {
		defer em.Close()
		if _, err := a.deps.Resolver.Handle(ctx, req, em); err != nil &&
			!errors.Is(err, context.Canceled) && !errors.Is(err, stream.ErrClosed) {
			a.logger.Debug("request ended with error", zap.String("conversation_id", req.ConversationID), zap.Error(err))
		}
	}()

	for f := range em.Fragments() {
		if err := write(f); err != nil {
			em.Abandon()
			a.logger.Debug("client went away mid-stream", zap.String("conversation_id", req.ConversationID), zap.Error(err))
			return err
		}
	}
	return ctx.Err()
}

func (a *API) sendError(conn *websocket.Conn, conversationID, message string) {
	if err := conn.WriteJSON(protocolError{Type: "error", ConversationID: conversationID, Message: message}); err != nil {
		a.logger.Debug("websocket write", zap.Error(err))
	}
}
