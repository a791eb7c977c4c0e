package api

import (
	"net/http"
	"time"

	"github.com/dyluth/gather/pkg/store"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// wsWriteWait bounds a single frame write to the client.
	wsWriteWait = 10 * time.Second
	// wsPongWait is how long the client may stay silent before the stream is dropped.
	wsPongWait = 60 * time.Second
	// wsPingPeriod must be shorter than wsPongWait.
	wsPingPeriod = wsPongWait * 9 / 10
)

type appendRequest struct {
	Body       string `json:"body"`
	SenderName string `json:"sender_name,omitempty"`
}

type appendResponse struct {
	ID string `json:"id"`
}

type markReadRequest struct {
	MessageID string `json:"message_id"`
}

type readCursorResponse struct {
	EventID           string `json:"event_id"`
	LastReadMessageID string `json:"last_read_message_id,omitempty"`
	TimestampMs       int64  `json:"timestamp_ms,omitempty"`
	Unread            int    `json:"unread"`
}

// streamFrame is one WebSocket message: a full snapshot or a terminal error.
type streamFrame struct {
	Messages []*store.ChatMessage `json:"messages,omitempty"`
	Error    string               `json:"error,omitempty"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	eventID := mux.Vars(r)["id"]
	if !s.requireSubscription(w, r, UserID(r.Context()), eventID) {
		return
	}
	messages, err := s.svc.Chat.History(r.Context(), eventID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, messages)
}

// handleAppend posts a message. Only subscribers may write; the sender name
// defaults to the profile username at send time.
func (s *Server) handleAppend(w http.ResponseWriter, r *http.Request) {
	eventID := mux.Vars(r)["id"]
	userID := UserID(r.Context())

	var req appendRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if !s.requireSubscription(w, r, userID, eventID) {
		return
	}

	name := req.SenderName
	if name == "" {
		if p, err := s.svc.Profiles.Get(r.Context(), userID); err == nil {
			name = p.Username
		}
	}

	id, err := s.svc.Chat.Append(r.Context(), eventID, userID, name, req.Body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, appendResponse{ID: id})
}

func (s *Server) handleGetReadCursor(w http.ResponseWriter, r *http.Request) {
	eventID := mux.Vars(r)["id"]
	userID := UserID(r.Context())
	resp := readCursorResponse{EventID: eventID}

	rc, err := s.svc.Chat.ReadCursor(r.Context(), userID, eventID)
	switch {
	case err == nil:
		resp.LastReadMessageID = rc.LastReadMessageID
		resp.TimestampMs = rc.TimestampMs
	case !store.IsNotFound(err):
		s.fail(w, r, err)
		return
	}

	unread, err := s.svc.Chat.UnreadCount(r.Context(), userID, eventID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	resp.Unread = unread
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	var req markReadRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.svc.Chat.MarkRead(r.Context(), UserID(r.Context()), mux.Vars(r)["id"], req.MessageID); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleStream upgrades to a WebSocket and pushes the full ordered message
// list on open and after every change until either side closes.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	eventID := mux.Vars(r)["id"]
	userID := UserID(r.Context())
	if !s.requireSubscription(w, r, userID, eventID) {
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client.
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	feed, err := s.svc.Chat.Subscribe(r.Context(), eventID)
	if err != nil {
		s.closeStream(conn, err)
		return
	}
	defer feed.Close()

	logger := s.logger.With(zap.String("event_id", eventID), zap.String("user_id", userID))
	logger.Debug("chat stream opened")

	// The read pump only handles control frames and notices the client leaving.
	gone := make(chan struct{})
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-gone:
			logger.Debug("chat stream closed by client")
			return
		case messages, ok := <-feed.Updates():
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(streamFrame{Messages: messages}); err != nil {
				logger.Debug("chat stream write failed", zap.Error(err))
				return
			}
		case err, ok := <-feed.Errors():
			if !ok {
				return
			}
			if store.IsNotFound(err) {
				logger.Debug("chat stream ended, event deleted")
			} else {
				logger.Warn("chat stream failed", zap.Error(err))
			}
			s.closeStream(conn, err)
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

// closeStream sends a terminal error frame and a close message. A deleted
// event ends the stream normally.
func (s *Server) closeStream(conn *websocket.Conn, cause error) {
	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteJSON(streamFrame{Error: cause.Error()}); err != nil {
		return
	}
	code, text := websocket.CloseInternalServerErr, "chat feed unavailable"
	if store.IsNotFound(cause) {
		code, text = websocket.CloseNormalClosure, "event deleted"
	}
	msg := websocket.FormatCloseMessage(code, text)
	conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteWait))
}
