// Package chat implements the per-event chat: ordered appends, live feeds,
// read cursors and unread counts.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/dyluth/gather/internal/clock"
	"github.com/dyluth/gather/internal/logging"
	"github.com/dyluth/gather/internal/metrics"
	"github.com/dyluth/gather/pkg/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AnonymousSender is the display name used when a sender has none.
const AnonymousSender = "Anonymous"

// Store is the slice of the document store the chat needs.
type Store interface {
	AppendMessage(ctx context.Context, m *store.ChatMessage) error
	ListMessages(ctx context.Context, eventID string) ([]*store.ChatMessage, error)
	GetMessage(ctx context.Context, eventID, messageID string) (*store.ChatMessage, error)
	CountMessages(ctx context.Context, eventID string) (int, error)
	CountMessagesAfter(ctx context.Context, m *store.ChatMessage) (int, error)
	SetReadCursor(ctx context.Context, rc *store.ReadCursor) error
	GetReadCursor(ctx context.Context, userID, eventID string) (*store.ReadCursor, error)
	WatchChat(ctx context.Context, eventID string) (*store.ChatWatch, error)
}

// Stream appends to and reads from event chats.
//
// Appending assumes the caller already checked that the sender is subscribed
// to the event; the stream itself performs no authorization.
type Stream struct {
	store   Store
	clock   clock.Clock
	logger  *zap.Logger
	metrics *metrics.Recorder
}

// NewStream creates a chat stream. logger and m may be nil.
func NewStream(s Store, c clock.Clock, logger *zap.Logger, m *metrics.Recorder) *Stream {
	return &Stream{
		store:   s,
		clock:   c,
		logger:  logging.OrNop(logger).Named("chat"),
		metrics: m,
	}
}

// Append stores a message stamped with the stream clock and returns its id.
// An empty body fails with store.ErrValidation.
func (s *Stream) Append(ctx context.Context, eventID, senderID, senderName, body string) (string, error) {
	if strings.TrimSpace(body) == "" {
		return "", fmt.Errorf("empty message body: %w", store.ErrValidation)
	}
	if strings.TrimSpace(senderName) == "" {
		senderName = AnonymousSender
	}

	msg := &store.ChatMessage{
		ID:          uuid.New().String(),
		EventID:     eventID,
		SenderID:    senderID,
		SenderName:  senderName,
		Body:        body,
		TimestampMs: clock.Millis(s.clock),
	}
	if err := s.store.AppendMessage(ctx, msg); err != nil {
		return "", fmt.Errorf("append to %s: %w", eventID, err)
	}

	s.metrics.MessageAppended()
	s.logger.Debug("message appended",
		zap.String("event_id", eventID),
		zap.String("message_id", msg.ID),
		zap.Int64("seq", msg.Seq))
	return msg.ID, nil
}

// History returns the current ordered message list of an event.
func (s *Stream) History(ctx context.Context, eventID string) ([]*store.ChatMessage, error) {
	messages, err := s.store.ListMessages(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("load chat %s: %w", eventID, err)
	}
	return messages, nil
}

// MarkRead moves the user's read cursor to messageID.
// Returns an error matching store.IsNotFound if the message does not exist.
func (s *Stream) MarkRead(ctx context.Context, userID, eventID, messageID string) error {
	if _, err := s.store.GetMessage(ctx, eventID, messageID); err != nil {
		return fmt.Errorf("mark read %s: %w", messageID, err)
	}

	rc := &store.ReadCursor{
		UserID:            userID,
		EventID:           eventID,
		LastReadMessageID: messageID,
		TimestampMs:       clock.Millis(s.clock),
	}
	if err := s.store.SetReadCursor(ctx, rc); err != nil {
		return fmt.Errorf("mark read %s: %w", messageID, err)
	}
	return nil
}

// ReadCursor returns the user's read cursor for an event.
// Returns an error matching store.IsNotFound when none was set.
func (s *Stream) ReadCursor(ctx context.Context, userID, eventID string) (*store.ReadCursor, error) {
	rc, err := s.store.GetReadCursor(ctx, userID, eventID)
	if err != nil {
		return nil, fmt.Errorf("read cursor of %s in %s: %w", userID, eventID, err)
	}
	return rc, nil
}

// UnreadCount returns how many messages are ordered after the user's cursor.
// Without a cursor, or when the cursor's message is gone, every message is unread.
func (s *Stream) UnreadCount(ctx context.Context, userID, eventID string) (int, error) {
	rc, err := s.store.GetReadCursor(ctx, userID, eventID)
	if err != nil && !store.IsNotFound(err) {
		return 0, fmt.Errorf("unread count: %w", err)
	}
	if rc != nil {
		last, err := s.store.GetMessage(ctx, eventID, rc.LastReadMessageID)
		switch {
		case err == nil:
			n, err := s.store.CountMessagesAfter(ctx, last)
			if err != nil && !store.IsNotFound(err) {
				return 0, fmt.Errorf("unread count: %w", err)
			}
			if err == nil {
				return n, nil
			}
		case !store.IsNotFound(err):
			return 0, fmt.Errorf("unread count: %w", err)
		}
	}

	n, err := s.store.CountMessages(ctx, eventID)
	if err != nil {
		return 0, fmt.Errorf("unread count: %w", err)
	}
	return n, nil
}
