// Package subscription keeps the (user, event) join relation.
package subscription

import (
	"context"
	"fmt"

	"github.com/dyluth/gather/internal/clock"
	"github.com/dyluth/gather/internal/logging"
	"github.com/dyluth/gather/internal/metrics"
	"go.uber.org/zap"
)

// Store is the slice of the document store the ledger needs.
type Store interface {
	Subscribe(ctx context.Context, userID, eventID string, nowMs int64) error
	Unsubscribe(ctx context.Context, userID, eventID string) error
	IsSubscribed(ctx context.Context, userID, eventID string) (bool, error)
	SubscribedEventIDs(ctx context.Context, userID string) ([]string, error)
	SubscriberIDs(ctx context.Context, eventID string) ([]string, error)
	SubscriberCount(ctx context.Context, eventID string) (int, error)
}

// Ledger records which users joined which events.
// Subscriptions are keyed by userId_eventId, so subscribing twice leaves one record.
type Ledger struct {
	store   Store
	clock   clock.Clock
	logger  *zap.Logger
	metrics *metrics.Recorder
}

// NewLedger creates a ledger. logger and m may be nil.
func NewLedger(s Store, c clock.Clock, logger *zap.Logger, m *metrics.Recorder) *Ledger {
	return &Ledger{
		store:   s,
		clock:   c,
		logger:  logging.OrNop(logger).Named("subscription"),
		metrics: m,
	}
}

// Subscribe joins userID to eventID. Idempotent.
func (l *Ledger) Subscribe(ctx context.Context, userID, eventID string) error {
	if err := l.store.Subscribe(ctx, userID, eventID, clock.Millis(l.clock)); err != nil {
		return fmt.Errorf("subscribe %s to %s: %w", userID, eventID, err)
	}
	l.metrics.Subscribed()
	l.logger.Debug("user subscribed", zap.String("user_id", userID), zap.String("event_id", eventID))
	return nil
}

// Unsubscribe removes every record for (userID, eventID). No-op when absent.
func (l *Ledger) Unsubscribe(ctx context.Context, userID, eventID string) error {
	if err := l.store.Unsubscribe(ctx, userID, eventID); err != nil {
		return fmt.Errorf("unsubscribe %s from %s: %w", userID, eventID, err)
	}
	l.metrics.Unsubscribed()
	l.logger.Debug("user unsubscribed", zap.String("user_id", userID), zap.String("event_id", eventID))
	return nil
}

// IsSubscribed reports whether userID joined eventID.
func (l *Ledger) IsSubscribed(ctx context.Context, userID, eventID string) (bool, error) {
	ok, err := l.store.IsSubscribed(ctx, userID, eventID)
	if err != nil {
		return false, fmt.Errorf("check subscription %s/%s: %w", userID, eventID, err)
	}
	return ok, nil
}

// SubscribedEvents returns the ids of every event userID joined.
func (l *Ledger) SubscribedEvents(ctx context.Context, userID string) ([]string, error) {
	ids, err := l.store.SubscribedEventIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions of %s: %w", userID, err)
	}
	return ids, nil
}

// Subscribers returns the ids of every user subscribed to eventID.
func (l *Ledger) Subscribers(ctx context.Context, eventID string) ([]string, error) {
	ids, err := l.store.SubscriberIDs(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list subscribers of %s: %w", eventID, err)
	}
	return ids, nil
}

// SubscriberCount counts distinct subscribers of eventID at query time.
func (l *Ledger) SubscriberCount(ctx context.Context, eventID string) (int, error) {
	n, err := l.store.SubscriberCount(ctx, eventID)
	if err != nil {
		return 0, fmt.Errorf("count subscribers of %s: %w", eventID, err)
	}
	return n, nil
}
