// Package presence tracks which users are currently looking at an event chat.
package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/dyluth/gather/internal/logging"
	"github.com/dyluth/gather/internal/metrics"
	"github.com/dyluth/gather/pkg/store"
	"go.uber.org/zap"
)

// Window is how long a heartbeat keeps a user online.
const Window = 2 * time.Minute

// DefaultRetention is how long stale heartbeats are kept before compaction.
const DefaultRetention = 24 * time.Hour

// Store is the slice of the document store the tracker needs.
type Store interface {
	Heartbeat(ctx context.Context, eventID, userID string, nowMs int64, retention time.Duration) error
	CountActiveSince(ctx context.Context, eventID string, sinceMs int64) (int, error)
	LastActive(ctx context.Context, eventID, userID string) (*store.PresenceRecord, error)
}

// Tracker records heartbeats and counts online users per event.
type Tracker struct {
	store     Store
	retention time.Duration
	logger    *zap.Logger
	metrics   *metrics.Recorder
}

// NewTracker creates a tracker. A non-positive retention selects DefaultRetention;
// retention is never shorter than Window.
func NewTracker(s Store, retention time.Duration, logger *zap.Logger, m *metrics.Recorder) *Tracker {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if retention < Window {
		retention = Window
	}
	return &Tracker{
		store:     s,
		retention: retention,
		logger:    logging.OrNop(logger).Named("presence"),
		metrics:   m,
	}
}

// Heartbeat marks userID active in eventID at now.
func (t *Tracker) Heartbeat(ctx context.Context, userID, eventID string, now time.Time) error {
	if err := t.store.Heartbeat(ctx, eventID, userID, now.UnixMilli(), t.retention); err != nil {
		return fmt.Errorf("heartbeat %s in %s: %w", userID, eventID, err)
	}
	t.metrics.Heartbeat()
	return nil
}

// OnlineCount counts users whose last heartbeat is at most Window before now.
func (t *Tracker) OnlineCount(ctx context.Context, eventID string, now time.Time) (int, error) {
	since := now.Add(-Window).UnixMilli()
	n, err := t.store.CountActiveSince(ctx, eventID, since)
	if err != nil {
		return 0, fmt.Errorf("count online in %s: %w", eventID, err)
	}
	return n, nil
}

// LastActive returns the last heartbeat instant of userID in eventID.
// Returns an error matching store.IsNotFound when the user never sent one.
func (t *Tracker) LastActive(ctx context.Context, userID, eventID string) (time.Time, error) {
	rec, err := t.store.LastActive(ctx, eventID, userID)
	if err != nil {
		return time.Time{}, fmt.Errorf("last active of %s in %s: %w", userID, eventID, err)
	}
	return time.UnixMilli(rec.LastActiveMs), nil
}

// IsOnline reports whether userID sent a heartbeat within Window before now.
func (t *Tracker) IsOnline(ctx context.Context, userID, eventID string, now time.Time) (bool, error) {
	last, err := t.LastActive(ctx, userID, eventID)
	if store.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return now.Sub(last) <= Window, nil
}
