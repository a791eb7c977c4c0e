package chat

import (
	"context"
	"fmt"
	"sync"

	"github.com/dyluth/gather/pkg/store"
	"go.uber.org/zap"
)

// Feed is a live view of an event chat. It delivers the full ordered message
// list once on open and again after every change.
//
// Only the newest snapshot is kept for a slow consumer: an undelivered
// snapshot is replaced by the next one. When the event is deleted the feed
// delivers the emptied log, reports an error matching store.IsNotFound and
// stops.
type Feed struct {
	updates chan []*store.ChatMessage
	errors  chan error
	done    chan struct{}
	cancel  context.CancelFunc
	once    sync.Once
}

// Updates returns the snapshot channel. It is closed when the feed stops.
func (f *Feed) Updates() <-chan []*store.ChatMessage {
	return f.updates
}

// Errors returns transport and load errors. It is closed when the feed stops.
func (f *Feed) Errors() <-chan error {
	return f.errors
}

// Done is closed after the feed released its store listener.
func (f *Feed) Done() <-chan struct{} {
	return f.done
}

// Close stops the feed. Safe to call multiple times and never blocks.
func (f *Feed) Close() error {
	f.once.Do(f.cancel)
	return nil
}

// Subscribe opens a live feed on eventID.
//
// The store listener is confirmed before the first snapshot is loaded, so no
// append made after Subscribe returns can be missed. Cancelling ctx stops the
// feed like Close.
func (s *Stream) Subscribe(ctx context.Context, eventID string) (*Feed, error) {
	feedCtx, cancel := context.WithCancel(ctx)

	watch, err := s.store.WatchChat(feedCtx, eventID)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("watch chat %s: %w", eventID, err)
	}

	f := &Feed{
		updates: make(chan []*store.ChatMessage, 1),
		errors:  make(chan error, 1),
		done:    make(chan struct{}),
		cancel:  cancel,
	}

	s.metrics.FeedOpened()
	logger := s.logger.With(zap.String("event_id", eventID))
	logger.Debug("feed opened")

	go func() {
		defer close(f.done)
		defer close(f.errors)
		defer close(f.updates)
		defer s.metrics.FeedClosed()
		defer watch.Close()

		s.deliver(feedCtx, f, eventID, logger)

		for {
			select {
			case <-feedCtx.Done():
				logger.Debug("feed closed")
				return
			case _, ok := <-watch.Notify():
				if !ok {
					if watch.Deleted() {
						f.fail(fmt.Errorf("chat %s: event deleted: %w", eventID, store.ErrNotFound))
						logger.Info("feed closed, event deleted")
						return
					}
					if feedCtx.Err() == nil {
						f.fail(fmt.Errorf("chat %s listener stopped: %w", eventID, store.ErrTransient))
						logger.Warn("feed listener stopped unexpectedly")
					}
					return
				}
				s.deliver(feedCtx, f, eventID, logger)
			}
		}
	}()

	return f, nil
}

// deliver loads a snapshot and hands it to the consumer.
func (s *Stream) deliver(ctx context.Context, f *Feed, eventID string, logger *zap.Logger) {
	messages, err := s.store.ListMessages(ctx, eventID)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		logger.Warn("failed to load chat snapshot", zap.Error(err))
		f.fail(fmt.Errorf("load chat %s: %w", eventID, err))
		return
	}
	f.publish(messages)
}

// publish replaces any pending snapshot with messages.
// Only the feed goroutine sends, so the loop settles after at most one drain.
func (f *Feed) publish(messages []*store.ChatMessage) {
	for {
		select {
		case f.updates <- messages:
			return
		default:
		}
		select {
		case <-f.updates:
		default:
		}
	}
}

// fail reports err unless an error is already pending.
func (f *Feed) fail(err error) {
	select {
	case f.errors <- err:
	default:
	}
}
