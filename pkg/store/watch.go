package store

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// ChatDeletedPayload is published on an event's chat channel when the event
// is deleted. Appends publish the new message id instead.
const ChatDeletedPayload = "event-deleted"

// ChatWatch delivers change notifications for one event chat.
// Notifications carry no payload: receivers re-read the log.
type ChatWatch struct {
	notify chan struct{}
	done   chan struct{}
	cancel  context.CancelFunc
	once    sync.Once
	deleted atomic.Bool
}

// Notify returns a channel that receives a value after one or more appends.
// Bursts are coalesced into a single pending notification.
// The channel is closed when the watch stops.
func (w *ChatWatch) Notify() <-chan struct{} {
	return w.notify
}

// Deleted reports whether the watch stopped because the event was deleted.
// Meaningful once Notify is closed.
func (w *ChatWatch) Deleted() bool {
	return w.deleted.Load()
}

// Done is closed once the underlying Pub/Sub connection is released.
func (w *ChatWatch) Done() <-chan struct{} {
	return w.done
}

// Close stops the watch and releases its Redis connection.
// Safe to call multiple times and never blocks.
func (w *ChatWatch) Close() error {
	w.once.Do(func() {
		w.cancel()
	})
	return nil
}

// WatchChat subscribes to append notifications of an event chat.
//
// The call returns only after Redis confirmed the subscription, so any append
// made after WatchChat returns is guaranteed to produce a notification.
// Caller must call Close() when done. Context cancellation also stops the watch.
func (c *Client) WatchChat(ctx context.Context, eventID string) (*ChatWatch, error) {
	channel := ChatEventsChannel(c.namespace, eventID)
	pubsub := c.rdb.Subscribe(ctx, channel)

	// Wait for the subscribe confirmation before handing the watch out
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, wrapRedis(fmt.Sprintf("subscribe to %s", channel), err)
	}

	watchCtx, cancelFunc := context.WithCancel(ctx)
	w := &ChatWatch{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
		cancel: cancelFunc,
	}

	go func() {
		defer close(w.done)
		defer close(w.notify)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-watchCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case w.notify <- struct{}{}:
				default:
					// A notification is already pending
				}
				if msg.Payload == ChatDeletedPayload {
					w.deleted.Store(true)
					return
				}
			}
		}
	}()

	return w, nil
}
