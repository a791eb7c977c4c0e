package chat

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/gather/internal/clock"
	"github.com/dyluth/gather/internal/metrics"
	"github.com/dyluth/gather/pkg/store"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupStream(t *testing.T) (*Stream, *clock.Manual, *miniredis.Miniredis) {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	client, err := store.NewClient(&redis.Options{Addr: mr.Addr()}, "test")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	clk := clock.FromMillis(0)
	return NewStream(client, clk, zap.NewNop(), metrics.New()), clk, mr
}

// appendAt appends a message with the clock set to ts.
func appendAt(t *testing.T, s *Stream, clk *clock.Manual, eventID string, ts int64, body string) string {
	t.Helper()
	clk.SetMillis(ts)
	id, err := s.Append(context.Background(), eventID, "u1", "User One", body)
	require.NoError(t, err)
	return id
}

func timestamps(messages []*store.ChatMessage) []int64 {
	out := make([]int64, len(messages))
	for i, m := range messages {
		out[i] = m.TimestampMs
	}
	return out
}

func TestAppend(t *testing.T) {
	s, clk, _ := setupStream(t)
	ctx := context.Background()

	t.Run("stamps with the clock", func(t *testing.T) {
		appendAt(t, s, clk, "e1", 42, "hello")

		history, err := s.History(ctx, "e1")
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, int64(42), history[0].TimestampMs)
		assert.Equal(t, "User One", history[0].SenderName)
		assert.Equal(t, "hello", history[0].Body)
	})

	t.Run("empty body is a validation error", func(t *testing.T) {
		_, err := s.Append(ctx, "e1", "u1", "User One", "  ")
		require.Error(t, err)
		assert.True(t, store.IsValidation(err))
	})

	t.Run("missing sender name falls back", func(t *testing.T) {
		_, err := s.Append(ctx, "e9", "u1", "", "hi")
		require.NoError(t, err)

		history, err := s.History(ctx, "e9")
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, AnonymousSender, history[0].SenderName)
	})

	t.Run("history is ordered by timestamp", func(t *testing.T) {
		for _, ts := range []int64{10, 5, 15} {
			appendAt(t, s, clk, "e2", ts, "m")
		}
		history, err := s.History(ctx, "e2")
		require.NoError(t, err)
		assert.Equal(t, []int64{5, 10, 15}, timestamps(history))
	})
}

func TestFeed(t *testing.T) {
	s, clk, _ := setupStream(t)
	ctx := context.Background()

	t.Run("delivers the current list on open", func(t *testing.T) {
		appendAt(t, s, clk, "e0", 1, "existing")

		feed, err := s.Subscribe(ctx, "e0")
		require.NoError(t, err)
		defer feed.Close()

		select {
		case snapshot := <-feed.Updates():
			require.Len(t, snapshot, 1)
			assert.Equal(t, "existing", snapshot[0].Body)
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for initial snapshot")
		}
	})

	t.Run("out-of-order appends are delivered non-decreasing", func(t *testing.T) {
		feed, err := s.Subscribe(ctx, "e1")
		require.NoError(t, err)
		defer feed.Close()

		for _, ts := range []int64{10, 5, 15} {
			appendAt(t, s, clk, "e1", ts, "m")
		}

		deadline := time.After(2 * time.Second)
		for {
			select {
			case snapshot, ok := <-feed.Updates():
				require.True(t, ok)
				got := timestamps(snapshot)
				for i := 1; i < len(got); i++ {
					assert.LessOrEqual(t, got[i-1], got[i])
				}
				if len(got) == 3 {
					assert.Equal(t, []int64{5, 10, 15}, got)
					return
				}
			case err := <-feed.Errors():
				t.Fatalf("unexpected feed error: %v", err)
			case <-deadline:
				t.Fatal("timeout waiting for all messages")
			}
		}
	})

	t.Run("close is idempotent and stops delivery", func(t *testing.T) {
		feed, err := s.Subscribe(ctx, "e3")
		require.NoError(t, err)

		assert.NoError(t, feed.Close())
		assert.NoError(t, feed.Close())

		select {
		case <-feed.Done():
		case <-time.After(time.Second):
			t.Fatal("feed did not stop")
		}

		// Drain a possibly pending snapshot, then the channel must be closed
		for range feed.Updates() {
		}
	})

	t.Run("context cancellation stops the feed", func(t *testing.T) {
		cancelCtx, cancel := context.WithCancel(ctx)
		feed, err := s.Subscribe(cancelCtx, "e4")
		require.NoError(t, err)

		cancel()

		select {
		case <-feed.Done():
		case <-time.After(time.Second):
			t.Fatal("feed did not stop on cancellation")
		}
	})
}

func TestFeedEndsWhenEventDeleted(t *testing.T) {
	s, clk, _ := setupStream(t)
	ctx := context.Background()
	client := s.store.(*store.Client)

	e := &store.Event{ID: uuid.New().String(), Title: "Picnic", CreatorID: "u1", StartMs: 1, EndMs: 2}
	require.NoError(t, client.CreateEvent(ctx, e, nil))
	appendAt(t, s, clk, e.ID, 5, "see you there")

	feed, err := s.Subscribe(ctx, e.ID)
	require.NoError(t, err)
	defer feed.Close()

	select {
	case snapshot := <-feed.Updates():
		require.Len(t, snapshot, 1)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for initial snapshot")
	}

	require.NoError(t, client.DeleteEvent(ctx, e.ID))

	select {
	case err := <-feed.Errors():
		assert.True(t, store.IsNotFound(err), "got %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("feed did not report the deletion")
	}

	select {
	case <-feed.Done():
	case <-time.After(time.Second):
		t.Fatal("feed did not stop after deletion")
	}

	// The emptied log was published before the error.
	var snapshots [][]*store.ChatMessage
	for snapshot := range feed.Updates() {
		snapshots = append(snapshots, snapshot)
	}
	require.Len(t, snapshots, 1)
	assert.Empty(t, snapshots[0])
}

func TestFeedPublishKeepsNewest(t *testing.T) {
	f := &Feed{updates: make(chan []*store.ChatMessage, 1)}

	f.publish([]*store.ChatMessage{{ID: "a"}})
	f.publish([]*store.ChatMessage{{ID: "a"}, {ID: "b"}})

	snapshot := <-f.updates
	assert.Len(t, snapshot, 2)
	assert.Empty(t, f.updates)
}

func TestReadCursor(t *testing.T) {
	s, clk, _ := setupStream(t)
	ctx := context.Background()

	first := appendAt(t, s, clk, "e1", 10, "one")
	second := appendAt(t, s, clk, "e1", 20, "two")
	appendAt(t, s, clk, "e1", 30, "three")

	t.Run("no cursor means everything is unread", func(t *testing.T) {
		_, err := s.ReadCursor(ctx, "u2", "e1")
		assert.True(t, store.IsNotFound(err))

		n, err := s.UnreadCount(ctx, "u2", "e1")
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("mark read overwrites", func(t *testing.T) {
		clk.SetMillis(100)
		require.NoError(t, s.MarkRead(ctx, "u2", "e1", first))
		clk.SetMillis(200)
		require.NoError(t, s.MarkRead(ctx, "u2", "e1", second))

		rc, err := s.ReadCursor(ctx, "u2", "e1")
		require.NoError(t, err)
		assert.Equal(t, second, rc.LastReadMessageID)
		assert.Equal(t, int64(200), rc.TimestampMs)

		n, err := s.UnreadCount(ctx, "u2", "e1")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("unknown message", func(t *testing.T) {
		err := s.MarkRead(ctx, "u2", "e1", "does-not-exist")
		require.Error(t, err)
		assert.True(t, store.IsNotFound(err))
	})
}
