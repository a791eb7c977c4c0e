package subscription

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/gather/internal/clock"
	"github.com/dyluth/gather/internal/metrics"
	"github.com/dyluth/gather/pkg/store"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupLedger(t *testing.T) (*Ledger, *miniredis.Miniredis) {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	client, err := store.NewClient(&redis.Options{Addr: mr.Addr()}, "test")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return NewLedger(client, clock.FromMillis(1_000), zap.NewNop(), metrics.New()), mr
}

func TestLedger(t *testing.T) {
	ledger, _ := setupLedger(t)
	ctx := context.Background()

	t.Run("subscribe, check, unsubscribe", func(t *testing.T) {
		require.NoError(t, ledger.Subscribe(ctx, "u1", "e1"))

		ok, err := ledger.IsSubscribed(ctx, "u1", "e1")
		require.NoError(t, err)
		assert.True(t, ok)

		require.NoError(t, ledger.Unsubscribe(ctx, "u1", "e1"))

		ok, err = ledger.IsSubscribed(ctx, "u1", "e1")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("double subscribe counts once", func(t *testing.T) {
		require.NoError(t, ledger.Subscribe(ctx, "u1", "e2"))
		require.NoError(t, ledger.Subscribe(ctx, "u1", "e2"))

		n, err := ledger.SubscriberCount(ctx, "e2")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("count equals distinct subscribers", func(t *testing.T) {
		for _, u := range []string{"a", "b", "c", "a"} {
			require.NoError(t, ledger.Subscribe(ctx, u, "e3"))
		}
		n, err := ledger.SubscriberCount(ctx, "e3")
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		subs, err := ledger.Subscribers(ctx, "e3")
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, subs)
	})

	t.Run("subscribed events", func(t *testing.T) {
		ids, err := ledger.SubscribedEvents(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, []string{"e2"}, ids)
	})

	t.Run("validation surfaces", func(t *testing.T) {
		err := ledger.Subscribe(ctx, "", "e1")
		require.Error(t, err)
		assert.True(t, store.IsValidation(err))
	})
}

func TestLedgerStoreDown(t *testing.T) {
	ledger, mr := setupLedger(t)
	mr.Close()

	_, err := ledger.SubscriberCount(context.Background(), "e1")
	require.Error(t, err)
	assert.True(t, store.IsTransient(err))
}
