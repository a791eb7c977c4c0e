package discovery

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/gather/internal/clock"
	"github.com/dyluth/gather/internal/profile"
	"github.com/dyluth/gather/internal/subscription"
	"github.com/dyluth/gather/pkg/geo"
	"github.com/dyluth/gather/pkg/store"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	svc      *Service
	client   *store.Client
	profiles *profile.Service
	ledger   *subscription.Ledger
	clock    *clock.Manual
}

func setup(t *testing.T, opts Options) *fixture {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	client, err := store.NewClient(&redis.Options{Addr: mr.Addr()}, "test")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	clk := clock.FromMillis(10_000)
	profiles := profile.NewService(client, clk, nil)
	ledger := subscription.NewLedger(client, clk, nil, nil)
	return &fixture{
		svc:      NewService(client, profiles, ledger, clk, opts, zap.NewNop()),
		client:   client,
		profiles: profiles,
		ledger:   ledger,
		clock:    clk,
	}
}

func (f *fixture) create(t *testing.T, creator, title, category string, loc *geo.Point, start, end int64) *store.Event {
	t.Helper()
	e, err := f.svc.CreateEvent(context.Background(), &store.Event{
		Title:     title,
		Category:  category,
		Location:  loc,
		StartMs:   start,
		EndMs:     end,
		CreatorID: creator,
	})
	require.NoError(t, err)
	return e
}

func titles(events []*store.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Title
	}
	return out
}

func TestCreateEvent(t *testing.T) {
	f := setup(t, Options{})
	ctx := context.Background()

	e := f.create(t, "org", "Jam", "music", &geo.Point{Lat: 41, Lon: 2}, 20_000, 30_000)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, int64(10_000), e.CreatedAtMs)

	ok, err := f.ledger.IsSubscribed(ctx, "org", e.ID)
	require.NoError(t, err)
	assert.True(t, ok, "creator is subscribed")

	messages, err := f.client.ListMessages(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, SystemSenderName, messages[0].SenderName)
	assert.Equal(t, ChatCreatedBody, messages[0].Body)

	t.Run("invalid window", func(t *testing.T) {
		_, err := f.svc.CreateEvent(ctx, &store.Event{Title: "x", CreatorID: "org", StartMs: 5, EndMs: 1})
		require.Error(t, err)
		assert.True(t, store.IsValidation(err))
	})

	t.Run("missing creator", func(t *testing.T) {
		_, err := f.svc.CreateEvent(ctx, &store.Event{Title: "x"})
		assert.True(t, store.IsValidation(err))
	})
}

func TestCreateEventRequiresOrganizer(t *testing.T) {
	f := setup(t, Options{RequireOrganizer: true})
	ctx := context.Background()

	_, err := f.svc.CreateEvent(ctx, &store.Event{Title: "x", CreatorID: "anon", StartMs: 1, EndMs: 2})
	assert.ErrorIs(t, err, store.ErrForbidden)

	require.NoError(t, f.profiles.Save(ctx, &store.UserProfile{ID: "plain"}))
	_, err = f.svc.CreateEvent(ctx, &store.Event{Title: "x", CreatorID: "plain", StartMs: 1, EndMs: 2})
	assert.ErrorIs(t, err, store.ErrForbidden)

	require.NoError(t, f.profiles.Save(ctx, &store.UserProfile{ID: "org", Organizer: true}))
	_, err = f.svc.CreateEvent(ctx, &store.Event{Title: "x", CreatorID: "org", StartMs: 1, EndMs: 2})
	assert.NoError(t, err)
}

func TestNearby(t *testing.T) {
	f := setup(t, Options{})
	ctx := context.Background()

	home := &geo.Point{Lat: 41.00, Lon: 2.00}
	nearby := &geo.Point{Lat: 41.05, Lon: 2.05}
	farAway := &geo.Point{Lat: 41.90, Lon: 2.80}

	f.create(t, "org", "later", "music", nearby, 50_000, 60_000)
	f.create(t, "org", "sooner", "music", nearby, 20_000, 30_000)
	f.create(t, "org", "ended", "music", nearby, 1_000, 9_000)
	f.create(t, "org", "ends now", "music", nearby, 1_000, 10_000)
	f.create(t, "org", "far", "music", farAway, 20_000, 30_000)
	f.create(t, "org", "wrong category", "sports", nearby, 20_000, 30_000)
	f.create(t, "org", "no location", "music", nil, 20_000, 30_000)
	joined := f.create(t, "org", "joined", "music", nearby, 20_000, 30_000)
	require.NoError(t, f.ledger.Subscribe(ctx, "u1", joined.ID))

	t.Run("no profile gives empty list", func(t *testing.T) {
		events, err := f.svc.Nearby(ctx, "u1")
		require.NoError(t, err)
		assert.Empty(t, events)
	})

	t.Run("no home gives empty list", func(t *testing.T) {
		require.NoError(t, f.profiles.Save(ctx, &store.UserProfile{ID: "u1"}))
		events, err := f.svc.Nearby(ctx, "u1")
		require.NoError(t, err)
		assert.Empty(t, events)
	})

	t.Run("filters and orders by start", func(t *testing.T) {
		require.NoError(t, f.profiles.Save(ctx, &store.UserProfile{ID: "u1", Home: home, Categories: []string{"music"}}))
		events, err := f.svc.Nearby(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, []string{"sooner", "later"}, titles(events))
	})

	t.Run("wider radius reaches far event", func(t *testing.T) {
		require.NoError(t, f.profiles.Save(ctx, &store.UserProfile{ID: "u1", Home: home, Categories: []string{"music"}, MaxDistanceKm: 150}))
		events, err := f.svc.Nearby(ctx, "u1")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"sooner", "far", "later"}, titles(events))
	})
}

func TestUpcomingAndPast(t *testing.T) {
	f := setup(t, Options{})
	ctx := context.Background()

	a := f.create(t, "org", "old", "music", nil, 1_000, 2_000)
	b := f.create(t, "org", "older", "music", nil, 500, 1_000)
	c := f.create(t, "org", "running", "music", nil, 5_000, 10_000)
	d := f.create(t, "org", "next", "music", nil, 20_000, 30_000)
	f.create(t, "org", "not joined", "music", nil, 20_000, 30_000)

	for _, e := range []*store.Event{a, b, c, d} {
		require.NoError(t, f.ledger.Subscribe(ctx, "u1", e.ID))
	}

	upcoming, err := f.svc.Upcoming(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"running", "next"}, titles(upcoming), "end == now is still upcoming")

	past, err := f.svc.Past(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"old", "older"}, titles(past))
}

func TestUpdateAndDelete(t *testing.T) {
	f := setup(t, Options{})
	ctx := context.Background()

	e := f.create(t, "org", "Jam", "music", nil, 20_000, 30_000)

	t.Run("only the creator may update", func(t *testing.T) {
		_, err := f.svc.UpdateEvent(ctx, &store.Event{ID: e.ID, Title: "Hijack", StartMs: 1, EndMs: 2}, "intruder")
		assert.ErrorIs(t, err, store.ErrForbidden)
	})

	t.Run("creator updates", func(t *testing.T) {
		f.clock.SetMillis(11_000)
		updated, err := f.svc.UpdateEvent(ctx, &store.Event{ID: e.ID, Title: "Jam session", Category: "music", StartMs: 20_000, EndMs: 40_000}, "org")
		require.NoError(t, err)
		assert.Equal(t, "org", updated.CreatorID)
		assert.Equal(t, int64(10_000), updated.CreatedAtMs)
		assert.Equal(t, int64(11_000), updated.UpdatedAtMs)

		got, err := f.svc.GetEvent(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, "Jam session", got.Title)
	})

	t.Run("only the creator may delete", func(t *testing.T) {
		assert.ErrorIs(t, f.svc.DeleteEvent(ctx, e.ID, "intruder"), store.ErrForbidden)
		require.NoError(t, f.svc.DeleteEvent(ctx, e.ID, "org"))

		_, err := f.svc.GetEvent(ctx, e.ID)
		assert.True(t, store.IsNotFound(err))
	})

	t.Run("missing event", func(t *testing.T) {
		err := f.svc.DeleteEvent(ctx, e.ID, "org")
		assert.True(t, store.IsNotFound(err))
	})
}
