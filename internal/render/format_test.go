package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/dyluth/gather/internal/category"
	"github.com/dyluth/gather/pkg/geo"
	"github.com/dyluth/gather/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

func TestEventsTable(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		assert.Equal(t, 0, EventsTable(&buf, nil, nil, now))
		assert.Equal(t, "No events found\n", buf.String())
	})

	t.Run("rows", func(t *testing.T) {
		var buf bytes.Buffer
		events := []*store.Event{
			{
				ID:       "a1b2c3d4-0000-0000-0000-000000000000",
				Title:    "Jazz night",
				Category: "music",
				StartMs:  now.Add(2 * time.Hour).UnixMilli(),
				Location: &geo.Point{Lat: 41.00, Lon: 2.00},
			},
			{ID: "short", Title: "Nowhere", StartMs: now.Add(-3 * 24 * time.Hour).UnixMilli()},
		}
		n := EventsTable(&buf, events, &geo.Point{Lat: 41.90, Lon: 2.80}, now)
		assert.Equal(t, 2, n)

		out := buf.String()
		assert.Contains(t, out, "a1b2c3d4 ")
		assert.Contains(t, out, "in 2h")
		assert.Contains(t, out, "120.3 km")
		assert.Contains(t, out, "3d ago")
		assert.True(t, strings.HasSuffix(out, "\n2 events found\n"))
	})
}

func TestChatLine(t *testing.T) {
	m := &store.ChatMessage{SenderName: "Ana", Body: "\n  hola\nsecond line", TimestampMs: now.UnixMilli()}
	assert.Equal(t, "[2026-06-01 10:00:00] Ana: hola", ChatLine(m))
}

func TestRankingsTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RankingsTable(&buf, []category.Ranking{{Name: "Música", Votes: 2}, {Name: "musica", Votes: 1}}))
	out := buf.String()
	assert.Contains(t, out, "RANK")
	assert.Contains(t, out, "Música")
	assert.Less(t, strings.Index(out, "Música"), strings.Index(out, "musica"))

	buf.Reset()
	require.NoError(t, RankingsTable(&buf, nil))
	assert.Equal(t, "No suggestions yet\n", buf.String())
}

func TestCategoriesTable(t *testing.T) {
	var buf bytes.Buffer
	err := CategoriesTable(&buf, []*store.Category{
		{ID: "music", ColorHex: "#E91E63", Translations: map[string]string{"en": "Music", "es": "Música"}},
		{ID: "sports", Translations: map[string]string{"en": "Sports"}},
	}, "es")
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "Música")
	assert.Contains(t, out, "#FFFFFF")
	assert.Contains(t, out, "Sports")
}

func TestJSONL(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSONL(&buf, []category.Ranking{{Name: "a", Votes: 1}, {Name: "b", Votes: 2}}))
	assert.Equal(t, "{\"name\":\"a\",\"votes\":1}\n{\"name\":\"b\",\"votes\":2}\n", buf.String())
}

func TestParseOutputFormat(t *testing.T) {
	f, err := ParseOutputFormat("jsonl")
	require.NoError(t, err)
	assert.Equal(t, OutputFormatJSONL, f)

	_, err = ParseOutputFormat("xml")
	assert.Error(t, err)
}

func TestFormatRelative(t *testing.T) {
	assert.Equal(t, "-", formatRelative(0, now))
	assert.Equal(t, "in 30s", formatRelative(now.Add(30*time.Second).UnixMilli(), now))
	assert.Equal(t, "5m ago", formatRelative(now.Add(-5*time.Minute).UnixMilli(), now))
}
