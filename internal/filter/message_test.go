package filter

import (
	"testing"

	"github.com/dyluth/gather/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCriteria(t *testing.T) {
	messages := []*store.ChatMessage{
		{ID: store.SystemMessageID, SenderName: "System", TimestampMs: 5},
		{ID: "a", SenderName: "Alice", TimestampMs: 10},
		{ID: "b", SenderName: "Bob", TimestampMs: 20},
		{ID: "c", SenderName: "alicia", TimestampMs: 30},
	}

	ids := func(ms []*store.ChatMessage) []string {
		var out []string
		for _, m := range ms {
			out = append(out, m.ID)
		}
		return out
	}

	t.Run("no filters", func(t *testing.T) {
		c := &Criteria{}
		assert.False(t, c.HasFilters())
		assert.Len(t, c.Apply(messages), 4)
	})

	t.Run("time window is inclusive", func(t *testing.T) {
		c := &Criteria{SinceMs: 10, UntilMs: 20}
		assert.Equal(t, []string{"a", "b"}, ids(c.Apply(messages)))
	})

	t.Run("sender glob ignores case", func(t *testing.T) {
		c := &Criteria{SenderGlob: "ALI*"}
		assert.Equal(t, []string{"a", "c"}, ids(c.Apply(messages)))
	})

	t.Run("bad glob matches nothing", func(t *testing.T) {
		c := &Criteria{SenderGlob: "["}
		assert.Empty(t, c.Apply(messages))
	})

	t.Run("skip system", func(t *testing.T) {
		c := &Criteria{SkipSystem: true}
		got := c.Apply(messages)
		require.Len(t, got, 3)
		assert.Equal(t, "a", got[0].ID)
	})
}
