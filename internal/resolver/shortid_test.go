package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/dyluth/gather/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLookup struct {
	ids []string
	err error
}

func (f *fakeLookup) EventExists(ctx context.Context, eventID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	for _, id := range f.ids {
		if id == eventID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLookup) ScanEventIDs(ctx context.Context, prefix string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []string
	for _, id := range f.ids {
		if strings.HasPrefix(id, prefix) {
			out = append(out, id)
		}
	}
	return out, nil
}

func TestResolveEventID(t *testing.T) {
	ctx := context.Background()
	full := "a1b2c3d4-0000-0000-0000-000000000001"
	other := "a1b2c3ff-0000-0000-0000-000000000002"
	lookup := &fakeLookup{ids: []string{full, other}}

	t.Run("full id", func(t *testing.T) {
		id, err := ResolveEventID(ctx, lookup, full)
		require.NoError(t, err)
		assert.Equal(t, full, id)
	})

	t.Run("unknown full id", func(t *testing.T) {
		_, err := ResolveEventID(ctx, lookup, "ffffffff-0000-0000-0000-000000000000")
		assert.True(t, store.IsNotFound(err))
	})

	t.Run("unique prefix", func(t *testing.T) {
		id, err := ResolveEventID(ctx, lookup, "a1b2c3d4")
		require.NoError(t, err)
		assert.Equal(t, full, id)
	})

	t.Run("prefix too short", func(t *testing.T) {
		_, err := ResolveEventID(ctx, lookup, "a1b2")
		assert.ErrorContains(t, err, "at least 6")
	})

	t.Run("ambiguous prefix", func(t *testing.T) {
		_, err := ResolveEventID(ctx, lookup, "a1b2c3")
		var amb *AmbiguousError
		require.ErrorAs(t, err, &amb)
		assert.Equal(t, []string{full, other}, amb.Suggestions())
	})

	t.Run("no match", func(t *testing.T) {
		_, err := ResolveEventID(ctx, lookup, "999999")
		var nf *NotFoundError
		assert.ErrorAs(t, err, &nf)
	})

	t.Run("store failure", func(t *testing.T) {
		_, err := ResolveEventID(ctx, &fakeLookup{err: errors.New("boom")}, "a1b2c3d4")
		assert.ErrorContains(t, err, "boom")
	})
}

func TestAmbiguousSuggestionsCapped(t *testing.T) {
	matches := make([]string, 12)
	for i := range matches {
		matches[i] = fmt.Sprintf("id-%02d", i)
	}
	got := (&AmbiguousError{ShortID: "id", Matches: matches}).Suggestions()
	require.Len(t, got, 11)
	assert.Equal(t, "...and 2 more", got[10])
}
