package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyHelpers(t *testing.T) {
	assert.Equal(t, "gather:prod:event:e1", EventKey("prod", "e1"))
	assert.Equal(t, "gather:prod:events", EventsIndexKey("prod"))
	assert.Equal(t, "gather:prod:user:u1", ProfileKey("prod", "u1"))
	assert.Equal(t, "u1_e1", SubscriptionID("u1", "e1"))
	assert.Equal(t, "gather:prod:subscription:u1_e1", SubscriptionKey("prod", "u1", "e1"))
	assert.Equal(t, "gather:prod:user:u1:subscriptions", UserSubscriptionsKey("prod", "u1"))
	assert.Equal(t, "gather:prod:event:e1:subscribers", EventSubscribersKey("prod", "e1"))
	assert.Equal(t, "gather:prod:chat:e1", ChatKey("prod", "e1"))
	assert.Equal(t, "gather:prod:chat:e1:message:m1", MessageKey("prod", "e1", "m1"))
	assert.Equal(t, "gather:prod:chat:e1:read:u1", ReadCursorKey("prod", "e1", "u1"))
	assert.Equal(t, "gather:prod:chat:e1:events", ChatEventsChannel("prod", "e1"))
	assert.Equal(t, "gather:prod:presence:e1", PresenceKey("prod", "e1"))
	assert.Equal(t, "gather:prod:suggestion:yoga:votes", SuggestionVotesKey("prod", "yoga"))
	assert.Equal(t, "gather:prod:category:music", CategoryKey("prod", "music"))
}

func TestChatMember(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		member := ChatMember(42, "abc")
		assert.Equal(t, "0000000000000042:abc", member)

		seq, id, err := ParseChatMember(member)
		require.NoError(t, err)
		assert.Equal(t, int64(42), seq)
		assert.Equal(t, "abc", id)
	})

	t.Run("lexical order follows sequence", func(t *testing.T) {
		assert.Less(t, ChatMember(9, "zzz"), ChatMember(10, "aaa"))
	})

	t.Run("malformed", func(t *testing.T) {
		for _, member := range []string{"nocolon", "12:", "x:abc"} {
			_, _, err := ParseChatMember(member)
			assert.Error(t, err, member)
		}
	})
}
