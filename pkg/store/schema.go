package store

import (
	"fmt"
	"strconv"
	"strings"
)

// Redis key pattern helpers
//
// Key pattern: gather:{namespace}:{entity}:{id}
// Channel pattern: gather:{namespace}:chat:{event_id}:events

// EventKey returns the Redis key for an event.
// Pattern: gather:{ns}:event:{event_id}
func EventKey(ns, eventID string) string {
	return fmt.Sprintf("gather:%s:event:%s", ns, eventID)
}

// EventsIndexKey returns the Redis key for the set of all event ids.
// Pattern: gather:{ns}:events
func EventsIndexKey(ns string) string {
	return fmt.Sprintf("gather:%s:events", ns)
}

// ProfileKey returns the Redis key for a user profile.
// Pattern: gather:{ns}:user:{user_id}
func ProfileKey(ns, userID string) string {
	return fmt.Sprintf("gather:%s:user:%s", ns, userID)
}

// SubscriptionID returns the composite document id of a (user, event) subscription.
func SubscriptionID(userID, eventID string) string {
	return userID + "_" + eventID
}

// SubscriptionKey returns the Redis key for a subscription record.
// Pattern: gather:{ns}:subscription:{user_id}_{event_id}
func SubscriptionKey(ns, userID, eventID string) string {
	return fmt.Sprintf("gather:%s:subscription:%s", ns, SubscriptionID(userID, eventID))
}

// UserSubscriptionsKey returns the Redis key for the set of events a user joined.
// Pattern: gather:{ns}:user:{user_id}:subscriptions
func UserSubscriptionsKey(ns, userID string) string {
	return fmt.Sprintf("gather:%s:user:%s:subscriptions", ns, userID)
}

// EventSubscribersKey returns the Redis key for the set of users subscribed to an event.
// Pattern: gather:{ns}:event:{event_id}:subscribers
func EventSubscribersKey(ns, eventID string) string {
	return fmt.Sprintf("gather:%s:event:%s:subscribers", ns, eventID)
}

// ChatKey returns the Redis key for an event's ordered chat log.
// Pattern: gather:{ns}:chat:{event_id}
func ChatKey(ns, eventID string) string {
	return fmt.Sprintf("gather:%s:chat:%s", ns, eventID)
}

// ChatSeqKey returns the Redis key for an event's arrival sequence counter.
// Pattern: gather:{ns}:chat:{event_id}:seq
func ChatSeqKey(ns, eventID string) string {
	return fmt.Sprintf("gather:%s:chat:%s:seq", ns, eventID)
}

// MessageKey returns the Redis key for a single chat message.
// Pattern: gather:{ns}:chat:{event_id}:message:{message_id}
func MessageKey(ns, eventID, messageID string) string {
	return fmt.Sprintf("gather:%s:chat:%s:message:%s", ns, eventID, messageID)
}

// ReadCursorKey returns the Redis key for a user's read cursor in an event chat.
// Pattern: gather:{ns}:chat:{event_id}:read:{user_id}
func ReadCursorKey(ns, eventID, userID string) string {
	return fmt.Sprintf("gather:%s:chat:%s:read:%s", ns, eventID, userID)
}

// ChatEventsChannel returns the Pub/Sub channel notified on every chat append.
// Pattern: gather:{ns}:chat:{event_id}:events
func ChatEventsChannel(ns, eventID string) string {
	return fmt.Sprintf("gather:%s:chat:%s:events", ns, eventID)
}

// PresenceKey returns the Redis key for an event's presence records.
// Pattern: gather:{ns}:presence:{event_id}
func PresenceKey(ns, eventID string) string {
	return fmt.Sprintf("gather:%s:presence:%s", ns, eventID)
}

// SuggestionsIndexKey returns the Redis key for the set of suggestion ids with votes.
// Pattern: gather:{ns}:suggestions
func SuggestionsIndexKey(ns string) string {
	return fmt.Sprintf("gather:%s:suggestions", ns)
}

// SuggestionVotesKey returns the Redis key for the votes hash of a suggestion.
// Pattern: gather:{ns}:suggestion:{suggestion_id}:votes
func SuggestionVotesKey(ns, suggestionID string) string {
	return fmt.Sprintf("gather:%s:suggestion:%s:votes", ns, suggestionID)
}

// CategoryKey returns the Redis key for a catalog category.
// Pattern: gather:{ns}:category:{category_id}
func CategoryKey(ns, categoryID string) string {
	return fmt.Sprintf("gather:%s:category:%s", ns, categoryID)
}

// CategoriesIndexKey returns the Redis key for the set of catalog category ids.
// Pattern: gather:{ns}:categories
func CategoriesIndexKey(ns string) string {
	return fmt.Sprintf("gather:%s:categories", ns)
}

// Chat log ordering
//
// The chat zset scores members by message timestamp. Members sharing a score
// are ordered lexicographically by Redis, so each member is prefixed with the
// zero-padded arrival sequence: ties resolve to storage order.

// ChatMember returns the zset member for a message.
func ChatMember(seq int64, messageID string) string {
	return fmt.Sprintf("%016d:%s", seq, messageID)
}

// ParseChatMember splits a zset member back into sequence and message id.
func ParseChatMember(member string) (int64, string, error) {
	seqStr, id, ok := strings.Cut(member, ":")
	if !ok || id == "" {
		return 0, "", fmt.Errorf("malformed chat member: %q", member)
	}
	seq, err := strconv.ParseInt(seqStr, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("malformed chat member sequence: %q", member)
	}
	return seq, id, nil
}

// ChatScore converts a message timestamp to a zset score.
func ChatScore(timestampMs int64) float64 {
	return float64(timestampMs)
}
