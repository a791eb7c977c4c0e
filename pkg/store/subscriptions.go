package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Subscribe records that userID joined eventID.
// Re-subscribing is an idempotent upsert: the created-at of the first
// subscription is preserved and both indexes keep a single entry.
func (c *Client) Subscribe(ctx context.Context, userID, eventID string, nowMs int64) error {
	if err := checkSubscriptionKey(userID, eventID); err != nil {
		return err
	}

	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		queueSubscribe(ctx, pipe, c.namespace, userID, eventID, nowMs)
		return nil
	})
	if err != nil {
		return wrapRedis("subscribe", err)
	}
	return nil
}

// Unsubscribe removes the subscription record and both index entries.
// Removing an absent subscription is a no-op.
func (c *Client) Unsubscribe(ctx context.Context, userID, eventID string) error {
	if err := checkSubscriptionKey(userID, eventID); err != nil {
		return err
	}

	ns := c.namespace
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, SubscriptionKey(ns, userID, eventID))
		pipe.SRem(ctx, UserSubscriptionsKey(ns, userID), eventID)
		pipe.SRem(ctx, EventSubscribersKey(ns, eventID), userID)
		return nil
	})
	if err != nil {
		return wrapRedis("unsubscribe", err)
	}
	return nil
}

// IsSubscribed reports whether a subscription record exists for (userID, eventID).
func (c *Client) IsSubscribed(ctx context.Context, userID, eventID string) (bool, error) {
	exists, err := c.rdb.Exists(ctx, SubscriptionKey(c.namespace, userID, eventID)).Result()
	if err != nil {
		return false, wrapRedis("check subscription", err)
	}
	return exists > 0, nil
}

// GetSubscription reads a subscription record.
// Returns an error matching IsNotFound when the user has not joined the event.
func (c *Client) GetSubscription(ctx context.Context, userID, eventID string) (*Subscription, error) {
	hashData, err := c.rdb.HGetAll(ctx, SubscriptionKey(c.namespace, userID, eventID)).Result()
	if err != nil {
		return nil, wrapRedis("read subscription", err)
	}
	if len(hashData) == 0 {
		return nil, fmt.Errorf("subscription %s: %w", SubscriptionID(userID, eventID), ErrNotFound)
	}

	createdAtMs, _ := strconv.ParseInt(hashData["created_at_ms"], 10, 64)
	return &Subscription{
		UserID:      hashData["user_id"],
		EventID:     hashData["event_id"],
		CreatedAtMs: createdAtMs,
	}, nil
}

// SubscribedEventIDs returns the ids of every event userID joined, sorted.
func (c *Client) SubscribedEventIDs(ctx context.Context, userID string) ([]string, error) {
	ids, err := c.rdb.SMembers(ctx, UserSubscriptionsKey(c.namespace, userID)).Result()
	if err != nil {
		return nil, wrapRedis("list subscriptions", err)
	}
	sort.Strings(ids)
	return ids, nil
}

// SubscriberIDs returns the ids of every user subscribed to eventID, sorted.
func (c *Client) SubscriberIDs(ctx context.Context, eventID string) ([]string, error) {
	ids, err := c.rdb.SMembers(ctx, EventSubscribersKey(c.namespace, eventID)).Result()
	if err != nil {
		return nil, wrapRedis("list subscribers", err)
	}
	sort.Strings(ids)
	return ids, nil
}

// SubscriberCount counts the distinct users subscribed to eventID at query time.
func (c *Client) SubscriberCount(ctx context.Context, eventID string) (int, error) {
	n, err := c.rdb.SCard(ctx, EventSubscribersKey(c.namespace, eventID)).Result()
	if err != nil {
		return 0, wrapRedis("count subscribers", err)
	}
	return int(n), nil
}

// queueSubscribe appends the subscription upsert to a transaction.
func queueSubscribe(ctx context.Context, pipe redis.Pipeliner, ns, userID, eventID string, nowMs int64) {
	key := SubscriptionKey(ns, userID, eventID)
	pipe.HSetNX(ctx, key, "created_at_ms", nowMs)
	pipe.HSet(ctx, key, "user_id", userID, "event_id", eventID)
	pipe.SAdd(ctx, UserSubscriptionsKey(ns, userID), eventID)
	pipe.SAdd(ctx, EventSubscribersKey(ns, eventID), userID)
}

func checkSubscriptionKey(userID, eventID string) error {
	if userID == "" {
		return invalid("subscription", fmt.Errorf("user id cannot be empty"))
	}
	if eventID == "" {
		return invalid("subscription", fmt.Errorf("event id cannot be empty"))
	}
	return nil
}
