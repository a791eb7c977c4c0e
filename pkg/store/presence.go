package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Presence records live in one zset per event: member = user id,
// score = last heartbeat in Unix milliseconds.

// Heartbeat upserts the user's last-active instant and compacts the event's
// presence set. Records older than retention are dropped and the whole key
// expires after retention without heartbeats.
func (c *Client) Heartbeat(ctx context.Context, eventID, userID string, nowMs int64, retention time.Duration) error {
	if eventID == "" || userID == "" {
		return invalid("heartbeat", fmt.Errorf("event id and user id are required"))
	}

	key := PresenceKey(c.namespace, eventID)
	cutoff := nowMs - retention.Milliseconds()

	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, key, redis.Z{Score: float64(nowMs), Member: userID})
		pipe.ZRemRangeByScore(ctx, key, "-inf", "("+strconv.FormatInt(cutoff, 10))
		pipe.PExpire(ctx, key, retention)
		return nil
	})
	if err != nil {
		return wrapRedis("heartbeat", err)
	}
	return nil
}

// CountActiveSince counts users whose last heartbeat is at or after sinceMs.
func (c *Client) CountActiveSince(ctx context.Context, eventID string, sinceMs int64) (int, error) {
	n, err := c.rdb.ZCount(ctx, PresenceKey(c.namespace, eventID), strconv.FormatInt(sinceMs, 10), "+inf").Result()
	if err != nil {
		return 0, wrapRedis("count presence", err)
	}
	return int(n), nil
}

// LastActive returns the presence record of a user in an event.
// Returns an error matching IsNotFound when the user never sent a heartbeat.
func (c *Client) LastActive(ctx context.Context, eventID, userID string) (*PresenceRecord, error) {
	score, err := c.rdb.ZScore(ctx, PresenceKey(c.namespace, eventID), userID).Result()
	if err != nil {
		return nil, wrapRedis("read presence", err)
	}
	return &PresenceRecord{
		UserID:       userID,
		EventID:      eventID,
		LastActiveMs: int64(score),
	}, nil
}
