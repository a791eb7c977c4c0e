package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// AppendMessage stores a chat message and notifies live watchers.
//
// The message's Seq is assigned here from the per-event arrival counter. The
// message hash, the log entry and the Pub/Sub notification are issued in one
// MULTI/EXEC so watchers never see a notification for a message that was not
// stored.
func (c *Client) AppendMessage(ctx context.Context, m *ChatMessage) error {
	if err := m.Validate(); err != nil {
		return invalid("message", err)
	}

	ns := c.namespace
	seq, err := c.rdb.Incr(ctx, ChatSeqKey(ns, m.EventID)).Result()
	if err != nil {
		return wrapRedis("allocate message sequence", err)
	}
	m.Seq = seq

	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, MessageKey(ns, m.EventID, m.ID), MessageToHash(m))
		pipe.ZAdd(ctx, ChatKey(ns, m.EventID), redis.Z{
			Score:  ChatScore(m.TimestampMs),
			Member: ChatMember(m.Seq, m.ID),
		})
		pipe.Publish(ctx, ChatEventsChannel(ns, m.EventID), m.ID)
		return nil
	})
	if err != nil {
		return wrapRedis("append message", err)
	}
	return nil
}

// ListMessages returns the full chat log of an event ordered by timestamp,
// ties by arrival order. An event without messages yields an empty slice.
func (c *Client) ListMessages(ctx context.Context, eventID string) ([]*ChatMessage, error) {
	ns := c.namespace
	members, err := c.rdb.ZRange(ctx, ChatKey(ns, eventID), 0, -1).Result()
	if err != nil {
		return nil, wrapRedis("list chat log", err)
	}
	if len(members) == 0 {
		return []*ChatMessage{}, nil
	}

	cmds := make([]*redis.MapStringStringCmd, 0, len(members))
	_, err = c.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, member := range members {
			_, id, err := ParseChatMember(member)
			if err != nil {
				continue
			}
			cmds = append(cmds, pipe.HGetAll(ctx, MessageKey(ns, eventID, id)))
		}
		return nil
	})
	if err != nil {
		return nil, wrapRedis("read chat messages", err)
	}

	messages := make([]*ChatMessage, 0, len(cmds))
	for _, cmd := range cmds {
		hashData := cmd.Val()
		if len(hashData) == 0 {
			continue
		}
		msg, err := HashToMessage(hashData)
		if err != nil {
			return nil, fmt.Errorf("failed to deserialize chat message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// GetMessage reads a single chat message.
// Returns an error matching IsNotFound if the message doesn't exist.
func (c *Client) GetMessage(ctx context.Context, eventID, messageID string) (*ChatMessage, error) {
	hashData, err := c.rdb.HGetAll(ctx, MessageKey(c.namespace, eventID, messageID)).Result()
	if err != nil {
		return nil, wrapRedis("read message", err)
	}
	if len(hashData) == 0 {
		return nil, fmt.Errorf("message %s: %w", messageID, ErrNotFound)
	}

	msg, err := HashToMessage(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize message %s: %w", messageID, err)
	}
	return msg, nil
}

// CountMessagesAfter returns how many log entries are ordered after the given message.
func (c *Client) CountMessagesAfter(ctx context.Context, m *ChatMessage) (int, error) {
	key := ChatKey(c.namespace, m.EventID)

	rank, err := c.rdb.ZRank(ctx, key, ChatMember(m.Seq, m.ID)).Result()
	if err != nil {
		return 0, wrapRedis("rank message", err)
	}
	total, err := c.rdb.ZCard(ctx, key).Result()
	if err != nil {
		return 0, wrapRedis("count messages", err)
	}
	return int(total - rank - 1), nil
}

// CountMessages returns the number of messages in an event chat.
func (c *Client) CountMessages(ctx context.Context, eventID string) (int, error) {
	n, err := c.rdb.ZCard(ctx, ChatKey(c.namespace, eventID)).Result()
	if err != nil {
		return 0, wrapRedis("count messages", err)
	}
	return int(n), nil
}

// SetReadCursor overwrites a user's read cursor for an event chat.
func (c *Client) SetReadCursor(ctx context.Context, rc *ReadCursor) error {
	if rc.UserID == "" || rc.EventID == "" || rc.LastReadMessageID == "" {
		return invalid("read cursor", fmt.Errorf("user_id, event_id and last_read_message_id are required"))
	}

	err := c.rdb.HSet(ctx, ReadCursorKey(c.namespace, rc.EventID, rc.UserID),
		"user_id", rc.UserID,
		"event_id", rc.EventID,
		"last_read_message_id", rc.LastReadMessageID,
		"timestamp_ms", rc.TimestampMs,
	).Err()
	if err != nil {
		return wrapRedis("write read cursor", err)
	}
	return nil
}

// GetReadCursor reads a user's read cursor.
// Returns an error matching IsNotFound when the user never marked anything read.
func (c *Client) GetReadCursor(ctx context.Context, userID, eventID string) (*ReadCursor, error) {
	hashData, err := c.rdb.HGetAll(ctx, ReadCursorKey(c.namespace, eventID, userID)).Result()
	if err != nil {
		return nil, wrapRedis("read cursor", err)
	}
	if len(hashData) == 0 {
		return nil, fmt.Errorf("read cursor %s: %w", SubscriptionID(userID, eventID), ErrNotFound)
	}

	timestampMs, _ := strconv.ParseInt(hashData["timestamp_ms"], 10, 64)
	return &ReadCursor{
		UserID:            hashData["user_id"],
		EventID:           hashData["event_id"],
		LastReadMessageID: hashData["last_read_message_id"],
		TimestampMs:       timestampMs,
	}, nil
}
