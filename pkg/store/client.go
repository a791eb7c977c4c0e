package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Client provides namespaced Redis operations for the gather document store.
// All keys and channels are automatically prefixed with the namespace.
// The client is thread-safe and can be used concurrently from multiple goroutines.
type Client struct {
	rdb       *redis.Client
	namespace string
}

// NewClient creates a new store client for the specified namespace.
//
// Parameters:
//   - redisOpts: Redis connection options (address, password, DB, timeouts)
//   - namespace: deployment namespace (must not be empty)
//
// Returns an error if namespace is empty.
func NewClient(redisOpts *redis.Options, namespace string) (*Client, error) {
	if namespace == "" {
		return nil, fmt.Errorf("namespace cannot be empty")
	}

	return &Client{
		rdb:       redis.NewClient(redisOpts),
		namespace: namespace,
	}, nil
}

// Namespace returns the key namespace of this client.
func (c *Client) Namespace() string {
	return c.namespace
}

// Close closes the Redis connection. Implements io.Closer.
// After calling Close(), the client should not be used.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity. Used by the health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return wrapRedis("ping", err)
	}
	return nil
}

// CreateEvent writes a new event together with its creator's subscription and
// the chat placeholder message in a single MULTI/EXEC transaction.
// Either every record is written or none is.
func (c *Client) CreateEvent(ctx context.Context, e *Event, placeholder *ChatMessage) error {
	if err := e.Validate(); err != nil {
		return invalid("event", err)
	}
	if placeholder != nil {
		if err := placeholder.Validate(); err != nil {
			return invalid("placeholder message", err)
		}
		if placeholder.EventID != e.ID {
			return invalid("placeholder message", fmt.Errorf("event_id %q does not match event %q", placeholder.EventID, e.ID))
		}
	}

	ns := c.namespace
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, EventKey(ns, e.ID), EventToHash(e))
		pipe.SAdd(ctx, EventsIndexKey(ns), e.ID)

		queueSubscribe(ctx, pipe, ns, e.CreatorID, e.ID, e.CreatedAtMs)

		if placeholder != nil {
			placeholder.Seq = 0
			pipe.HSet(ctx, MessageKey(ns, e.ID, placeholder.ID), MessageToHash(placeholder))
			pipe.ZAdd(ctx, ChatKey(ns, e.ID), redis.Z{
				Score:  ChatScore(placeholder.TimestampMs),
				Member: ChatMember(placeholder.Seq, placeholder.ID),
			})
		}
		return nil
	})
	if err != nil {
		return wrapRedis("create event", err)
	}
	return nil
}

// GetEvent retrieves an event by ID.
// Returns an error matching IsNotFound if the event doesn't exist.
func (c *Client) GetEvent(ctx context.Context, eventID string) (*Event, error) {
	hashData, err := c.rdb.HGetAll(ctx, EventKey(c.namespace, eventID)).Result()
	if err != nil {
		return nil, wrapRedis("read event", err)
	}

	// HGetAll returns an empty map for non-existent keys
	if len(hashData) == 0 {
		return nil, fmt.Errorf("event %s: %w", eventID, ErrNotFound)
	}

	event, err := HashToEvent(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize event %s: %w", eventID, err)
	}
	return event, nil
}

// EventExists checks if an event exists without fetching it.
func (c *Client) EventExists(ctx context.Context, eventID string) (bool, error) {
	exists, err := c.rdb.Exists(ctx, EventKey(c.namespace, eventID)).Result()
	if err != nil {
		return false, wrapRedis("check event existence", err)
	}
	return exists > 0, nil
}

// maxWatchRetries bounds optimistic transactions that lose a WATCH race.
const maxWatchRetries = 3

// UpdateEvent replaces an existing event document.
// Returns an error matching IsNotFound if the event doesn't exist.
// The existence check and the write run under WATCH, so an event deleted
// concurrently is never recreated.
func (c *Client) UpdateEvent(ctx context.Context, e *Event) error {
	if err := e.Validate(); err != nil {
		return invalid("event", err)
	}

	key := EventKey(c.namespace, e.ID)
	replace := func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("event %s: %w", e.ID, ErrNotFound)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			// Full replacement so cleared optional fields (e.g. location) do not linger
			pipe.Del(ctx, key)
			pipe.HSet(ctx, key, EventToHash(e))
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxWatchRetries; attempt++ {
		err := c.rdb.Watch(ctx, replace, key)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, redis.TxFailedErr):
			continue
		case errors.Is(err, ErrNotFound):
			return err
		default:
			return wrapRedis("update event", err)
		}
	}
	return fmt.Errorf("update event %s: concurrent modification: %w", e.ID, ErrTransient)
}

// DeleteEvent removes an event and everything hanging off it: subscriptions,
// chat log, messages, read cursors and presence records. Open chat watches
// are told through ChatDeletedPayload.
// Deleting a missing event is a no-op.
func (c *Client) DeleteEvent(ctx context.Context, eventID string) error {
	ns := c.namespace

	subscribers, err := c.rdb.SMembers(ctx, EventSubscribersKey(ns, eventID)).Result()
	if err != nil {
		return wrapRedis("list event subscribers", err)
	}
	members, err := c.rdb.ZRange(ctx, ChatKey(ns, eventID), 0, -1).Result()
	if err != nil {
		return wrapRedis("list chat messages", err)
	}
	cursorKeys, err := c.scanKeys(ctx, ReadCursorKey(ns, eventID, "*"))
	if err != nil {
		return err
	}

	keys := []string{
		EventKey(ns, eventID),
		EventSubscribersKey(ns, eventID),
		ChatKey(ns, eventID),
		ChatSeqKey(ns, eventID),
		PresenceKey(ns, eventID),
	}
	for _, member := range members {
		if _, id, err := ParseChatMember(member); err == nil {
			keys = append(keys, MessageKey(ns, eventID, id))
		}
	}
	for _, userID := range subscribers {
		keys = append(keys, SubscriptionKey(ns, userID, eventID))
	}
	keys = append(keys, cursorKeys...)

	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		pipe.SRem(ctx, EventsIndexKey(ns), eventID)
		for _, userID := range subscribers {
			pipe.SRem(ctx, UserSubscriptionsKey(ns, userID), eventID)
		}
		pipe.Publish(ctx, ChatEventsChannel(ns, eventID), ChatDeletedPayload)
		return nil
	})
	if err != nil {
		return wrapRedis("delete event", err)
	}
	return nil
}

// ListEvents returns every stored event ordered by ID.
// Index entries whose document has vanished are skipped.
func (c *Client) ListEvents(ctx context.Context) ([]*Event, error) {
	ids, err := c.rdb.SMembers(ctx, EventsIndexKey(c.namespace)).Result()
	if err != nil {
		return nil, wrapRedis("list events", err)
	}
	sort.Strings(ids)
	return c.GetEvents(ctx, ids)
}

// globEscaper quotes the characters SCAN MATCH treats as pattern syntax.
var globEscaper = strings.NewReplacer(`\`, `\\`, "*", `\*`, "?", `\?`, "[", `\[`, "]", `\]`)

// ScanEventIDs returns the ids of stored events starting with prefix, sorted.
// prefix is matched literally.
func (c *Client) ScanEventIDs(ctx context.Context, prefix string) ([]string, error) {
	var ids []string
	iter := c.rdb.SScan(ctx, EventsIndexKey(c.namespace), 0, globEscaper.Replace(prefix)+"*", 100).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, wrapRedis("scan events", err)
	}
	sort.Strings(ids)
	return ids, nil
}

// GetEvents fetches the given events in one round trip, preserving the order
// of ids. Missing events are skipped.
func (c *Client) GetEvents(ctx context.Context, ids []string) ([]*Event, error) {
	if len(ids) == 0 {
		return []*Event{}, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err := c.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, EventKey(c.namespace, id))
		}
		return nil
	})
	if err != nil {
		return nil, wrapRedis("read events", err)
	}

	events := make([]*Event, 0, len(ids))
	for i, cmd := range cmds {
		hashData := cmd.Val()
		if len(hashData) == 0 {
			continue
		}
		event, err := HashToEvent(hashData)
		if err != nil {
			return nil, fmt.Errorf("failed to deserialize event %s: %w", ids[i], err)
		}
		events = append(events, event)
	}
	return events, nil
}

// GetProfile retrieves a user profile.
// Returns an error matching IsNotFound if the user has no profile.
func (c *Client) GetProfile(ctx context.Context, userID string) (*UserProfile, error) {
	hashData, err := c.rdb.HGetAll(ctx, ProfileKey(c.namespace, userID)).Result()
	if err != nil {
		return nil, wrapRedis("read profile", err)
	}
	if len(hashData) == 0 {
		return nil, fmt.Errorf("profile %s: %w", userID, ErrNotFound)
	}

	profile, err := HashToProfile(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize profile %s: %w", userID, err)
	}
	return profile, nil
}

// SaveProfile upserts a user profile, replacing any previous document.
func (c *Client) SaveProfile(ctx context.Context, p *UserProfile) error {
	if err := p.Validate(); err != nil {
		return invalid("profile", err)
	}

	hash, err := ProfileToHash(p)
	if err != nil {
		return fmt.Errorf("failed to serialize profile: %w", err)
	}

	key := ProfileKey(c.namespace, p.ID)
	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, hash)
		return nil
	})
	if err != nil {
		return wrapRedis("save profile", err)
	}
	return nil
}

// scanKeys collects every key matching pattern using SCAN.
func (c *Client) scanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, wrapRedis("scan keys", err)
	}
	return keys, nil
}
