package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

// PutVote writes a user's vote for a suggestion, overwriting any previous
// vote by the same user for the same suggestion.
// Votes are JSON-encoded in a per-suggestion hash keyed by user id.
func (c *Client) PutVote(ctx context.Context, v *Vote) error {
	if err := v.Validate(); err != nil {
		return invalid("vote", err)
	}

	voteJSON, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal vote: %w", err)
	}

	ns := c.namespace
	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, SuggestionsIndexKey(ns), v.SuggestionID)
		pipe.HSet(ctx, SuggestionVotesKey(ns, v.SuggestionID), v.UserID, string(voteJSON))
		return nil
	})
	if err != nil {
		return wrapRedis("write vote", err)
	}
	return nil
}

// ListVotes returns every vote across all suggestions, ordered by suggestion
// then user id.
func (c *Client) ListVotes(ctx context.Context) ([]*Vote, error) {
	ids, err := c.rdb.SMembers(ctx, SuggestionsIndexKey(c.namespace)).Result()
	if err != nil {
		return nil, wrapRedis("list suggestions", err)
	}
	sort.Strings(ids)
	if len(ids) == 0 {
		return []*Vote{}, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = c.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, SuggestionVotesKey(c.namespace, id))
		}
		return nil
	})
	if err != nil {
		return nil, wrapRedis("read votes", err)
	}

	votes := make([]*Vote, 0)
	for i, cmd := range cmds {
		users := make([]string, 0, len(cmd.Val()))
		for userID := range cmd.Val() {
			users = append(users, userID)
		}
		sort.Strings(users)

		for _, userID := range users {
			var v Vote
			if err := json.Unmarshal([]byte(cmd.Val()[userID]), &v); err != nil {
				return nil, fmt.Errorf("failed to unmarshal vote %s/%s: %w", ids[i], userID, err)
			}
			votes = append(votes, &v)
		}
	}
	return votes, nil
}

// CountVotes returns the number of distinct voters for a suggestion.
func (c *Client) CountVotes(ctx context.Context, suggestionID string) (int, error) {
	n, err := c.rdb.HLen(ctx, SuggestionVotesKey(c.namespace, suggestionID)).Result()
	if err != nil {
		return 0, wrapRedis("count votes", err)
	}
	return int(n), nil
}
