package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

// PutCategory upserts a catalog category.
func (c *Client) PutCategory(ctx context.Context, cat *Category) error {
	if err := cat.Validate(); err != nil {
		return invalid("category", err)
	}

	hash, err := CategoryToHash(cat)
	if err != nil {
		return fmt.Errorf("failed to serialize category: %w", err)
	}

	ns := c.namespace
	key := CategoryKey(ns, cat.ID)
	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, hash)
		pipe.SAdd(ctx, CategoriesIndexKey(ns), cat.ID)
		return nil
	})
	if err != nil {
		return wrapRedis("write category", err)
	}
	return nil
}

// ListCategories returns the whole catalog ordered by id.
func (c *Client) ListCategories(ctx context.Context) ([]*Category, error) {
	ids, err := c.rdb.SMembers(ctx, CategoriesIndexKey(c.namespace)).Result()
	if err != nil {
		return nil, wrapRedis("list categories", err)
	}
	sort.Strings(ids)
	if len(ids) == 0 {
		return []*Category{}, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = c.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, CategoryKey(c.namespace, id))
		}
		return nil
	})
	if err != nil {
		return nil, wrapRedis("read categories", err)
	}

	categories := make([]*Category, 0, len(ids))
	for i, cmd := range cmds {
		if len(cmd.Val()) == 0 {
			continue
		}
		cat, err := HashToCategory(cmd.Val())
		if err != nil {
			return nil, fmt.Errorf("failed to deserialize category %s: %w", ids[i], err)
		}
		categories = append(categories, cat)
	}
	return categories, nil
}

