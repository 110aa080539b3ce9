package rbac

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DecisionCache memoizes allow/deny verdicts in redis under a short TTL.
// Grants are seeded reference data, so TTL expiry is the only
// invalidation needed in steady state; InvalidateUser exists for the rare
// role-assignment change. A nil cache (or nil client) is inert, which
// lets the service run without redis.
type DecisionCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

func NewDecisionCache(rdb *redis.Client, ttl time.Duration) *DecisionCache {
	if rdb == nil {
		return nil
	}
	return &DecisionCache{rdb: rdb, ttl: ttl, prefix: "rbac"}
}

func (c *DecisionCache) key(userID uint64, uri, method string) string {
	return fmt.Sprintf("%s:%d:%s:%s", c.prefix, userID, method, uri)
}

// Get returns (allowed, true) on a cache hit. Redis errors degrade to a
// miss; the resolver recomputes from the store.
func (c *DecisionCache) Get(ctx context.Context, userID uint64, uri, method string) (bool, bool) {
	if c == nil {
		return false, false
	}
	v, err := c.rdb.Get(ctx, c.key(userID, uri, method)).Result()
	if err != nil {
		return false, false
	}
	return v == "1", true
}

// Set stores a verdict. Best effort: errors are ignored.
func (c *DecisionCache) Set(ctx context.Context, userID uint64, uri, method string, allowed bool) {
	if c == nil {
		return
	}
	v := "0"
	if allowed {
		v = "1"
	}
	c.rdb.Set(ctx, c.key(userID, uri, method), v, c.ttl)
}

// InvalidateUser drops every cached verdict for one user.
func (c *DecisionCache) InvalidateUser(ctx context.Context, userID uint64) error {
	if c == nil {
		return nil
	}
	pattern := fmt.Sprintf("%s:%d:*", c.prefix, userID)
	iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
