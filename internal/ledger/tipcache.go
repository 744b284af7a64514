package ledger

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// IdentityIndex is a Redis-backed set of entry identity keys used to skip
// the full-partition scan during dedup. The JSONL files remain the source of
// truth: the index is only consulted once it has been warmed from them, and
// any Redis failure degrades to a file scan rather than risking a duplicate.
type IdentityIndex struct {
	rdb    *redis.Client
	setKey string
}

// NewIdentityIndex wraps a Redis client. keyPrefix namespaces the index so
// multiple ledgers can share one Redis.
func NewIdentityIndex(rdb *redis.Client, keyPrefix string) *IdentityIndex {
	if keyPrefix == "" {
		keyPrefix = "sigledger"
	}
	return &IdentityIndex{rdb: rdb, setKey: keyPrefix + ":identity"}
}

func (ix *IdentityIndex) warmKey() string { return ix.setKey + ":warm" }

// Ready reports whether the index has been warmed from the ledger files. A
// cold index must not be used for dedup: absence would be indistinguishable
// from a miss.
func (ix *IdentityIndex) Ready(ctx context.Context) (bool, error) {
	n, err := ix.rdb.Exists(ctx, ix.warmKey()).Result()
	if err != nil {
		return false, fmt.Errorf("%w: identity index: %v", ErrTransient, err)
	}
	return n == 1, nil
}

// Warm replaces the index contents with the given identity keys and marks it
// ready.
func (ix *IdentityIndex) Warm(ctx context.Context, keys map[string]struct{}) error {
	pipe := ix.rdb.TxPipeline()
	pipe.Del(ctx, ix.setKey)
	if len(keys) > 0 {
		members := make([]interface{}, 0, len(keys))
		for k := range keys {
			members = append(members, k)
		}
		pipe.SAdd(ctx, ix.setKey, members...)
	}
	pipe.Set(ctx, ix.warmKey(), "1", 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: warm identity index: %v", ErrTransient, err)
	}
	return nil
}

// Contains reports whether the identity key is already in the chain.
func (ix *IdentityIndex) Contains(ctx context.Context, key string) (bool, error) {
	ok, err := ix.rdb.SIsMember(ctx, ix.setKey, key).Result()
	if err != nil {
		return false, fmt.Errorf("%w: identity index lookup: %v", ErrTransient, err)
	}
	return ok, nil
}

// Members returns the full identity set held by the index.
func (ix *IdentityIndex) Members(ctx context.Context) (map[string]struct{}, error) {
	members, err := ix.rdb.SMembers(ctx, ix.setKey).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: identity index members: %v", ErrTransient, err)
	}
	keys := make(map[string]struct{}, len(members))
	for _, m := range members {
		keys[m] = struct{}{}
	}
	return keys, nil
}

// Add records a newly appended identity key.
func (ix *IdentityIndex) Add(ctx context.Context, key string) error {
	if err := ix.rdb.SAdd(ctx, ix.setKey, key).Err(); err != nil {
		return fmt.Errorf("%w: identity index add: %v", ErrTransient, err)
	}
	return nil
}
