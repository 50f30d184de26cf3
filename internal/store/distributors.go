package store

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	distributorCachePrefix = "walletops:distributor:"
	distributorCacheTTL    = 5 * time.Minute
)

// Distributors answers membership checks against the authorized-distributor
// index. Postgres is authoritative; Redis is a read-through cache and the
// index degrades to direct queries when no client is configured or the cache
// is unreachable.
type Distributors struct {
	store *Store
	cache *redis.Client
}

func NewDistributors(store *Store, cache *redis.Client) *Distributors {
	return &Distributors{store: store, cache: cache}
}

func (d *Distributors) IsDistributor(ctx context.Context, uid string) (bool, error) {
	if uid == "" {
		return false, nil
	}

	if d.cache != nil {
		val, err := d.cache.Get(ctx, distributorCachePrefix+uid).Result()
		if err == nil {
			return val == "1", nil
		}
		if !errors.Is(err, redis.Nil) {
			log.Printf("warn: distributor cache read failed, falling through: %v", err)
		}
	}

	var exists bool
	err := d.store.Pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM distributor_index WHERE uid = $1)", uid,
	).Scan(&exists)
	if err != nil {
		return false, err
	}

	if d.cache != nil {
		val := "0"
		if exists {
			val = "1"
		}
		if err := d.cache.Set(ctx, distributorCachePrefix+uid, val, distributorCacheTTL).Err(); err != nil {
			log.Printf("warn: distributor cache write failed: %v", err)
		}
	}
	return exists, nil
}

// Add registers uid in the index and invalidates any cached negative entry.
func (d *Distributors) Add(ctx context.Context, uid, email string) error {
	_, err := d.store.Pool.Exec(ctx, `
		INSERT INTO distributor_index (uid, email) VALUES ($1, NULLIF($2, ''))
		ON CONFLICT (uid) DO UPDATE SET email = EXCLUDED.email`, uid, email)
	if err != nil {
		return err
	}
	if d.cache != nil {
		if err := d.cache.Del(ctx, distributorCachePrefix+uid).Err(); err != nil {
			log.Printf("warn: distributor cache invalidation failed: %v", err)
		}
	}
	return nil
}
