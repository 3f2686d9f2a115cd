package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"bitbucket.org/mmdatafocus/menu_recon/utils"
)

// ConnectRedis returns a pinged client, or nil when no address is configured.
func ConnectRedis(ctx context.Context, c RedisConfig) (*redis.Client, error) {
	if c.Address == "" {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     c.Address,
		Password: c.Password,
		DB:       0, // use default DB
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%w: ping redis %s: %w", utils.ErrorConnection, c.Address, err)
	}
	return rdb, nil
}

// ObtainRunLock takes the run-wide lock so two runs never reconcile the same
// catalogs at once. It returns utils.ErrorRunLocked if the lock is held.
func ObtainRunLock(ctx context.Context, rdb *redis.Client, key string, ttl time.Duration) (*redislock.Lock, error) {
	locker := redislock.New(rdb)
	lock, err := locker.Obtain(ctx, key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, utils.ErrorRunLocked
	}
	if err != nil {
		return nil, fmt.Errorf("%w: obtain lock %s: %w", utils.ErrorConnection, key, err)
	}
	return lock, nil
}
