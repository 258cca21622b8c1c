package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"encorecrm/config"
)

const batchLockKey = "engagement:batch:lock"

// ErrBatchRunning is returned when another engagement batch holds the lease.
var ErrBatchRunning = fmt.Errorf("an engagement batch is already running")

// BatchLock is a redis lease that keeps two engagement batches from
// overlapping. Overlapping runs could both select the same lead and
// double-send a follow-up.
type BatchLock struct {
	client *redis.Client
	ttl    time.Duration
	token  string
}

func NewBatchLock(cfg *config.Config, ttl time.Duration) *BatchLock {
	return &BatchLock{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}),
		ttl: ttl,
	}
}

// Acquire takes the lease. The TTL backstops a crashed batch; a batch
// that outlives it simply loses overlap protection rather than
// deadlocking the scheduler forever.
func (l *BatchLock) Acquire(ctx context.Context, token string) error {
	ok, err := l.client.SetNX(ctx, batchLockKey, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("batch lock: %w", err)
	}
	if !ok {
		return ErrBatchRunning
	}
	l.token = token
	return nil
}

// Release drops the lease only if we still hold it.
func (l *BatchLock) Release(ctx context.Context) error {
	const script = `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		end
		return 0`
	return l.client.Eval(ctx, script, []string{batchLockKey}, l.token).Err()
}
