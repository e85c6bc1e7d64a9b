package mailer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// QuotaExceededError reports that the daily send budget is spent.
type QuotaExceededError struct {
	Limit int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("Daily email limit reached (%d)", e.Limit)
}

// Quota tracks the number of emails sent per UTC calendar day.
type Quota interface {
	// Reserve counts one email against today's budget, failing with
	// *QuotaExceededError when none is left. Check and count are atomic.
	Reserve(ctx context.Context) error
	// Release returns a reservation whose email was not sent.
	Release(ctx context.Context) error
	// Usage returns today's count and the limit.
	Usage(ctx context.Context) (used int, limit int, err error)
}

// MemoryQuota is a per-process counter that resets when the UTC date changes.
type MemoryQuota struct {
	mu    sync.Mutex
	limit int
	day   string
	count int
	now   func() time.Time
}

// NewMemoryQuota returns an in-process quota with the given daily limit.
func NewMemoryQuota(limit int) *MemoryQuota {
	return &MemoryQuota{limit: limit, now: time.Now}
}

// Reserve implements Quota.
func (q *MemoryQuota) Reserve(context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.rollover()
	if q.limit > 0 && q.count >= q.limit {
		return &QuotaExceededError{Limit: q.limit}
	}
	q.count++
	return nil
}

// Release implements Quota.
func (q *MemoryQuota) Release(context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.rollover()
	if q.count > 0 {
		q.count--
	}
	return nil
}

// Usage implements Quota.
func (q *MemoryQuota) Usage(context.Context) (int, int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.rollover()
	return q.count, q.limit, nil
}

func (q *MemoryQuota) rollover() {
	today := q.now().UTC().Format("2006-01-02")
	if q.day != today {
		q.day = today
		q.count = 0
	}
}

// RedisQuota shares the daily counter between replicas.
type RedisQuota struct {
	client *redis.Client
	prefix string
	limit  int
	now    func() time.Time
}

// NewRedisQuota builds a Redis-backed quota. Keys expire two days after use.
func NewRedisQuota(client *redis.Client, prefix string, limit int) *RedisQuota {
	if prefix == "" {
		prefix = "email:quota"
	}
	return &RedisQuota{client: client, prefix: prefix, limit: limit, now: time.Now}
}

// Reserve implements Quota. The counter is incremented first and rolled back
// when it passes the limit, so concurrent replicas never overshoot.
func (q *RedisQuota) Reserve(ctx context.Context) error {
	key := q.key()
	pipe := q.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, 48*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("reserve email quota: %w", err)
	}
	if q.limit > 0 && incr.Val() > int64(q.limit) {
		if err := q.client.Decr(ctx, key).Err(); err != nil {
			return fmt.Errorf("release email quota: %w", err)
		}
		return &QuotaExceededError{Limit: q.limit}
	}
	return nil
}

// Release implements Quota.
func (q *RedisQuota) Release(ctx context.Context) error {
	if err := q.client.Decr(ctx, q.key()).Err(); err != nil {
		return fmt.Errorf("release email quota: %w", err)
	}
	return nil
}

// Usage implements Quota.
func (q *RedisQuota) Usage(ctx context.Context) (int, int, error) {
	used, err := q.client.Get(ctx, q.key()).Int()
	if err == redis.Nil {
		return 0, q.limit, nil
	}
	if err != nil {
		return 0, q.limit, fmt.Errorf("read email quota: %w", err)
	}
	return used, q.limit, nil
}

func (q *RedisQuota) key() string {
	return q.prefix + ":" + q.now().UTC().Format("2006-01-02")
}
