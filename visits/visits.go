// Package visits de-duplicates respondent visits so that only the first view
// of a survey by a visitor within a time window counts.
package visits

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultTTL = 24 * time.Hour

// Tracker records a visit and reports whether it is the first one within
// its window.
type Tracker interface {
	Visit(ctx context.Context, surveyID, visitor string) (first bool, err error)
}

func key(surveyID, visitor string) string {
	return fmt.Sprintf("visit:%s:%s", surveyID, visitor)
}

type RedisTracker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisTracker(client *redis.Client, ttl time.Duration) *RedisTracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisTracker{client: client, ttl: ttl}
}

// Dial connects to a redis:// URL.
func Dial(ctx context.Context, url string, ttl time.Duration) (*RedisTracker, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return NewRedisTracker(client, ttl), nil
}

func (t *RedisTracker) Visit(ctx context.Context, surveyID, visitor string) (bool, error) {
	return t.client.SetNX(ctx, key(surveyID, visitor), time.Now().Unix(), t.ttl).Result()
}

func (t *RedisTracker) Close() error {
	return t.client.Close()
}

// MemoryTracker keeps visit windows in process memory.
type MemoryTracker struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

func NewMemoryTracker(ttl time.Duration) *MemoryTracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryTracker{seen: make(map[string]time.Time), ttl: ttl, now: time.Now}
}

func (t *MemoryTracker) Visit(_ context.Context, surveyID, visitor string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	k := key(surveyID, visitor)
	if expires, ok := t.seen[k]; ok && now.Before(expires) {
		return false, nil
	}
	t.seen[k] = now.Add(t.ttl)
	t.sweep(now)
	return true, nil
}

func (t *MemoryTracker) sweep(now time.Time) {
	for k, expires := range t.seen {
		if !now.Before(expires) {
			delete(t.seen, k)
		}
	}
}
