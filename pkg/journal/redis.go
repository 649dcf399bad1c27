package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisJournal keeps each target's history in a capped Redis list, so
// multiple controller instances can share one inspectable history.
type RedisJournal struct {
	client *redis.Client
	keep   int64
	ttl    time.Duration
}

// NewRedisJournal creates a journal backed by the Redis server at addr.
// keep bounds the records retained per target (<= 0 falls back to 256);
// ttl expires idle target histories, 0 keeps them forever.
func NewRedisJournal(addr, password string, db int, keep int64, ttl time.Duration) (*RedisJournal, error) {
	if addr == "" {
		return nil, errors.New("redis journal: addr is required")
	}
	if keep <= 0 {
		keep = defaultKeep
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisJournal{client: client, keep: keep, ttl: ttl}, nil
}

// Ping verifies connectivity. Used by the store factory for fail-fast
// startup and by the readiness endpoint.
func (j *RedisJournal) Ping(ctx context.Context) error {
	return j.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (j *RedisJournal) Close() error {
	return j.client.Close()
}

// Append implements Journal. Push, trim and expiry run in one pipeline so a
// crash between them cannot grow the list unbounded.
func (j *RedisJournal) Append(ctx context.Context, rec Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	key := j.key(rec.Target)
	pipe := j.client.TxPipeline()
	pipe.LPush(ctx, key, payload)
	pipe.LTrim(ctx, key, 0, j.keep-1)
	if j.ttl > 0 {
		pipe.Expire(ctx, key, j.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append record for %s: %w", rec.Target, err)
	}
	return nil
}

// Recent implements Journal. limit <= 0 returns everything retained.
func (j *RedisJournal) Recent(ctx context.Context, target string, limit int) ([]Record, error) {
	if limit <= 0 || int64(limit) > j.keep {
		limit = int(j.keep)
	}

	rows, err := j.client.LRange(ctx, j.key(target), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("read records for %s: %w", target, err)
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		var rec Record
		if err := json.Unmarshal([]byte(row), &rec); err != nil {
			return nil, fmt.Errorf("decode record for %s: %w", target, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (j *RedisJournal) key(target string) string {
	return "replicactl:decisions:" + target
}
