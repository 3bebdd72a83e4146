package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultJobTTL = 24 * time.Hour
	keyPrefix     = "video_job:"
)

// RedisClient is the subset of *redis.Client the store needs.
type RedisClient interface {
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Close() error
}

// RedisStore keeps each job in its own hash that expires after ttl.
type RedisStore struct {
	client RedisClient
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisStore(client RedisClient, ttl time.Duration, logger *slog.Logger) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultJobTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStore{
		client: client,
		ttl:    ttl,
		logger: logger.With("component", "redis_job_store"),
	}
}

func (s *RedisStore) Save(ctx context.Context, job *Job) error {
	key := keyPrefix + job.ID
	values := map[string]interface{}{
		"id":         job.ID,
		"product_id": job.ProductID,
		"status":     string(job.Status),
		"result":     job.Result,
		"error":      job.Error,
		"created_at": job.CreatedAt.Format(time.RFC3339Nano),
		"updated_at": job.UpdatedAt.Format(time.RFC3339Nano),
	}

	if err := s.client.HSet(ctx, key, values).Err(); err != nil {
		return fmt.Errorf("failed to save job %s: %w", job.ID, err)
	}
	if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set ttl on job %s: %w", job.ID, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Job, error) {
	fields, err := s.client.HGetAll(ctx, keyPrefix+id).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load job %s: %w", id, err)
	}
	// HGETALL on a missing key returns an empty hash, not redis.Nil.
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}

	job := &Job{
		ID:        fields["id"],
		ProductID: fields["product_id"],
		Status:    Status(fields["status"]),
		Result:    fields["result"],
		Error:     fields["error"],
	}
	if job.CreatedAt, err = parseTime(fields["created_at"]); err != nil {
		return nil, err
	}
	if job.UpdatedAt, err = parseTime(fields["updated_at"]); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid job timestamp %q: %w", raw, err)
	}
	return t, nil
}
