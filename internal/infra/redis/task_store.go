package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vietddude/sentinel/internal/core/domain"
	"github.com/vietddude/sentinel/internal/infra/storage"
)

const (
	pendingKey    = "retry:pending"
	processingKey = "retry:processing"
	deadKey       = "retry:dead"
	taskPrefix    = "retry:task:"
)

// claimScript pops up to ARGV[2] members of the pending sorted set with
// score <= ARGV[1] and moves them into the processing set. Running as a
// single script makes the claim atomic across workers: no two pollers can
// observe the same member.
var claimScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, ARGV[2])
if #due > 0 then
  redis.call('ZREM', KEYS[1], unpack(due))
  redis.call('SADD', KEYS[2], unpack(due))
end
return due
`)

// TaskStore implements storage.TaskStore on Redis: task records as JSON
// values with a TTL, a sorted set as the pending index (score = due time),
// a set for in-flight claims, and a list for dead letters.
type TaskStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewTaskStore creates a Redis-backed task store. Task records expire after
// ttl so completed and dead tasks are retained for observability without
// growing unbounded.
func NewTaskStore(client *Client, ttl time.Duration) *TaskStore {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &TaskStore{rdb: client.rdb, ttl: ttl}
}

func taskKey(id string) string {
	return taskPrefix + id
}

func (s *TaskStore) SaveTask(ctx context.Context, task *domain.RetryTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}
	if err := s.rdb.Set(ctx, taskKey(task.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set task: %w", err)
	}
	return nil
}

func (s *TaskStore) GetTask(ctx context.Context, id string) (*domain.RetryTask, error) {
	data, err := s.rdb.Get(ctx, taskKey(id)).Bytes()
	if err == redis.Nil {
		return nil, storage.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	var task domain.RetryTask
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task: %w", err)
	}
	return &task, nil
}

func (s *TaskStore) AddPending(ctx context.Context, id string, at time.Time) error {
	err := s.rdb.ZAdd(ctx, pendingKey, redis.Z{
		Score:  float64(at.UnixMilli()) / 1000,
		Member: id,
	}).Err()
	if err != nil {
		return fmt.Errorf("zadd failed: %w", err)
	}
	return nil
}

func (s *TaskStore) ClaimDue(ctx context.Context, now time.Time, limit int) ([]string, error) {
	res, err := claimScript.Run(
		ctx,
		s.rdb,
		[]string{pendingKey, processingKey},
		float64(now.UnixMilli())/1000,
		limit,
	).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("claim script failed: %w", err)
	}
	return res, nil
}

func (s *TaskStore) ReleaseClaim(ctx context.Context, id string) error {
	if err := s.rdb.SRem(ctx, processingKey, id).Err(); err != nil {
		return fmt.Errorf("srem failed: %w", err)
	}
	return nil
}

func (s *TaskStore) PushDead(ctx context.Context, id string) error {
	if err := s.rdb.LPush(ctx, deadKey, id).Err(); err != nil {
		return fmt.Errorf("lpush failed: %w", err)
	}
	return nil
}

func (s *TaskStore) RemoveDead(ctx context.Context, id string) (bool, error) {
	removed, err := s.rdb.LRem(ctx, deadKey, 1, id).Result()
	if err != nil {
		return false, fmt.Errorf("lrem failed: %w", err)
	}
	return removed > 0, nil
}

func (s *TaskStore) Stats(ctx context.Context) (storage.QueueStats, error) {
	pending, err := s.rdb.ZCard(ctx, pendingKey).Result()
	if err != nil {
		return storage.QueueStats{}, fmt.Errorf("zcard failed: %w", err)
	}
	processing, err := s.rdb.SCard(ctx, processingKey).Result()
	if err != nil {
		return storage.QueueStats{}, fmt.Errorf("scard failed: %w", err)
	}
	dead, err := s.rdb.LLen(ctx, deadKey).Result()
	if err != nil {
		return storage.QueueStats{}, fmt.Errorf("llen failed: %w", err)
	}

	return storage.QueueStats{
		Pending:    int(pending),
		Processing: int(processing),
		DeadLetter: int(dead),
	}, nil
}
