package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sonolens/api/internal/model"
)

// JobStore keeps job records in redis under job:<id>
type JobStore struct {
	redis *redis.Client
}

func NewJobStore(redisClient *redis.Client) *JobStore {
	return &JobStore{redis: redisClient}
}

// Available reports whether jobs can be stored at all
func (s *JobStore) Available() bool {
	return s.redis != nil
}

func jobKey(id string) string {
	return fmt.Sprintf("job:%s", id)
}

// Save writes the job, replacing any previous record, with the given TTL
func (s *JobStore) Save(ctx context.Context, job *model.Job, ttl time.Duration) error {
	if s.redis == nil {
		return ErrUnavailable
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	return s.redis.Set(ctx, jobKey(job.ID), data, ttl).Err()
}

// Get loads a job by ID
func (s *JobStore) Get(ctx context.Context, id string) (*model.Job, error) {
	if s.redis == nil {
		return nil, ErrUnavailable
	}
	data, err := s.redis.Get(ctx, jobKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}

	var job model.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}

// Update applies fn to the stored job and writes it back, keeping its remaining TTL
func (s *JobStore) Update(ctx context.Context, id string, fn func(*model.Job)) (*model.Job, error) {
	job, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	fn(job)

	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job: %w", err)
	}
	if err := s.redis.Set(ctx, jobKey(id), data, redis.KeepTTL).Err(); err != nil {
		return nil, err
	}
	return job, nil
}
