package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ErrDuplicateRequest is returned when an identical save is already in flight
// or completed within the dedup window.
var ErrDuplicateRequest = errors.New("duplicate request")

const (
	// Redis key prefix for analysis save deduplication
	redisSaveDedupKeyPrefix = "analysis:save:"

	// Timeout for individual Redis operations
	redisIdemTimeout = 5 * time.Second
)

// IdempotencyService guards the analysis save flow against duplicate
// submissions (double-taps, client retries after a slow upload).
//
// Strategy: SETNX with a TTL. The first request for a given
// (professional, patient, checksum) triple claims the key; any request
// arriving while the key lives is rejected. On a failed save the key is
// released so the client can retry immediately.
type IdempotencyService struct {
	redisClient *redis.Client
	log         *logrus.Logger
	ttl         time.Duration
}

func NewIdempotencyService(redisClient *redis.Client, log *logrus.Logger, ttl time.Duration) *IdempotencyService {
	return &IdempotencyService{
		redisClient: redisClient,
		log:         log,
		ttl:         ttl,
	}
}

// Acquire claims the dedup key for a save request.
// Returns ErrDuplicateRequest when the key is already held.
//
// Redis being down must not block saves: on connection errors the guard
// degrades to a no-op with a warning.
func (s *IdempotencyService) Acquire(ctx context.Context, professionalID, patientID, checksum string) error {
	opCtx, cancel := context.WithTimeout(ctx, redisIdemTimeout)
	defer cancel()

	key := s.dedupKey(professionalID, patientID, checksum)

	ok, err := s.redisClient.SetNX(opCtx, key, time.Now().UTC().Format(time.RFC3339), s.ttl).Result()
	if err != nil {
		s.log.Warnf("Idempotency guard unavailable, allowing request: %+v", err)
		return nil
	}

	if !ok {
		s.log.Debugf("Duplicate save rejected: %s", key)
		return ErrDuplicateRequest
	}

	return nil
}

// Release frees the dedup key after a failed save so the client can retry.
// Successful saves keep the key until TTL expiry.
func (s *IdempotencyService) Release(ctx context.Context, professionalID, patientID, checksum string) {
	opCtx, cancel := context.WithTimeout(ctx, redisIdemTimeout)
	defer cancel()

	key := s.dedupKey(professionalID, patientID, checksum)

	if err := s.redisClient.Del(opCtx, key).Err(); err != nil {
		s.log.Warnf("Failed to release idempotency key %s: %+v", key, err)
	}
}

func (s *IdempotencyService) dedupKey(professionalID, patientID, checksum string) string {
	return fmt.Sprintf("%s%s:%s:%s", redisSaveDedupKeyPrefix, professionalID, patientID, checksum)
}
