package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockNotObtained is returned when another worker holds the lock
var ErrLockNotObtained = errors.New("content lock not obtained")

// ContentLocker serializes content generation for a single invoice
type ContentLocker interface {
	// Lock returns a release func. Release errors are ignored by callers.
	Lock(ctx context.Context, invoiceID uuid.UUID) (func(context.Context) error, error)
}

type redisContentLocker struct {
	locker *redislock.Client
	ttl    time.Duration
}

// NewContentLocker returns a Redis lock client, or nil when Redis is not configured
func NewContentLocker(client *redis.Client, ttl time.Duration) ContentLocker {
	if client == nil {
		return nil
	}
	return &redisContentLocker{locker: redislock.New(client), ttl: ttl}
}

func (l *redisContentLocker) Lock(ctx context.Context, invoiceID uuid.UUID) (func(context.Context) error, error) {
	lock, err := l.locker.Obtain(ctx, "tesseract:invoices:lock:"+invoiceID.String(), l.ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 20),
	})
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return nil, ErrLockNotObtained
		}
		return nil, err
	}
	return lock.Release, nil
}
