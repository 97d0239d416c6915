// Package runlock prevents concurrent worker runs from double-processing
// scheduling tickets. In server mode the lock is a Redis lease; in local
// single-process mode a no-op lock suffices because the engine loop is the
// only writer.
package runlock

import (
	"context"
	"time"
)

// Lock guards a named critical section across processes.
type Lock interface {
	// Acquire attempts to take the lock for the given lease duration.
	// It returns false without error when another holder owns the lock.
	Acquire(ctx context.Context, lease time.Duration) (bool, error)

	// Release gives up the lock if this instance still holds it.
	Release(ctx context.Context) error
}

// NoopLock always acquires. Used when no Redis is configured.
type NoopLock struct{}

// NewNoopLock creates a lock that never contends.
func NewNoopLock() *NoopLock {
	return &NoopLock{}
}

func (l *NoopLock) Acquire(ctx context.Context, lease time.Duration) (bool, error) {
	return true, nil
}

func (l *NoopLock) Release(ctx context.Context) error {
	return nil
}
