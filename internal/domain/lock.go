package domain

import (
	"context"
	"time"
)

// Release frees a held distributed lock.
type Release func(ctx context.Context) error

// Lease is a held lock that its owner keeps alive while it works.
type Lease interface {
	// Renew extends the lock by ttl. It fails with ErrLeaseLost once the
	// lock expired or moved to another owner.
	Renew(ctx context.Context, ttl time.Duration) error
	Release(ctx context.Context) error
}
