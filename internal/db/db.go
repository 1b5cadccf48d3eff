package db

import (
	"context"
	"time"
)

// Store is the main database facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type Store interface {
	Pinger
	HashStore
	KVStore
	SetStore
	SortedSetStore
	GeoStore
	Locker
	Transactor
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashStore provides hash reads and key housekeeping.
type HashStore interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, keys ...string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// SetStore provides unordered set reads.
type SetStore interface {
	SMembers(ctx context.Context, key string) ([]string, error)
	SInter(ctx context.Context, keys ...string) ([]string, error)
}

// SortedSetStore provides score-range reads.
type SortedSetStore interface {
	ZRangeByScore(ctx context.Context, key string, lo, hi float64) ([]string, error)
}

// GeoStore provides radius lookups over a geo set.
type GeoStore interface {
	GeoRadius(ctx context.Context, key string, lon, lat, radiusKm float64) ([]string, error)
}

// Locker provides token-owned expiring locks.
type Locker interface {
	// AcquireLock sets key to token only if absent. Returns false when held by someone else.
	AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	// ReleaseLock deletes key only if it still holds token.
	ReleaseLock(ctx context.Context, key, token string) error
	// RenewLock resets the TTL of key only if it still holds token.
	RenewLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
}

// Transactor applies a batch of writes atomically.
type Transactor interface {
	Exec(ctx context.Context, tx *Tx) error
}
