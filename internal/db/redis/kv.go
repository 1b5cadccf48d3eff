package redis

import (
	"context"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/staysearch/internal/db"
)

// Get reads a string key such as a generation pointer. A missing key is
// db.ErrKeyNotFound.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.do(ctx, s.b().Get().Key(key).Build()).AsBytes()
	switch {
	case err == nil:
		return data, nil
	case rueidis.IsRedisNil(err):
		return nil, db.ErrKeyNotFound
	default:
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
}

// Set writes a persistent string key.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.set(ctx, key, value, 0)
}

// SetWithTTL writes a string key that expires after ttl.
func (s *Store) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.set(ctx, key, value, ttl)
}

func (s *Store) set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	cmd := s.b().Set().Key(key).Value(rueidis.BinaryString(value))
	var err error
	if ttl > 0 {
		err = s.do(ctx, cmd.Px(ttl).Build()).Error()
	} else {
		err = s.do(ctx, cmd.Build()).Error()
	}
	if err != nil {
		return &db.Error{Op: db.OpSet, Err: err}
	}
	return nil
}

// Expire resets the TTL of key with PEXPIRE. Missing keys are left alone.
func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.do(ctx, s.b().Pexpire().Key(key).Milliseconds(ttl.Milliseconds()).Build()).Error(); err != nil {
		return &db.Error{Op: db.OpExpire, Err: err}
	}
	return nil
}
