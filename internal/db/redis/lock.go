package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/staysearch/internal/db"
)

var releaseScript = rueidis.NewLuaScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var renewScript = rueidis.NewLuaScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// AcquireLock performs SET key token NX PX ttl.
func (s *Store) AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	cmd := s.b().Set().Key(key).Value(token).Nx().Px(ttl).Build()
	err := s.do(ctx, cmd).Error()
	if err == nil {
		return true, nil
	}
	if rueidis.IsRedisNil(err) {
		return false, nil
	}
	return false, &db.Error{Op: db.OpLock, Err: err}
}

// ReleaseLock deletes key only while it still holds token.
func (s *Store) ReleaseLock(ctx context.Context, key, token string) error {
	if err := releaseScript.Exec(ctx, s.client, []string{key}, []string{token}).Error(); err != nil {
		return &db.Error{Op: db.OpUnlock, Err: err}
	}
	return nil
}

// RenewLock extends key by ttl while it still holds token.
func (s *Store) RenewLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	ms := strconv.FormatInt(ttl.Milliseconds(), 10)
	n, err := renewScript.Exec(ctx, s.client, []string{key}, []string{token, ms}).AsInt64()
	if err != nil {
		return false, &db.Error{Op: db.OpRenew, Err: err}
	}
	return n == 1, nil
}
