package unitindex

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/staysearch/internal/domain"
)

// lockPoll is the interval between acquisition attempts on a busy lock.
const lockPoll = 25 * time.Millisecond

// LockUnit takes the per-unit lock with a TTL of ttl, polling for at most
// wait. A busy lock past wait fails with domain.ErrLockNotAcquired.
func (r *Repo) LockUnit(ctx context.Context, unitID string, ttl, wait time.Duration) (domain.Release, error) {
	key := r.keys.UnitLock(unitID)
	token := uuid.NewString()
	deadline := time.Now().Add(wait)

	for {
		ok, err := r.store.AcquireLock(ctx, key, token, ttl)
		if err != nil {
			return nil, fmt.Errorf("lock unit %s: %w", unitID, err)
		}
		if ok {
			return r.releaser(key, token), nil
		}
		if !time.Now().Before(deadline) {
			return nil, domain.NewLockBusy(unitID)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockPoll):
		}
	}
}

// LockRebuild takes the rebuild lock without waiting.
func (r *Repo) LockRebuild(ctx context.Context, ttl time.Duration) (domain.Lease, error) {
	key := r.keys.RebuildLock()
	token := uuid.NewString()
	ok, err := r.store.AcquireLock(ctx, key, token, ttl)
	if err != nil {
		return nil, fmt.Errorf("lock rebuild: %w", err)
	}
	if !ok {
		return nil, domain.ErrRebuildInProgress
	}
	return &lease{repo: r, key: key, token: token}, nil
}

type lease struct {
	repo  *Repo
	key   string
	token string
}

func (l *lease) Renew(ctx context.Context, ttl time.Duration) error {
	ok, err := l.repo.store.RenewLock(ctx, l.key, l.token, ttl)
	if err != nil {
		return fmt.Errorf("renew %s: %w", l.key, err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", l.key, domain.ErrLeaseLost)
	}
	return nil
}

func (l *lease) Release(ctx context.Context) error {
	return l.repo.releaser(l.key, l.token)(ctx)
}

// releaser detaches from the caller's cancellation so a cancelled hook
// still frees its lock instead of waiting for the TTL.
func (r *Repo) releaser(key, token string) domain.Release {
	return func(ctx context.Context) error {
		if err := r.store.ReleaseLock(context.WithoutCancel(ctx), key, token); err != nil {
			return fmt.Errorf("release %s: %w", key, err)
		}
		return nil
	}
}
