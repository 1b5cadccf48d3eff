package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/staysearch/internal/db"
)

var _ db.Store = (*Store)(nil)

// Config addresses one Valkey or Redis deployment.
type Config struct {
	Addrs    []string
	Username string
	Password string
	DB       int
	// ConnWriteTimeout bounds a single socket write; zero keeps the rueidis default.
	ConnWriteTimeout time.Duration
}

// Store is the index store on top of a rueidis client. Client-side caching
// and cluster discovery are off: one MULTI/EXEC batch spans keys from many
// hash slots, so the deployment must be a single primary.
type Store struct {
	client rueidis.Client
}

// NewStore dials the deployment described by cfg.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("index store: no addresses configured")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:       cfg.Addrs,
		Username:          cfg.Username,
		Password:          cfg.Password,
		SelectDB:          cfg.DB,
		DisableCache:      true,
		ConnWriteTimeout:  cfg.ConnWriteTimeout,
		ForceSingleClient: true,
	})
	if err != nil {
		return nil, fmt.Errorf("index store %v: %w", cfg.Addrs, err)
	}

	return &Store{client: client}, nil
}

// Ping round-trips PING; health checks and WaitForReady use it.
func (s *Store) Ping(ctx context.Context) error {
	cmd := s.client.B().Ping().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close drops every pooled connection.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady blocks until a PING succeeds or timeout elapses.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

func (s *Store) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, cmd)
}

func (s *Store) b() rueidis.Builder {
	return s.client.B()
}

// isRedisErr reports a server-side error whose text contains substr, ignoring case.
func isRedisErr(err error, substr string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(re.Error()), strings.ToLower(substr))
}
