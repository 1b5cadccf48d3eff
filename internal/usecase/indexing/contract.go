package indexing

import (
	"context"
	"time"

	"github.com/kailas-cloud/staysearch/internal/domain"
	"github.com/kailas-cloud/staysearch/internal/domain/unit"
)

// Index is the generation-scoped document store.
type Index interface {
	Get(ctx context.Context, gen int64, unitID string) (*unit.Document, error)
	Put(ctx context.Context, gen int64, doc, prev *unit.Document) error
	Touch(ctx context.Context, gen int64, unitID string) error
	Remove(ctx context.Context, gen int64, unitID, propertyID string, prev *unit.Document) error
	UnitsByProperty(ctx context.Context, gen int64, propertyID string) ([]string, error)
	UnitsByType(ctx context.Context, gen int64, unitTypeID string) ([]string, error)
	UnitsWithField(ctx context.Context, gen int64, unitTypeID, field string) ([]string, error)
	WriteGenerations(ctx context.Context) ([]int64, error)
}

// Locker serializes writers of the same unit and of rebuilds.
type Locker interface {
	LockUnit(ctx context.Context, unitID string, ttl, wait time.Duration) (domain.Release, error)
	LockRebuild(ctx context.Context, ttl time.Duration) (domain.Lease, error)
}

// Builds swaps whole generations.
type Builds interface {
	BeginBuild(ctx context.Context, lease time.Duration) (int64, error)
	RenewBuild(ctx context.Context, gen int64, lease time.Duration) error
	Cutover(ctx context.Context, gen int64) (int64, error)
	AbortBuild(ctx context.Context, gen int64) error
}

// Source reads minimal projections from the system of record.
type Source interface {
	Unit(ctx context.Context, unitID string) (*unit.Source, error)
	UnitAvailability(ctx context.Context, unitID string, from, to time.Time) ([]unit.Period, error)
	UnitIDsByProperty(ctx context.Context, propertyID string) ([]string, error)
	EligibleUnitIDs(ctx context.Context, afterID string, limit int) ([]string, error)
}

// Store is everything the service needs from the index.
type Store interface {
	Index
	Locker
	Builds
}
