package search

import (
	"context"

	"github.com/kailas-cloud/staysearch/internal/domain/search/candidate"
	"github.com/kailas-cloud/staysearch/internal/domain/unit"
)

// Index is the read-only surface of the unit index.
type Index interface {
	ActiveGeneration(ctx context.Context) (int64, error)
	Candidates(ctx context.Context, gen int64, q candidate.Query) ([]string, error)
	GetMany(ctx context.Context, gen int64, ids []string) ([]*unit.Document, error)
}
