package staysearch

import (
	"errors"

	"github.com/kailas-cloud/staysearch/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound          = domain.ErrNotFound
	ErrInvalidQuery      = domain.ErrInvalidQuery
	ErrSearchUnavailable = domain.ErrSearchUnavailable
	ErrRebuildInProgress = domain.ErrRebuildInProgress
	ErrLeaseLost         = domain.ErrLeaseLost
	ErrInvalidEvent      = domain.ErrInvalidEvent
	ErrUnknownEvent      = domain.ErrUnknownEvent
)

// ErrSourceNotConfigured is returned by indexing calls on a search-only client.
var ErrSourceNotConfigured = errors.New("staysearch: source database not configured (use WithSource)")
