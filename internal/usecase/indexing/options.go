package indexing

import (
	"runtime"
	"time"

	"github.com/kailas-cloud/staysearch/internal/config"
)

// Options are the resolved indexing settings.
type Options struct {
	LockTimeout        time.Duration
	AvailabilityMonths int
	PricingMonths      int
	MaxImages          int
	BatchSize          int
	Parallelism        int
	PagesPerSecond     float64
	RebuildLease       time.Duration
	MaxRetryAttempts   int
	RetryBaseDelay     time.Duration
}

// OptionsFrom resolves validated settings.
func OptionsFrom(s *config.IndexingSettings) Options {
	return Options{
		LockTimeout:        s.LockTimeout(),
		AvailabilityMonths: s.AvailabilityMonthsAhead,
		PricingMonths:      s.PricingMonthsAhead,
		MaxImages:          s.MaxPropertyImages,
		BatchSize:          s.BatchSize,
		Parallelism:        s.Parallelism(),
		PagesPerSecond:     s.RebuildPagesPerSecond,
		RebuildLease:       s.RebuildLease(),
		MaxRetryAttempts:   s.MaxRetryAttempts,
		RetryBaseDelay:     s.RetryBaseDelay(),
	}
}

func (o Options) parallelism(requested int) int {
	if requested > 0 {
		return requested
	}
	if o.Parallelism > 0 {
		return o.Parallelism
	}
	return runtime.GOMAXPROCS(0)
}

func (o Options) batchSize(requested int) int {
	if requested > 0 {
		return requested
	}
	if o.BatchSize > 0 {
		return o.BatchSize
	}
	return 100
}
