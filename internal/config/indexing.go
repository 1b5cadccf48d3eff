package config

import (
	"errors"
	"runtime"
	"time"

	"github.com/go-playground/validator/v10"
)

// IndexingSettings drives the indexing pipeline. Loaded once, immutable after.
// Validated with FailFast: a zero batch size or TTL would corrupt the index.
type IndexingSettings struct {
	DefaultExpiryDays          int `yaml:"default_expiry_days" validate:"gt=0"`
	IndexingLockTimeoutSeconds int `yaml:"indexing_lock_timeout_seconds" validate:"gt=0"`
	BatchSize                  int `yaml:"batch_size" validate:"gt=0"`
	MaxRetryAttempts           int `yaml:"max_retry_attempts" validate:"gt=0"`
	RetryBaseDelayMs           int `yaml:"retry_base_delay_ms" validate:"gt=0"`
	MaxPropertyImages          int `yaml:"max_property_images" validate:"gt=0"`
	AvailabilityMonthsAhead    int `yaml:"availability_months_ahead" validate:"gt=0"`
	PricingMonthsAhead         int `yaml:"pricing_months_ahead" validate:"gt=0"`
	TempKeyTTLSeconds          int `yaml:"temp_key_ttl_seconds" validate:"gt=0"`
	MaxResultsBeforePagination int `yaml:"max_results_before_pagination" validate:"gt=0"`
	// MaxDegreeOfParallelism of 0 means runtime.GOMAXPROCS(0).
	MaxDegreeOfParallelism int `yaml:"max_degree_of_parallelism" validate:"gte=0"`
	// RebuildPagesPerSecond of 0 disables throttling.
	RebuildPagesPerSecond float64 `yaml:"rebuild_pages_per_second" validate:"gte=0"`
	RebuildLeaseSeconds   int     `yaml:"rebuild_lease_seconds" validate:"gt=0"`
}

// DefaultIndexingSettings returns the documented defaults.
func DefaultIndexingSettings() IndexingSettings {
	return IndexingSettings{
		DefaultExpiryDays:          30,
		IndexingLockTimeoutSeconds: 30,
		BatchSize:                  100,
		MaxRetryAttempts:           3,
		RetryBaseDelayMs:           1000,
		MaxPropertyImages:          10,
		AvailabilityMonthsAhead:    6,
		PricingMonthsAhead:         12,
		TempKeyTTLSeconds:          300,
		MaxResultsBeforePagination: 1000,
		MaxDegreeOfParallelism:     0,
		RebuildPagesPerSecond:      0,
		RebuildLeaseSeconds:        3600,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Check applies the FailFast policy.
func (s *IndexingSettings) Check() Report {
	r := Report{Section: "indexing", Policy: FailFast}
	err := validate.Struct(s)
	if err == nil {
		return r
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		r.Violations = append(r.Violations, Violation{Field: "indexing", Value: err, Rule: "valid"})
		return r
	}
	for _, fe := range verrs {
		r.Violations = append(r.Violations, Violation{
			Field: fe.Field(),
			Value: fe.Value(),
			Rule:  fe.Tag() + "=" + fe.Param(),
		})
	}
	return r
}

// DocumentTTL is the staleness safety net refreshed on every write.
func (s *IndexingSettings) DocumentTTL() time.Duration {
	return time.Duration(s.DefaultExpiryDays) * 24 * time.Hour
}

// LockTimeout is both the lock TTL and the acquisition deadline.
func (s *IndexingSettings) LockTimeout() time.Duration {
	return time.Duration(s.IndexingLockTimeoutSeconds) * time.Second
}

// TempKeyTTL bounds staged keys.
func (s *IndexingSettings) TempKeyTTL() time.Duration {
	return time.Duration(s.TempKeyTTLSeconds) * time.Second
}

// RetryBaseDelay is the first backoff delay.
func (s *IndexingSettings) RetryBaseDelay() time.Duration {
	return time.Duration(s.RetryBaseDelayMs) * time.Millisecond
}

// RebuildLease bounds how long a crashed rebuild keeps its building generation announced.
func (s *IndexingSettings) RebuildLease() time.Duration {
	return time.Duration(s.RebuildLeaseSeconds) * time.Second
}

// Parallelism resolves MaxDegreeOfParallelism.
func (s *IndexingSettings) Parallelism() int {
	if s.MaxDegreeOfParallelism > 0 {
		return s.MaxDegreeOfParallelism
	}
	return runtime.GOMAXPROCS(0)
}
