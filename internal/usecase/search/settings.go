package search

import (
	"time"

	"github.com/kailas-cloud/staysearch/internal/config"
	"github.com/kailas-cloud/staysearch/internal/domain/search/relaxation"
)

// Settings tune the relaxation loop.
type Settings struct {
	Relaxation          relaxation.Settings
	MinResultsThreshold int
	ShowInfo            bool
	LogSteps            bool
	// DetailLevel: 0 basic, 1 medium, 2 detailed.
	DetailLevel int
	// MaxResults caps the matched set before pagination; 0 means no cap.
	MaxResults int
}

// SettingsFrom maps a normalized relaxation config.
func SettingsFrom(c config.RelaxationConfig, maxResults int) Settings {
	return Settings{
		Relaxation: relaxation.Settings{
			EnableFallback:    c.EnableFallback,
			EnableMinor:       c.EnableMinorRelaxation,
			EnableModerate:    c.EnableModerateRelaxation,
			EnableMajor:       c.EnableMajorRelaxation,
			EnableAlternative: c.EnableAlternativeSuggestions,
			PriceMinor:        c.PriceRelaxationMinor,
			PriceModerate:     c.PriceRelaxationModerate,
			PriceMajor:        c.PriceRelaxationMajor,
			RadiusMinor:       c.RadiusMultiplierMinor,
			RadiusModerate:    c.RadiusMultiplierModerate,
			RadiusMajor:       c.RadiusMultiplierMajor,
			DateFlexDays:      c.DateFlexibilityDays,
			AmenityRetention:  c.AmenitiesRetentionRatio,
			RatingReduction:   c.RatingReduction,
			GuestReduction:    c.GuestsCountReduction,
		},
		MinResultsThreshold: c.MinResultsThreshold,
		ShowInfo:            c.ShowRelaxationInfo,
		LogSteps:            c.LogRelaxationSteps,
		DetailLevel:         c.LoggingDetailLevel,
		MaxResults:          maxResults,
	}
}

// BreakerSettings tune the circuit breaker around index reads.
type BreakerSettings struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// BreakerSettingsFrom maps the breaker config section.
func BreakerSettingsFrom(c config.BreakerConfig) BreakerSettings {
	return BreakerSettings{
		MaxRequests:      c.MaxRequests,
		Interval:         c.Interval(),
		Timeout:          c.Timeout(),
		FailureThreshold: c.FailureThreshold,
	}
}
