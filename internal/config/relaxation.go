package config

import "fmt"

// RelaxationConfig drives the progressive-relaxation search. Validated with
// SelfCorrect: out-of-domain values fall back to defaults.
type RelaxationConfig struct {
	EnableFallback      bool `yaml:"enable_fallback"`
	MinResultsThreshold int  `yaml:"min_results_threshold"`

	EnableMinorRelaxation        bool `yaml:"enable_minor_relaxation"`
	EnableModerateRelaxation     bool `yaml:"enable_moderate_relaxation"`
	EnableMajorRelaxation        bool `yaml:"enable_major_relaxation"`
	EnableAlternativeSuggestions bool `yaml:"enable_alternative_suggestions"`

	PriceRelaxationMinor    float64 `yaml:"price_relaxation_minor"`
	PriceRelaxationModerate float64 `yaml:"price_relaxation_moderate"`
	PriceRelaxationMajor    float64 `yaml:"price_relaxation_major"`

	RadiusMultiplierMinor    float64 `yaml:"radius_multiplier_minor"`
	RadiusMultiplierModerate float64 `yaml:"radius_multiplier_moderate"`
	RadiusMultiplierMajor    float64 `yaml:"radius_multiplier_major"`

	DateFlexibilityDays     int     `yaml:"date_flexibility_days"`
	AmenitiesRetentionRatio float64 `yaml:"amenities_retention_ratio"`
	RatingReduction         float64 `yaml:"rating_reduction"`
	GuestsCountReduction    int     `yaml:"guests_count_reduction"`

	ShowRelaxationInfo bool `yaml:"show_relaxation_info"`
	LogRelaxationSteps bool `yaml:"log_relaxation_steps"`
	// LoggingDetailLevel: 0 basic, 1 medium, 2 detailed.
	LoggingDetailLevel int `yaml:"logging_detail_level"`
}

// DefaultRelaxationConfig returns the documented defaults.
func DefaultRelaxationConfig() RelaxationConfig {
	return RelaxationConfig{
		EnableFallback:               true,
		MinResultsThreshold:          5,
		EnableMinorRelaxation:        true,
		EnableModerateRelaxation:     true,
		EnableMajorRelaxation:        true,
		EnableAlternativeSuggestions: true,
		PriceRelaxationMinor:         0.15,
		PriceRelaxationModerate:      0.30,
		PriceRelaxationMajor:         0.50,
		RadiusMultiplierMinor:        1.5,
		RadiusMultiplierModerate:     2.0,
		RadiusMultiplierMajor:        3.0,
		DateFlexibilityDays:          3,
		AmenitiesRetentionRatio:      0.7,
		RatingReduction:              0.5,
		GuestsCountReduction:         1,
		ShowRelaxationInfo:           true,
		LogRelaxationSteps:           true,
		LoggingDetailLevel:           1,
	}
}

// Normalize applies the SelfCorrect policy in place and reports every reset.
func (c *RelaxationConfig) Normalize() Report {
	d := DefaultRelaxationConfig()
	r := Report{Section: "relaxation", Policy: SelfCorrect}

	fraction := func(name string, v *float64, def float64) {
		if *v < 0 || *v > 1 {
			r.Violations = append(r.Violations, Violation{Field: name, Value: *v, Rule: "in [0,1]", Default: def})
			*v = def
		}
	}
	multiplier := func(name string, v *float64, def float64) {
		if *v < 1 || *v > 10 {
			r.Violations = append(r.Violations, Violation{Field: name, Value: *v, Rule: "in [1,10]", Default: def})
			*v = def
		}
	}
	intRange := func(name string, v *int, lo, hi, def int) {
		if *v < lo || *v > hi {
			r.Violations = append(r.Violations, Violation{Field: name, Value: *v, Rule: rangeRule(lo, hi), Default: def})
			*v = def
		}
	}

	intRange("min_results_threshold", &c.MinResultsThreshold, 1, maxInt, d.MinResultsThreshold)
	fraction("price_relaxation_minor", &c.PriceRelaxationMinor, d.PriceRelaxationMinor)
	fraction("price_relaxation_moderate", &c.PriceRelaxationModerate, d.PriceRelaxationModerate)
	fraction("price_relaxation_major", &c.PriceRelaxationMajor, d.PriceRelaxationMajor)
	multiplier("radius_multiplier_minor", &c.RadiusMultiplierMinor, d.RadiusMultiplierMinor)
	multiplier("radius_multiplier_moderate", &c.RadiusMultiplierModerate, d.RadiusMultiplierModerate)
	multiplier("radius_multiplier_major", &c.RadiusMultiplierMajor, d.RadiusMultiplierMajor)
	intRange("date_flexibility_days", &c.DateFlexibilityDays, 0, maxInt, d.DateFlexibilityDays)
	fraction("amenities_retention_ratio", &c.AmenitiesRetentionRatio, d.AmenitiesRetentionRatio)
	if c.RatingReduction < 0 || c.RatingReduction > 5 {
		r.Violations = append(r.Violations, Violation{
			Field: "rating_reduction", Value: c.RatingReduction, Rule: "in [0,5]", Default: d.RatingReduction,
		})
		c.RatingReduction = d.RatingReduction
	}
	intRange("guests_count_reduction", &c.GuestsCountReduction, 0, maxInt, d.GuestsCountReduction)
	intRange("logging_detail_level", &c.LoggingDetailLevel, 0, 2, d.LoggingDetailLevel)

	return r
}

const maxInt = int(^uint(0) >> 1)

func rangeRule(lo, hi int) string {
	if hi == maxInt {
		return fmt.Sprintf(">= %d", lo)
	}
	return fmt.Sprintf("in [%d,%d]", lo, hi)
}
