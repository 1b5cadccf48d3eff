package config

import (
	"errors"
	"fmt"
)

// Policy names how a settings section reacts to out-of-domain values.
type Policy int

const (
	// FailFast rejects the whole configuration. Used where a bad value would
	// silently corrupt the index.
	FailFast Policy = iota + 1
	// SelfCorrect resets offending values to their defaults and reports them.
	// Used where a bad value only degrades search quality.
	SelfCorrect
)

func (p Policy) String() string {
	switch p {
	case FailFast:
		return "fail-fast"
	case SelfCorrect:
		return "self-correct"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// Violation is one out-of-domain setting.
type Violation struct {
	Field   string
	Value   any
	Rule    string
	Default any // set when the value was corrected
}

func (v Violation) String() string {
	if v.Default != nil {
		return fmt.Sprintf("%s=%v violates %s, reset to %v", v.Field, v.Value, v.Rule, v.Default)
	}
	return fmt.Sprintf("%s=%v violates %s", v.Field, v.Value, v.Rule)
}

// Report collects the violations found while applying a Policy to a section.
type Report struct {
	Section    string
	Policy     Policy
	Violations []Violation
}

// OK reports whether the section was valid as loaded.
func (r Report) OK() bool { return len(r.Violations) == 0 }

// Err turns a fail-fast report into an error. Self-correcting reports never fail.
func (r Report) Err() error {
	if r.OK() || r.Policy != FailFast {
		return nil
	}
	errs := make([]error, len(r.Violations))
	for i, v := range r.Violations {
		errs[i] = errors.New(v.String())
	}
	return fmt.Errorf("%s (%s): %w", r.Section, r.Policy, errors.Join(errs...))
}
