package validation

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/OldStager01/finy-forecast/pkg/models"
)

var (
	// ErrInvalidInput indicates the input failed validation
	ErrInvalidInput = errors.New("invalid input")
)

// MaxPeriods bounds the period count of a single series.
const MaxPeriods = 1000

// SanitizeString removes potentially dangerous characters and trims whitespace
func SanitizeString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.ReplaceAll(input, "\x00", "")

	var builder strings.Builder
	for _, r := range input {
		if !unicode.IsControl(r) || r == '\n' || r == '\t' {
			builder.WriteRune(r)
		}
	}

	return builder.String()
}

// Invalid wraps ErrInvalidInput with a formatted reason.
func Invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// ValidateSeries rejects malformed series before any training attempt.
func ValidateSeries(s *models.MetricSeries) error {
	if s == nil {
		return Invalid("metric series is required")
	}

	n := len(s.Baseline)
	if n == 0 {
		return Invalid("baseline must contain at least one period")
	}
	if n > MaxPeriods {
		return Invalid("baseline must not exceed %d periods, got %d", MaxPeriods, n)
	}
	if len(s.Actual) != n {
		return Invalid("actual has %d periods, baseline has %d", len(s.Actual), n)
	}
	if s.Observed != nil && len(s.Observed) != n {
		return Invalid("observed has %d periods, baseline has %d", len(s.Observed), n)
	}
	if len(s.Projected) != 0 && len(s.Projected) != n {
		return Invalid("projected has %d periods, baseline has %d", len(s.Projected), n)
	}
	if !s.FinancialImpact.IsValid() {
		return Invalid("unknown financial impact type %q", s.FinancialImpact)
	}

	for i, v := range s.Baseline {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Invalid("baseline[%d] is not a finite number", i)
		}
		if v < 0 {
			return Invalid("baseline[%d] must be non-negative, got %g", i, v)
		}
	}
	for i, v := range s.Actual {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Invalid("actual[%d] is not a finite number", i)
		}
		if s.Observed != nil && s.Observed[i] && v < 0 {
			return Invalid("actual[%d] must be non-negative, got %g", i, v)
		}
	}

	return nil
}

// ValidateOptions checks the request options once defaults are applied.
func ValidateOptions(opts models.PredictionOptions) error {
	if opts.Strategy != "" && !opts.Strategy.IsValid() {
		return Invalid("unknown strategy %q", opts.Strategy)
	}
	c := opts.ConfidenceLevel
	if math.IsNaN(c) || c <= 0 || c > 100 {
		return Invalid("confidence level must be in (0, 100], got %g", c)
	}
	return nil
}

// ValidateMetricID checks an identifier taken from a URL or message.
func ValidateMetricID(id string) error {
	id = SanitizeString(id)
	if id == "" {
		return Invalid("metric id cannot be empty")
	}
	if len(id) > 100 {
		return Invalid("metric id must not exceed 100 characters")
	}
	return nil
}
