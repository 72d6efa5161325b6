package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParsePeriod converts a raw JSON value into a reporting period in seconds.
//
// Accepted: integral JSON numbers (30, 30.0) and decimal strings (" 30 ").
// Negative values, fractions, booleans, null and other types are rejected
// with ErrInvalidInput.
func ParsePeriod(raw json.RawMessage) (int, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("%w: period is missing", ErrInvalidInput)
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, fmt.Errorf("%w: period: %v", ErrInvalidInput, err)
	}

	var period int
	switch t := v.(type) {
	case float64:
		if t != math.Trunc(t) || t > math.MaxInt32 || t < math.MinInt32 {
			return 0, fmt.Errorf("%w: period %v is not an integer", ErrInvalidInput, t)
		}
		period = int(t)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, fmt.Errorf("%w: period %q is not an integer", ErrInvalidInput, t)
		}
		period = n
	default:
		return 0, fmt.Errorf("%w: period has unsupported type %T", ErrInvalidInput, v)
	}

	if err := ValidatePeriod(period); err != nil {
		return 0, err
	}
	return period, nil
}

// ValidatePeriod rejects negative periods.
func ValidatePeriod(period int) error {
	if period < 0 {
		return fmt.Errorf("%w: period must be >= 0, got %d", ErrInvalidInput, period)
	}
	return nil
}

// ValidateName rejects empty service names.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	return nil
}
