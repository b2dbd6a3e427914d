package shared

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// PeriodLayout is the month layout of balancete periods ("2024-01").
const PeriodLayout = "2006-01"

const periodKeySeparator = "_"

// ErrInvalidPeriod indicates a malformed period or period key.
var ErrInvalidPeriod = errors.New("period invalid")

// ParsePeriod parses a "YYYY-MM" period into the first day of that month.
func ParsePeriod(period string) (time.Time, error) {
	t, err := time.Parse(PeriodLayout, period)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}
	return t, nil
}

// PeriodKey returns the storage key for a single period or a period range.
// A range collapses to the single period when start equals end.
func PeriodKey(start, end string) string {
	if end == "" || start == end {
		return start
	}
	return start + periodKeySeparator + end
}

// SplitPeriodKey reverses PeriodKey.
func SplitPeriodKey(key string) (string, string, error) {
	start, end, ranged := strings.Cut(key, periodKeySeparator)
	if _, err := ParsePeriod(start); err != nil {
		return "", "", err
	}
	if !ranged {
		return start, start, nil
	}
	if err := ValidatePeriodRange(start, end); err != nil {
		return "", "", err
	}
	return start, end, nil
}

// ValidatePeriodRange checks both periods parse and start is strictly before end.
func ValidatePeriodRange(start, end string) error {
	from, err := ParsePeriod(start)
	if err != nil {
		return err
	}
	to, err := ParsePeriod(end)
	if err != nil {
		return err
	}
	if !from.Before(to) {
		return fmt.Errorf("%w: %s must precede %s", ErrInvalidPeriod, start, end)
	}
	return nil
}
