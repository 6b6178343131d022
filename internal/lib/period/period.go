// Package period works with billing periods, the year-month identifiers
// ("2024-01") that deduplicate subscription invoices.
package period

import (
	"fmt"
	"time"
)

const layout = "2006-01"

// Current returns the billing period of the given instant in UTC.
func Current(now time.Time) string {
	return now.UTC().Format(layout)
}

// Parse validates a billing period string and returns the first day of
// that month in UTC.
func Parse(s string) (time.Time, error) {
	const op = "period.Parse"
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}
	return t, nil
}
