package util

import (
	"fmt"
	"strings"
	"time"
)

// CompactCount renders a count the way timeline badges do: 1234 -> "1.2K",
// 3400000 -> "3.4M", with a trailing ".0" dropped.
func CompactCount(n int64) string {
	switch {
	case n >= 1_000_000:
		return strings.TrimSuffix(fmt.Sprintf("%.1f", float64(n)/1_000_000), ".0") + "M"
	case n >= 1_000:
		return strings.TrimSuffix(fmt.Sprintf("%.1f", float64(n)/1_000), ".0") + "K"
	default:
		return fmt.Sprintf("%d", n)
	}
}

// MonthYear renders an account-creation timestamp as "Jan 2006", or "" for
// an unknown (zero) timestamp.
func MonthYear(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("Jan 2006")
}
