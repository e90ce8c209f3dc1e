package monitor

import (
	"fmt"
	"time"
)

// FormatPercentage formats a ratio (0-1) as percentage
func FormatPercentage(ratio float64) string {
	return fmt.Sprintf("%.1f%%", ratio*100)
}

// FormatDuration formats a duration as "Xh Ym" or "Xm"
func FormatDuration(d time.Duration) string {
	seconds := int64(d.Seconds())
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

// FormatUsage formats a count against its limit as "used / limit".
func FormatUsage(used, limit int) string {
	return fmt.Sprintf("%d / %d", used, limit)
}

// Ratio returns used/limit clamped to [0, 1]. A non-positive limit reads
// as full once anything is used.
func Ratio(used, limit int) float64 {
	if limit <= 0 {
		if used > 0 {
			return 1
		}
		return 0
	}
	r := float64(used) / float64(limit)
	if r > 1 {
		return 1
	}
	if r < 0 {
		return 0
	}
	return r
}

// Truncate shortens s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
