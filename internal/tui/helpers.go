package tui

import "time"

// truncate shortens a string to max runes with ellipsis
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

// countdown formats a resend wait as whole seconds, rounding up
func countdown(d time.Duration) int {
	return int((d + time.Second - 1) / time.Second)
}
