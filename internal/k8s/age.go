package k8s

import (
	"fmt"
	"time"
)

// FormatAge renders now-created in a single unit: days, else hours, else minutes, else seconds.
func FormatAge(created, now time.Time) string {
	d := now.Sub(created)
	if d < 0 {
		d = 0
	}
	switch {
	case d >= 24*time.Hour:
		return fmt.Sprintf("%dd", int(d/(24*time.Hour)))
	case d >= time.Hour:
		return fmt.Sprintf("%dh", int(d/time.Hour))
	case d >= time.Minute:
		return fmt.Sprintf("%dm", int(d/time.Minute))
	default:
		return fmt.Sprintf("%ds", int(d/time.Second))
	}
}
