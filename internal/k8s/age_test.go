package k8s

import (
	"testing"
	"time"
)

func TestFormatAge(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{3 * 24 * time.Hour, "3d"},
		{25 * time.Hour, "1d"},
		{5*time.Hour + 59*time.Minute, "5h"},
		{42 * time.Minute, "42m"},
		{9 * time.Second, "9s"},
		{-time.Minute, "0s"},
	}
	for _, tt := range tests {
		if got := FormatAge(now.Add(-tt.ago), now); got != tt.want {
			t.Errorf("FormatAge(-%v) = %q, want %q", tt.ago, got, tt.want)
		}
	}
}
