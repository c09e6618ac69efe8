package format

import (
	"fmt"
	"strings"
	"time"
)

// Duration formats d compactly: sub-second values as time.Duration prints
// them, otherwise whole units from days down to seconds ("1d2h0m5s").
func Duration(d time.Duration) string {
	if d < time.Second {
		return d.String()
	}

	days := int64(d / (24 * time.Hour))
	hours := int64(d.Hours()) % 24
	minutes := int64(d.Minutes()) % 60
	seconds := int64(d.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd%dh%dm%ds", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}

// Durations joins a schedule of delays, "1s, 2s, 4s"
func Durations(ds []time.Duration) string {
	parts := make([]string, len(ds))
	for i, d := range ds {
		parts[i] = Duration(d)
	}
	return strings.Join(parts, ", ")
}
