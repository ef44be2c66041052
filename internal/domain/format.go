package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatHMS renders seconds as HH:MM:SS. Hours are not wrapped at 24, so
// multi-day totals render as e.g. "51:45:12".
func FormatHMS(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
}

// ParseInterval converts a Postgres interval rendered as text into whole
// seconds. Two shapes occur in aggregate output: "HH:MM:SS" and
// "<N> day(s) HH:MM:SS".
func ParseInterval(value string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}

	var total int64
	clock := value
	if strings.Contains(value, "day") {
		parts := strings.Fields(value)
		if len(parts) < 2 {
			return 0, fmt.Errorf("malformed interval %q", value)
		}
		days, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("malformed interval %q: %w", value, err)
		}
		total += days * 86400
		if len(parts) < 3 {
			return total, nil
		}
		clock = parts[2]
	}

	fields := strings.Split(clock, ":")
	if len(fields) != 3 {
		return 0, fmt.Errorf("malformed interval %q", value)
	}

	// Fractional seconds are truncated.
	if idx := strings.IndexByte(fields[2], '.'); idx >= 0 {
		fields[2] = fields[2][:idx]
	}

	multipliers := []int64{3600, 60, 1}
	for i, field := range fields {
		n, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("malformed interval %q: %w", value, err)
		}
		total += n * multipliers[i]
	}
	return total, nil
}
