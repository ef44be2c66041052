package domain

import "time"

// Timezone offsets accepted from callers, in minutes east of UTC
// (UTC-12:00 through UTC+14:00). Validated once at the API boundary;
// the functions below assume the precondition holds.
const (
	MinTimezoneOffsetMinutes = -720
	MaxTimezoneOffsetMinutes = 840
)

// LocalDayBoundsUTC returns the UTC instants bounding the local calendar
// day containing instant, for a fixed minute offset east of UTC. The start
// bound is inclusive, the end bound is the next local midnight, exclusive.
func LocalDayBoundsUTC(instant time.Time, offsetMinutes int) (time.Time, time.Time) {
	offset := time.Duration(offsetMinutes) * time.Minute
	local := instant.UTC().Add(offset)
	year, month, day := local.Date()
	midnight := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return midnight.Add(-offset), midnight.AddDate(0, 0, 1).Add(-offset)
}

// LocalDateKey returns the local calendar date of instant as YYYY-MM-DD,
// the day-grouping key used throughout capacity accounting and summaries.
func LocalDateKey(instant time.Time, offsetMinutes int) string {
	local := instant.UTC().Add(time.Duration(offsetMinutes) * time.Minute)
	return local.Format("2006-01-02")
}
