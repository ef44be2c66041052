package domain

import "time"

// Chunk is a half-open sub-interval [Start, End) of a logged work interval,
// confined to a single local calendar day.
type Chunk struct {
	Start time.Time
	End   time.Time
}

// Seconds returns the chunk duration in whole seconds.
func (c Chunk) Seconds() int64 {
	return int64(c.End.Sub(c.Start) / time.Second)
}

// SplitByLocalDay breaks [start, end) at local-day boundaries for the given
// minute offset. The returned chunks are ordered, contiguous and
// non-overlapping; their union is exactly [start, end). An interval that
// crosses no boundary yields a single chunk identical to the input.
func SplitByLocalDay(start, end time.Time, offsetMinutes int) []Chunk {
	start = start.UTC()
	end = end.UTC()

	var chunks []Chunk
	cursor := start
	for cursor.Before(end) {
		_, nextMidnight := LocalDayBoundsUTC(cursor, offsetMinutes)
		chunkEnd := end
		if nextMidnight.Before(end) {
			chunkEnd = nextMidnight
		}
		chunks = append(chunks, Chunk{Start: cursor, End: chunkEnd})
		cursor = chunkEnd
	}
	return chunks
}
