package pipeline

import "sort"

// MinStartTime returns the earliest StartTime among records, or false
// when records is empty.
func MinStartTime(records []ValidRecord) (int64, bool) {
	if len(records) == 0 {
		return 0, false
	}
	lowest := records[0].StartTime
	for _, r := range records[1:] {
		if r.StartTime < lowest {
			lowest = r.StartTime
		}
	}
	return lowest, true
}

// Normalize rebases every StartTime to the earliest one and rescales it
// from milliseconds to seconds, then assigns the one-second window.
// The minimum is computed over the full set before any record is rebased.
func Normalize(records []ValidRecord) []NormalizedRecord {
	base, ok := MinStartTime(records)
	if !ok {
		return nil
	}

	out := make([]NormalizedRecord, len(records))
	for i, r := range records {
		seconds := float64(r.StartTime-base) / 1000.0
		out[i] = NormalizedRecord{
			ValidRecord:  r,
			StartSeconds: seconds,
			Window:       Bucket(seconds),
		}
	}
	return out
}

// Bucket truncates normalized seconds to the window index. seconds is
// never negative, so truncation equals floor.
func Bucket(seconds float64) TimeWindow {
	return TimeWindow(seconds)
}

// Aggregate counts records per window, ordered by window ascending.
func Aggregate(records []NormalizedRecord) Series {
	counts := make(map[TimeWindow]int64)
	for _, r := range records {
		counts[r.Window]++
	}

	series := make(Series, 0, len(counts))
	for w, c := range counts {
		series = append(series, WindowCount{Window: w, Count: c})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Window < series[j].Window })
	return series
}
