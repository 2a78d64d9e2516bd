package pipeline

// RawRecord is one row of the request log as read from the source.
// StartTime and Latency stay as text until they pass IsDigits.
type RawRecord struct {
	StartTime    string
	RequestType  string
	Latency      string
	ResponseCode string

	// Line is the 1-based line of the row in the source, for diagnostics.
	Line int
}

// ValidRecord is a RawRecord whose StartTime (epoch milliseconds) and
// Latency (milliseconds) were all-digit and parsed as integers.
type ValidRecord struct {
	StartTime    int64
	RequestType  string
	Latency      int64
	ResponseCode string
}

// NormalizedRecord carries the start time rebased to the earliest
// retained request and rescaled to seconds, plus its one-second window.
type NormalizedRecord struct {
	ValidRecord

	StartSeconds float64
	Window       TimeWindow
}

// TimeWindow is the index of a one-second bucket, counted from the
// earliest retained request.
type TimeWindow int64

// WindowCount is the number of requests that started in one window.
type WindowCount struct {
	Window TimeWindow `json:"window"`
	Count  int64      `json:"count"`
}

// Series is the throughput series ordered by window ascending. Windows
// without requests are absent.
type Series []WindowCount

// Total returns the sum of counts across all windows.
func (s Series) Total() int64 {
	var total int64
	for _, wc := range s {
		total += wc.Count
	}
	return total
}
