package pipeline

import (
	"sort"
	"strings"
)

// Summary describes one pass over a request log.
type Summary struct {
	TotalRows     int `json:"total_rows"`
	MalformedRows int `json:"malformed_rows"`
	// NonNumericRows were dropped because StartTime or Latency was not all-digit.
	NonNumericRows int `json:"non_numeric_rows"`
	RetainedRows   int `json:"retained_rows"`

	Windows        int        `json:"windows"`
	ElapsedSeconds float64    `json:"elapsed_seconds"`
	PeakThroughput int64      `json:"peak_throughput"`
	PeakWindow     TimeWindow `json:"peak_window"`
	// MeanThroughput spreads retained requests over every second from the
	// first window to the last, including seconds without requests.
	MeanThroughput float64 `json:"mean_throughput"`

	LatencyMinMs  int64   `json:"latency_min_ms"`
	LatencyMaxMs  int64   `json:"latency_max_ms"`
	LatencyMeanMs float64 `json:"latency_mean_ms"`
	LatencyP50Ms  int64   `json:"latency_p50_ms"`
	LatencyP95Ms  int64   `json:"latency_p95_ms"`
	LatencyP99Ms  int64   `json:"latency_p99_ms"`

	ResponseCodes map[string]int64 `json:"response_codes"`
	Successful    int64            `json:"successful"`
	Failed        int64            `json:"failed"`
}

// Summarize computes row accounting, throughput and latency statistics.
func Summarize(ingest *IngestResult, records []NormalizedRecord, series Series) Summary {
	s := Summary{
		TotalRows:     ingest.TotalRows,
		MalformedRows: ingest.MalformedRows,
		RetainedRows:  len(records),
		Windows:       len(series),
		ResponseCodes: make(map[string]int64),
	}
	s.NonNumericRows = s.TotalRows - s.MalformedRows - s.RetainedRows

	if len(records) == 0 {
		return s
	}

	for _, wc := range series {
		if wc.Count > s.PeakThroughput {
			s.PeakThroughput = wc.Count
			s.PeakWindow = wc.Window
		}
	}
	last := series[len(series)-1].Window
	s.MeanThroughput = float64(len(records)) / float64(last+1)

	latencies := make([]int64, 0, len(records))
	var sum int64
	for _, r := range records {
		if r.StartSeconds > s.ElapsedSeconds {
			s.ElapsedSeconds = r.StartSeconds
		}
		latencies = append(latencies, r.Latency)
		sum += r.Latency

		code := strings.TrimSpace(r.ResponseCode)
		s.ResponseCodes[code]++
		if len(code) == 3 && code[0] == '2' && IsDigits(code) {
			s.Successful++
		} else {
			s.Failed++
		}
	}

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	n := len(latencies)
	s.LatencyMinMs = latencies[0]
	s.LatencyMaxMs = latencies[n-1]
	s.LatencyMeanMs = float64(sum) / float64(n)
	s.LatencyP50Ms = latencies[(n*50)/100]
	s.LatencyP95Ms = latencies[(n*95)/100]
	s.LatencyP99Ms = latencies[(n*99)/100]
	return s
}
