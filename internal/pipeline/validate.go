package pipeline

import "strconv"

// IsDigits reports whether s is non-empty and made only of ASCII digits.
// Signs, decimal points, whitespace and non-ASCII digits all fail.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Validate keeps the rows whose StartTime and Latency are both all-digit
// and fit in an int64, and returns them with the number of rows dropped.
func Validate(raw []RawRecord) ([]ValidRecord, int) {
	valid := make([]ValidRecord, 0, len(raw))
	dropped := 0
	for _, r := range raw {
		rec, ok := coerce(r)
		if !ok {
			dropped++
			continue
		}
		valid = append(valid, rec)
	}
	return valid, dropped
}

func coerce(r RawRecord) (ValidRecord, bool) {
	if !IsDigits(r.StartTime) || !IsDigits(r.Latency) {
		return ValidRecord{}, false
	}
	start, err := strconv.ParseInt(r.StartTime, 10, 64)
	if err != nil {
		return ValidRecord{}, false
	}
	latency, err := strconv.ParseInt(r.Latency, 10, 64)
	if err != nil {
		return ValidRecord{}, false
	}
	return ValidRecord{
		StartTime:    start,
		RequestType:  r.RequestType,
		Latency:      latency,
		ResponseCode: r.ResponseCode,
	}, true
}
