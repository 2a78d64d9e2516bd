package pipeline

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = "StartTime,RequestType,Latency,ResponseCode\n"

func runString(t *testing.T, input string) *Result {
	t.Helper()
	res, err := Run(strings.NewReader(input), DefaultOptions())
	require.NoError(t, err)
	return res
}

func TestRun_ScenarioA(t *testing.T) {
	res := runString(t, header+
		"1000,GET,50,200\n"+
		"1500,GET,60,200\n"+
		"2200,GET,40,200\n")

	assert.Equal(t, Series{
		{Window: 0, Count: 2},
		{Window: 1, Count: 1},
	}, res.Series)

	require.Len(t, res.Records, 3)
	assert.InDelta(t, 0.0, res.Records[0].StartSeconds, 1e-9)
	assert.InDelta(t, 0.5, res.Records[1].StartSeconds, 1e-9)
	assert.InDelta(t, 1.2, res.Records[2].StartSeconds, 1e-9)
}

func TestRun_ScenarioB_NonDigitStartTimeDropped(t *testing.T) {
	res := runString(t, header+
		"12a0,GET,50,200\n"+
		"1000,GET,50,200\n")

	require.Len(t, res.Records, 1)
	assert.Equal(t, int64(1000), res.Records[0].StartTime)
	assert.Equal(t, Series{{Window: 0, Count: 1}}, res.Series)
	assert.Equal(t, 1, res.Summary.NonNumericRows)
}

func TestRun_ScenarioC_HeaderOnly(t *testing.T) {
	res := runString(t, header)

	assert.Empty(t, res.Series)
	assert.Empty(t, res.Records)
	assert.Equal(t, 0, res.Summary.TotalRows)
	assert.Equal(t, 0, res.Summary.RetainedRows)
}

func TestRun_EmptyInput(t *testing.T) {
	res := runString(t, "")
	assert.Empty(t, res.Series)
}

func TestRun_HeaderSkippedRegardlessOfContent(t *testing.T) {
	// The first row looks like data but is still treated as a header.
	res := runString(t, "5000,GET,10,200\n6000,GET,10,200\n")

	require.Len(t, res.Records, 1)
	assert.Equal(t, int64(6000), res.Records[0].StartTime)
}

func TestRun_SkipHeaderRowsConfigurable(t *testing.T) {
	input := "# generated by load test\n" + header + "1000,GET,50,200\n"

	res, err := Run(strings.NewReader(input), Options{SkipHeaderRows: 2})
	require.NoError(t, err)
	assert.Equal(t, Series{{Window: 0, Count: 1}}, res.Series)

	res, err = Run(strings.NewReader("1000,GET,50,200\n2000,GET,50,200\n"), Options{SkipHeaderRows: 0})
	require.NoError(t, err)
	assert.Equal(t, Series{{Window: 0, Count: 1}, {Window: 1, Count: 1}}, res.Series)
}

func TestRun_CustomDelimiter(t *testing.T) {
	res, err := Run(strings.NewReader(header+"1000;GET;50;200\n3100;POST;70;201\n"), Options{SkipHeaderRows: 1, Comma: ';'})
	require.NoError(t, err)
	assert.Equal(t, Series{{Window: 0, Count: 1}, {Window: 2, Count: 1}}, res.Series)
}

func TestRun_MalformedRowsSkipped(t *testing.T) {
	res := runString(t, header+
		"1000,GET,50\n"+
		"1000,GET,50,200,extra\n"+
		"1100,GET,50,200\n")

	assert.Equal(t, 3, res.Summary.TotalRows)
	assert.Equal(t, 2, res.Summary.MalformedRows)
	assert.Equal(t, 1, res.Summary.RetainedRows)
	assert.Equal(t, Series{{Window: 0, Count: 1}}, res.Series)
}

func TestRun_GapsAreNotZeroFilled(t *testing.T) {
	res := runString(t, header+
		"0,GET,5,201\n"+
		"5000,GET,5,201\n"+
		"5999,GET,5,201\n")

	assert.Equal(t, Series{{Window: 0, Count: 1}, {Window: 5, Count: 2}}, res.Series)
}

func TestRun_UnorderedInput(t *testing.T) {
	res := runString(t, header+
		"4500,GET,5,201\n"+
		"1000,GET,5,201\n"+
		"2999,GET,5,201\n")

	assert.Equal(t, Series{{Window: 0, Count: 1}, {Window: 1, Count: 1}, {Window: 3, Count: 1}}, res.Series)
}

func TestRun_Properties(t *testing.T) {
	input := header +
		"1700000000000,POST,31,201\n" +
		"1700000000999,POST,12,201\n" +
		"not-a-time,POST,12,201\n" +
		"1700000001000,POST,-1,500\n" +
		"1700000001000,POST,1.5,500\n" +
		"1700000001001,POST,,201\n" +
		"1700000003250,POST,44,201\n" +
		"1700000003251,GET,9,404\n" +
		"1700000007000,POST,18,201\n"

	res := runString(t, input)

	// Every retained record came from an all-digit source row.
	for _, r := range res.Records {
		assert.GreaterOrEqual(t, r.StartTime, int64(0))
		assert.GreaterOrEqual(t, r.Latency, int64(0))
	}

	// The earliest retained request is at zero.
	minSeconds := res.Records[0].StartSeconds
	for _, r := range res.Records {
		if r.StartSeconds < minSeconds {
			minSeconds = r.StartSeconds
		}
	}
	assert.Zero(t, minSeconds)

	// Windows strictly ascending.
	for i := 1; i < len(res.Series); i++ {
		assert.Less(t, res.Series[i-1].Window, res.Series[i].Window)
	}

	// Counts are conserved.
	assert.Equal(t, int64(len(res.Records)), res.Series.Total())
	assert.Equal(t, 5, res.Summary.RetainedRows)
	assert.Equal(t, 4, res.Summary.NonNumericRows)

	// Same input, same series.
	again := runString(t, input)
	assert.Equal(t, res.Series, again.Series)
}

func TestRunFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "request_log.csv")
	require.NoError(t, os.WriteFile(path, []byte(header+"1000,GET,50,200\n1500,GET,60,200\n2200,GET,40,200\n"), 0o644))

	res, err := RunFile(path, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, Series{{Window: 0, Count: 2}, {Window: 1, Count: 1}}, res.Series)
}

func TestRunFile_SourceNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.csv")

	_, err := RunFile(path, DefaultOptions())
	require.Error(t, err)

	var srcErr *SourceError
	require.True(t, errors.As(err, &srcErr))
	assert.Equal(t, path, srcErr.Path)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.Contains(t, err.Error(), path)
}
