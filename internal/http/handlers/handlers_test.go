package handlers

import (
	"bytes"
	"encoding/json"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"throughputplot/internal/config"
	httpctx "throughputplot/internal/http/ctx"
	"throughputplot/internal/metrics"
	"throughputplot/internal/pipeline"
	"throughputplot/internal/render"
)

func loadedCtx(t *testing.T) *fasthttp.RequestCtx {
	t.Helper()
	res, err := pipeline.Run(strings.NewReader(
		"StartTime,RequestType,Latency,ResponseCode\n"+
			"1000,GET,50,200\n"+
			"1500,GET,60,200\n"+
			"2200,GET,40,503\n"), pipeline.DefaultOptions())
	require.NoError(t, err)

	ctx := &fasthttp.RequestCtx{}
	httpctx.SetResult(ctx, res)
	return ctx
}

func TestMustResult_NotLoaded(t *testing.T) {
	var ctx fasthttp.RequestCtx
	ThroughputSeries()(&ctx)
	assert.Equal(t, fasthttp.StatusInternalServerError, ctx.Response.StatusCode())
}

func TestThroughputSeries(t *testing.T) {
	ctx := loadedCtx(t)
	ThroughputSeries()(ctx)

	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, "application/json", string(ctx.Response.Header.ContentType()))

	var body struct {
		Series  pipeline.Series  `json:"series"`
		Summary pipeline.Summary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &body))
	assert.Equal(t, pipeline.Series{{Window: 0, Count: 2}, {Window: 1, Count: 1}}, body.Series)
	assert.Equal(t, 3, body.Summary.RetainedRows)
	assert.Equal(t, int64(1), body.Summary.ResponseCodes["503"])
}

func TestThroughputChart(t *testing.T) {
	ctx := loadedCtx(t)
	ThroughputChart(render.DefaultChartOptions())(ctx)

	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, "image/png", string(ctx.Response.Header.ContentType()))
	_, err := png.DecodeConfig(bytes.NewReader(ctx.Response.Body()))
	require.NoError(t, err)
}

func TestPrometheusMetrics(t *testing.T) {
	ctx := loadedCtx(t)
	res, _ := httpctx.ResultFromCtx(ctx)
	collector := metrics.New()
	collector.Observe(res)

	PrometheusMetrics(collector)(ctx)
	body := string(ctx.Response.Body())
	assert.Contains(t, body, "throughputplot_runs_total 1")
	assert.Contains(t, body, "throughputplot_peak_requests_per_second 2")

	var filtered fasthttp.RequestCtx
	filtered.Request.SetRequestURI("/metrics?name=peak")
	PrometheusMetrics(collector)(&filtered)
	body = string(filtered.Response.Body())
	assert.Contains(t, body, "throughputplot_peak_requests_per_second 2")
	assert.NotContains(t, body, "throughputplot_runs_total")
}

func TestDashboard(t *testing.T) {
	ctx := loadedCtx(t)
	httpctx.SetUser(ctx, "admin")
	Dashboard(&config.Config{InputPath: "request_log.csv"}, false)(ctx)

	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	body := string(ctx.Response.Body())
	assert.Contains(t, body, "Throughput Over Time")
	assert.Contains(t, body, "request_log.csv")
	assert.Contains(t, body, "signed in as admin")
	assert.Contains(t, body, `src="/throughput.png"`)
	assert.NotContains(t, body, "Run history")
}
