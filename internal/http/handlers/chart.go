package handlers

import (
	"bytes"

	"github.com/valyala/fasthttp"

	"throughputplot/internal/render"
)

// ThroughputChart renders the series of the current request log as PNG.
func ThroughputChart(opts render.ChartOptions) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		res, ok := MustResult(ctx)
		if !ok {
			return
		}

		var buf bytes.Buffer
		if err := render.WritePNG(&buf, res.Series, opts); err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to render chart")
			return
		}
		ctx.SetContentType("image/png")
		ctx.Response.Header.Set("Cache-Control", "no-store")
		ctx.SetBody(buf.Bytes())
	}
}

// ThroughputSeries returns the series and summary of the current request log as JSON.
func ThroughputSeries() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		res, ok := MustResult(ctx)
		if !ok {
			return
		}
		jsonResponse(ctx, map[string]any{
			"series":  res.Series,
			"summary": res.Summary,
		})
	}
}
