package handlers

import (
	"bytes"
	"time"

	"github.com/valyala/fasthttp"

	"throughputplot/internal/config"
	httpctx "throughputplot/internal/http/ctx"
	"throughputplot/internal/pipeline"
	ui "throughputplot/web"
)

type DashboardData struct {
	Title       string
	Input       string
	Username    string
	GeneratedAt string
	Summary     pipeline.Summary
	Series      pipeline.Series
	HistoryURL  string
}

// Dashboard renders the summary of the current request log with its chart.
func Dashboard(cfg *config.Config, historyEnabled bool) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		res, ok := MustResult(ctx)
		if !ok {
			return
		}

		t := ui.Templates().Lookup("index.html")
		if t == nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "dashboard template not found")
			return
		}

		data := DashboardData{
			Title:       "Throughput Over Time",
			Input:       cfg.InputPath,
			GeneratedAt: time.Now().UTC().Format(time.RFC3339),
			Summary:     res.Summary,
			Series:      res.Series,
		}
		if u, ok := httpctx.UserFromCtx(ctx); ok {
			data.Username = u
		}
		if historyEnabled {
			data.HistoryURL = "/v1/runs"
		}

		var buf bytes.Buffer
		if err := t.Execute(&buf, data); err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "render error")
			return
		}
		ctx.SetContentType("text/html; charset=utf-8")
		ctx.SetBody(buf.Bytes())
	}
}
