package handlers

import (
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	"throughputplot/internal/config"
	dbpkg "throughputplot/internal/db"
)

type runView struct {
	ID             uint          `json:"id"`
	CreatedAt      string        `json:"created_at"`
	Source         string        `json:"source"`
	RetainedRows   int           `json:"retained_rows"`
	Windows        int           `json:"windows"`
	PeakThroughput int64         `json:"peak_throughput"`
	MeanThroughput float64       `json:"mean_throughput"`
	LatencyP99Ms   int64         `json:"latency_p99_ms"`
	Series         []seriesPoint `json:"series"`
}

type seriesPoint struct {
	Window int64 `json:"window"`
	Count  int64 `json:"count"`
}

func newRunView(r dbpkg.ThroughputRun) runView {
	points := make([]seriesPoint, 0, len(r.Buckets))
	for _, b := range r.Buckets {
		points = append(points, seriesPoint{Window: b.WindowIndex, Count: b.Count})
	}
	return runView{
		ID:             r.ID,
		CreatedAt:      r.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		Source:         r.Source,
		RetainedRows:   r.RetainedRows,
		Windows:        r.Windows,
		PeakThroughput: r.PeakThroughput,
		MeanThroughput: r.MeanThroughput,
		LatencyP99Ms:   r.LatencyP99Ms,
		Series:         points,
	}
}

// RecentRuns lists persisted runs, newest first. Query: source, limit (max 100).
func RecentRuns(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		source := string(ctx.QueryArgs().Peek("source"))
		limit := 10
		if s := string(ctx.QueryArgs().Peek("limit")); s != "" {
			if n, err := strconv.Atoi(s); err == nil && n > 0 {
				if n > 100 {
					n = 100
				}
				limit = n
			}
		}

		runs, err := dbpkg.RecentRuns(db, source, limit)
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to query runs")
			return
		}
		views := make([]runView, 0, len(runs))
		for _, r := range runs {
			views = append(views, newRunView(r))
		}
		jsonResponse(ctx, map[string]any{"runs": views})
	}
}

// SaveSnapshot persists the result loaded for this request as a new run.
func SaveSnapshot(db *gorm.DB, cfg *config.Config, log logrus.FieldLogger) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		res, ok := MustResult(ctx)
		if !ok {
			return
		}

		run, err := dbpkg.SaveRun(db, cfg.InputPath, res, cfg.RetentionDays)
		if err != nil {
			log.WithError(err).Error("failed to persist run")
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to persist run")
			return
		}

		ctx.SetStatusCode(fasthttp.StatusCreated)
		jsonResponse(ctx, map[string]any{"run": newRunView(*run)})
	}
}

// LatestRun returns the newest persisted run of the configured request log.
func LatestRun(db *gorm.DB, cfg *config.Config) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		run, err := dbpkg.LatestRun(db, cfg.InputPath)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				errResponse(ctx, fasthttp.StatusNotFound, "no runs persisted")
				return
			}
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to query runs")
			return
		}
		jsonResponse(ctx, map[string]any{"run": newRunView(*run)})
	}
}
