package main

import (
	"github.com/fasthttp/router"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
	"gonum.org/v1/plot/vg"
	"gorm.io/gorm"

	"throughputplot/internal/config"
	"throughputplot/internal/db"
	"throughputplot/internal/http/handlers"
	appmw "throughputplot/internal/http/middleware"
	"throughputplot/internal/logging"
	"throughputplot/internal/metrics"
	"throughputplot/internal/pipeline"
	"throughputplot/internal/render"
	ui "throughputplot/web"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logrus.Fatalf("failed to configure logging: %v", err)
	}

	var sqlDB *gorm.DB
	if cfg.DatabaseURL != "" {
		sqlDB, err = db.Connect(cfg)
		if err != nil {
			logger.Fatalf("failed to connect database: %v", err)
		}
	}

	collector := metrics.New()

	if cfg.Serve() {
		if err := serve(cfg, logger, sqlDB, collector); err != nil {
			logger.Fatalf("server error: %v", err)
		}
		return
	}

	if err := renderOnce(cfg, logger, sqlDB, collector); err != nil {
		logger.Fatalf("throughput run failed: %v", err)
	}
}

// renderOnce runs the pipeline over the configured request log, writes
// the chart, then the optional metrics file and database row.
func renderOnce(cfg *config.Config, log *logrus.Logger, sqlDB *gorm.DB, collector *metrics.Collector) error {
	res, err := pipeline.RunFile(cfg.InputPath, pipelineOptions(cfg, log))
	if err != nil {
		return err
	}

	if err := render.SaveFile(cfg.OutputPath, res.Series, chartOptions(cfg)); err != nil {
		return err
	}
	logSummary(log, cfg, res.Summary)

	collector.Observe(res)
	if cfg.MetricsPath != "" {
		if err := collector.WriteFile(cfg.MetricsPath); err != nil {
			return err
		}
	}

	if sqlDB != nil {
		run, err := db.SaveRun(sqlDB, cfg.InputPath, res, cfg.RetentionDays)
		if err != nil {
			return err
		}
		log.WithField("run_id", run.ID).Info("run persisted")
	}
	return nil
}

func serve(cfg *config.Config, log *logrus.Logger, sqlDB *gorm.DB, collector *metrics.Collector) error {
	hash, err := appmw.HashAdminPassword(cfg)
	if err != nil {
		return err
	}
	auth := appmw.AdminAuth(cfg, hash)
	load := appmw.LoadResult(cfg, collector, log)

	if sqlDB != nil {
		db.StartRetentionWorker(sqlDB, log)
	}

	r := router.New()

	r.GET("/healthz", func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok")
	})

	r.ServeFS("/static/{filepath:*}", ui.StaticFS())

	r.GET("/", auth(load(handlers.Dashboard(cfg, sqlDB != nil))))
	r.GET("/throughput.png", auth(load(handlers.ThroughputChart(chartOptions(cfg)))))
	r.GET("/v1/series", auth(load(handlers.ThroughputSeries())))
	r.GET("/metrics", auth(handlers.PrometheusMetrics(collector)))

	if sqlDB != nil {
		r.GET("/v1/runs", auth(handlers.RecentRuns(sqlDB)))
		r.GET("/v1/runs/latest", auth(handlers.LatestRun(sqlDB, cfg)))
		r.POST("/v1/runs", auth(load(handlers.SaveSnapshot(sqlDB, cfg, log))))
	}

	handler := handlers.RequestLogger(log)(r.Handler)

	log.WithField("input", cfg.InputPath).Infof("throughputplot listening on %s", cfg.ListenAddr)
	if err := fasthttp.ListenAndServe(cfg.ListenAddr, handler); err != nil {
		return errors.Wrap(err, "listen")
	}
	return nil
}

func pipelineOptions(cfg *config.Config, log logrus.FieldLogger) pipeline.Options {
	return pipeline.Options{
		SkipHeaderRows: cfg.SkipHeaderRows,
		Comma:          cfg.Comma(),
		Logger:         log,
	}
}

func chartOptions(cfg *config.Config) render.ChartOptions {
	opts := render.DefaultChartOptions()
	opts.Width = vg.Length(cfg.ChartWidthInches) * vg.Inch
	opts.Height = vg.Length(cfg.ChartHeightInches) * vg.Inch
	return opts
}

func logSummary(log logrus.FieldLogger, cfg *config.Config, s pipeline.Summary) {
	log.WithFields(logrus.Fields{
		"input":       cfg.InputPath,
		"output":      cfg.OutputPath,
		"rows":        s.TotalRows,
		"retained":    s.RetainedRows,
		"malformed":   s.MalformedRows,
		"non_numeric": s.NonNumericRows,
		"windows":     s.Windows,
	}).Info("throughput chart written")

	if s.RetainedRows == 0 {
		log.Warn("no usable rows in request log, chart is empty")
		return
	}

	log.WithFields(logrus.Fields{
		"peak_rps":       s.PeakThroughput,
		"peak_window":    s.PeakWindow,
		"mean_rps":       s.MeanThroughput,
		"elapsed_s":      s.ElapsedSeconds,
		"latency_min_ms": s.LatencyMinMs,
		"latency_p50_ms": s.LatencyP50Ms,
		"latency_p95_ms": s.LatencyP95Ms,
		"latency_p99_ms": s.LatencyP99Ms,
		"latency_max_ms": s.LatencyMaxMs,
		"successful":     s.Successful,
		"failed":         s.Failed,
	}).Info("run summary")
}
