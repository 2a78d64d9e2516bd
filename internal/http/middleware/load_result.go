package middleware

import (
	"io/fs"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"

	"throughputplot/internal/config"
	httpctx "throughputplot/internal/http/ctx"
	"throughputplot/internal/metrics"
	"throughputplot/internal/pipeline"
)

// LoadResult runs the pipeline over the configured request log for every
// request and stores the result on the context, so a log that is still
// being written shows up to date. The collector, when non-nil, observes
// each result.
func LoadResult(cfg *config.Config, collector *metrics.Collector, log logrus.FieldLogger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	opts := pipeline.Options{
		SkipHeaderRows: cfg.SkipHeaderRows,
		Comma:          cfg.Comma(),
		Logger:         log,
	}

	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			res, err := pipeline.RunFile(cfg.InputPath, opts)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					ctx.SetStatusCode(fasthttp.StatusNotFound)
					ctx.SetBodyString("request log not found")
					return
				}
				log.WithError(err).Error("pipeline run failed")
				ctx.SetStatusCode(fasthttp.StatusInternalServerError)
				ctx.SetBodyString("failed to read request log")
				return
			}

			if collector != nil {
				collector.Observe(res)
			}
			httpctx.SetResult(ctx, res)
			next(ctx)
		}
	}
}
