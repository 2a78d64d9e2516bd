package handlers

import (
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"

	httpctx "throughputplot/internal/http/ctx"
	"throughputplot/internal/pipeline"
)

// RequestLogger returns fasthttp middleware that logs method, path, status, duration.
func RequestLogger(log logrus.FieldLogger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			start := time.Now()
			next(ctx)
			log.WithFields(logrus.Fields{
				"method":   string(ctx.Method()),
				"path":     string(ctx.Path()),
				"status":   ctx.Response.StatusCode(),
				"duration": time.Since(start),
				"ip":       ctx.RemoteAddr().String(),
			}).Info("request")
		}
	}
}

// MustResult returns the pipeline result from context, or sends 500 and returns (nil, false).
func MustResult(ctx *fasthttp.RequestCtx) (*pipeline.Result, bool) {
	res, ok := httpctx.ResultFromCtx(ctx)
	if !ok {
		errResponse(ctx, fasthttp.StatusInternalServerError, "throughput result not loaded")
		return nil, false
	}
	return res, true
}

func jsonResponse(ctx *fasthttp.RequestCtx, data map[string]any) {
	ctx.SetContentType("application/json")
	body, _ := json.Marshal(data)
	ctx.SetBody(body)
}

func errResponse(ctx *fasthttp.RequestCtx, code int, msg string) {
	ctx.SetStatusCode(code)
	ctx.SetBodyString(msg)
}
