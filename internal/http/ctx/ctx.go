package ctx

import (
	"github.com/valyala/fasthttp"

	"throughputplot/internal/pipeline"
)

const (
	UserKey   = "user"
	ResultKey = "result"
)

func SetUser(ctx *fasthttp.RequestCtx, username string) {
	ctx.SetUserValue(UserKey, username)
}

func UserFromCtx(ctx *fasthttp.RequestCtx) (string, bool) {
	v := ctx.UserValue(UserKey)
	if v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// SetResult stores the pipeline result computed for this request.
func SetResult(ctx *fasthttp.RequestCtx, res *pipeline.Result) {
	ctx.SetUserValue(ResultKey, res)
}

func ResultFromCtx(ctx *fasthttp.RequestCtx) (*pipeline.Result, bool) {
	v := ctx.UserValue(ResultKey)
	if v == nil {
		return nil, false
	}
	res, ok := v.(*pipeline.Result)
	return res, ok && res != nil
}
