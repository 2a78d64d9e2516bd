package middleware

import (
	"bytes"
	"crypto/subtle"
	"encoding/base64"

	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"
	"golang.org/x/crypto/bcrypt"

	"throughputplot/internal/config"
	httpctx "throughputplot/internal/http/ctx"
)

const realm = `Basic realm="throughputplot"`

// HashAdminPassword returns the bcrypt hash of the configured admin
// password, or nil when no password is configured.
func HashAdminPassword(cfg *config.Config) ([]byte, error) {
	if cfg.AdminPassword == "" {
		return nil, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "hash admin password")
	}
	return hash, nil
}

// AdminAuth returns middleware that requires HTTP basic credentials
// matching the configured admin user. With an empty hash every request
// passes through.
func AdminAuth(cfg *config.Config, passwordHash []byte) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if len(passwordHash) == 0 {
		return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
			return next
		}
	}

	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			username, password, ok := basicCredentials(ctx.Request.Header.Peek("Authorization"))
			if !ok {
				unauthorized(ctx, "missing basic credentials")
				return
			}
			if subtle.ConstantTimeCompare([]byte(username), []byte(cfg.AdminUser)) != 1 {
				unauthorized(ctx, "invalid username or password")
				return
			}
			if err := bcrypt.CompareHashAndPassword(passwordHash, []byte(password)); err != nil {
				unauthorized(ctx, "invalid username or password")
				return
			}

			httpctx.SetUser(ctx, username)
			next(ctx)
		}
	}
}

func basicCredentials(auth []byte) (username, password string, ok bool) {
	const prefix = "Basic "
	if !bytes.HasPrefix(auth, []byte(prefix)) {
		return "", "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(string(bytes.TrimSpace(auth[len(prefix):])))
	if err != nil {
		return "", "", false
	}
	user, pass, found := bytes.Cut(decoded, []byte(":"))
	if !found {
		return "", "", false
	}
	return string(user), string(pass), true
}

func unauthorized(ctx *fasthttp.RequestCtx, msg string) {
	ctx.Response.Header.Set("WWW-Authenticate", realm)
	ctx.SetStatusCode(fasthttp.StatusUnauthorized)
	ctx.SetBodyString(msg)
}
