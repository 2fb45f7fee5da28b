// Package frontend serves the caller surface: conversations, messages,
// presence, profiles and files. Every handler acts as the caller resolved by
// the auth middleware.
package frontend

import (
	"github.com/valyala/fasthttp"

	"parley/pkg/api/auth"
	"parley/pkg/api/router"
	"parley/pkg/blob"
	"parley/pkg/chat"
	"parley/pkg/telemetry"
)

type Handlers struct {
	chat  *chat.Service
	blobs *blob.Store
}

func New(svc *chat.Service, blobs *blob.Store) *Handlers {
	return &Handlers{chat: svc, blobs: blobs}
}

// begin starts the handler trace and returns the caller, which may be "".
func begin(ctx *fasthttp.RequestCtx, op string) (string, *telemetry.Trace) {
	ctx.Response.Header.Set("Content-Type", "application/json")
	return auth.Caller(ctx), telemetry.Track("api." + op)
}

func pathParamOrFail(ctx *fasthttp.RequestCtx, name string) (string, bool) {
	v := router.PathParam(ctx, name)
	if v == "" {
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, name+" missing")
		return "", false
	}
	return v, true
}

func ok(ctx *fasthttp.RequestCtx) {
	router.WriteJSONOk(ctx, map[string]interface{}{"ok": true})
}
