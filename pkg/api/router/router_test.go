package router

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"parley/pkg/errs"
)

func request(r *Router, method, path string) *fasthttp.RequestCtx {
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(path)
	r.Handler(&ctx)
	return &ctx
}

func TestRouterMatchesParams(t *testing.T) {
	r := New()
	var got string
	r.GET("/v1/conversations/{conversationId}/messages", func(ctx *fasthttp.RequestCtx) {
		got = PathParam(ctx, "conversationId")
	})

	ctx := request(r, "GET", "/v1/conversations/c-1/messages")
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, "c-1", got)

	ctx = request(r, "POST", "/v1/conversations/c-1/messages")
	assert.Equal(t, fasthttp.StatusMethodNotAllowed, ctx.Response.StatusCode())

	ctx = request(r, "GET", "/v1/conversations/c-1")
	assert.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())
}

func TestWriteErrorMapsKinds(t *testing.T) {
	cases := map[error]int{
		errs.Unauth("op"):               fasthttp.StatusUnauthorized,
		errs.Denied("op", "no"):         fasthttp.StatusForbidden,
		errs.Missing("op", "gone"):      fasthttp.StatusNotFound,
		errs.Invalid("op", "bad"):       fasthttp.StatusBadRequest,
		errs.Wrap("op", assert.AnError): fasthttp.StatusInternalServerError,
	}
	for err, status := range cases {
		var ctx fasthttp.RequestCtx
		WriteError(&ctx, err)
		assert.Equal(t, status, ctx.Response.StatusCode())

		var body map[string]string
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &body))
		assert.Equal(t, errs.Message(err), body["error"])
	}
}
