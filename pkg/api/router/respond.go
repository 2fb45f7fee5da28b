package router

import (
	"encoding/json"

	"github.com/valyala/fasthttp"

	"parley/pkg/errs"
	"parley/pkg/state/logger"
)

// WriteJSON writes a JSON response.
func WriteJSON(ctx *fasthttp.RequestCtx, data interface{}) error {
	ctx.Response.Header.Set("Content-Type", "application/json")
	return json.NewEncoder(ctx).Encode(data)
}

// WriteJSONError writes a JSON error response.
func WriteJSONError(ctx *fasthttp.RequestCtx, status int, message string) {
	ctx.SetStatusCode(status)
	ctx.Response.Header.Set("Content-Type", "application/json")
	_ = json.NewEncoder(ctx).Encode(map[string]string{"error": message})
}

// WriteJSONOk writes a simple OK JSON response.
func WriteJSONOk(ctx *fasthttp.RequestCtx, data map[string]interface{}) {
	ctx.Response.Header.Set("Content-Type", "application/json")
	_ = json.NewEncoder(ctx).Encode(data)
}

// StatusOf maps an operation error to its HTTP status.
func StatusOf(err error) int {
	switch errs.KindOf(err) {
	case errs.Unauthenticated:
		return fasthttp.StatusUnauthorized
	case errs.Forbidden:
		return fasthttp.StatusForbidden
	case errs.NotFound:
		return fasthttp.StatusNotFound
	case errs.InvalidArgument:
		return fasthttp.StatusBadRequest
	default:
		return fasthttp.StatusInternalServerError
	}
}

// WriteError writes err with its mapped status. Internal details are logged, never returned.
func WriteError(ctx *fasthttp.RequestCtx, err error) {
	status := StatusOf(err)
	if status == fasthttp.StatusInternalServerError {
		logger.Error("request_failed", "path", string(ctx.Path()), "error", err)
	}
	WriteJSONError(ctx, status, errs.Message(err))
}

// DecodeBody decodes a JSON request body into v and writes a 400 on failure.
func DecodeBody(ctx *fasthttp.RequestCtx, v interface{}) bool {
	body := ctx.PostBody()
	if len(body) == 0 {
		WriteJSONError(ctx, fasthttp.StatusBadRequest, "empty request payload")
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		WriteJSONError(ctx, fasthttp.StatusBadRequest, "invalid JSON payload")
		return false
	}
	return true
}
