package utils

import (
	"strings"

	"github.com/valyala/fasthttp"
)

// BearerToken returns the token of an "Authorization: Bearer <token>" header.
func BearerToken(ctx *fasthttp.RequestCtx) string {
	auth := GetHeader(ctx, "Authorization")
	if auth == "" {
		return ""
	}
	// "Bearer <token>" with flexible whitespace
	parts := strings.Fields(auth)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return ""
}

// Extracts an API key from the X-API-Key header, falling back to the bearer token.
// When both are present the bearer token carries a user JWT.
func ExtractAPIKey(ctx *fasthttp.RequestCtx) string {
	if k := GetHeader(ctx, "X-API-Key"); k != "" {
		return k
	}
	return BearerToken(ctx)
}

// Returns the value of the X-Role-Name header, lowercased
func GetApiRole(ctx *fasthttp.RequestCtx) string {
	return GetHeaderLower(ctx, "X-Role-Name")
}

// Returns the value of the X-User-ID header
func GetUserID(ctx *fasthttp.RequestCtx) string {
	return GetHeader(ctx, "X-User-ID")
}

// Returns the value of the X-User-Signature header
func GetUserSignature(ctx *fasthttp.RequestCtx) string {
	return GetHeader(ctx, "X-User-Signature")
}

// Checks if the role in the request is "backend"
func IsBackendRole(ctx *fasthttp.RequestCtx) bool {
	return GetApiRole(ctx) == "backend"
}

// Checks if the user signature exists in the request
func HasUserSignature(ctx *fasthttp.RequestCtx) bool {
	return GetUserSignature(ctx) != ""
}
