// Package backend serves calls made by the application server with a backend key.
package backend

import (
	"fmt"

	"github.com/valyala/fasthttp"

	"parley/pkg/api/auth"
	"parley/pkg/api/router"
	"parley/pkg/api/utils"
	"parley/pkg/chat"
	"parley/pkg/config"
	"parley/pkg/state/logger"
	"parley/pkg/store/keys"
	"parley/pkg/store/users"
	"parley/pkg/telemetry"
)

type Handlers struct {
	chat *chat.Service
}

func New(svc *chat.Service) *Handlers {
	return &Handlers{chat: svc}
}

type signRequest struct {
	UserID string `json:"userId"`
}

type syncRequest struct {
	ExternalID string `json:"externalId"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	AvatarURL  string `json:"avatarUrl"`
}

// Sign mints the X-User-Signature a client presents for an external user id.
func (h *Handlers) Sign(ctx *fasthttp.RequestCtx) {
	tr := telemetry.Track("api.sign")
	defer tr.Finish()
	ctx.Response.Header.Set("Content-Type", "application/json")

	if !utils.IsBackendRole(ctx) {
		logger.Warn("sign_forbidden", "remote", ctx.RemoteAddr().String())
		router.WriteJSONError(ctx, fasthttp.StatusForbidden, "forbidden")
		return
	}

	var payload signRequest
	if !router.DecodeBody(ctx, &payload) {
		return
	}
	if err := keys.ValidateExternalID(payload.UserID); err != nil {
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, fmt.Sprintf("invalid user ID: %s", err.Error()))
		return
	}

	signingKey, err := getSigningKey()
	if err != nil {
		logger.Error("signing_key_unavailable", "error", err)
		router.WriteJSONError(ctx, fasthttp.StatusInternalServerError, err.Error())
		return
	}
	sig := auth.CreateHMACSignature(payload.UserID, signingKey)
	_ = router.WriteJSON(ctx, map[string]string{"userId": payload.UserID, "signature": sig})
}

// SyncUser upserts a profile from the identity provider.
func (h *Handlers) SyncUser(ctx *fasthttp.RequestCtx) {
	tr := telemetry.Track("api.sync_user")
	defer tr.Finish()
	ctx.Response.Header.Set("Content-Type", "application/json")

	if !utils.IsBackendRole(ctx) {
		router.WriteJSONError(ctx, fasthttp.StatusForbidden, "forbidden")
		return
	}
	var req syncRequest
	if !router.DecodeBody(ctx, &req) {
		return
	}
	u, err := h.chat.SyncUser(users.SyncParams{
		ExternalID: req.ExternalID,
		Name:       req.Name,
		Email:      req.Email,
		AvatarURL:  req.AvatarURL,
	})
	if err != nil {
		router.WriteError(ctx, err)
		return
	}
	_ = router.WriteJSON(ctx, map[string]interface{}{"user": u})
}

func getSigningKey() (string, error) {
	signingKeys := config.GetSigningKeys()
	if len(signingKeys) == 0 {
		return "", fmt.Errorf("signing keys not configured")
	}
	// any configured key verifies; pick the smallest for stable signatures
	first := ""
	for k := range signingKeys {
		if first == "" || k < first {
			first = k
		}
	}
	return first, nil
}
