package frontend

import (
	"github.com/valyala/fasthttp"

	"parley/pkg/api/router"
)

func (h *Handlers) ListUsers(ctx *fasthttp.RequestCtx) {
	caller, tr := begin(ctx, "list_users")
	defer tr.Finish()

	list, err := h.chat.ListUsers(caller)
	if err != nil {
		router.WriteError(ctx, err)
		return
	}
	_ = router.WriteJSON(ctx, UsersListResponse{Users: list})
}

func (h *Handlers) CurrentUser(ctx *fasthttp.RequestCtx) {
	caller, tr := begin(ctx, "current_user")
	defer tr.Finish()

	u, err := h.chat.CurrentUser(caller)
	if err != nil {
		router.WriteError(ctx, err)
		return
	}
	_ = router.WriteJSON(ctx, UserResponse{User: u})
}

func (h *Handlers) Heartbeat(ctx *fasthttp.RequestCtx) {
	caller, tr := begin(ctx, "heartbeat")
	defer tr.Finish()

	if err := h.chat.Heartbeat(caller); err != nil {
		router.WriteError(ctx, err)
		return
	}
	ok(ctx)
}
