package frontend

import (
	"github.com/valyala/fasthttp"

	"parley/pkg/api/router"
)

func (h *Handlers) SetTyping(ctx *fasthttp.RequestCtx) {
	caller, tr := begin(ctx, "set_typing")
	defer tr.Finish()

	convID, valid := pathParamOrFail(ctx, "conversationId")
	if !valid {
		return
	}
	var req TypingRequest
	if !router.DecodeBody(ctx, &req) {
		return
	}
	if err := h.chat.SetTyping(caller, convID, req.IsTyping); err != nil {
		router.WriteError(ctx, err)
		return
	}
	ok(ctx)
}

func (h *Handlers) ListTyping(ctx *fasthttp.RequestCtx) {
	caller, tr := begin(ctx, "list_typing")
	defer tr.Finish()

	convID, valid := pathParamOrFail(ctx, "conversationId")
	if !valid {
		return
	}
	users, err := h.chat.ListTyping(caller, convID)
	if err != nil {
		router.WriteError(ctx, err)
		return
	}
	_ = router.WriteJSON(ctx, TypingResponse{Typing: users})
}

func (h *Handlers) ClearUnread(ctx *fasthttp.RequestCtx) {
	caller, tr := begin(ctx, "clear_unread")
	defer tr.Finish()

	convID, valid := pathParamOrFail(ctx, "conversationId")
	if !valid {
		return
	}
	if err := h.chat.ClearUnread(caller, convID); err != nil {
		router.WriteError(ctx, err)
		return
	}
	ok(ctx)
}

func (h *Handlers) ListUnreads(ctx *fasthttp.RequestCtx) {
	caller, tr := begin(ctx, "list_unreads")
	defer tr.Finish()

	rows, err := h.chat.ListUnreads(caller)
	if err != nil {
		router.WriteError(ctx, err)
		return
	}
	_ = router.WriteJSON(ctx, UnreadsResponse{Unreads: rows})
}
