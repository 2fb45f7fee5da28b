package frontend

import (
	"github.com/valyala/fasthttp"

	"parley/pkg/api/router"
	"parley/pkg/models"
)

func (h *Handlers) Send(ctx *fasthttp.RequestCtx) {
	caller, tr := begin(ctx, "send")
	defer tr.Finish()

	convID, valid := pathParamOrFail(ctx, "conversationId")
	if !valid {
		return
	}
	var req SendRequest
	if !router.DecodeBody(ctx, &req) {
		return
	}
	tr.Mark("send")
	id, err := h.chat.Send(caller, convID, req.Content)
	if err != nil {
		router.WriteError(ctx, err)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusCreated)
	_ = router.WriteJSON(ctx, MessageCreatedResponse{MessageID: id})
}

func (h *Handlers) SendFile(ctx *fasthttp.RequestCtx) {
	caller, tr := begin(ctx, "send_file")
	defer tr.Finish()

	convID, valid := pathParamOrFail(ctx, "conversationId")
	if !valid {
		return
	}
	var req SendFileRequest
	if !router.DecodeBody(ctx, &req) {
		return
	}
	if req.Kind == "" {
		req.Kind = models.MessageFile
	}
	// the reference must point at an uploaded blob
	if caller != "" && req.FileRef != "" {
		tr.Mark("check_blob")
		if _, err := h.blobs.Get(req.FileRef); err != nil {
			router.WriteError(ctx, err)
			return
		}
	}
	tr.Mark("send")
	id, err := h.chat.SendFile(caller, convID, req.FileRef, req.FileName, req.Kind)
	if err != nil {
		router.WriteError(ctx, err)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusCreated)
	_ = router.WriteJSON(ctx, MessageCreatedResponse{MessageID: id})
}

func (h *Handlers) List(ctx *fasthttp.RequestCtx) {
	_, tr := begin(ctx, "list_messages")
	defer tr.Finish()

	convID, valid := pathParamOrFail(ctx, "conversationId")
	if !valid {
		return
	}
	msgs, err := h.chat.List(convID)
	if err != nil {
		router.WriteError(ctx, err)
		return
	}
	tr.Mark("encode_response")
	_ = router.WriteJSON(ctx, MessagesListResponse{Messages: msgs})
}

func (h *Handlers) MarkSeen(ctx *fasthttp.RequestCtx) {
	caller, tr := begin(ctx, "mark_seen")
	defer tr.Finish()

	convID, valid := pathParamOrFail(ctx, "conversationId")
	if !valid {
		return
	}
	if err := h.chat.MarkSeen(caller, convID); err != nil {
		router.WriteError(ctx, err)
		return
	}
	ok(ctx)
}

func (h *Handlers) Delete(ctx *fasthttp.RequestCtx) {
	caller, tr := begin(ctx, "delete_message")
	defer tr.Finish()

	msgID, valid := pathParamOrFail(ctx, "messageId")
	if !valid {
		return
	}
	if err := h.chat.Delete(caller, msgID); err != nil {
		router.WriteError(ctx, err)
		return
	}
	ok(ctx)
}

func (h *Handlers) ToggleReaction(ctx *fasthttp.RequestCtx) {
	caller, tr := begin(ctx, "toggle_reaction")
	defer tr.Finish()

	msgID, valid := pathParamOrFail(ctx, "messageId")
	if !valid {
		return
	}
	var req ReactionRequest
	if !router.DecodeBody(ctx, &req) {
		return
	}
	on, err := h.chat.ToggleReaction(caller, msgID, req.Emoji)
	if err != nil {
		router.WriteError(ctx, err)
		return
	}
	_ = router.WriteJSON(ctx, ReactionResponse{Reacted: on})
}
