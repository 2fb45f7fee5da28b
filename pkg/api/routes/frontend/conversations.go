package frontend

import (
	"github.com/valyala/fasthttp"

	"parley/pkg/api/router"
)

func (h *Handlers) CreateOrGetDirect(ctx *fasthttp.RequestCtx) {
	caller, tr := begin(ctx, "create_or_get_direct")
	defer tr.Finish()

	var req DirectRequest
	if !router.DecodeBody(ctx, &req) {
		return
	}
	tr.Mark("create_or_get")
	id, err := h.chat.CreateOrGetDirect(caller, req.OtherUserID)
	if err != nil {
		router.WriteError(ctx, err)
		return
	}
	_ = router.WriteJSON(ctx, ConversationCreatedResponse{ConversationID: id})
}

func (h *Handlers) CreateGroup(ctx *fasthttp.RequestCtx) {
	caller, tr := begin(ctx, "create_group")
	defer tr.Finish()

	var req GroupRequest
	if !router.DecodeBody(ctx, &req) {
		return
	}
	tr.Mark("create")
	id, err := h.chat.CreateGroup(caller, req.Name, req.MemberIDs)
	if err != nil {
		router.WriteError(ctx, err)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusCreated)
	_ = router.WriteJSON(ctx, ConversationCreatedResponse{ConversationID: id})
}

func (h *Handlers) ListMyConversations(ctx *fasthttp.RequestCtx) {
	caller, tr := begin(ctx, "list_my_conversations")
	defer tr.Finish()

	views, err := h.chat.ListMyConversations(caller)
	if err != nil {
		router.WriteError(ctx, err)
		return
	}
	tr.Mark("encode_response")
	_ = router.WriteJSON(ctx, ConversationsListResponse{Conversations: views})
}

func (h *Handlers) GetConversation(ctx *fasthttp.RequestCtx) {
	caller, tr := begin(ctx, "get_conversation")
	defer tr.Finish()

	convID, valid := pathParamOrFail(ctx, "conversationId")
	if !valid {
		return
	}
	v, err := h.chat.GetConversation(caller, convID)
	if err != nil {
		router.WriteError(ctx, err)
		return
	}
	_ = router.WriteJSON(ctx, ConversationResponse{Conversation: v})
}

func (h *Handlers) ListMembers(ctx *fasthttp.RequestCtx) {
	caller, tr := begin(ctx, "list_members")
	defer tr.Finish()

	convID, valid := pathParamOrFail(ctx, "conversationId")
	if !valid {
		return
	}
	members, err := h.chat.ListMembers(caller, convID)
	if err != nil {
		router.WriteError(ctx, err)
		return
	}
	_ = router.WriteJSON(ctx, MembersResponse{Members: members})
}
