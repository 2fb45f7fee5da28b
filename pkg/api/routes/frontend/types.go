package frontend

import "parley/pkg/models"

type DirectRequest struct {
	OtherUserID string `json:"otherUserId"`
}

type GroupRequest struct {
	Name      string   `json:"name"`
	MemberIDs []string `json:"memberIds"`
}

type ConversationCreatedResponse struct {
	ConversationID string `json:"conversation_id"`
}

type ConversationsListResponse struct {
	Conversations []models.ConversationView `json:"conversations"`
}

type ConversationResponse struct {
	Conversation *models.ConversationView `json:"conversation"`
}

type MembersResponse struct {
	Members []models.ConversationMember `json:"members"`
}

type SendRequest struct {
	Content string `json:"content"`
}

type SendFileRequest struct {
	FileRef  string             `json:"fileRef"`
	FileName string             `json:"fileName"`
	Kind     models.MessageType `json:"kind"`
}

type MessageCreatedResponse struct {
	MessageID string `json:"message_id"`
}

type MessagesListResponse struct {
	Messages []models.Message `json:"messages"`
}

type TypingRequest struct {
	IsTyping bool `json:"isTyping"`
}

type TypingResponse struct {
	Typing []models.TypingUser `json:"typing"`
}

type UnreadsResponse struct {
	Unreads []models.UnreadCounter `json:"unreads"`
}

type ReactionRequest struct {
	Emoji string `json:"emoji"`
}

type ReactionResponse struct {
	Reacted bool `json:"reacted"`
}

type UsersListResponse struct {
	Users []models.User `json:"users"`
}

type UserResponse struct {
	User *models.User `json:"user"`
}

type FileURLResponse struct {
	URL *string `json:"url"`
}
