package models

type UnreadCounter struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
	Count          int64  `json:"count"`
}

type TypingIndicator struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
	LastTyping     int64  `json:"last_typing"`
}

type TypingUser struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

type Blob struct {
	Handle      string `json:"handle"`
	Name        string `json:"name"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size"`
	CreatedAt   int64  `json:"created_at"`
}
