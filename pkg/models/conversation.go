package models

type Conversation struct {
	ID      string `json:"id"`
	IsGroup bool   `json:"is_group"`
	// Name is set only for groups
	Name      string `json:"name,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

type ConversationMember struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
	LastReadAt     int64  `json:"last_read_at"`
}

// ConversationView is a conversation with its member ids and latest message.
type ConversationView struct {
	Conversation
	Members     []string `json:"members"`
	LastMessage *Message `json:"last_message"`
}

// LastActivity is the sort key of the conversation list; zero when empty.
func (v ConversationView) LastActivity() int64 {
	if v.LastMessage == nil {
		return 0
	}
	return v.LastMessage.CreatedAt
}
