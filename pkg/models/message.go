package models

type MessageType string

const (
	MessageText  MessageType = "text"
	MessageImage MessageType = "image"
	MessageFile  MessageType = "file"
)

// Tombstone replaces the content of deleted messages.
const Tombstone = "This message was deleted"

func (t MessageType) IsFile() bool {
	return t == MessageImage || t == MessageFile
}

func (t MessageType) Valid() bool {
	return t == MessageText || t.IsFile()
}

type Message struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversation_id"`
	SenderID       string      `json:"sender_id"`
	Type           MessageType `json:"type"`
	Content        string      `json:"content,omitempty"`
	FileRef        string      `json:"file_ref,omitempty"`
	FileName       string      `json:"file_name,omitempty"`
	Deleted        bool        `json:"deleted"`
	// Reactions maps emoji -> reacting user ids; stored as one row per reaction
	Reactions map[string][]string `json:"reactions"`
	// SeenBy is stored as one row per user
	SeenBy    []string `json:"seen_by"`
	CreatedAt int64    `json:"created_at"`
}
