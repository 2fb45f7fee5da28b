package models

// User is the profile of a chat participant. ExternalID is the subject
// assigned by the identity provider; ID is the internal id used everywhere else.
type User struct {
	ID         string `json:"id"`
	ExternalID string `json:"external_id"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	AvatarURL  string `json:"avatar_url,omitempty"`
	// LastSeen is refreshed on sync and heartbeat (unix ms)
	LastSeen int64 `json:"last_seen"`
}
