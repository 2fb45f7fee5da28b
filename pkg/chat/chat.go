// Package chat is the caller-facing surface of the messaging engine. Every
// operation takes the resolved caller id; an empty id means the caller could
// not be resolved. Reads then degrade to empty results while writes fail,
// except the fire-and-forget writes (markSeen, setTyping, clearUnread,
// heartbeat) which become no-ops.
package chat

import (
	storedb "parley/pkg/store/db/storedb"
	"parley/pkg/store/conversations"
	"parley/pkg/store/locks"
	"parley/pkg/store/messages"
	"parley/pkg/store/typing"
	"parley/pkg/store/unreads"
	"parley/pkg/store/users"
)

type Service struct {
	users    *users.Store
	convs    *conversations.Store
	messages *messages.Store
	unreads  *unreads.Store
	typing   *typing.Store
}

// New wires every store over one database and lock table.
func New(db *storedb.Store) *Service {
	lt := locks.NewTable()
	c := conversations.New(db, lt)
	u := unreads.New(db, lt)
	return &Service{
		users:    users.New(db, lt),
		convs:    c,
		messages: messages.New(db, lt, c, u),
		unreads:  u,
		typing:   typing.New(db),
	}
}

// Stats is the admin summary of stored entities.
type Stats struct {
	Users         int `json:"users"`
	Conversations int `json:"conversations"`
	Messages      int `json:"messages"`
}

func (s *Service) Stats() (Stats, error) {
	var st Stats
	var err error
	if st.Users, err = s.users.Count(); err != nil {
		return Stats{}, err
	}
	if st.Conversations, err = s.convs.Count(); err != nil {
		return Stats{}, err
	}
	if st.Messages, err = s.messages.Count(); err != nil {
		return Stats{}, err
	}
	return st, nil
}
