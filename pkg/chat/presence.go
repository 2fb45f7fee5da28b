package chat

import (
	"parley/pkg/errs"
	"parley/pkg/models"
	"parley/pkg/state/logger"
)

func (s *Service) SetTyping(callerID, convID string, isTyping bool) error {
	if callerID == "" {
		return nil
	}
	return errs.Wrap("chat.set_typing", s.typing.SetTyping(convID, callerID, isTyping))
}

// ListTyping returns the users currently typing in a conversation, minus the caller.
func (s *Service) ListTyping(callerID, convID string) ([]models.TypingUser, error) {
	const op = "chat.list_typing"
	out := []models.TypingUser{}
	if callerID == "" {
		return out, nil
	}
	ids, err := s.typing.ListTyping(convID, callerID)
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	for _, id := range ids {
		u, err := s.users.Get(id)
		if err != nil {
			if errs.Is(err, errs.NotFound) {
				logger.Debug("typing_user_unknown", "user", id)
				continue
			}
			return nil, errs.Wrap(op, err)
		}
		out = append(out, models.TypingUser{UserID: u.ID, Name: u.Name})
	}
	return out, nil
}

func (s *Service) ListUnreads(callerID string) ([]models.UnreadCounter, error) {
	if callerID == "" {
		return []models.UnreadCounter{}, nil
	}
	rows, err := s.unreads.ListForUser(callerID)
	if err != nil {
		return nil, errs.Wrap("chat.list_unreads", err)
	}
	return rows, nil
}

func (s *Service) ClearUnread(callerID, convID string) error {
	if callerID == "" {
		return nil
	}
	return errs.Wrap("chat.clear_unread", s.unreads.Clear(convID, callerID))
}
