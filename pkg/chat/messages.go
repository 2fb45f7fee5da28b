package chat

import (
	"parley/pkg/errs"
	"parley/pkg/models"
	"parley/pkg/state/logger"
	"parley/pkg/timeutil"
)

// Send posts a text message and returns its id.
func (s *Service) Send(callerID, convID, content string) (string, error) {
	const op = "chat.send"
	if callerID == "" {
		return "", errs.Unauth(op)
	}
	m, err := s.messages.Send(callerID, convID, content)
	return s.sent(op, m, err)
}

// SendFile posts an image or file message referencing an uploaded blob.
// It fans out unread counts exactly like Send.
func (s *Service) SendFile(callerID, convID, fileRef, fileName string, kind models.MessageType) (string, error) {
	const op = "chat.send_file"
	if callerID == "" {
		return "", errs.Unauth(op)
	}
	m, err := s.messages.SendFile(callerID, convID, fileRef, fileName, kind)
	return s.sent(op, m, err)
}

func (s *Service) sent(op string, m models.Message, err error) (string, error) {
	if err != nil && m.ID == "" {
		return "", errs.Wrap(op, err)
	}
	messagesSent.WithLabelValues(string(m.Type)).Inc()
	if err != nil {
		// the message is stored; a failed counter bump must not make the sender retry
		logger.Error("unread_fanout_incomplete", "message", m.ID, "error", err)
	}
	return m.ID, nil
}

// List returns the full history of a conversation, oldest first. Membership is not checked.
func (s *Service) List(convID string) ([]models.Message, error) {
	msgs, err := s.messages.List(convID)
	if err != nil {
		return nil, errs.Wrap("chat.list", err)
	}
	return msgs, nil
}

// Delete tombstones a message. Only its sender may delete it.
func (s *Service) Delete(callerID, msgID string) error {
	const op = "chat.delete"
	if callerID == "" {
		return errs.Unauth(op)
	}
	if err := s.messages.Delete(callerID, msgID); err != nil {
		return errs.Wrap(op, err)
	}
	messagesDeleted.Inc()
	return nil
}

// ToggleReaction flips the caller's emoji reaction on a message and reports
// whether it is now present.
func (s *Service) ToggleReaction(callerID, msgID, emoji string) (bool, error) {
	const op = "chat.toggle_reaction"
	if callerID == "" {
		return false, errs.Unauth(op)
	}
	on, err := s.messages.ToggleReaction(callerID, msgID, emoji)
	if err != nil {
		return false, errs.Wrap(op, err)
	}
	if on {
		reactionsToggled.WithLabelValues("added").Inc()
	} else {
		reactionsToggled.WithLabelValues("removed").Inc()
	}
	return on, nil
}

// MarkSeen adds the caller to the seen-by set of every message and moves
// their read mark forward.
func (s *Service) MarkSeen(callerID, convID string) error {
	const op = "chat.mark_seen"
	if callerID == "" {
		return nil
	}
	if _, err := s.messages.MarkSeen(callerID, convID); err != nil {
		return errs.Wrap(op, err)
	}
	if err := s.convs.MarkRead(convID, callerID, timeutil.NowMillis()); err != nil {
		return errs.Wrap(op, err)
	}
	return nil
}
