package chat

import (
	"sort"

	"parley/pkg/errs"
	"parley/pkg/models"
	"parley/pkg/state/logger"
	"parley/pkg/telemetry"
)

// requireUsers fails with NotFound unless every id resolves to a user.
func (s *Service) requireUsers(op string, ids ...string) error {
	for _, id := range ids {
		ok, err := s.users.Exists(id)
		if err != nil {
			return errs.Wrap(op, err)
		}
		if !ok {
			return errs.Missing(op, "user not found")
		}
	}
	return nil
}

// CreateOrGetDirect returns the direct conversation between the caller and
// otherUserID, creating it on first use.
func (s *Service) CreateOrGetDirect(callerID, otherUserID string) (string, error) {
	const op = "chat.create_or_get_direct"
	if callerID == "" {
		return "", errs.Unauth(op)
	}
	if callerID == otherUserID {
		return "", errs.Denied(op, "cannot start a direct conversation with yourself")
	}
	if err := s.requireUsers(op, otherUserID); err != nil {
		return "", err
	}
	id, created, err := s.convs.CreateOrGetDirect(callerID, otherUserID)
	if err != nil {
		return "", errs.Wrap(op, err)
	}
	if created {
		conversationsCreated.WithLabelValues("direct").Inc()
	}
	return id, nil
}

func (s *Service) CreateGroup(callerID, name string, memberIDs []string) (string, error) {
	const op = "chat.create_group"
	if callerID == "" {
		return "", errs.Unauth(op)
	}
	if err := s.requireUsers(op, memberIDs...); err != nil {
		return "", err
	}
	id, err := s.convs.CreateGroup(callerID, name, memberIDs)
	if err != nil {
		return "", errs.Wrap(op, err)
	}
	conversationsCreated.WithLabelValues("group").Inc()
	return id, nil
}

// view joins a conversation with its member ids and latest message.
func (s *Service) view(c models.Conversation) (models.ConversationView, error) {
	members, err := s.convs.MemberIDs(c.ID)
	if err != nil {
		return models.ConversationView{}, err
	}
	last, err := s.messages.Latest(c.ID)
	if err != nil {
		return models.ConversationView{}, err
	}
	return models.ConversationView{Conversation: c, Members: members, LastMessage: last}, nil
}

// GetConversation returns nil when the caller is unresolved or the id does not resolve.
// Membership is not checked.
func (s *Service) GetConversation(callerID, convID string) (*models.ConversationView, error) {
	const op = "chat.get_conversation"
	if callerID == "" {
		return nil, nil
	}
	c, err := s.convs.Get(convID)
	if err != nil {
		if errs.Is(err, errs.NotFound) {
			return nil, nil
		}
		return nil, errs.Wrap(op, err)
	}
	v, err := s.view(c)
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	return &v, nil
}

// ListMyConversations returns the caller's conversations, most recent activity first.
func (s *Service) ListMyConversations(callerID string) ([]models.ConversationView, error) {
	const op = "chat.list_my_conversations"
	tr := telemetry.Track(op)
	defer tr.Finish()

	out := []models.ConversationView{}
	if callerID == "" {
		return out, nil
	}
	ids, err := s.convs.ListForUser(callerID)
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	tr.Mark("relations")
	for _, id := range ids {
		c, err := s.convs.Get(id)
		if err != nil {
			if errs.Is(err, errs.NotFound) {
				logger.Warn("conversation_relation_dangling", "user", callerID, "conversation", id)
				continue
			}
			return nil, errs.Wrap(op, err)
		}
		v, err := s.view(c)
		if err != nil {
			return nil, errs.Wrap(op, err)
		}
		out = append(out, v)
	}
	tr.Mark("views")
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastActivity() > out[j].LastActivity()
	})
	return out, nil
}

// ListMembers returns the membership rows of a conversation.
func (s *Service) ListMembers(callerID, convID string) ([]models.ConversationMember, error) {
	const op = "chat.list_members"
	if callerID == "" {
		return []models.ConversationMember{}, nil
	}
	members, err := s.convs.Members(convID)
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	return members, nil
}
