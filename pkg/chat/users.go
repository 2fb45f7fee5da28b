package chat

import (
	"parley/pkg/errs"
	"parley/pkg/models"
	"parley/pkg/store/users"
)

// SyncUser upserts a profile pushed by the identity provider.
func (s *Service) SyncUser(p users.SyncParams) (models.User, error) {
	u, err := s.users.Sync(p)
	if err != nil {
		return models.User{}, errs.Wrap("chat.sync_user", err)
	}
	return u, nil
}

// ResolveExternal maps a provider subject to an internal user id. An
// unknown subject resolves to "".
func (s *Service) ResolveExternal(externalID string) (string, error) {
	u, err := s.users.GetByExternalID(externalID)
	if err != nil {
		if errs.Is(err, errs.NotFound) {
			return "", nil
		}
		return "", errs.Wrap("chat.resolve_external", err)
	}
	return u.ID, nil
}

func (s *Service) CurrentUser(callerID string) (*models.User, error) {
	if callerID == "" {
		return nil, nil
	}
	u, err := s.users.Get(callerID)
	if err != nil {
		if errs.Is(err, errs.NotFound) {
			return nil, nil
		}
		return nil, errs.Wrap("chat.current_user", err)
	}
	return &u, nil
}

func (s *Service) ListUsers(callerID string) ([]models.User, error) {
	if callerID == "" {
		return []models.User{}, nil
	}
	list, err := s.users.List()
	if err != nil {
		return nil, errs.Wrap("chat.list_users", err)
	}
	return list, nil
}

// Heartbeat refreshes the caller's last-seen time.
func (s *Service) Heartbeat(callerID string) error {
	if callerID == "" {
		return nil
	}
	err := s.users.Touch(callerID)
	if errs.Is(err, errs.NotFound) {
		return nil
	}
	return errs.Wrap("chat.heartbeat", err)
}
