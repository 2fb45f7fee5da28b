package users

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"parley/pkg/errs"
	"parley/pkg/models"
	"parley/pkg/state/logger"
	storedb "parley/pkg/store/db/storedb"
	"parley/pkg/store/keys"
	"parley/pkg/store/locks"
	"parley/pkg/telemetry"
	"parley/pkg/timeutil"
)

// Store keeps user profiles and the external identity index.
type Store struct {
	db    *storedb.Store
	locks *locks.Table
}

func New(db *storedb.Store, lt *locks.Table) *Store {
	return &Store{db: db, locks: lt}
}

// SyncParams is the profile pushed by the identity provider.
type SyncParams struct {
	ExternalID string `json:"external_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	AvatarURL  string `json:"avatar_url"`
}

// Sync upserts the user keyed by ExternalID and refreshes LastSeen.
func (s *Store) Sync(p SyncParams) (models.User, error) {
	tr := telemetry.Track("users.sync")
	defer tr.Finish()

	if err := keys.ValidateExternalID(p.ExternalID); err != nil {
		return models.User{}, errs.Invalid("users.sync", err.Error())
	}
	if strings.TrimSpace(p.Name) == "" {
		return models.User{}, errs.Invalid("users.sync", "name required")
	}

	xk := keys.GenUserExternalKey(p.ExternalID)
	unlock := s.locks.Lock(xk)
	defer unlock()

	tr.Mark("lookup")
	id, found, err := s.externalIndex(p.ExternalID)
	if err != nil {
		return models.User{}, err
	}
	if !found {
		id = keys.GenID()
	}
	// Touch writes the same record
	unlockUser := s.locks.Lock(keys.GenUserKey(id))
	defer unlockUser()

	u := models.User{ID: id, ExternalID: p.ExternalID}
	if found {
		existing, err := s.Get(id)
		switch {
		case err == nil:
			u = existing
		case errs.Is(err, errs.NotFound):
			found = false
		default:
			return models.User{}, err
		}
	}
	u.Name = p.Name
	u.Email = p.Email
	u.AvatarURL = p.AvatarURL
	u.LastSeen = timeutil.NowMillis()

	data, err := json.Marshal(u)
	if err != nil {
		return models.User{}, errors.Wrap(err, "marshal user")
	}
	tr.Mark("write")
	b := s.db.NewBatch()
	_ = b.Set([]byte(keys.GenUserKey(u.ID)), data, nil)
	_ = b.Set([]byte(xk), []byte(u.ID), nil)
	if err := s.db.Commit(b); err != nil {
		return models.User{}, errors.Wrapf(err, "save user %s", u.ID)
	}
	if found {
		logger.Info("user_updated", "user", u.ID)
	} else {
		logger.Info("user_created", "user", u.ID, "external_id", p.ExternalID)
	}
	return u, nil
}

func (s *Store) externalIndex(externalID string) (string, bool, error) {
	id, err := s.db.GetKey(keys.GenUserExternalKey(externalID))
	if err != nil {
		if storedb.IsNotFound(err) {
			return "", false, nil
		}
		return "", false, errors.Wrap(err, "read external index")
	}
	return string(id), true, nil
}

func (s *Store) lookupExternal(externalID string) (models.User, bool, error) {
	id, found, err := s.externalIndex(externalID)
	if err != nil || !found {
		return models.User{}, false, err
	}
	u, err := s.Get(id)
	if err != nil {
		if errs.Is(err, errs.NotFound) {
			return models.User{}, false, nil
		}
		return models.User{}, false, err
	}
	return u, true, nil
}

func (s *Store) Get(userID string) (models.User, error) {
	if err := keys.ValidateID(userID); err != nil {
		return models.User{}, errs.Missing("users.get", "user not found")
	}
	v, err := s.db.GetKey(keys.GenUserKey(userID))
	if err != nil {
		if storedb.IsNotFound(err) {
			return models.User{}, errs.Missing("users.get", "user not found")
		}
		return models.User{}, errors.Wrapf(err, "get user %s", userID)
	}
	var u models.User
	if err := json.Unmarshal(v, &u); err != nil {
		return models.User{}, errors.Wrapf(err, "decode user %s", userID)
	}
	return u, nil
}

// GetByExternalID resolves a provider subject to its user.
func (s *Store) GetByExternalID(externalID string) (models.User, error) {
	if err := keys.ValidateExternalID(externalID); err != nil {
		return models.User{}, errs.Missing("users.get_by_external_id", "user not found")
	}
	u, found, err := s.lookupExternal(externalID)
	if err != nil {
		return models.User{}, err
	}
	if !found {
		return models.User{}, errs.Missing("users.get_by_external_id", "user not found")
	}
	return u, nil
}

func (s *Store) Exists(userID string) (bool, error) {
	if keys.ValidateID(userID) != nil {
		return false, nil
	}
	return s.db.Has(keys.GenUserKey(userID))
}

func (s *Store) List() ([]models.User, error) {
	tr := telemetry.Track("users.list")
	defer tr.Finish()

	out := []models.User{}
	err := s.db.ScanPrefix(keys.AllUsersPrefix, func(k, v []byte) error {
		var u models.User
		if err := json.Unmarshal(v, &u); err != nil {
			logger.Warn("user_decode_failed", "key", string(k), "error", err)
			return nil
		}
		out = append(out, u)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "scan users")
	}
	return out, nil
}

// Touch refreshes LastSeen for a heartbeat.
func (s *Store) Touch(userID string) error {
	k := keys.GenUserKey(userID)
	unlock := s.locks.Lock(k)
	defer unlock()

	u, err := s.Get(userID)
	if err != nil {
		return err
	}
	u.LastSeen = timeutil.NowMillis()
	data, err := json.Marshal(u)
	if err != nil {
		return errors.Wrap(err, "marshal user")
	}
	if err := s.db.SaveKey(k, data); err != nil {
		return errors.Wrapf(err, "touch user %s", userID)
	}
	return nil
}

func (s *Store) Count() (int, error) {
	return s.db.CountPrefix(keys.AllUsersPrefix)
}
