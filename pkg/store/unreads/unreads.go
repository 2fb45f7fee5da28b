// Package unreads keeps one unread counter per (user, conversation).
package unreads

import (
	"encoding/json"

	"github.com/pkg/errors"

	"parley/pkg/models"
	"parley/pkg/state/logger"
	storedb "parley/pkg/store/db/storedb"
	"parley/pkg/store/keys"
	"parley/pkg/store/locks"
	"parley/pkg/telemetry"
)

type Store struct {
	db    *storedb.Store
	locks *locks.Table
}

func New(db *storedb.Store, lt *locks.Table) *Store {
	return &Store{db: db, locks: lt}
}

func (s *Store) read(key string) (models.UnreadCounter, bool, error) {
	v, err := s.db.GetKey(key)
	if err != nil {
		if storedb.IsNotFound(err) {
			return models.UnreadCounter{}, false, nil
		}
		return models.UnreadCounter{}, false, errors.Wrapf(err, "read %s", key)
	}
	var c models.UnreadCounter
	if err := json.Unmarshal(v, &c); err != nil {
		return models.UnreadCounter{}, false, errors.Wrapf(err, "decode %s", key)
	}
	return c, true, nil
}

func (s *Store) write(key string, c models.UnreadCounter) error {
	data, err := json.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal unread counter")
	}
	return errors.Wrapf(s.db.SaveKey(key, data), "save %s", key)
}

// Increment adds one to the counter, creating it at 1 when absent.
func (s *Store) Increment(convID, userID string) error {
	tr := telemetry.Track("unreads.increment")
	defer tr.Finish()

	if keys.ValidateID(convID) != nil || keys.ValidateID(userID) != nil {
		return nil
	}
	k := keys.GenUnreadKey(userID, convID)
	unlock := s.locks.Lock(k)
	defer unlock()

	c, found, err := s.read(k)
	if err != nil {
		return err
	}
	if !found {
		c = models.UnreadCounter{ConversationID: convID, UserID: userID}
	}
	c.Count++
	return s.write(k, c)
}

// Clear resets an existing counter to zero. The row is kept.
func (s *Store) Clear(convID, userID string) error {
	tr := telemetry.Track("unreads.clear")
	defer tr.Finish()

	if keys.ValidateID(convID) != nil || keys.ValidateID(userID) != nil {
		return nil
	}
	k := keys.GenUnreadKey(userID, convID)
	unlock := s.locks.Lock(k)
	defer unlock()

	c, found, err := s.read(k)
	if err != nil || !found || c.Count == 0 {
		return err
	}
	c.Count = 0
	return s.write(k, c)
}

func (s *Store) ListForUser(userID string) ([]models.UnreadCounter, error) {
	out := []models.UnreadCounter{}
	if keys.ValidateID(userID) != nil {
		return out, nil
	}
	err := s.db.ScanPrefix(keys.GenUnreadPrefix(userID), func(k, v []byte) error {
		var c models.UnreadCounter
		if err := json.Unmarshal(v, &c); err != nil {
			logger.Warn("unread_decode_failed", "key", string(k), "error", err)
			return nil
		}
		out = append(out, c)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "scan unreads of %s", userID)
	}
	return out, nil
}
