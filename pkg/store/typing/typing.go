// Package typing tracks who is typing in a conversation. Rows are never
// swept; liveness is decided at read time against the clock.
package typing

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"parley/pkg/models"
	"parley/pkg/state/logger"
	storedb "parley/pkg/store/db/storedb"
	"parley/pkg/store/keys"
	"parley/pkg/timeutil"
)

// Window is how long a typing signal stays live without a refresh.
const Window = 3000 * time.Millisecond

type Store struct {
	db *storedb.Store
}

func New(db *storedb.Store) *Store {
	return &Store{db: db}
}

// SetTyping refreshes the indicator when typing, and removes it otherwise.
func (s *Store) SetTyping(convID, userID string, isTyping bool) error {
	if keys.ValidateID(convID) != nil || keys.ValidateID(userID) != nil {
		return nil
	}
	k := keys.GenTypingKey(convID, userID)
	if !isTyping {
		return errors.Wrapf(s.db.DeleteKey(k), "clear typing %s", k)
	}
	data, err := json.Marshal(models.TypingIndicator{
		ConversationID: convID,
		UserID:         userID,
		LastTyping:     timeutil.NowMillis(),
	})
	if err != nil {
		return errors.Wrap(err, "marshal typing")
	}
	return errors.Wrapf(s.db.SaveKey(k, data), "save typing %s", k)
}

// ListTyping returns the ids of users with a live indicator, minus excludeUserID.
func (s *Store) ListTyping(convID, excludeUserID string) ([]string, error) {
	out := []string{}
	if keys.ValidateID(convID) != nil {
		return out, nil
	}
	now := timeutil.NowMillis()
	err := s.db.ScanPrefix(keys.GenTypingPrefix(convID), func(k, v []byte) error {
		var ti models.TypingIndicator
		if err := json.Unmarshal(v, &ti); err != nil {
			logger.Warn("typing_decode_failed", "key", string(k), "error", err)
			return nil
		}
		if ti.UserID == excludeUserID || !Live(ti.LastTyping, now) {
			return nil
		}
		out = append(out, ti.UserID)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "scan typing of %s", convID)
	}
	return out, nil
}

// Live reports whether a signal at lastTyping is still fresh at now (unix ms).
func Live(lastTyping, now int64) bool {
	return now-lastTyping < Window.Milliseconds()
}
