package conversations

import (
	"github.com/pkg/errors"

	"parley/pkg/errs"
	"parley/pkg/models"
	"parley/pkg/state/logger"
	storedb "parley/pkg/store/db/storedb"
	"parley/pkg/store/keys"
	"parley/pkg/telemetry"
	"parley/pkg/timeutil"
)

// CreateOrGetDirect returns the single direct conversation between callerID
// and otherID, creating it if absent. created reports whether it was new.
//
// The whole lookup and insert runs under the lock of the sorted pair index
// key, so concurrent callers for the same pair converge on one conversation.
func (s *Store) CreateOrGetDirect(callerID, otherID string) (convID string, created bool, err error) {
	tr := telemetry.Track("conversations.create_or_get_direct")
	defer tr.Finish()

	const op = "conversations.create_or_get_direct"
	if err := keys.ValidateID(callerID); err != nil {
		return "", false, errs.Invalid(op, "invalid caller id")
	}
	if err := keys.ValidateID(otherID); err != nil {
		return "", false, errs.Invalid(op, "invalid user id")
	}
	if callerID == otherID {
		return "", false, errs.Denied(op, "cannot start a direct conversation with yourself")
	}

	ik := keys.GenDirectIndexKey(callerID, otherID)
	unlock := s.locks.Lock(ik)
	defer unlock()

	tr.Mark("index")
	v, err := s.db.GetKey(ik)
	switch {
	case err == nil:
		id := string(v)
		if ok, err := s.Exists(id); err != nil {
			return "", false, errors.Wrap(err, "check indexed conversation")
		} else if ok {
			return id, false, nil
		}
		logger.Warn("direct_index_dangling", "index", ik, "conversation", id)
	case !storedb.IsNotFound(err):
		return "", false, errors.Wrap(err, "read direct index")
	}

	// conversations written before the index existed are found by scanning
	tr.Mark("scan")
	id, found, err := s.scanDirect(callerID, otherID)
	if err != nil {
		return "", false, err
	}
	if found {
		if err := s.db.SaveKey(ik, []byte(id)); err != nil {
			return "", false, errors.Wrap(err, "repair direct index")
		}
		logger.Info("direct_index_repaired", "conversation", id)
		return id, false, nil
	}

	tr.Mark("create")
	now := timeutil.NowMillis()
	c := models.Conversation{ID: keys.GenID(), IsGroup: false, CreatedAt: now}
	b := s.db.NewBatch()
	if err := writeConversation(b, c, []string{callerID, otherID}, now); err != nil {
		_ = b.Close()
		return "", false, err
	}
	if err := b.Set([]byte(ik), []byte(c.ID), nil); err != nil {
		_ = b.Close()
		return "", false, errors.Wrap(err, "stage direct index")
	}
	if err := s.db.Commit(b); err != nil {
		return "", false, errors.Wrapf(err, "create direct %s", c.ID)
	}
	logger.Info("conversation_created", "conversation", c.ID, "type", "direct")
	return c.ID, true, nil
}

// scanDirect looks for a non-group conversation of callerID whose two
// members are callerID and otherID.
func (s *Store) scanDirect(callerID, otherID string) (string, bool, error) {
	ids, err := s.ListForUser(callerID)
	if err != nil {
		return "", false, err
	}
	for _, id := range ids {
		c, err := s.Get(id)
		if err != nil {
			if errs.Is(err, errs.NotFound) {
				continue
			}
			return "", false, err
		}
		if c.IsGroup {
			continue
		}
		members, err := s.MemberIDs(id)
		if err != nil {
			return "", false, err
		}
		if len(members) != 2 {
			continue
		}
		if members[0] == otherID || members[1] == otherID {
			return id, true, nil
		}
	}
	return "", false, nil
}
