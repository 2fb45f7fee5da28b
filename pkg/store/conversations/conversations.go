package conversations

import (
	"encoding/json"
	"strings"

	"github.com/cockroachdb/pebble"
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

// Store persists conversations, membership edges and the direct index.
type Store struct {
	db    *storedb.Store
	locks *locks.Table
}

func New(db *storedb.Store, lt *locks.Table) *Store {
	return &Store{db: db, locks: lt}
}

func (s *Store) Get(convID string) (models.Conversation, error) {
	if keys.ValidateID(convID) != nil {
		return models.Conversation{}, errs.Missing("conversations.get", "conversation not found")
	}
	v, err := s.db.GetKey(keys.GenConversationKey(convID))
	if err != nil {
		if storedb.IsNotFound(err) {
			return models.Conversation{}, errs.Missing("conversations.get", "conversation not found")
		}
		return models.Conversation{}, errors.Wrapf(err, "get conversation %s", convID)
	}
	var c models.Conversation
	if err := json.Unmarshal(v, &c); err != nil {
		return models.Conversation{}, errors.Wrapf(err, "decode conversation %s", convID)
	}
	return c, nil
}

func (s *Store) Exists(convID string) (bool, error) {
	if keys.ValidateID(convID) != nil {
		return false, nil
	}
	return s.db.Has(keys.GenConversationKey(convID))
}

// Members returns the membership rows of a conversation ordered by user id.
func (s *Store) Members(convID string) ([]models.ConversationMember, error) {
	out := []models.ConversationMember{}
	if keys.ValidateID(convID) != nil {
		return out, nil
	}
	err := s.db.ScanPrefix(keys.GenMemberPrefix(convID), func(k, v []byte) error {
		var m models.ConversationMember
		if err := json.Unmarshal(v, &m); err != nil {
			logger.Warn("member_decode_failed", "key", string(k), "error", err)
			return nil
		}
		out = append(out, m)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "scan members of %s", convID)
	}
	return out, nil
}

func (s *Store) MemberIDs(convID string) ([]string, error) {
	members, err := s.Members(convID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	return ids, nil
}

func (s *Store) IsMember(convID, userID string) (bool, error) {
	if keys.ValidateID(convID) != nil || keys.ValidateID(userID) != nil {
		return false, nil
	}
	return s.db.Has(keys.GenMemberKey(convID, userID))
}

// ListForUser returns the ids of every conversation userID belongs to.
func (s *Store) ListForUser(userID string) ([]string, error) {
	ids := []string{}
	if keys.ValidateID(userID) != nil {
		return ids, nil
	}
	err := s.db.ScanPrefix(keys.GenRelUserPrefix(userID), func(k, _ []byte) error {
		ids = append(ids, keys.TailSegment(string(k)))
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "scan conversations of %s", userID)
	}
	return ids, nil
}

// MarkRead sets lastReadAt on the member row; no-op for non-members.
func (s *Store) MarkRead(convID, userID string, at int64) error {
	if keys.ValidateID(convID) != nil || keys.ValidateID(userID) != nil {
		return nil
	}
	mk := keys.GenMemberKey(convID, userID)
	unlock := s.locks.Lock(mk)
	defer unlock()

	v, err := s.db.GetKey(mk)
	if err != nil {
		if storedb.IsNotFound(err) {
			return nil
		}
		return errors.Wrapf(err, "read member %s/%s", convID, userID)
	}
	var m models.ConversationMember
	if err := json.Unmarshal(v, &m); err != nil {
		return errors.Wrap(err, "decode member")
	}
	if at <= m.LastReadAt {
		return nil
	}
	m.LastReadAt = at
	data, err := json.Marshal(m)
	if err != nil {
		return errors.Wrap(err, "marshal member")
	}
	return errors.Wrap(s.db.SaveKey(mk, data), "save member")
}

func putJSON(b *pebble.Batch, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Set([]byte(key), data, nil)
}

// writeConversation stages a conversation, its members and their relations.
func writeConversation(b *pebble.Batch, c models.Conversation, memberIDs []string, now int64) error {
	if err := putJSON(b, keys.GenConversationKey(c.ID), c); err != nil {
		return errors.Wrap(err, "stage conversation")
	}
	for _, uid := range memberIDs {
		m := models.ConversationMember{ConversationID: c.ID, UserID: uid, LastReadAt: now}
		if err := putJSON(b, keys.GenMemberKey(c.ID, uid), m); err != nil {
			return errors.Wrap(err, "stage member")
		}
		if err := b.Set([]byte(keys.GenRelUserInConversation(uid, c.ID)), nil, nil); err != nil {
			return errors.Wrap(err, "stage relation")
		}
	}
	return nil
}

func normalizeName(name string) string {
	return strings.TrimSpace(name)
}

// CreateGroup creates a group holding caller plus the deduplicated memberIDs.
func (s *Store) CreateGroup(callerID, name string, memberIDs []string) (string, error) {
	tr := telemetry.Track("conversations.create_group")
	defer tr.Finish()

	const op = "conversations.create_group"
	name = normalizeName(name)
	if name == "" {
		return "", errs.Invalid(op, "group name required")
	}
	if err := keys.ValidateID(callerID); err != nil {
		return "", errs.Invalid(op, "invalid caller id")
	}

	ids := []string{callerID}
	seen := map[string]struct{}{callerID: {}}
	for _, id := range memberIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		if err := keys.ValidateID(id); err != nil {
			return "", errs.Invalid(op, "invalid member id")
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	now := timeutil.NowMillis()
	c := models.Conversation{ID: keys.GenID(), IsGroup: true, Name: name, CreatedAt: now}

	tr.Mark("write")
	b := s.db.NewBatch()
	if err := writeConversation(b, c, ids, now); err != nil {
		_ = b.Close()
		return "", err
	}
	if err := s.db.Commit(b); err != nil {
		return "", errors.Wrapf(err, "create group %s", c.ID)
	}
	logger.Info("conversation_created", "conversation", c.ID, "type", "group", "members", len(ids))
	return c.ID, nil
}

// Count returns the number of stored conversations.
func (s *Store) Count() (int, error) {
	n := 0
	err := s.db.ScanPrefix(keys.AllConversationsPrefix, func(k, _ []byte) error {
		// member and message rows share the conv: root
		if strings.Count(string(k), ":") == 1 {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "count conversations")
	}
	return n, nil
}
