// Package messages persists messages and their reaction and seen-by rows.
package messages

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

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

// MaxContentLength bounds text messages, in runes.
const MaxContentLength = 8000

// Conversations is the part of the conversation store messages depend on.
type Conversations interface {
	Exists(convID string) (bool, error)
	MemberIDs(convID string) ([]string, error)
}

// Unreads receives the fan-out of every sent message.
type Unreads interface {
	Increment(convID, userID string) error
}

type Store struct {
	db      *storedb.Store
	locks   *locks.Table
	convs   Conversations
	unreads Unreads
}

func New(db *storedb.Store, lt *locks.Table, convs Conversations, unreads Unreads) *Store {
	return &Store{db: db, locks: lt, convs: convs, unreads: unreads}
}

// record is the stored form of a message. Reactions and seen-by live in
// their own rows.
type record struct {
	ID             string             `json:"id"`
	ConversationID string             `json:"conversation_id"`
	SenderID       string             `json:"sender_id"`
	Type           models.MessageType `json:"type"`
	Content        string             `json:"content,omitempty"`
	FileRef        string             `json:"file_ref,omitempty"`
	FileName       string             `json:"file_name,omitempty"`
	Deleted        bool               `json:"deleted"`
	CreatedAt      int64              `json:"created_at"`
	Seq            uint64             `json:"seq"`
}

func (r record) message() models.Message {
	return models.Message{
		ID:             r.ID,
		ConversationID: r.ConversationID,
		SenderID:       r.SenderID,
		Type:           r.Type,
		Content:        r.Content,
		FileRef:        r.FileRef,
		FileName:       r.FileName,
		Deleted:        r.Deleted,
		Reactions:      map[string][]string{},
		SeenBy:         []string{},
		CreatedAt:      r.CreatedAt,
	}
}

// Send stores a text message from callerID and bumps every other member's unread counter.
func (s *Store) Send(callerID, convID, content string) (models.Message, error) {
	const op = "messages.send"
	if strings.TrimSpace(content) == "" {
		return models.Message{}, errs.Invalid(op, "message content required")
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return models.Message{}, errs.Invalid(op, "message content too long")
	}
	return s.insert(op, record{
		ConversationID: convID,
		SenderID:       callerID,
		Type:           models.MessageText,
		Content:        content,
	})
}

// SendFile stores a file reference message. kind is image or file.
func (s *Store) SendFile(callerID, convID, fileRef, fileName string, kind models.MessageType) (models.Message, error) {
	const op = "messages.send_file"
	if !kind.IsFile() {
		return models.Message{}, errs.Invalid(op, "kind must be image or file")
	}
	if strings.TrimSpace(fileRef) == "" {
		return models.Message{}, errs.Invalid(op, "file reference required")
	}
	if strings.TrimSpace(fileName) == "" {
		return models.Message{}, errs.Invalid(op, "file name required")
	}
	return s.insert(op, record{
		ConversationID: convID,
		SenderID:       callerID,
		Type:           kind,
		FileRef:        fileRef,
		FileName:       fileName,
	})
}

func (s *Store) insert(op string, r record) (models.Message, error) {
	tr := telemetry.Track(op)
	defer tr.Finish()

	if err := keys.ValidateID(r.SenderID); err != nil {
		return models.Message{}, errs.Invalid(op, "invalid sender id")
	}
	if keys.ValidateID(r.ConversationID) != nil {
		return models.Message{}, errs.Missing(op, "conversation not found")
	}
	ok, err := s.convs.Exists(r.ConversationID)
	if err != nil {
		return models.Message{}, errors.Wrap(err, "check conversation")
	}
	if !ok {
		return models.Message{}, errs.Missing(op, "conversation not found")
	}

	r.ID = keys.GenID()
	r.CreatedAt = timeutil.NowMillis()
	r.Seq = keys.NextSeq()
	data, err := json.Marshal(r)
	if err != nil {
		return models.Message{}, errors.Wrap(err, "marshal message")
	}

	tr.Mark("write")
	b := s.db.NewBatch()
	_ = b.Set([]byte(keys.GenMessageKey(r.ID)), data, nil)
	_ = b.Set([]byte(keys.GenConversationMsgKey(r.ConversationID, r.CreatedAt, r.Seq, r.ID)), []byte(r.ID), nil)
	_ = b.Set([]byte(keys.GenSeenKey(r.ID, r.SenderID)), stamp(r.CreatedAt), nil)
	if err := s.db.Commit(b); err != nil {
		return models.Message{}, errors.Wrapf(err, "save message %s", r.ID)
	}
	logger.Info("message_sent", "message", r.ID, "conversation", r.ConversationID, "type", string(r.Type))

	tr.Mark("fanout")
	m := r.message()
	m.SeenBy = []string{r.SenderID}
	if err := s.fanOut(r.ConversationID, r.SenderID); err != nil {
		return m, err
	}
	return m, nil
}

func (s *Store) fanOut(convID, senderID string) error {
	members, err := s.convs.MemberIDs(convID)
	if err != nil {
		return errors.Wrap(err, "list members for unread fan-out")
	}
	var first error
	for _, uid := range members {
		if uid == senderID {
			continue
		}
		if err := s.unreads.Increment(convID, uid); err != nil {
			logger.Error("unread_fanout_failed", "conversation", convID, "user", uid, "error", err)
			if first == nil {
				first = errors.Wrapf(err, "increment unread for %s", uid)
			}
		}
	}
	return first
}

func (s *Store) readRecord(msgID string) (record, error) {
	if keys.ValidateID(msgID) != nil {
		return record{}, errs.Missing("messages.get", "message not found")
	}
	v, err := s.db.GetKey(keys.GenMessageKey(msgID))
	if err != nil {
		if storedb.IsNotFound(err) {
			return record{}, errs.Missing("messages.get", "message not found")
		}
		return record{}, errors.Wrapf(err, "get message %s", msgID)
	}
	var r record
	if err := json.Unmarshal(v, &r); err != nil {
		return record{}, errors.Wrapf(err, "decode message %s", msgID)
	}
	return r, nil
}

func (s *Store) Get(msgID string) (models.Message, error) {
	r, err := s.readRecord(msgID)
	if err != nil {
		return models.Message{}, err
	}
	return s.assemble(r)
}

// List returns the full history of a conversation, oldest first.
func (s *Store) List(convID string) ([]models.Message, error) {
	tr := telemetry.Track("messages.list")
	defer tr.Finish()

	out := []models.Message{}
	if keys.ValidateID(convID) != nil {
		return out, nil
	}
	ids, err := s.messageIDs(convID)
	if err != nil {
		return nil, err
	}
	tr.Mark("index")
	for _, id := range ids {
		m, err := s.Get(id)
		if err != nil {
			if errs.Is(err, errs.NotFound) {
				logger.Warn("message_index_dangling", "conversation", convID, "message", id)
				continue
			}
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *Store) messageIDs(convID string) ([]string, error) {
	ids := []string{}
	err := s.db.ScanPrefix(keys.GenConversationMsgPrefix(convID), func(_, v []byte) error {
		ids = append(ids, string(v))
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "scan messages of %s", convID)
	}
	return ids, nil
}

// Latest returns the most recent message of a conversation, or nil.
func (s *Store) Latest(convID string) (*models.Message, error) {
	if keys.ValidateID(convID) != nil {
		return nil, nil
	}
	_, v, ok, err := s.db.LastWithPrefix(keys.GenConversationMsgPrefix(convID))
	if err != nil {
		return nil, errors.Wrapf(err, "latest message of %s", convID)
	}
	if !ok {
		return nil, nil
	}
	m, err := s.Get(string(v))
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Delete tombstones a message. Only the sender may delete; deleting twice is a no-op.
func (s *Store) Delete(callerID, msgID string) error {
	const op = "messages.delete"
	tr := telemetry.Track(op)
	defer tr.Finish()

	mk := keys.GenMessageKey(msgID)
	unlock := s.locks.Lock(mk)
	defer unlock()

	r, err := s.readRecord(msgID)
	if err != nil {
		return err
	}
	if r.SenderID != callerID {
		return errs.Denied(op, "only the sender can delete a message")
	}
	if r.Deleted {
		return nil
	}
	r.Deleted = true
	r.Content = models.Tombstone
	data, err := json.Marshal(r)
	if err != nil {
		return errors.Wrap(err, "marshal message")
	}
	if err := s.db.SaveKey(mk, data); err != nil {
		return errors.Wrapf(err, "save message %s", msgID)
	}
	logger.Info("message_deleted", "message", msgID, "conversation", r.ConversationID)
	return nil
}

// Count returns the number of stored messages.
func (s *Store) Count() (int, error) {
	return s.db.CountPrefix(keys.AllMessagesPrefix)
}
