package messages

import (
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"

	"parley/pkg/errs"
	"parley/pkg/models"
	"parley/pkg/state/logger"
	"parley/pkg/store/keys"
	"parley/pkg/telemetry"
	"parley/pkg/timeutil"
)

// MaxEmojiLength bounds a reaction key, in runes.
const MaxEmojiLength = 16

// reaction and seen rows hold the unix ms they were written so that
// assembled lists keep arrival order.
func stamp(ms int64) []byte {
	return []byte(strconv.FormatInt(ms, 10))
}

func parseStamp(v []byte) int64 {
	ms, _ := strconv.ParseInt(string(v), 10, 64)
	return ms
}

type stamped struct {
	id string
	at int64
}

func ordered(rows []stamped) []string {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].at < rows[j].at })
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.id
	}
	return out
}

// ToggleReaction adds callerID to the reactors of emoji, or removes it if
// already present. It reports whether the reaction now exists.
func (s *Store) ToggleReaction(callerID, msgID, emoji string) (bool, error) {
	const op = "messages.toggle_reaction"
	tr := telemetry.Track(op)
	defer tr.Finish()

	if strings.TrimSpace(emoji) == "" || utf8.RuneCountInString(emoji) > MaxEmojiLength {
		return false, errs.Invalid(op, "invalid emoji")
	}
	if err := keys.ValidateID(callerID); err != nil {
		return false, errs.Invalid(op, "invalid caller id")
	}
	if _, err := s.readRecord(msgID); err != nil {
		return false, err
	}

	rk := keys.GenReactionKey(msgID, emoji, callerID)
	unlock := s.locks.Lock(rk)
	defer unlock()

	present, err := s.db.Has(rk)
	if err != nil {
		return false, errors.Wrap(err, "read reaction")
	}
	if present {
		if err := s.db.DeleteKey(rk); err != nil {
			return false, errors.Wrap(err, "remove reaction")
		}
		logger.Info("reaction_removed", "message", msgID, "user", callerID)
		return false, nil
	}
	if err := s.db.SaveKey(rk, stamp(timeutil.NowMillis())); err != nil {
		return false, errors.Wrap(err, "add reaction")
	}
	logger.Info("reaction_added", "message", msgID, "user", callerID)
	return true, nil
}

// MarkSeen adds callerID to the seen-by set of every message in the
// conversation and returns how many messages changed.
func (s *Store) MarkSeen(callerID, convID string) (int, error) {
	tr := telemetry.Track("messages.mark_seen")
	defer tr.Finish()

	if keys.ValidateID(callerID) != nil || keys.ValidateID(convID) != nil {
		return 0, nil
	}
	ids, err := s.messageIDs(convID)
	if err != nil {
		return 0, err
	}
	tr.Mark("scan")

	now := stamp(timeutil.NowMillis())
	b := s.db.NewBatch()
	added := 0
	for _, id := range ids {
		sk := keys.GenSeenKey(id, callerID)
		ok, err := s.db.Has(sk)
		if err != nil {
			_ = b.Close()
			return 0, errors.Wrap(err, "read seen row")
		}
		if ok {
			continue
		}
		_ = b.Set([]byte(sk), now, nil)
		added++
	}
	if added == 0 {
		_ = b.Close()
		return 0, nil
	}
	tr.Mark("write")
	if err := s.db.Commit(b); err != nil {
		return 0, errors.Wrap(err, "save seen rows")
	}
	logger.Debug("messages_seen", "conversation", convID, "user", callerID, "count", added)
	return added, nil
}

func (s *Store) assemble(r record) (models.Message, error) {
	m := r.message()

	byEmoji := map[string][]stamped{}
	err := s.db.ScanPrefix(keys.GenReactionPrefix(r.ID), func(k, v []byte) error {
		_, emoji, uid, err := keys.ParseReactionKey(string(k))
		if err != nil {
			logger.Warn("reaction_key_invalid", "key", string(k), "error", err)
			return nil
		}
		byEmoji[emoji] = append(byEmoji[emoji], stamped{id: uid, at: parseStamp(v)})
		return nil
	})
	if err != nil {
		return models.Message{}, errors.Wrapf(err, "scan reactions of %s", r.ID)
	}
	for emoji, rows := range byEmoji {
		m.Reactions[emoji] = ordered(rows)
	}

	var seen []stamped
	err = s.db.ScanPrefix(keys.GenSeenPrefix(r.ID), func(k, v []byte) error {
		seen = append(seen, stamped{id: keys.TailSegment(string(k)), at: parseStamp(v)})
		return nil
	})
	if err != nil {
		return models.Message{}, errors.Wrapf(err, "scan seen rows of %s", r.ID)
	}
	m.SeenBy = ordered(seen)
	return m, nil
}
