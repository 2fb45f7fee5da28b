package keys

import (
	"strings"
	"testing"
)

func TestDirectIndexKeyIsSymmetric(t *testing.T) {
	a := GenDirectIndexKey("alice", "bob")
	b := GenDirectIndexKey("bob", "alice")
	if a != b {
		t.Fatalf("direct index not symmetric: %s vs %s", a, b)
	}
	if a != "dm:alice:bob" {
		t.Fatalf("unexpected direct index key: %s", a)
	}
}

func TestConversationMsgKeyRoundTrip(t *testing.T) {
	cases := []struct {
		conv string
		ts   int64
		seq  uint64
		id   string
	}{
		{"c1", 0, 0, "m1"},
		{"3f1c", 1700000000000, 42, "0b7e-11"},
		{"x_y.z", 9999999999999, 9999999999, "id"},
	}
	for _, c := range cases {
		k := GenConversationMsgKey(c.conv, c.ts, c.seq, c.id)
		if !strings.HasPrefix(k, GenConversationMsgPrefix(c.conv)) {
			t.Fatalf("key %s outside conversation prefix", k)
		}
		conv, ts, seq, id, err := ParseConversationMsgKey(k)
		if err != nil {
			t.Fatalf("parse %s: %v", k, err)
		}
		if conv != c.conv || ts != c.ts || seq != c.seq || id != c.id {
			t.Fatalf("mismatch: got (%s,%d,%d,%s) want %+v", conv, ts, seq, id, c)
		}
	}
}

func TestConversationMsgKeysSortByTime(t *testing.T) {
	early := GenConversationMsgKey("c", 999, 7, "zzz")
	late := GenConversationMsgKey("c", 1000, 1, "aaa")
	if !(early < late) {
		t.Fatalf("expected %s < %s", early, late)
	}
	tieA := GenConversationMsgKey("c", 1000, 1, "zzz")
	tieB := GenConversationMsgKey("c", 1000, 2, "aaa")
	if !(tieA < tieB) {
		t.Fatalf("expected sequence to break ties: %s vs %s", tieA, tieB)
	}
}

func TestReactionKeyHandlesColonEmoji(t *testing.T) {
	k := GenReactionKey("m1", ":thumbsup:", "u1")
	msg, emoji, user, err := ParseReactionKey(k)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if msg != "m1" || emoji != ":thumbsup:" || user != "u1" {
		t.Fatalf("mismatch: %s %s %s", msg, emoji, user)
	}
	if _, _, _, err := ParseReactionKey("rx:m1:zz:u1"); err == nil {
		t.Fatalf("expected error for bad hex")
	}
}

func TestValidateID(t *testing.T) {
	for _, id := range []string{"", "a:b", "has space", strings.Repeat("x", MaxIDLength+1)} {
		if err := ValidateID(id); err == nil {
			t.Fatalf("expected error for %q", id)
		}
	}
	if err := ValidateID(GenID()); err != nil {
		t.Fatalf("generated id rejected: %v", err)
	}
	if err := ValidateExternalID("auth0|12345"); err != nil {
		t.Fatalf("external id rejected: %v", err)
	}
	if err := ValidateExternalID("a:b"); err == nil {
		t.Fatalf("expected error for separator in external id")
	}
}

func TestNextSeqIncreases(t *testing.T) {
	a, b := NextSeq(), NextSeq()
	if b <= a {
		t.Fatalf("sequence not increasing: %d then %d", a, b)
	}
	if TailSegment("unread:u1:c9") != "c9" {
		t.Fatalf("tail segment mismatch")
	}
}
