package messages

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parley/pkg/errs"
	"parley/pkg/models"
	"parley/pkg/store/conversations"
	"parley/pkg/store/locks"
	"parley/pkg/store/storetest"
	"parley/pkg/store/unreads"
	"parley/pkg/timeutil"
)

type fixture struct {
	convs   *conversations.Store
	unreads *unreads.Store
	msgs    *Store
}

func newFixture(t *testing.T) fixture {
	db := storetest.Open(t)
	lt := locks.NewTable()
	c := conversations.New(db, lt)
	u := unreads.New(db, lt)
	return fixture{convs: c, unreads: u, msgs: New(db, lt, c, u)}
}

func unreadOf(t *testing.T, f fixture, userID, convID string) int64 {
	t.Helper()
	rows, err := f.unreads.ListForUser(userID)
	require.NoError(t, err)
	for _, r := range rows {
		if r.ConversationID == convID {
			return r.Count
		}
	}
	return -1
}

func TestSendFansOutUnreads(t *testing.T) {
	f := newFixture(t)
	gid, err := f.convs.CreateGroup("s", "g", []string{"x", "y"})
	require.NoError(t, err)

	m, err := f.msgs.Send("s", gid, "hello")
	require.NoError(t, err)
	assert.Equal(t, models.MessageText, m.Type)
	assert.Equal(t, []string{"s"}, m.SeenBy)
	assert.False(t, m.Deleted)

	assert.Equal(t, int64(1), unreadOf(t, f, "x", gid))
	assert.Equal(t, int64(1), unreadOf(t, f, "y", gid))
	assert.Equal(t, int64(-1), unreadOf(t, f, "s", gid))

	_, err = f.msgs.SendFile("x", gid, "blob-1", "cat.png", models.MessageImage)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unreadOf(t, f, "y", gid))
	assert.Equal(t, int64(1), unreadOf(t, f, "s", gid))
}

func TestSendValidation(t *testing.T) {
	f := newFixture(t)
	id, _, err := f.convs.CreateOrGetDirect("a", "b")
	require.NoError(t, err)

	_, err = f.msgs.Send("a", "missing", "hi")
	assert.True(t, errs.Is(err, errs.NotFound))
	_, err = f.msgs.Send("a", id, "   ")
	assert.True(t, errs.Is(err, errs.InvalidArgument))
	_, err = f.msgs.SendFile("a", id, "ref", "n", models.MessageText)
	assert.True(t, errs.Is(err, errs.InvalidArgument))
	_, err = f.msgs.SendFile("a", id, "", "n", models.MessageFile)
	assert.True(t, errs.Is(err, errs.InvalidArgument))
	_, err = f.msgs.SendFile("a", id, "ref", "", models.MessageFile)
	assert.True(t, errs.Is(err, errs.InvalidArgument))
}

func TestListIsAscendingAndLatest(t *testing.T) {
	f := newFixture(t)
	fake := timeutil.NewFake(time.UnixMilli(1_000))
	defer timeutil.SetClock(fake.Now)()

	id, _, err := f.convs.CreateOrGetDirect("a", "b")
	require.NoError(t, err)

	latest, err := f.msgs.Latest(id)
	require.NoError(t, err)
	assert.Nil(t, latest)

	first, err := f.msgs.Send("a", id, "one")
	require.NoError(t, err)
	// same millisecond keeps send order
	second, err := f.msgs.Send("b", id, "two")
	require.NoError(t, err)
	fake.Advance(time.Millisecond)
	third, err := f.msgs.SendFile("a", id, "ref", "doc.pdf", models.MessageFile)
	require.NoError(t, err)

	list, err := f.msgs.List(id)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{first.ID, second.ID, third.ID}, []string{list[0].ID, list[1].ID, list[2].ID})
	assert.Equal(t, "doc.pdf", list[2].FileName)
	assert.Empty(t, list[2].Content)

	latest, err = f.msgs.Latest(id)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, third.ID, latest.ID)

	n, err := f.msgs.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestDeleteTombstones(t *testing.T) {
	f := newFixture(t)
	id, _, err := f.convs.CreateOrGetDirect("a", "b")
	require.NoError(t, err)
	m, err := f.msgs.Send("a", id, "oops")
	require.NoError(t, err)
	_, err = f.msgs.ToggleReaction("b", m.ID, "👍")
	require.NoError(t, err)

	err = f.msgs.Delete("b", m.ID)
	assert.True(t, errs.Is(err, errs.Forbidden))

	require.NoError(t, f.msgs.Delete("a", m.ID))
	got, err := f.msgs.Get(m.ID)
	require.NoError(t, err)
	assert.True(t, got.Deleted)
	assert.Equal(t, models.Tombstone, got.Content)
	assert.Equal(t, []string{"b"}, got.Reactions["👍"])
	assert.Equal(t, []string{"a"}, got.SeenBy)

	require.NoError(t, f.msgs.Delete("a", m.ID))
	again, err := f.msgs.Get(m.ID)
	require.NoError(t, err)
	assert.Equal(t, got, again)

	err = f.msgs.Delete("a", "missing")
	assert.True(t, errs.Is(err, errs.NotFound))
}

func TestToggleReactionRoundTrip(t *testing.T) {
	f := newFixture(t)
	fake := timeutil.NewFake(time.UnixMilli(5_000))
	defer timeutil.SetClock(fake.Now)()

	id, err := f.convs.CreateGroup("a", "g", []string{"b", "c"})
	require.NoError(t, err)
	m, err := f.msgs.Send("a", id, "vote")
	require.NoError(t, err)

	added, err := f.msgs.ToggleReaction("c", m.ID, "👍")
	require.NoError(t, err)
	assert.True(t, added)
	fake.Advance(time.Millisecond)
	_, err = f.msgs.ToggleReaction("b", m.ID, "👍")
	require.NoError(t, err)

	before, err := f.msgs.Get(m.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b"}, before.Reactions["👍"])

	added, err = f.msgs.ToggleReaction("a", m.ID, "👍")
	require.NoError(t, err)
	assert.True(t, added)
	added, err = f.msgs.ToggleReaction("a", m.ID, "👍")
	require.NoError(t, err)
	assert.False(t, added)

	after, err := f.msgs.Get(m.ID)
	require.NoError(t, err)
	assert.Equal(t, before.Reactions, after.Reactions)

	_, err = f.msgs.ToggleReaction("a", "missing", "👍")
	assert.True(t, errs.Is(err, errs.NotFound))
	_, err = f.msgs.ToggleReaction("a", m.ID, " ")
	assert.True(t, errs.Is(err, errs.InvalidArgument))
}

func TestConcurrentReactionsOnSameEmoji(t *testing.T) {
	f := newFixture(t)
	id, err := f.convs.CreateGroup("a", "g", nil)
	require.NoError(t, err)
	m, err := f.msgs.Send("a", id, "party")
	require.NoError(t, err)

	users := []string{"u1", "u2", "u3", "u4", "u5", "u6", "u7", "u8"}
	var wg sync.WaitGroup
	for _, u := range users {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			_, err := f.msgs.ToggleReaction(u, m.ID, "🎉")
			assert.NoError(t, err)
		}(u)
	}
	wg.Wait()

	got, err := f.msgs.Get(m.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, users, got.Reactions["🎉"])
}

func TestMarkSeenIsIdempotent(t *testing.T) {
	f := newFixture(t)
	id, _, err := f.convs.CreateOrGetDirect("a", "b")
	require.NoError(t, err)
	_, err = f.msgs.Send("a", id, "hi")
	require.NoError(t, err)
	_, err = f.msgs.Send("a", id, "there")
	require.NoError(t, err)

	n, err := f.msgs.MarkSeen("b", id)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = f.msgs.MarkSeen("b", id)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	n, err = f.msgs.MarkSeen("a", id)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	list, err := f.msgs.List(id)
	require.NoError(t, err)
	for _, m := range list {
		assert.Equal(t, []string{"a", "b"}, m.SeenBy)
	}
}
