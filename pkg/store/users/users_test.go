package users

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parley/pkg/errs"
	"parley/pkg/store/locks"
	"parley/pkg/store/storetest"
	"parley/pkg/timeutil"
)

func newStore(t *testing.T) *Store {
	return New(storetest.Open(t), locks.NewTable())
}

func TestSyncUpsertsByExternalID(t *testing.T) {
	s := newStore(t)
	fake := timeutil.NewFake(time.UnixMilli(1000))
	defer timeutil.SetClock(fake.Now)()

	u1, err := s.Sync(SyncParams{ExternalID: "user_2abc", Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), u1.LastSeen)

	fake.Advance(time.Second)
	u2, err := s.Sync(SyncParams{ExternalID: "user_2abc", Name: "Ada L."})
	require.NoError(t, err)
	assert.Equal(t, u1.ID, u2.ID)
	assert.Equal(t, "Ada L.", u2.Name)
	assert.Equal(t, int64(2000), u2.LastSeen)

	got, err := s.GetByExternalID("user_2abc")
	require.NoError(t, err)
	assert.Equal(t, u2, got)

	all, err := s.List()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSyncValidates(t *testing.T) {
	s := newStore(t)
	_, err := s.Sync(SyncParams{ExternalID: "", Name: "x"})
	assert.True(t, errs.Is(err, errs.InvalidArgument))
	_, err = s.Sync(SyncParams{ExternalID: "ext", Name: "  "})
	assert.True(t, errs.Is(err, errs.InvalidArgument))
}

func TestGetMissing(t *testing.T) {
	s := newStore(t)
	_, err := s.Get("nope")
	assert.True(t, errs.Is(err, errs.NotFound))
	_, err = s.GetByExternalID("nope")
	assert.True(t, errs.Is(err, errs.NotFound))

	ok, err := s.Exists("nope")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = s.Exists("bad:id")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTouchRefreshesLastSeen(t *testing.T) {
	s := newStore(t)
	fake := timeutil.NewFake(time.UnixMilli(5000))
	defer timeutil.SetClock(fake.Now)()

	u, err := s.Sync(SyncParams{ExternalID: "ext-1", Name: "Bo"})
	require.NoError(t, err)

	fake.Advance(30 * time.Second)
	require.NoError(t, s.Touch(u.ID))
	got, err := s.Get(u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(35000), got.LastSeen)

	assert.True(t, errs.Is(s.Touch("missing"), errs.NotFound))
}
