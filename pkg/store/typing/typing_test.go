package typing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parley/pkg/store/keys"
	"parley/pkg/store/storetest"
	"parley/pkg/timeutil"
)

func TestTypingExpiresWithoutStop(t *testing.T) {
	db := storetest.Open(t)
	s := New(db)
	fake := timeutil.NewFake(time.UnixMilli(10_000))
	defer timeutil.SetClock(fake.Now)()

	require.NoError(t, s.SetTyping("c1", "alice", true))
	got, err := s.ListTyping("c1", "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, got)

	got, err = s.ListTyping("c1", "alice")
	require.NoError(t, err)
	assert.Empty(t, got)

	fake.Advance(2999 * time.Millisecond)
	got, _ = s.ListTyping("c1", "bob")
	assert.Equal(t, []string{"alice"}, got)

	fake.Advance(time.Millisecond)
	got, _ = s.ListTyping("c1", "bob")
	assert.Empty(t, got)

	// stale rows stay until stopped or refreshed
	ok, err := db.Has(keys.GenTypingKey("c1", "alice"))
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.SetTyping("c1", "alice", true))
	got, _ = s.ListTyping("c1", "bob")
	assert.Equal(t, []string{"alice"}, got)
}

func TestExplicitStopRemovesRow(t *testing.T) {
	db := storetest.Open(t)
	s := New(db)

	require.NoError(t, s.SetTyping("c1", "alice", true))
	require.NoError(t, s.SetTyping("c1", "carol", true))
	require.NoError(t, s.SetTyping("c1", "alice", false))
	require.NoError(t, s.SetTyping("c1", "nobody", false))

	got, err := s.ListTyping("c1", "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"carol"}, got)

	ok, err := db.Has(keys.GenTypingKey("c1", "alice"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLive(t *testing.T) {
	assert.True(t, Live(1000, 1000))
	assert.True(t, Live(1000, 3999))
	assert.False(t, Live(1000, 4000))
}
