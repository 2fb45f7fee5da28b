package checkpoint

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parley/pkg/config"
	"parley/pkg/store/storetest"
	"parley/pkg/timeutil"
)

func TestRunNowKeepsNewest(t *testing.T) {
	db := storetest.Open(t)
	require.NoError(t, db.SaveKey("user:u1", []byte(`{"id":"u1"}`)))

	fake := timeutil.NewFake(time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC))
	defer timeutil.SetClock(fake.Now)()

	dir := filepath.Join(t.TempDir(), "checkpoints")
	m := New(db, dir, config.CheckpointConfig{Enabled: true, Cron: "0 3 * * *", Keep: 2})

	var last Result
	for i := 0; i < 3; i++ {
		res, err := m.RunNow(context.Background())
		require.NoError(t, err)
		last = res
		fake.Advance(time.Hour)
	}

	names, err := m.List()
	require.NoError(t, err)
	require.Len(t, names, 2)
	assert.Equal(t, filepath.Base(last.Dir), names[1])
	assert.Len(t, last.Pruned, 1)

	_, err = os.Stat(filepath.Join(dir, "checkpoint.lock"))
	assert.True(t, os.IsNotExist(err), "lease is released after a run")
}

func TestLeaseHeldByAnotherOwner(t *testing.T) {
	dir := t.TempDir()
	l := newFileLease(dir)

	ok, err := l.Acquire("other", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	m := New(storetest.Open(t), dir, config.CheckpointConfig{Keep: 1})
	_, err = m.RunNow(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	assert.Error(t, l.Renew("me", time.Minute))
	assert.Error(t, l.Release("me"))
	require.NoError(t, l.Release("other"))
}

func TestExpiredLeaseIsTakenOver(t *testing.T) {
	fake := timeutil.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	defer timeutil.SetClock(fake.Now)()

	l := newFileLease(t.TempDir())
	ok, err := l.Acquire("first", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = l.Acquire("second", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	fake.Advance(2 * time.Minute)
	ok, err = l.Acquire("second", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, l.Renew("second", time.Minute))
	require.NoError(t, l.Release("second"))
}
