package unreads

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parley/pkg/models"
	"parley/pkg/store/locks"
	"parley/pkg/store/storetest"
)

func counts(t *testing.T, s *Store, userID string) map[string]int64 {
	t.Helper()
	rows, err := s.ListForUser(userID)
	require.NoError(t, err)
	out := map[string]int64{}
	for _, r := range rows {
		assert.Equal(t, userID, r.UserID)
		out[r.ConversationID] = r.Count
	}
	return out
}

func TestIncrementAndClear(t *testing.T) {
	s := New(storetest.Open(t), locks.NewTable())

	require.NoError(t, s.Increment("c1", "bob"))
	require.NoError(t, s.Increment("c1", "bob"))
	require.NoError(t, s.Increment("c2", "bob"))
	require.NoError(t, s.Increment("c1", "carol"))

	assert.Equal(t, map[string]int64{"c1": 2, "c2": 1}, counts(t, s, "bob"))
	assert.Equal(t, map[string]int64{"c1": 1}, counts(t, s, "carol"))

	require.NoError(t, s.Clear("c1", "bob"))
	assert.Equal(t, map[string]int64{"c1": 0, "c2": 1}, counts(t, s, "bob"))

	require.NoError(t, s.Increment("c1", "bob"))
	assert.Equal(t, int64(1), counts(t, s, "bob")["c1"])
}

func TestClearWithoutRowCreatesNothing(t *testing.T) {
	s := New(storetest.Open(t), locks.NewTable())
	require.NoError(t, s.Clear("c1", "bob"))
	rows, err := s.ListForUser("bob")
	require.NoError(t, err)
	assert.Equal(t, []models.UnreadCounter{}, rows)
}

func TestConcurrentIncrementsAreNotLost(t *testing.T) {
	s := New(storetest.Open(t), locks.NewTable())

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Increment("c1", "bob"))
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(n), counts(t, s, "bob")["c1"])
}
