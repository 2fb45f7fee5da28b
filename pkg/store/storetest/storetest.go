// Package storetest opens throwaway stores for package tests.
package storetest

import (
	"path/filepath"
	"testing"

	"parley/pkg/state/logger"
	storedb "parley/pkg/store/db/storedb"
)

func Open(t testing.TB) *storedb.Store {
	t.Helper()
	logger.InitNop()
	s, err := storedb.Open(filepath.Join(t.TempDir(), "store"), storedb.Options{NoSync: true})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}
