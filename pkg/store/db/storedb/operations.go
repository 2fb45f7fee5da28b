package storedb

import (
	"github.com/cockroachdb/pebble"

	"parley/pkg/state/logger"
)

// NewBatch starts a write batch committed atomically by Commit.
func (s *Store) NewBatch() *pebble.Batch {
	return s.Client.NewBatch()
}

func (s *Store) Commit(b *pebble.Batch) error {
	if err := s.check(); err != nil {
		return err
	}
	defer b.Close()
	if err := b.Commit(s.WriteOpt()); err != nil {
		logger.Error("batch_commit_failed", "error", err, "ops", b.Count())
		return err
	}
	return nil
}

// prefixEnd returns the smallest key greater than every key with prefix.
func prefixEnd(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

func (s *Store) prefixIter(prefix string) (*pebble.Iterator, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	p := []byte(prefix)
	return s.Client.NewIter(&pebble.IterOptions{LowerBound: p, UpperBound: prefixEnd(p)})
}

// ScanPrefix calls fn for every key under prefix in ascending order.
// k and v are only valid for the duration of the call.
func (s *Store) ScanPrefix(prefix string, fn func(k, v []byte) error) error {
	iter, err := s.prefixIter(prefix)
	if err != nil {
		return err
	}
	defer iter.Close()
	for iter.First(); iter.Valid(); iter.Next() {
		if err := fn(iter.Key(), iter.Value()); err != nil {
			return err
		}
	}
	return iter.Error()
}

// LastWithPrefix returns copies of the greatest key and its value under prefix.
func (s *Store) LastWithPrefix(prefix string) ([]byte, []byte, bool, error) {
	iter, err := s.prefixIter(prefix)
	if err != nil {
		return nil, nil, false, err
	}
	defer iter.Close()
	if !iter.Last() {
		return nil, nil, false, iter.Error()
	}
	k := append([]byte(nil), iter.Key()...)
	v := append([]byte(nil), iter.Value()...)
	return k, v, true, nil
}

func (s *Store) CountPrefix(prefix string) (int, error) {
	n := 0
	err := s.ScanPrefix(prefix, func(_, _ []byte) error {
		n++
		return nil
	})
	return n, err
}

// Checkpoint writes a consistent copy of the database into dir, which must not exist.
func (s *Store) Checkpoint(dir string) error {
	if err := s.check(); err != nil {
		return err
	}
	if err := s.Client.Checkpoint(dir, pebble.WithFlushedWAL()); err != nil {
		logger.Error("pebble_checkpoint_failed", "dir", dir, "error", err)
		return err
	}
	logger.Info("pebble_checkpoint_written", "dir", dir)
	return nil
}

func (s *Store) Flush() error {
	if err := s.check(); err != nil {
		return err
	}
	return s.Client.Flush()
}
