package locks

import (
	"sort"
	"sync"
)

type entry struct {
	mu   sync.Mutex
	refs int
}

// Table hands out one mutex per logical key. Entries are dropped once no
// goroutine holds or waits on them.
type Table struct {
	mu sync.Mutex
	m  map[string]*entry
}

func NewTable() *Table {
	return &Table{m: make(map[string]*entry)}
}

func (t *Table) acquire(key string) *entry {
	t.mu.Lock()
	e, ok := t.m[key]
	if !ok {
		e = &entry{}
		t.m[key] = e
	}
	e.refs++
	t.mu.Unlock()
	return e
}

func (t *Table) release(key string, e *entry) {
	t.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(t.m, key)
	}
	t.mu.Unlock()
}

// Lock blocks until key is held and returns its unlock func.
func (t *Table) Lock(key string) func() {
	e := t.acquire(key)
	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		t.release(key, e)
	}
}

// LockMany locks every distinct key in sorted order so concurrent callers
// with overlapping key sets cannot deadlock.
func (t *Table) LockMany(keys ...string) func() {
	uniq := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		uniq = append(uniq, k)
	}
	sort.Strings(uniq)

	unlocks := make([]func(), 0, len(uniq))
	for _, k := range uniq {
		unlocks = append(unlocks, t.Lock(k))
	}
	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
}

// Len reports the number of live entries.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.m)
}
