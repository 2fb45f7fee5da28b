package locks

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLockSerializesSameKey(t *testing.T) {
	tbl := NewTable()
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := tbl.Lock("unread:u1:c1")
			v := counter
			v++
			counter = v
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 64, counter)
	assert.Equal(t, 0, tbl.Len())
}

func TestLockManyOverlappingSets(t *testing.T) {
	tbl := NewTable()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			tbl.LockMany("a", "b", "c")()
		}()
		go func() {
			defer wg.Done()
			tbl.LockMany("c", "a", "a")()
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, tbl.Len())
}
