// Package sidetable implements the preserved-image side table: an
// append-only, scan-once container of deep-copied tuple pre-images
// used by a copy-on-write snapshot scan (see the snapshot package).
//
// Grounded on collectionv4/flatslice.go's contiguous, freelist-backed
// storage, simplified to append-only: spec.md §4.1 rules out both
// deletion and de-duplication for this container, so there is no
// free list to maintain.
package sidetable

import (
	"sync"

	"github.com/fulldump/snaptable/table"
)

// Table is the preserved-image side table.
type Table struct {
	mutex    sync.Mutex
	tuples   []*table.Tuple
	iterated bool // true once MakeIterator has been called
}

func New() *Table {
	return &Table{}
}

// InsertDeepCopy copies t's variable-length payload via pool (scratch
// arena owned by the caller — see snapshot.pool) and appends the
// tuple. There is no ordering contract and no key: duplicate
// pre-images of the same address are never expected because a tuple
// is dirty-marked (and thus never re-copied) the first time it is
// backed up — see snapshot.Context.markDirty.
func (s *Table) InsertDeepCopy(t *table.Tuple, pool *sync.Pool) {
	scratch := pool.Get().([]byte)
	scratch = append(scratch[:0], t.Payload...)

	payload := make([]byte, len(scratch))
	copy(payload, scratch)

	pool.Put(scratch)

	clone := &table.Tuple{
		Address: t.Address,
		Payload: payload,
		Active:  true,
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.tuples = append(s.tuples, clone)
}

// Len reports how many pre-images are currently buffered. Used by
// snapshot.Context.CheckRemainingTuples to verify invariant 5.
func (s *Table) Len() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.tuples)
}

// MakeIterator returns a one-shot cursor over every inserted tuple,
// in insertion order (an implementation detail; no order is
// promised). It must not be called concurrently with InsertDeepCopy;
// spec.md §4.1 only requires insert/iterate not to race, not
// interleaved iterate/insert, matching a snapshot scan's usage where
// draining starts only once the live phase is exhausted (§4.3.2 step 2).
func (s *Table) MakeIterator() *Iterator {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.iterated = true
	return &Iterator{tuples: s.tuples, pos: -1}
}

// Iterator produces each preserved tuple exactly once.
type Iterator struct {
	tuples []*table.Tuple
	pos    int
}

func (it *Iterator) Next() (*table.Tuple, bool) {
	it.pos++
	if it.pos >= len(it.tuples) {
		return nil, false
	}
	return it.tuples[it.pos], true
}

// CountRemaining returns the number of tuples this iterator would
// still emit if called to exhaustion, without consuming it.
func (it *Iterator) CountRemaining() int {
	if it.pos+1 >= len(it.tuples) {
		return 0
	}
	return len(it.tuples) - (it.pos + 1)
}
