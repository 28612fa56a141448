package table

import (
	"fmt"

	"github.com/google/btree"
)

// Index is a secondary ordered index over a table's tuples, keyed by
// a string extracted from the tuple payload. Grounded on
// collection/indexbtree.go, generalized from indexing whole JSON rows
// by field name to indexing (blockID, slot) by an arbitrary
// caller-supplied key extractor.
//
// The COW protocol never consults Index: scan visibility is entirely
// a function of the block list and the side table, so index
// maintenance can be interleaved with an in-progress scan without
// perturbing what the scan emits.
type Index struct {
	field      string
	extractKey func(payload []byte) (string, bool)
	tree       *btree.BTreeG[*entry]
}

type entry struct {
	key     string
	address Address
	tuple   *Tuple
}

func NewIndex(field string, extractKey func(payload []byte) (string, bool)) *Index {
	return &Index{
		field:      field,
		extractKey: extractKey,
		tree: btree.NewG(32, func(a, b *entry) bool {
			if a.key != b.key {
				return a.key < b.key
			}
			if a.address.BlockID != b.address.BlockID {
				return a.address.BlockID < b.address.BlockID
			}
			return a.address.Slot < b.address.Slot
		}),
	}
}

func (idx *Index) Add(t *Tuple) error {
	key, ok := idx.extractKey(t.Payload)
	if !ok {
		return nil
	}
	idx.tree.ReplaceOrInsert(&entry{key: key, address: t.Address, tuple: t})
	return nil
}

func (idx *Index) Remove(t *Tuple) error {
	key, ok := idx.extractKey(t.Payload)
	if !ok {
		return nil
	}
	idx.tree.Delete(&entry{key: key, address: t.Address})
	return nil
}

// Relocate updates an indexed entry's address after compaction moves
// the underlying tuple; the key is unchanged (payload didn't change).
func (idx *Index) Relocate(old Address, moved *Tuple) {
	key, ok := idx.extractKey(moved.Payload)
	if !ok {
		return
	}
	idx.tree.Delete(&entry{key: key, address: old})
	idx.tree.ReplaceOrInsert(&entry{key: key, address: moved.Address, tuple: moved})
}

// Find returns the live tuple for an exact key match, if any.
func (idx *Index) Find(key string) (*Tuple, bool) {
	var found *Tuple
	idx.tree.AscendGreaterOrEqual(&entry{key: key}, func(e *entry) bool {
		if e.key != key {
			return false
		}
		found = e.tuple
		return false
	})
	return found, found != nil
}

func (idx *Index) Field() string { return idx.field }

func (idx *Index) String() string {
	return fmt.Sprintf("index(%s, %d entries)", idx.field, idx.tree.Len())
}
