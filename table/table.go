package table

import (
	"fmt"
	"sync"
)

// Table is a block-allocated, in-memory store of tuples. It is the
// "persistent table" collaborator the snapshot context scans: the
// concrete realization of spec.md's "external collaborator, treated
// as an interface."
//
// Mutating operations take Table.mutex, generalizing the single
// sync.RWMutex the teacher's Collection uses around its row
// container (collectionv2/collection.go) from "one container" to
// "a list of blocks."
type Table struct {
	Name string

	mutex         sync.RWMutex
	blocks        []*Block
	nextBlockID   int
	blockCapacity int

	index *Index // optional secondary index, nil if none configured

	contexts []Notifiable

	snapshotActive bool

	// LastCompactionID identifies the most recent Compact call,
	// mirroring Command.Uuid in collectionv2/collection.go. No log line
	// in this module writes it.
	LastCompactionID string
}

func NewTable(name string, blockCapacity int) *Table {
	if blockCapacity <= 0 {
		blockCapacity = 64
	}
	return &Table{
		Name:          name,
		blockCapacity: blockCapacity,
	}
}

// WithIndex attaches a secondary btree index keyed by extractKey.
// Must be called before any Insert.
func (t *Table) WithIndex(field string, extractKey func(payload []byte) (string, bool)) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.index = NewIndex(field, extractKey)
}

func (t *Table) Index() *Index {
	return t.index
}

// ActiveTupleCount returns the number of currently active tuples.
func (t *Table) ActiveTupleCount() int {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	n := 0
	for _, b := range t.blocks {
		n += b.used()
	}
	return n
}

func (t *Table) allocateSlot() (*Block, int) {
	for _, b := range t.blocks {
		if b.hasFreeSlot() {
			return b, b.allocate()
		}
	}
	b := newBlock(t.nextBlockID, t.blockCapacity)
	t.nextBlockID++
	t.blocks = append(t.blocks, b)
	return b, b.allocate()
}

func (t *Table) Insert(payload []byte) (*Tuple, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	block, slot := t.allocateSlot()
	tuple := &block.Slots[slot]
	*tuple = Tuple{
		Address: Address{BlockID: block.ID, Slot: slot},
		Payload: payload,
		Active:  true,
	}

	if t.index != nil {
		if err := t.index.Add(tuple); err != nil {
			block.release(slot)
			*tuple = Tuple{}
			return nil, fmt.Errorf("index insert: %w", err)
		}
	}

	t.notifyInsert(tuple)

	return tuple, nil
}

// Update overwrites a tuple's payload in place. Notification happens
// before the overwrite so a context deciding to back up the pre-image
// still sees the old payload (mirrors markTupleDirty being called
// with the still-old TableTuple in the VoltDB original).
func (t *Table) Update(tup *Tuple, payload []byte) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if !tup.Active {
		return fmt.Errorf("update: tuple at %+v is not active", tup.Address)
	}

	t.notifyUpdate(tup)

	if t.index != nil {
		if err := t.index.Remove(tup); err != nil {
			return fmt.Errorf("index remove: %w", err)
		}
	}

	tup.Payload = payload

	if t.index != nil {
		if err := t.index.Add(tup); err != nil {
			return fmt.Errorf("index insert: %w", err)
		}
	}

	return nil
}

// Delete asks every attached snapshot context whether it is safe to
// free the tuple's storage right now. Only if all agree is the slot
// actually released; otherwise the tuple is left active but flagged
// PendingDelete so a context still scanning toward it can read the
// pre-image, and the engine later frees it via Context.CleanupTuple.
func (t *Table) Delete(tup *Tuple) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if !tup.Active {
		return fmt.Errorf("delete: tuple at %+v is not active", tup.Address)
	}

	safe := t.notifyDelete(tup)

	if t.index != nil {
		if err := t.index.Remove(tup); err != nil {
			return fmt.Errorf("index remove: %w", err)
		}
	}

	if safe {
		t.freeTupleLocked(tup)
		return nil
	}

	tup.PendingDelete = true
	return nil
}

// freeTupleLocked physically releases a tuple's slot. Caller holds t.mutex.
func (t *Table) freeTupleLocked(tup *Tuple) {
	block := t.blockByID(tup.Address.BlockID)
	if block == nil {
		return
	}
	block.release(tup.Address.Slot)
}

func (t *Table) blockByID(id int) *Block {
	for _, b := range t.blocks {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// GetData returns the table's current block list. Part of the
// Surgeon contract (spec.md §6's getData()).
func (t *Table) GetData() []*Block {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	out := make([]*Block, len(t.blocks))
	copy(out, t.blocks)
	return out
}
