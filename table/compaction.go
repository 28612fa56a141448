package table

import (
	"fmt"

	"github.com/google/uuid"
)

// Compact evicts blockID: every active tuple it holds is relocated
// into a free slot of another block — the first one in block-list
// order with room, or a newly allocated block if none has room (moved
// tuples keep their identity but change Address, per spec.md §3), then the block is
// dropped from the table and every attached snapshot context is told
// via OnBlockCompactedAway so its cursor can reposition before the
// freed memory is reused.
//
// No teacher file does this — the teacher's containers never
// relocate live rows — so the move-and-notify loop here is written
// directly from spec.md §4.2/§4.3 and the VoltDB original's call to
// notifyBlockWasCompactedAway, using the table's existing locking
// idiom (collectionv2/collection.go's mutex-guarded mutation methods).
func (t *Table) Compact(blockID int) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	idx := -1
	for i, b := range t.blocks {
		if b.ID == blockID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return fmt.Errorf("compact: block %d not found", blockID)
	}
	victim := t.blocks[idx]

	t.LastCompactionID = uuid.NewString()

	for slot := range victim.Slots {
		tup := &victim.Slots[slot]
		if !tup.Active {
			continue
		}

		dest, destSlot := t.findFreeSlotExcluding(victim.ID)
		if dest == nil {
			return fmt.Errorf("compact: no free slot available to relocate tuple at %+v", tup.Address)
		}

		oldAddr := tup.Address
		newAddr := Address{BlockID: dest.ID, Slot: destSlot}

		// Tell every context before the move commits, while tup.Address
		// still names the pre-move slot: a context that hasn't passed
		// this tuple yet must back it up now, because once moved it may
		// land in a block the context's cursor will never revisit.
		t.notifyRelocated(tup)

		moved := *tup
		moved.Address = newAddr
		dest.Slots[destSlot] = moved

		if t.index != nil {
			t.index.Relocate(oldAddr, &dest.Slots[destSlot])
		}

		victim.Slots[slot] = Tuple{}
	}

	t.blocks = append(t.blocks[:idx], t.blocks[idx+1:]...)

	t.notifyBlockCompactedAway(victim)

	return nil
}

// findFreeSlotExcluding looks for a free slot in any block other than
// exclude (the block currently being evicted).
func (t *Table) findFreeSlotExcluding(exclude int) (*Block, int) {
	for _, b := range t.blocks {
		if b.ID == exclude {
			continue
		}
		if b.hasFreeSlot() {
			return b, b.allocate()
		}
	}
	b := newBlock(t.nextBlockID, t.blockCapacity)
	t.nextBlockID++
	t.blocks = append(t.blocks, b)
	return b, b.allocate()
}
