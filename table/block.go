package table

// Block is a fixed-capacity array of tuple slots. Blocks are the unit
// of compaction: the table frees a block by relocating every active
// tuple it holds into other blocks with room, then drops the block.
type Block struct {
	ID       int
	Slots    []Tuple
	freeSlot []int // stack of slot indexes with Active == false

	// pending marks a block the surgeon has handed to an in-progress
	// snapshot scan; it is returned to the non-pending set via
	// SnapshotFinishedScanningBlock once the scan has read past it.
	pending bool
}

// newBlock allocates a block with every slot free. freeSlot is
// populated highest-index-first so that allocate()'s pop-from-the-end
// hands out slot 0 first: insertion order matches ascending slot
// order within a fresh block, which is what makes a forward-only
// cursor visit tuples in insertion order.
func newBlock(id, capacity int) *Block {
	freeSlot := make([]int, capacity)
	for i := range freeSlot {
		freeSlot[i] = capacity - 1 - i
	}
	return &Block{
		ID:       id,
		Slots:    make([]Tuple, capacity),
		freeSlot: freeSlot,
	}
}

func (b *Block) used() int {
	return len(b.Slots) - len(b.freeSlot)
}

func (b *Block) hasFreeSlot() bool {
	return len(b.freeSlot) > 0
}

// allocate claims a free slot and returns its index. Caller must
// already know hasFreeSlot() was true.
func (b *Block) allocate() int {
	n := len(b.freeSlot)
	slot := b.freeSlot[n-1]
	b.freeSlot = b.freeSlot[:n-1]
	return slot
}

func (b *Block) release(slot int) {
	b.Slots[slot] = Tuple{}
	b.freeSlot = append(b.freeSlot, slot)
}
