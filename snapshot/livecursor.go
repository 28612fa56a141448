package snapshot

import "github.com/fulldump/snaptable/table"

// liveCursor is the COW iterator of spec.md §4.2: a forward-only scan
// over the blocks known to the table at activation time (its
// "horizon"). It never revisits a slot once examined, which is what
// makes needToDirtyTuple a meaningful "has the cursor passed this
// slot?" oracle for the notification protocol in context.go.
//
// Grounded on collectionv2/container.go's BTreeContainer.Traverse
// (walk a container, let the caller's predicate decide what survives)
// generalized from "one flat container" to "a list of blocks", plus
// spec.md §4.2's skip policy (dirty tuples and inactive slots never
// emit).
type liveCursor struct {
	surgeon table.Surgeon
	blocks  []*table.Block // IDs < horizon, ascending — captured once, at Activate

	blockIdx int
	slotIdx  int

	currentBlock *table.Block

	skippedDirtyRows    int
	skippedInactiveRows int
}

// newLiveCursor captures the table's current block list as the
// cursor's horizon. Blocks allocated after this point simply aren't
// in the slice and can never be visited — which is exactly spec.md
// §4.2's requirement that the cursor need not observe blocks holding
// only post-activation rows.
func newLiveCursor(surgeon table.Surgeon) *liveCursor {
	blocks := append([]*table.Block(nil), surgeon.GetData()...)
	return &liveCursor{
		surgeon: surgeon,
		blocks:  blocks,
	}
}

// Next returns the next live, non-skipped tuple. On exiting a block it
// returns that block to the table's non-pending list via the surgeon —
// a side effect Context.Advance's block-drain step depends on.
func (c *liveCursor) Next() (*table.Tuple, bool) {
	for {
		if c.blockIdx >= len(c.blocks) {
			return nil, false
		}

		block := c.blocks[c.blockIdx]
		c.currentBlock = block

		if c.slotIdx >= len(block.Slots) {
			var next *table.Block
			if c.blockIdx+1 < len(c.blocks) {
				next = c.blocks[c.blockIdx+1]
			}
			c.surgeon.SnapshotFinishedScanningBlock(block, next)
			c.blockIdx++
			c.slotIdx = 0
			continue
		}

		tuple := &block.Slots[c.slotIdx]
		c.slotIdx++

		if !tuple.Active {
			c.skippedInactiveRows++
			continue
		}
		if tuple.Dirty {
			c.skippedDirtyRows++
			continue
		}

		return tuple, true
	}
}

// needToDirtyTuple answers whether the cursor has NOT yet passed
// addr's slot — the authoritative oracle the notification protocol
// uses to decide whether a mutated or relocated tuple still needs its
// pre-image preserved.
//
// An address in a block the cursor never captured at activation (a
// block allocated afterward) can never be visited by this cursor
// regardless of dirty state, so it reports "already passed."
func (c *liveCursor) needToDirtyTuple(addr table.Address) bool {
	idx := c.blockIndex(addr.BlockID)
	if idx == -1 {
		return false
	}
	if idx < c.blockIdx {
		return false
	}
	if idx > c.blockIdx {
		return true
	}
	return addr.Slot >= c.slotIdx
}

func (c *liveCursor) blockIndex(blockID int) int {
	for i, b := range c.blocks {
		if b.ID == blockID {
			return i
		}
	}
	return -1
}

// notifyBlockWasCompactedAway repositions the cursor so it never reads
// the freed block again. If the removed block is the one currently
// being scanned, the cursor simply advances past it — every tuple it
// held has already either been emitted, or (per Context.OnTupleRelocated,
// called by the table before the physical move) backed up into the
// side table, so nothing is lost by skipping it here.
func (c *liveCursor) notifyBlockWasCompactedAway(block *table.Block) {
	idx := c.blockIndex(block.ID)
	if idx == -1 {
		return
	}

	c.blocks = append(c.blocks[:idx], c.blocks[idx+1:]...)

	switch {
	case idx < c.blockIdx:
		c.blockIdx--
	case idx == c.blockIdx:
		c.slotIdx = 0
	}
}

// countRemaining reports how many tuples this cursor would still emit
// if no further mutation occurred. Diagnostic only.
func (c *liveCursor) countRemaining() int {
	n := 0
	for i := c.blockIdx; i < len(c.blocks); i++ {
		block := c.blocks[i]
		start := 0
		if i == c.blockIdx {
			start = c.slotIdx
		}
		for s := start; s < len(block.Slots); s++ {
			tup := &block.Slots[s]
			if tup.Active && !tup.Dirty {
				n++
			}
		}
	}
	return n
}
