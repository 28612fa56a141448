package table

import "fmt"

// Surgeon is the privileged handle a snapshot context uses to
// manipulate blocks directly. The interface shape is taken verbatim
// from spec.md §6; no teacher file has an equivalent split between
// "the table" and "a privileged sub-handle of the table", since none
// of the teacher's containers need one.
type Surgeon interface {
	ActivateSnapshot() error
	DeactivateSnapshot()

	// DeleteTupleStorage frees storage for a pending-delete tuple
	// whose block is already known (cheaper than a generic lookup).
	// Caller must hold the surgeon's lock (see Lock/Unlock below).
	DeleteTupleStorage(t *Tuple, block *Block) error

	// DeleteTupleForUndo performs a transactional delete, used by the
	// rebalancing flows that wrap a scan in a transaction. Caller must
	// hold the surgeon's lock.
	DeleteTupleForUndo(addr Address, isTxnal bool) error

	SnapshotPendingBlockCount() int
	SnapshotPendingLoadBlockCount() int

	GetData() []*Block

	// SnapshotFinishedScanningBlock returns block to the table's
	// non-pending list once a scan has read past it. Caller must hold
	// the surgeon's lock; it is invoked from inside a liveCursor step
	// that Context.Advance already serialized, and from Context.cleanup's
	// recovery loop, which takes the lock around it.
	SnapshotFinishedScanningBlock(block, nextBlock *Block)

	BlockCountConsistent() bool

	// Lock/Unlock give Advance the same critical section Insert,
	// Update, Delete and Compact use, so cursor stepping and mutation
	// notification are mutually exclusive — spec.md §5's "access is
	// serialized by the engine thread", realized here as one mutex
	// standing in for VoltDB's single-threaded-per-partition execution
	// rather than true parallel access to a context's own state.
	Lock()
	Unlock()
}

type tableSurgeon struct {
	t *Table
}

// NewSurgeon returns the privileged handle consumed by snapshot.Context.
func NewSurgeon(t *Table) Surgeon {
	return &tableSurgeon{t: t}
}

func (s *tableSurgeon) ActivateSnapshot() error {
	s.t.mutex.Lock()
	defer s.t.mutex.Unlock()

	if s.t.snapshotActive {
		return fmt.Errorf("snapshot already active on table %q", s.t.Name)
	}
	s.t.snapshotActive = true
	for _, b := range s.t.blocks {
		b.pending = true
	}
	return nil
}

func (s *tableSurgeon) DeactivateSnapshot() {
	s.t.mutex.Lock()
	defer s.t.mutex.Unlock()
	s.t.snapshotActive = false
	for _, b := range s.t.blocks {
		b.pending = false
	}
}

// DeleteTupleStorage assumes the caller already holds the table's
// lock (Context.CleanupTuple takes it before calling this).
func (s *tableSurgeon) DeleteTupleStorage(t *Tuple, block *Block) error {
	if block == nil || block.ID != t.Address.BlockID {
		block = s.t.blockByID(t.Address.BlockID)
	}
	if block == nil {
		return fmt.Errorf("delete tuple storage: block %d not found", t.Address.BlockID)
	}
	block.release(t.Address.Slot)
	return nil
}

// DeleteTupleForUndo assumes the caller already holds the table's
// lock (Context.CleanupTuple takes it before calling this).
func (s *tableSurgeon) DeleteTupleForUndo(addr Address, isTxnal bool) error {
	block := s.t.blockByID(addr.BlockID)
	if block == nil {
		return fmt.Errorf("delete tuple for undo: block %d not found", addr.BlockID)
	}
	tup := &block.Slots[addr.Slot]
	if isTxnal {
		tup.PendingDeleteOnUndoRelease = true
		return nil
	}
	block.release(addr.Slot)
	return nil
}

func (s *tableSurgeon) SnapshotPendingBlockCount() int {
	s.t.mutex.RLock()
	defer s.t.mutex.RUnlock()
	n := 0
	for _, b := range s.t.blocks {
		if b.pending {
			n++
		}
	}
	return n
}

func (s *tableSurgeon) SnapshotPendingLoadBlockCount() int {
	// This module has no separate "load" block category (there is no
	// on-disk recovery path in scope, per spec.md's non-goals); always 0.
	return 0
}

func (s *tableSurgeon) GetData() []*Block {
	return s.t.GetData()
}

// SnapshotFinishedScanningBlock assumes the caller already holds the
// table's lock (liveCursor.Next runs inside Context.advanceLocked).
func (s *tableSurgeon) SnapshotFinishedScanningBlock(block, nextBlock *Block) {
	if block != nil {
		block.pending = false
	}
}

func (s *tableSurgeon) Lock() {
	s.t.mutex.Lock()
}

func (s *tableSurgeon) Unlock() {
	s.t.mutex.Unlock()
}

func (s *tableSurgeon) BlockCountConsistent() bool {
	s.t.mutex.RLock()
	defer s.t.mutex.RUnlock()

	seen := map[int]bool{}
	for _, b := range s.t.blocks {
		if seen[b.ID] {
			return false
		}
		seen[b.ID] = true
	}
	return true
}
