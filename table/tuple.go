package table

// Address identifies a tuple slot for the lifetime of the block that
// holds it. BlockID is stable once assigned; Slot is stable within
// that block. Compaction changes which (BlockID, Slot) a tuple lives
// at, but the tuple keeps its identity.
type Address struct {
	BlockID int
	Slot    int
}

// Tuple is a single row stored in a slot. Payload is the tuple body;
// the storage-engine parts of this module never interpret it, they
// only move it around.
type Tuple struct {
	Address Address
	Payload []byte

	Active bool

	// Dirty means "mutated since some active snapshot's activation;
	// do not emit it from that snapshot's live cursor."
	Dirty bool

	// PendingDelete means "logically deleted but physical free
	// deferred until every active snapshot has passed this slot."
	PendingDelete bool

	// PendingDeleteOnUndoRelease means the pending delete is itself
	// part of an uncommitted transaction; cleanup must not free
	// storage for it directly (see Context.CleanupTuple).
	PendingDeleteOnUndoRelease bool
}
