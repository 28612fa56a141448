package table

import (
	"sync"
	"testing"
)

func TestInsertAssignsAscendingSlots(t *testing.T) {
	tb := NewTable("t", 4)

	a, _ := tb.Insert([]byte(`"A"`))
	b, _ := tb.Insert([]byte(`"B"`))
	c, _ := tb.Insert([]byte(`"C"`))

	if a.Address.Slot != 0 || b.Address.Slot != 1 || c.Address.Slot != 2 {
		t.Fatalf("expected ascending slots 0,1,2, got %d,%d,%d", a.Address.Slot, b.Address.Slot, c.Address.Slot)
	}
}

func TestDeleteFreesSlotWhenNoContextsAttached(t *testing.T) {
	tb := NewTable("t", 4)
	a, _ := tb.Insert([]byte(`"A"`))

	if err := tb.Delete(a); err != nil {
		t.Fatal(err)
	}
	if a.Active {
		t.Fatal("expected tuple to be inactive after delete with no attached contexts")
	}
}

// fakeContext lets table tests exercise the Notifiable fan-out without
// pulling in the snapshot package.
type fakeContext struct {
	deleteVerdict bool
	inserts       int
	updates       int
	deletes       int
	compactions   int
}

func (f *fakeContext) OnTupleInsert(t *Tuple)         { f.inserts++ }
func (f *fakeContext) OnTupleUpdate(t *Tuple)         { f.updates++ }
func (f *fakeContext) OnBlockCompactedAway(b *Block)  { f.compactions++ }
func (f *fakeContext) OnTupleDelete(t *Tuple) bool {
	f.deletes++
	return f.deleteVerdict
}

func TestDeleteIsAndCombinedAcrossContexts(t *testing.T) {
	tb := NewTable("t", 4)
	a, _ := tb.Insert([]byte(`"A"`))

	allow := &fakeContext{deleteVerdict: true}
	deny := &fakeContext{deleteVerdict: false}
	tb.AttachContext(allow)
	tb.AttachContext(deny)

	if err := tb.Delete(a); err != nil {
		t.Fatal(err)
	}

	if allow.deletes != 1 || deny.deletes != 1 {
		t.Fatalf("expected both contexts notified exactly once, got allow=%d deny=%d", allow.deletes, deny.deletes)
	}
	if !a.PendingDelete {
		t.Fatal("expected PendingDelete since one context vetoed the immediate free")
	}
	if !a.Active {
		t.Fatal("pending-delete tuple must stay active until cleanup frees it")
	}
}

func TestCompactRelocatesActiveTuplesAndDropsBlock(t *testing.T) {
	tb := NewTable("t", 2)

	a, _ := tb.Insert([]byte(`"A"`))
	b, _ := tb.Insert([]byte(`"B"`))
	c, _ := tb.Insert([]byte(`"C"`))
	_, _ = tb.Insert([]byte(`"D"`))

	// Free up block 0 so block 1 can be compacted into it.
	tb.Delete(a)
	tb.Delete(b)

	victimBlockID := c.Address.BlockID

	if err := tb.Compact(victimBlockID); err != nil {
		t.Fatal(err)
	}

	for _, block := range tb.GetData() {
		if block.ID == victimBlockID {
			t.Fatalf("expected block %d to be removed after compaction", victimBlockID)
		}
	}

	active := 0
	for _, block := range tb.GetData() {
		for i := range block.Slots {
			if block.Slots[i].Active {
				active++
			}
		}
	}
	if active != 2 {
		t.Fatalf("expected 2 active tuples to survive compaction, got %d", active)
	}
}

func TestCompactNotifiesBlockCompactedAway(t *testing.T) {
	tb := NewTable("t", 2)
	a, _ := tb.Insert([]byte(`"A"`))
	b, _ := tb.Insert([]byte(`"B"`))
	c, _ := tb.Insert([]byte(`"C"`))
	tb.Delete(a)
	tb.Delete(b)

	fc := &fakeContext{deleteVerdict: true}
	tb.AttachContext(fc)

	if err := tb.Compact(c.Address.BlockID); err != nil {
		t.Fatal(err)
	}
	if fc.compactions != 1 {
		t.Fatalf("expected 1 compaction notification, got %d", fc.compactions)
	}
}

func TestConcurrentInsertsAcrossWorkers(t *testing.T) {
	tb := NewTable("t", 16)

	workers := 20
	perWorker := 50

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				if _, err := tb.Insert([]byte(`"x"`)); err != nil {
					t.Error(err)
				}
			}
		}()
	}
	wg.Wait()

	if got, want := tb.ActiveTupleCount(), workers*perWorker; got != want {
		t.Fatalf("expected %d active tuples, got %d", want, got)
	}
}
