package table

import (
	"encoding/json"
	"testing"
)

func extractID(payload []byte) (string, bool) {
	var doc struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(payload, &doc); err != nil {
		return "", false
	}
	if doc.ID == "" {
		return "", false
	}
	return doc.ID, true
}

func TestIndexFindReturnsLiveTupleAfterInsert(t *testing.T) {
	tb := NewTable("t", 64)
	tb.WithIndex("id", extractID)

	tup, err := tb.Insert([]byte(`{"id":"a1"}`))
	if err != nil {
		t.Fatal(err)
	}

	found, ok := tb.Index().Find("a1")
	if !ok || found != tup {
		t.Fatalf("expected to find the inserted tuple, got %+v ok=%v", found, ok)
	}
}

func TestIndexRemovesEntryOnDelete(t *testing.T) {
	tb := NewTable("t", 64)
	tb.WithIndex("id", extractID)

	tup, _ := tb.Insert([]byte(`{"id":"a1"}`))
	if err := tb.Delete(tup); err != nil {
		t.Fatal(err)
	}

	if _, ok := tb.Index().Find("a1"); ok {
		t.Fatal("expected no index entry after delete")
	}
}

func TestIndexFollowsRelocationAfterCompact(t *testing.T) {
	tb := NewTable("t", 2)
	tb.WithIndex("id", extractID)

	a, _ := tb.Insert([]byte(`{"id":"a"}`))
	b, _ := tb.Insert([]byte(`{"id":"b"}`))
	c, _ := tb.Insert([]byte(`{"id":"c"}`))
	tb.Insert([]byte(`{"id":"d"}`))

	victimBlockID := c.Address.BlockID

	tb.Delete(a)
	tb.Delete(b)

	if err := tb.Compact(victimBlockID); err != nil {
		t.Fatal(err)
	}

	found, ok := tb.Index().Find("c")
	if !ok {
		t.Fatal("expected to still find c after compaction relocated it")
	}
	if found.Address.BlockID == victimBlockID {
		t.Fatalf("expected index to track c's post-compaction address away from the evicted block, found %+v", found.Address)
	}
}

func TestIndexSkipsTuplesWhereKeyExtractionFails(t *testing.T) {
	tb := NewTable("t", 64)
	tb.WithIndex("id", extractID)

	if _, err := tb.Insert([]byte(`{"other":1}`)); err != nil {
		t.Fatal(err)
	}

	if _, ok := tb.Index().Find(""); ok {
		t.Fatal("expected no entry for a payload with no id field")
	}
}
