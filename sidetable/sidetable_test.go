package sidetable

import (
	"sync"
	"testing"

	"github.com/fulldump/snaptable/table"
)

func newPool() *sync.Pool {
	return &sync.Pool{New: func() interface{} { return make([]byte, 0, 256) }}
}

func TestInsertDeepCopyIsIndependentOfSourcePayload(t *testing.T) {
	s := New()
	pool := newPool()

	src := &table.Tuple{
		Address: table.Address{BlockID: 1, Slot: 2},
		Payload: []byte(`{"n":1}`),
	}
	s.InsertDeepCopy(src, pool)

	// Mutate the source payload's backing array after the copy.
	src.Payload[2] = 'X'

	it := s.MakeIterator()
	got, ok := it.Next()
	if !ok {
		t.Fatal("expected one preserved tuple")
	}
	if string(got.Payload) != `{"n":1}` {
		t.Fatalf("expected deep copy unaffected by source mutation, got %q", got.Payload)
	}
	if got.Address != src.Address {
		t.Fatalf("expected address preserved, got %+v", got.Address)
	}
}

func TestIteratorExhaustsExactlyOnce(t *testing.T) {
	s := New()
	pool := newPool()

	for i := 0; i < 3; i++ {
		s.InsertDeepCopy(&table.Tuple{Payload: []byte("x")}, pool)
	}

	it := s.MakeIterator()
	count := 0
	for {
		_, ok := it.Next()
		if !ok {
			break
		}
		count++
	}
	if count != 3 {
		t.Fatalf("expected 3 tuples, got %d", count)
	}
	if _, ok := it.Next(); ok {
		t.Fatal("expected iterator to stay exhausted")
	}
}

func TestLenTracksBufferedCount(t *testing.T) {
	s := New()
	pool := newPool()

	if s.Len() != 0 {
		t.Fatalf("expected empty side table, got %d", s.Len())
	}
	s.InsertDeepCopy(&table.Tuple{Payload: []byte("x")}, pool)
	s.InsertDeepCopy(&table.Tuple{Payload: []byte("y")}, pool)
	if s.Len() != 2 {
		t.Fatalf("expected 2, got %d", s.Len())
	}
}
