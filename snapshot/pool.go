package snapshot

import "sync"

// newScratchPool returns the pool of scratch []byte buffers a
// Context uses to deep-copy pre-images into the side table. Grounded
// on collectionv2/collection.go's package-level bufferPool
// (sync.Pool of *bytes.Buffer for command serialization); here the
// pool is per-context since each snapshot scan's scratch memory is
// released with the context (spec.md §9's "arena is released with
// the context").
func newScratchPool() *sync.Pool {
	return &sync.Pool{
		New: func() interface{} {
			return make([]byte, 0, 256)
		},
	}
}
