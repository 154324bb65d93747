package simheap

import (
	"fmt"

	"github.com/cloudwego/gopkg/cache/mempool"
)

// NewPooled builds a Heap backed by mempool's size-classed sync.Pool
// instead of a fresh mmap, for short-lived allocators (property tests
// that construct thousands of them) where reusing buffers avoids mmap
// churn. The buffer is returned to the pool on Close.
func NewPooled(capacity int) (*Heap, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("simheap: capacity must be positive, got %d", capacity)
	}

	buf := mempool.Malloc(capacity)
	region := buf[:capacity:capacity]

	release := func() {
		mempool.Free(buf)
	}

	return &Heap{
		region:   region,
		base:     addrOf(region),
		cap:      capacity,
		pageSize: DefaultPageSize,
		release:  release,
	}, nil
}
