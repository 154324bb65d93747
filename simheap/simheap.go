// Package simheap provides a concrete heap.Simulator: a single flat span
// of memory reserved once up front, whose logical high-water mark advances
// as the allocator grows it. It plays the role memlib.c plays for the C
// original this package's sibling, heap, is modeled on: a stand-in for
// brk/sbrk, never returned to the OS piecemeal and never relocated once
// reserved, so addresses handed to the allocator stay valid for the life
// of the Heap.
package simheap

import (
	"errors"
	"fmt"
)

// DefaultPageSize matches the common host page size. heap.Allocator rounds
// its Grow requests up to whole pages of this size unless NewWithPageSize
// overrides it.
const DefaultPageSize = 4096

// ErrExhausted is returned by Grow when capacity has been used up.
var ErrExhausted = errors.New("simheap: capacity exhausted")

// Heap is a fixed-capacity, non-moving memory region addressable by
// uintptr, growable up to its capacity.
type Heap struct {
	region   []byte
	base     uintptr
	size     int
	cap      int
	pageSize int
	release  func()
}

// New reserves a Heap with room to grow up to capacity bytes, backed by an
// anonymous mmap on unix hosts (see simheap_unix.go) and a plain byte
// slice elsewhere (simheap_other.go).
func New(capacity int) (*Heap, error) {
	return NewWithPageSize(capacity, DefaultPageSize)
}

// NewWithPageSize is New with an explicit page size, for tests that want
// to exercise growth in small, predictable steps.
func NewWithPageSize(capacity, pageSize int) (*Heap, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("simheap: capacity must be positive, got %d", capacity)
	}
	if pageSize <= 0 {
		return nil, fmt.Errorf("simheap: page size must be positive, got %d", pageSize)
	}

	region, release, err := reserve(capacity)
	if err != nil {
		return nil, fmt.Errorf("simheap: reserve failed: %w", err)
	}

	return &Heap{
		region:   region,
		base:     addrOf(region),
		cap:      capacity,
		pageSize: pageSize,
		release:  release,
	}, nil
}

// Low is the fixed address of the first byte of the region.
func (h *Heap) Low() uintptr { return h.base }

// High is the address one past the last byte currently grown into. It
// equals Low until the first Grow call.
func (h *Heap) High() uintptr { return h.base + uintptr(h.size) }

// PageSize is the granularity heap.Allocator rounds its Grow requests up
// to: the unit the heap extends by when it needs more space. Grow itself
// does not round.
func (h *Heap) PageSize() int { return h.pageSize }

// Grow extends the region by exactly n bytes and returns the address of
// the first new byte. It fails with ErrExhausted once capacity is used
// up; the region itself is never moved or reallocated.
func (h *Heap) Grow(n int) (uintptr, error) {
	if n <= 0 {
		return 0, fmt.Errorf("simheap: grow amount must be positive, got %d", n)
	}
	if h.size+n > h.cap {
		return 0, fmt.Errorf("%w: have %d, want %d more, cap %d", ErrExhausted, h.size, n, h.cap)
	}
	addr := h.base + uintptr(h.size)
	h.size += n
	return addr, nil
}

// Cap is the maximum number of bytes this Heap can ever grow to.
func (h *Heap) Cap() int { return h.cap }

// Size is the number of bytes grown into so far.
func (h *Heap) Size() int { return h.size }

// Close releases the underlying region. The Heap must not be used
// afterward.
func (h *Heap) Close() error {
	if h.release == nil {
		return nil
	}
	h.release()
	h.release = nil
	return nil
}
