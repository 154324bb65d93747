// Package heap implements the core of a dynamic storage allocator:
// boundary-tag block layout, an explicit doubly-linked free list, and a
// first-fit-over-LIFO allocation engine with immediate bidirectional
// coalescing, on top of a caller-supplied growable memory region.
//
// The package is single-threaded and does no I/O of its own beyond the
// Simulator it's constructed with. See simheap for a concrete Simulator.
package heap

import (
	"errors"
	"fmt"
	"unsafe"
)

// ErrOutOfMemory is returned by Allocate when the underlying Simulator
// fails to extend the heap.
var ErrOutOfMemory = errors.New("heap: out of memory")

// Simulator is the host-provided growable memory region the allocator
// manages. Low is stable across calls; High moves after a successful
// Grow. Grow extends the region by exactly n bytes and returns the
// address of the first new byte, or an error if the region cannot grow.
type Simulator interface {
	Low() uintptr
	High() uintptr
	PageSize() int
	Grow(n int) (uintptr, error)
}

// Allocator is a single-threaded, explicit-free-list heap allocator: one
// free list threaded through free blocks, first-fit placement, immediate
// bidirectional coalescing on free. Its zero value is not usable; build
// one with New.
type Allocator struct {
	sim  Simulator
	list freeList
	hist history
}

// New lays out a fresh heap over sim and returns an Allocator ready to
// serve Allocate/Free calls. sim must not have been grown before.
//
// This implementation only targets hosts where a pointer is 8 bytes,
// matching alignment; see DESIGN.md for the 32-bit case.
func New(sim Simulator) (*Allocator, error) {
	if wordSize != alignment {
		return nil, fmt.Errorf("heap: unsupported word size %d (want %d)", wordSize, alignment)
	}

	base, err := sim.Grow(wordSize + minBlockSize + wordSize)
	if err != nil {
		return nil, fmt.Errorf("heap: initial grow failed: %w", err)
	}

	a := &Allocator{sim: sim}
	a.list.headSlot = base

	first := base + uintptr(wordSize)
	setHeader(first, minBlockSize, false, true)
	*nextField(first) = 0
	*prevField(first) = 0
	writeFooter(first)

	writeSentinel(sim.High())

	a.list.setHead(first)
	return a, nil
}

// writeSentinel writes the zero-size, used, terminating word at the last
// word of the heap. high is the Simulator's exclusive upper bound: one
// past the last grown-into byte.
func writeSentinel(high uintptr) {
	sentinel := high - uintptr(wordSize)
	setHeader(sentinel, 0, true, false)
}

// Allocate returns a payload address for a block of at least size usable
// bytes, or (0, nil) for size == 0. It returns ErrOutOfMemory if the heap
// cannot grow enough to satisfy the request.
func (a *Allocator) Allocate(size int) (uintptr, error) {
	if size < 0 {
		return 0, fmt.Errorf("heap: negative size %d", size)
	}
	if size == 0 {
		return 0, nil
	}

	req := alignUp(size+wordSize, alignment)
	if req < minBlockSize {
		req = minBlockSize
	}

	b := a.list.firstFit(req)
	if b == 0 {
		if err := a.growHeap(req); err != nil {
			return 0, err
		}
		b = a.list.firstFit(req)
		if b == 0 {
			return 0, fmt.Errorf("heap: first-fit failed for %d bytes after growth", req)
		}
	}

	a.list.unlink(b)
	full := sizeOf(b)
	prevUsed := isPrevUsed(b)

	if full-req >= minBlockSize {
		setHeader(b, req, true, prevUsed)

		s := b + uintptr(req)
		setHeader(s, full-req, false, true)
		writeFooter(s)
		a.list.insert(s)
	} else {
		setUsed(b, true)
		setPrevUsed(following(b), true)
	}

	a.hist.push(Event{Kind: opAllocate, Addr: b, Size: size})
	return payloadOf(b), nil
}

// Free releases a block previously returned by Allocate. Freeing a
// payload Allocate never returned is undefined behavior in general, but
// Free panics on the corruption shapes it can cheaply detect (out-of-range
// pointer, misaligned block, implausible header, double free), mirroring
// unsafex/malloc.BuddyAllocator.Free's bounds/magic checks. These checks
// catch mistakes, not adversaries: a caller passing a value Allocate never
// returned, whose bytes happen to look like a plausible live block, is
// still undefined behavior.
func (a *Allocator) Free(payload uintptr) {
	b := a.verifyLiveBlock(payload)
	size := sizeOf(b)

	setUsed(b, false)
	writeFooter(b)
	setPrevUsed(following(b), false)

	a.list.insert(b)
	a.coalesce(b)

	a.hist.push(Event{Kind: opFree, Addr: b, Size: size})
}

// verifyLiveBlock checks that payload could plausibly be a live block
// returned by Allocate and returns its block address, panicking otherwise.
func (a *Allocator) verifyLiveBlock(payload uintptr) uintptr {
	low, high := a.sim.Low(), a.sim.High()
	firstBlock := low + uintptr(wordSize)
	sentinel := high - uintptr(wordSize)

	if payload < firstBlock+uintptr(wordSize) || payload >= sentinel {
		panic("heap: pointer out of bounds")
	}
	if (payload-firstBlock)%uintptr(alignment) != 0 {
		panic("heap: misaligned pointer")
	}

	b := blockOf(payload)
	size := sizeOf(b)
	if size < minBlockSize || size%alignment != 0 || b+uintptr(size) > sentinel {
		panic("heap: corrupted block header")
	}
	if !isUsed(b) {
		panic("heap: double free")
	}
	return b
}

// coalesce absorbs any free neighbors of b, in both directions, until b is
// bordered by used blocks on both sides. Bounded at 3 blocks total by I4
// (no two adjacent free blocks ever coexist before a call starts).
func (a *Allocator) coalesce(b uintptr) {
	origSize := sizeOf(b)
	size := origSize
	cur := b

	for !isPrevUsed(cur) {
		p := precedingFree(cur)
		a.list.unlink(p)
		size += sizeOf(p)
		cur = p
	}

	n := cur + uintptr(size)
	for !isUsed(n) {
		a.list.unlink(n)
		size += sizeOf(n)
		n = cur + uintptr(size)
	}

	if size != origSize {
		a.list.unlink(b)
		setHeader(cur, size, false, true)
		writeFooter(cur)
		a.list.insert(cur)
	}
}

// growHeap extends the simulator by enough whole pages to satisfy req,
// folds the new region in as one free block overlapping the old sentinel
// word, and immediately coalesces it with whatever free block used to end
// the heap.
func (a *Allocator) growHeap(req int) error {
	pageSize := a.sim.PageSize()
	pages := (req + pageSize - 1) / pageSize
	total := pages * pageSize

	oldSentinel := a.sim.High() - uintptr(wordSize)
	prevUsedInherited := isPrevUsed(oldSentinel)

	base, err := a.sim.Grow(total)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOutOfMemory, err)
	}

	newBlock := base - uintptr(wordSize)
	setHeader(newBlock, total, false, prevUsedInherited)
	writeFooter(newBlock)

	writeSentinel(a.sim.High())

	a.list.insert(newBlock)
	a.coalesce(newBlock)
	return nil
}

// PayloadBytes returns a byte slice view of the n bytes starting at
// payload, for callers (tests, the trace harness) that need to read or
// write the memory Allocate handed back. The allocator itself never
// touches payload bytes; it's owned by the caller between Allocate and
// Free.
func PayloadBytes(payload uintptr, n int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(payload)), n)
}
