package heap

import (
	"fmt"

	"github.com/cloudwego/gopkg/hash/xfnv"
)

// CheckError describes a single violated invariant found by Check.
type CheckError struct {
	msg string
}

func (e *CheckError) Error() string { return "heap: " + e.msg }

func checkErrorf(format string, args ...interface{}) *CheckError {
	return &CheckError{msg: fmt.Sprintf(format, args...)}
}

// Check walks the heap and the free list and verifies boundary-tag and
// free-list consistency: block sizes and PREV_USED flags, free-block
// footers matching headers, no two adjacent free blocks, the sentinel
// word, and free-list/free-block set equality. It never mutates state and
// is never called internally by Allocate/Free: callers run it deliberately.
// A nil return means the heap is consistent.
func (a *Allocator) Check() error {
	base := a.sim.Low()
	high := a.sim.High()
	sentinel := high - uintptr(wordSize)

	freeInHeap := make(map[uintptr]bool)
	prevUsed := true // I2: the first block has no predecessor, treated as used
	addr := base + uintptr(wordSize)

	for addr < sentinel {
		size := sizeOf(addr)
		if size < minBlockSize || size%alignment != 0 { // I1
			return checkErrorf("block %#x has invalid size %d", addr, size)
		}
		if addr+uintptr(size) > sentinel {
			return checkErrorf("block %#x (size %d) runs past the sentinel", addr, size)
		}
		if isPrevUsed(addr) != prevUsed { // I2
			return checkErrorf("block %#x has PREV_USED=%v, want %v", addr, isPrevUsed(addr), prevUsed)
		}
		if !isUsed(addr) {
			if *wordAt(footerAddr(addr)) != *wordAt(addr) { // I3
				return checkErrorf("block %#x footer does not match header", addr)
			}
			if !prevUsed {
				return checkErrorf("block %#x is free but so is its predecessor", addr) // I4, defense in depth
			}
			freeInHeap[addr] = true
		}
		prevUsed = isUsed(addr)
		addr = following(addr)
	}
	if addr != sentinel {
		return checkErrorf("block walk landed at %#x, sentinel is at %#x", addr, sentinel)
	}
	if sizeOf(sentinel) != 0 || !isUsed(sentinel) { // I6
		return checkErrorf("sentinel word at %#x is corrupted", sentinel)
	}

	seen := make(map[uintptr]bool, len(freeInHeap))
	var prevNode uintptr
	for b := a.list.head(); b != 0; b = *nextField(b) {
		if seen[b] {
			return checkErrorf("free list has a cycle at %#x", b)
		}
		seen[b] = true
		if *prevField(b) != prevNode { // I5
			return checkErrorf("free list node %#x has a broken prev pointer", b)
		}
		if !freeInHeap[b] {
			return checkErrorf("free list node %#x is not a free block found by the heap walk", b)
		}
		prevNode = b
	}
	if len(seen) != len(freeInHeap) { // I5: set equality
		return checkErrorf("free list has %d nodes but the heap walk found %d free blocks", len(seen), len(freeInHeap))
	}

	return nil
}

// Fingerprint hashes every boundary-tag word in the heap (head slot
// through the sentinel) with xfnv, for cheap before/after comparison in
// property tests. Two Fingerprints are guaranteed equal only when taken
// with no Allocate/Free calls in between; per xfnv's own contract this
// value must not be persisted or compared across processes.
func (a *Allocator) Fingerprint() uint64 {
	base := a.sim.Low()
	high := a.sim.High()
	sentinel := high - uintptr(wordSize)

	buf := make([]byte, 0, 256)
	putWord := func(addr uintptr) {
		v := *wordAt(addr)
		for i := 0; i < wordSize; i++ {
			buf = append(buf, byte(v>>(8*i)))
		}
	}

	putWord(base)
	for addr := base + uintptr(wordSize); addr <= sentinel; addr = following(addr) {
		putWord(addr)
		if !isUsed(addr) {
			putWord(footerAddr(addr))
		}
		if sizeOf(addr) == 0 {
			break // just processed the sentinel
		}
	}
	return xfnv.Hash(buf)
}
