package heap

import "unsafe"

// addrOfSlice returns the address of a byte slice's backing array, for
// tests that exercise block.go's primitives directly without going
// through a Simulator.
func addrOfSlice(b []byte) uintptr {
	return uintptr(unsafe.Pointer(&b[0]))
}

// freeListLen counts the nodes in a's free list, for scenario tests that
// assert the heap collapsed to a single free block.
func freeListLen(a *Allocator) int {
	n := 0
	for b := a.list.head(); b != 0; b = *nextField(b) {
		n++
	}
	return n
}

// heapLayout returns the free-list head as an offset from Low, followed by
// every block header word from the first block through the sentinel, so
// scenario tests can compare the heaps of two allocators that live in
// different buffers.
func heapLayout(a *Allocator) []uintptr {
	low := a.sim.Low()
	out := []uintptr{0}
	if h := a.list.head(); h != 0 {
		out[0] = h - low
	}
	sentinel := a.sim.High() - uintptr(wordSize)
	for addr := low + uintptr(wordSize); addr < sentinel; addr = following(addr) {
		out = append(out, *wordAt(addr))
	}
	return append(out, *wordAt(sentinel))
}
