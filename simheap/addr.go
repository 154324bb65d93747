package simheap

import "unsafe"

// addrOf returns the address of a region's first byte. The region is
// never grown or reallocated after reserve returns it, so this address is
// stable for the region's lifetime regardless of whether it came from
// mmap or the Go heap.
func addrOf(region []byte) uintptr {
	if len(region) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&region[0]))
}
