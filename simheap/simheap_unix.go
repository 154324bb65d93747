//go:build unix

package simheap

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// reserve maps an anonymous, private region of exactly n bytes and
// returns a byte-slice view of it alongside a function that unmaps it.
// The mapping is never grown or moved; Heap.Grow only advances a logical
// high-water mark inside it.
func reserve(n int) ([]byte, func(), error) {
	b, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, fmt.Errorf("mmap: %w", err)
	}
	release := func() {
		_ = unix.Munmap(b)
	}
	return b, release, nil
}
