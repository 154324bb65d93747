package heap

import "unsafe"

const (
	// wordSize is W: the size of a machine pointer. The allocator only
	// targets hosts where this equals alignment (see New).
	wordSize = int(unsafe.Sizeof(uintptr(0)))

	// alignment is A: every block size is a multiple of this.
	alignment = 8

	// tagUsed is bit 0: this block is allocated.
	tagUsed = uintptr(1)

	// tagPrevUsed is bit 1: the block immediately preceding this one in
	// memory is allocated.
	tagPrevUsed = uintptr(2)

	tagMask = tagUsed | tagPrevUsed
)

// minBlockSize is the smallest block the allocator will ever place on the
// heap: header word, next pointer, prev pointer, footer word, rounded up
// to alignment.
var minBlockSize = alignUp(4*wordSize, alignment)

func alignUp(n, a int) int {
	return (n + a - 1) &^ (a - 1)
}

func wordAt(addr uintptr) *uintptr {
	return (*uintptr)(unsafe.Pointer(addr))
}

// sizeOf masks off the flag bits and returns the block's size in bytes.
func sizeOf(addr uintptr) int {
	return int(*wordAt(addr) &^ tagMask)
}

func isUsed(addr uintptr) bool     { return *wordAt(addr)&tagUsed != 0 }
func isPrevUsed(addr uintptr) bool { return *wordAt(addr)&tagPrevUsed != 0 }

// setHeader writes a fresh header word, replacing size and both flags.
func setHeader(addr uintptr, size int, used, prevUsed bool) {
	v := uintptr(size)
	if used {
		v |= tagUsed
	}
	if prevUsed {
		v |= tagPrevUsed
	}
	*wordAt(addr) = v
}

func setUsed(addr uintptr, used bool) {
	if used {
		*wordAt(addr) |= tagUsed
	} else {
		*wordAt(addr) &^= tagUsed
	}
}

func setPrevUsed(addr uintptr, prevUsed bool) {
	if prevUsed {
		*wordAt(addr) |= tagPrevUsed
	} else {
		*wordAt(addr) &^= tagPrevUsed
	}
}

// footerAddr is the address of the last word of the block at addr. Only
// free blocks carry a meaningful footer; used blocks treat that word as
// payload.
func footerAddr(addr uintptr) uintptr {
	return addr + uintptr(sizeOf(addr)-wordSize)
}

// writeFooter mirrors the header word into the footer. Only meaningful
// once addr has been marked free, but cheap to call unconditionally.
func writeFooter(addr uintptr) {
	*wordAt(footerAddr(addr)) = *wordAt(addr)
}

// following returns the address of the block immediately after addr in
// memory.
func following(addr uintptr) uintptr {
	return addr + uintptr(sizeOf(addr))
}

// precedingFree returns the address of the block immediately before addr
// in memory. Only valid when isPrevUsed(addr) is false: the preceding
// block's footer sits at addr-wordSize and carries its size, which is the
// only way to find it (used blocks have no footer).
func precedingFree(addr uintptr) uintptr {
	size := sizeOf(addr - uintptr(wordSize))
	return addr - uintptr(size)
}

func payloadOf(addr uintptr) uintptr  { return addr + uintptr(wordSize) }
func blockOf(payload uintptr) uintptr { return payload - uintptr(wordSize) }

// nextField and prevField address the free-list link words, which live in
// the payload area and are only meaningful while the block is free.
func nextField(addr uintptr) *uintptr { return wordAt(addr + uintptr(wordSize)) }
func prevField(addr uintptr) *uintptr { return wordAt(addr + uintptr(2*wordSize)) }
