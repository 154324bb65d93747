//go:build !unix

package simheap

// reserve falls back to a plain Go allocation on non-unix hosts. The
// slice is stored in the returned Heap and never regrown, so it never
// moves once addrOf has read its address.
func reserve(n int) ([]byte, func(), error) {
	b := make([]byte, n)
	return b, func() {}, nil
}
