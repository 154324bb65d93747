package heap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheck_PassesOnFreshHeap(t *testing.T) {
	a, _ := newAllocator(t, 4096, 4096)
	require.NoError(t, a.Check())
}

func TestCheck_PassesAfterAllocateAndFree(t *testing.T) {
	a, _ := newAllocator(t, 1<<16, 4096)
	p, err := a.Allocate(48)
	require.NoError(t, err)
	require.NoError(t, a.Check())

	a.Free(p)
	require.NoError(t, a.Check())
}

func TestCheck_DetectsCorruptedHeader(t *testing.T) {
	a, _ := newAllocator(t, 1<<16, 4096)
	p, err := a.Allocate(48)
	require.NoError(t, err)
	_ = p

	head := a.list.head()
	require.NotZero(t, head)
	// Corrupt the free block's size field to something not alignment-sized.
	// (+4, not +3: the low two bits are flags and are masked off the size.)
	*wordAt(head) = uintptr(minBlockSize + 4)

	err = a.Check()
	require.Error(t, err)
}

func TestCheck_DetectsBrokenFooter(t *testing.T) {
	a, _ := newAllocator(t, 4096, 4096)
	head := a.list.head()
	*wordAt(footerAddr(head)) = 0xDEADBEEF

	err := a.Check()
	require.Error(t, err)
}

func TestFingerprint_StableWithoutMutation(t *testing.T) {
	a, _ := newAllocator(t, 4096, 4096)
	f1 := a.Fingerprint()
	f2 := a.Fingerprint()
	require.Equal(t, f1, f2)
}

func TestFingerprint_ChangesAfterAllocate(t *testing.T) {
	a, _ := newAllocator(t, 4096, 4096)
	before := a.Fingerprint()

	_, err := a.Allocate(16)
	require.NoError(t, err)

	require.NotEqual(t, before, a.Fingerprint())
}

func TestFingerprint_ChangesOnFooterOnlyCorruption(t *testing.T) {
	a, _ := newAllocator(t, 4096, 4096)
	before := a.Fingerprint()

	head := a.list.head()
	*wordAt(footerAddr(head)) = *wordAt(head) ^ 1 // header untouched, footer diverges

	require.NotEqual(t, before, a.Fingerprint())
}

func TestFree_PanicsOnOutOfBoundsPointer(t *testing.T) {
	a, sim := newAllocator(t, 4096, 4096)
	require.Panics(t, func() {
		a.Free(sim.High())
	})
}

func TestFree_PanicsOnMisalignedPointer(t *testing.T) {
	a, _ := newAllocator(t, 4096, 4096)
	p, err := a.Allocate(16)
	require.NoError(t, err)

	require.Panics(t, func() {
		a.Free(p + 1)
	})
}

func TestFree_PanicsOnDoubleFree(t *testing.T) {
	a, _ := newAllocator(t, 4096, 4096)
	p, err := a.Allocate(16)
	require.NoError(t, err)

	a.Free(p)
	require.Panics(t, func() {
		a.Free(p)
	})
}

func TestFree_PanicsOnCorruptedHeader(t *testing.T) {
	a, _ := newAllocator(t, 4096, 4096)
	p, err := a.Allocate(16)
	require.NoError(t, err)

	b := blockOf(p)
	*wordAt(b) = uintptr(minBlockSize+4) | tagUsed

	require.Panics(t, func() {
		a.Free(p)
	})
}

func TestHistory_RecordsRecentEvents(t *testing.T) {
	a, _ := newAllocator(t, 4096, 4096)
	p, err := a.Allocate(16)
	require.NoError(t, err)
	a.Free(p)

	hist := a.History()
	require.Len(t, hist, 2)
	require.Equal(t, opAllocate, hist[0].Kind)
	require.Equal(t, opFree, hist[1].Kind)
}
