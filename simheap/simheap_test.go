package simheap

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_RejectsBadArgs(t *testing.T) {
	_, err := New(0)
	require.Error(t, err)

	_, err = NewWithPageSize(64, 0)
	require.Error(t, err)
}

func TestGrow_AdvancesHighWaterMark(t *testing.T) {
	h, err := NewWithPageSize(4096, 64)
	require.NoError(t, err)
	defer h.Close()

	require.Equal(t, h.Low(), h.High())
	require.Equal(t, 0, h.Size())

	addr, err := h.Grow(64)
	require.NoError(t, err)
	require.Equal(t, h.Low(), addr)
	require.Equal(t, h.Low()+64, h.High())
	require.Equal(t, 64, h.Size())

	addr2, err := h.Grow(32)
	require.NoError(t, err)
	require.Equal(t, h.Low()+64, addr2)
	require.Equal(t, 96, h.Size())
}

func TestGrow_ExhaustsAtCapacity(t *testing.T) {
	h, err := NewWithPageSize(128, 64)
	require.NoError(t, err)
	defer h.Close()

	_, err = h.Grow(128)
	require.NoError(t, err)

	_, err = h.Grow(1)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrExhausted))
}

func TestGrow_RejectsNonPositive(t *testing.T) {
	h, err := New(64)
	require.NoError(t, err)
	defer h.Close()

	_, err = h.Grow(0)
	require.Error(t, err)
	_, err = h.Grow(-1)
	require.Error(t, err)
}

func TestNewPooled_BehavesLikeNew(t *testing.T) {
	h, err := NewPooled(4096)
	require.NoError(t, err)
	defer h.Close()

	require.Equal(t, 4096, h.Cap())
	addr, err := h.Grow(128)
	require.NoError(t, err)
	require.Equal(t, h.Low(), addr)
}

func TestAddressesAreWritable(t *testing.T) {
	h, err := New(4096)
	require.NoError(t, err)
	defer h.Close()

	_, err = h.Grow(64)
	require.NoError(t, err)

	h.region[0] = 0xAB
	require.Equal(t, byte(0xAB), h.region[0])
}
