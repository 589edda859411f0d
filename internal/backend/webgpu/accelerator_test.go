package webgpu

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcceleratorMatMul(t *testing.T) {
	acc, err := NewAccelerator()
	if errors.Is(err, ErrUnavailable) {
		t.Skip("WebGPU not available:", err)
	}
	require.NoError(t, err)
	defer acc.Release()

	a := []float32{1, 2, 3, 4, 5, 6}  // [2, 3]
	b := []float32{1, 0, 0, 1, 1, 1}  // [3, 2]
	bt := []float32{1, 0, 1, 0, 1, 1} // [2, 3] = b^T
	want := []float32{4, 5, 10, 11}   // [2, 2]

	got, err := acc.MatMul(a, b, 2, 3, 2, false)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want, got, 1e-5)

	got, err = acc.MatMul(a, bt, 2, 3, 2, true)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want, got, 1e-5)

	_, err = acc.MatMul(a, b[:4], 2, 3, 2, false)
	assert.Error(t, err)
}
