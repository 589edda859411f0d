package tensor

import "fmt"

// Mask is a boolean tensor used to restrict attention.
// A true element marks a position that may be attended to.
type Mask struct {
	shape Shape
	data  []bool
}

// NewMask returns an all-false mask of the given shape.
func NewMask(shape Shape) *Mask {
	if err := shape.Validate(); err != nil {
		panic(fmt.Sprintf("tensor: invalid mask shape: %v", err))
	}
	return &Mask{shape: shape.Clone(), data: make([]bool, shape.NumElements())}
}

// MaskFromBools wraps data (without copying) as a mask of the given shape.
func MaskFromBools(data []bool, shape Shape) (*Mask, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if len(data) != shape.NumElements() {
		return nil, fmt.Errorf("mask data length %d does not match shape %v", len(data), shape)
	}
	return &Mask{shape: shape.Clone(), data: data}, nil
}

// Shape returns the mask's shape.
func (m *Mask) Shape() Shape { return m.shape }

// Data returns the underlying buffer.
func (m *Mask) Data() []bool { return m.data }

// At returns the flag at the given index.
func (m *Mask) At(indices ...int) bool {
	if len(indices) != len(m.shape) {
		panic(fmt.Sprintf("tensor: mask At expects %d indices, got %d", len(m.shape), len(indices)))
	}
	offset, strides := 0, m.shape.Strides()
	for i, idx := range indices {
		offset += idx * strides[i]
	}
	return m.data[offset]
}

// Unsqueeze inserts an axis of size 1 at position axis.
// The result shares m's buffer.
func (m *Mask) Unsqueeze(axis int) *Mask {
	if axis < 0 {
		axis += len(m.shape) + 1
	}
	if axis < 0 || axis > len(m.shape) {
		panic(fmt.Sprintf("tensor: unsqueeze axis %d out of range for mask %v", axis, m.shape))
	}
	shape := make(Shape, 0, len(m.shape)+1)
	shape = append(shape, m.shape[:axis]...)
	shape = append(shape, 1)
	shape = append(shape, m.shape[axis:]...)
	return &Mask{shape: shape, data: m.data}
}

// And combines two masks with logical AND under broadcasting.
func (m *Mask) And(other *Mask) (*Mask, error) {
	shape, err := BroadcastShapes(m.shape, other.shape)
	if err != nil {
		return nil, err
	}
	out := NewMask(shape)
	as := BroadcastStrides(m.shape, shape)
	bs := BroadcastStrides(other.shape, shape)
	ForEachIndex(shape, func(i int, idx []int) {
		var ao, bo int
		for d, v := range idx {
			ao += v * as[d]
			bo += v * bs[d]
		}
		out.data[i] = m.data[ao] && other.data[bo]
	})
	return out, nil
}

// Count returns the number of true elements.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.data {
		if v {
			n++
		}
	}
	return n
}

// ForEachIndex calls fn with the flat offset and multi-index of every element of shape,
// in row-major order. The idx slice is reused between calls.
func ForEachIndex(shape Shape, fn func(flat int, idx []int)) {
	n := shape.NumElements()
	idx := make([]int, len(shape))
	for flat := 0; flat < n; flat++ {
		fn(flat, idx)
		for d := len(shape) - 1; d >= 0; d-- {
			idx[d]++
			if idx[d] < shape[d] {
				break
			}
			idx[d] = 0
		}
	}
}
