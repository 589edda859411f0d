package tensor

import (
	"fmt"
	"math"
)

// RawTensor is the low-level float32 storage shared by every backend.
// Data is contiguous and row-major; kernels never keep views into another tensor.
type RawTensor struct {
	shape  Shape
	stride []int
	data   []float32
}

// NewRaw allocates a zero-filled tensor with the given shape.
func NewRaw(shape Shape) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	return &RawTensor{
		shape:  shape.Clone(),
		stride: shape.Strides(),
		data:   make([]float32, shape.NumElements()),
	}, nil
}

// MustRaw is NewRaw for shapes computed by kernels; it panics on an invalid shape.
func MustRaw(shape Shape) *RawTensor {
	r, err := NewRaw(shape)
	if err != nil {
		panic(err)
	}
	return r
}

// FromFloat32 wraps data (without copying) as a tensor of the given shape.
func FromFloat32(data []float32, shape Shape) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if len(data) != shape.NumElements() {
		return nil, fmt.Errorf("data length %d does not match shape %v (%d elements)",
			len(data), shape, shape.NumElements())
	}
	return &RawTensor{shape: shape.Clone(), stride: shape.Strides(), data: data}, nil
}

// Shape returns the tensor's shape. Callers must not modify it.
func (r *RawTensor) Shape() Shape { return r.shape }

// Strides returns the row-major strides.
func (r *RawTensor) Strides() []int { return r.stride }

// Data returns the underlying buffer.
func (r *RawTensor) Data() []float32 { return r.data }

// NumElements returns the element count.
func (r *RawTensor) NumElements() int { return len(r.data) }

// ByteSize returns the storage size in bytes.
func (r *RawTensor) ByteSize() int { return len(r.data) * 4 }

// At returns the element at the given multi-dimensional index.
func (r *RawTensor) At(indices ...int) float32 {
	if len(indices) != len(r.shape) {
		panic(fmt.Sprintf("tensor: At expects %d indices, got %d", len(r.shape), len(indices)))
	}
	offset := 0
	for i, idx := range indices {
		if idx < 0 || idx >= r.shape[i] {
			panic(fmt.Sprintf("tensor: index %d out of range for axis %d of shape %v", idx, i, r.shape))
		}
		offset += idx * r.stride[i]
	}
	return r.data[offset]
}

// Clone returns a deep copy.
func (r *RawTensor) Clone() *RawTensor {
	data := make([]float32, len(r.data))
	copy(data, r.data)
	return &RawTensor{shape: r.shape.Clone(), stride: append([]int(nil), r.stride...), data: data}
}

// WithShape returns a tensor sharing r's buffer under a new shape with the same element count.
func (r *RawTensor) WithShape(shape Shape) *RawTensor {
	if shape.NumElements() != len(r.data) {
		panic(fmt.Sprintf("tensor: cannot view %v as %v", r.shape, shape))
	}
	return &RawTensor{shape: shape.Clone(), stride: shape.Strides(), data: r.data}
}

// IsFinite reports whether every element is neither NaN nor infinite.
func (r *RawTensor) IsFinite() bool {
	for _, v := range r.data {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// String returns a short description for debugging.
func (r *RawTensor) String() string {
	return fmt.Sprintf("RawTensor(shape=%v)", r.shape)
}
