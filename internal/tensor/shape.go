package tensor

import (
	"fmt"
	"strings"
)

// Shape represents the dimensions of a tensor in row-major order.
type Shape []int

// NumElements returns the total number of elements described by the shape.
func (s Shape) NumElements() int {
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate checks that every dimension is strictly positive.
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim <= 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (must be > 0)", i, dim)
		}
	}
	return nil
}

// Equal reports whether two shapes have identical rank and dimensions.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	return append(Shape{}, s...)
}

// Axis resolves a possibly negative axis against the rank of s.
// Panics if the axis is out of range.
func (s Shape) Axis(axis int) int {
	if axis < 0 {
		axis += len(s)
	}
	if axis < 0 || axis >= len(s) {
		panic(fmt.Sprintf("tensor: axis %d out of range for shape %v", axis, s))
	}
	return axis
}

// Strides calculates row-major strides: stride[i] is the product of all dimensions after i.
func (s Shape) Strides() []int {
	strides := make([]int, len(s))
	step := 1
	for i := len(s) - 1; i >= 0; i-- {
		strides[i] = step
		step *= s[i]
	}
	return strides
}

// String formats the shape as [d0 d1 ...].
func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, d := range s {
		parts[i] = fmt.Sprint(d)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// BroadcastShapes applies NumPy broadcasting rules to a and b.
//
// Shapes are aligned from the right; missing leading dimensions count as 1 and a
// dimension of 1 stretches to match the other operand.
//
//	(2, 1, 5) + (3, 5) -> (2, 3, 5)
//	(4, 5)    + (4, 5) -> (4, 5)
//	(3, 4)    + (3, 5) -> error
func BroadcastShapes(a, b Shape) (Shape, error) {
	rank := max(len(a), len(b))
	out := make(Shape, rank)
	for i := 1; i <= rank; i++ {
		ad, bd := 1, 1
		if len(a)-i >= 0 {
			ad = a[len(a)-i]
		}
		if len(b)-i >= 0 {
			bd = b[len(b)-i]
		}
		switch {
		case ad == bd, bd == 1:
			out[rank-i] = ad
		case ad == 1:
			out[rank-i] = bd
		default:
			return nil, fmt.Errorf("shapes %v and %v are not broadcastable (axis %d: %d vs %d)",
				a, b, rank-i, ad, bd)
		}
	}
	return out, nil
}

// BroadcastStrides returns strides that read a tensor of shape src as if it had shape dst.
// Broadcast axes get stride 0. dst must be a valid broadcast target of src.
func BroadcastStrides(src, dst Shape) []int {
	strides := make([]int, len(dst))
	srcStrides := src.Strides()
	offset := len(dst) - len(src)
	for i := range dst {
		j := i - offset
		if j < 0 || src[j] == 1 {
			continue
		}
		strides[i] = srcStrides[j]
	}
	return strides
}
