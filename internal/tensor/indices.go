package tensor

import "fmt"

// Indices is an int32 tensor of token ids, normally shaped [batch, seq].
type Indices struct {
	shape Shape
	data  []int32
}

// NewIndices wraps data (without copying) as an index tensor.
func NewIndices(data []int32, shape Shape) (*Indices, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if len(data) != shape.NumElements() {
		return nil, fmt.Errorf("index data length %d does not match shape %v", len(data), shape)
	}
	return &Indices{shape: shape.Clone(), data: data}, nil
}

// Row builds a [1, len(ids)] index tensor from a single sequence.
func Row(ids []int32) *Indices {
	data := append([]int32(nil), ids...)
	return &Indices{shape: Shape{1, len(ids)}, data: data}
}

// PadRows stacks variable-length sequences into a [len(rows), maxLen] tensor,
// filling the tail of shorter rows with pad.
func PadRows(rows [][]int32, pad int32) *Indices {
	if len(rows) == 0 {
		panic("tensor: PadRows needs at least one row")
	}
	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	if width == 0 {
		panic("tensor: PadRows needs at least one non-empty row")
	}
	data := make([]int32, len(rows)*width)
	for b, r := range rows {
		row := data[b*width : (b+1)*width]
		n := copy(row, r)
		for i := n; i < width; i++ {
			row[i] = pad
		}
	}
	return &Indices{shape: Shape{len(rows), width}, data: data}
}

// Shape returns the shape.
func (x *Indices) Shape() Shape { return x.shape }

// Data returns the underlying ids.
func (x *Indices) Data() []int32 { return x.data }

// BatchRow returns row b of a rank-2 index tensor.
func (x *Indices) BatchRow(b int) []int32 {
	if len(x.shape) != 2 {
		panic(fmt.Sprintf("tensor: BatchRow on rank-%d indices", len(x.shape)))
	}
	w := x.shape[1]
	return x.data[b*w : (b+1)*w]
}

// Columns returns a copy of columns [from, to) of a rank-2 index tensor.
func (x *Indices) Columns(from, to int) *Indices {
	if len(x.shape) != 2 || from < 0 || to > x.shape[1] || from >= to {
		panic(fmt.Sprintf("tensor: invalid column range [%d, %d) for indices %v", from, to, x.shape))
	}
	rows, w := x.shape[0], to-from
	data := make([]int32, rows*w)
	for b := 0; b < rows; b++ {
		copy(data[b*w:(b+1)*w], x.BatchRow(b)[from:to])
	}
	return &Indices{shape: Shape{rows, w}, data: data}
}

// NotEqual returns a mask that is true wherever the id differs from value.
func (x *Indices) NotEqual(value int32) *Mask {
	m := NewMask(x.shape)
	for i, id := range x.data {
		m.data[i] = id != value
	}
	return m
}
