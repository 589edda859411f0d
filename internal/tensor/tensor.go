package tensor

import "fmt"

// Tensor couples float32 storage with the backend that computes on it.
//
// Every operation dispatches to the backend, so a tensor created on an autodiff
// backend records its history on that backend's tape.
//
// Example:
//
//	backend := cpu.New()
//	x := tensor.Ones(tensor.Shape{2, 3}, backend)
//	y := x.MulScalar(2).Add(x) // [2, 3] filled with 3
type Tensor[B Backend] struct {
	raw     *RawTensor
	backend B
}

// New wraps a RawTensor.
func New[B Backend](raw *RawTensor, b B) *Tensor[B] {
	return &Tensor[B]{raw: raw, backend: b}
}

// FromSlice copies data into a new tensor of the given shape.
func FromSlice[B Backend](data []float32, shape Shape, b B) (*Tensor[B], error) {
	raw, err := NewRaw(shape)
	if err != nil {
		return nil, err
	}
	if len(data) != raw.NumElements() {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", shape, raw.NumElements(), len(data))
	}
	copy(raw.data, data)
	return New(raw, b), nil
}

// Zeros creates a zero-filled tensor.
func Zeros[B Backend](shape Shape, b B) *Tensor[B] {
	return New(MustRaw(shape), b)
}

// Full creates a tensor with every element set to value.
func Full[B Backend](shape Shape, value float32, b B) *Tensor[B] {
	raw := MustRaw(shape)
	for i := range raw.data {
		raw.data[i] = value
	}
	return New(raw, b)
}

// Ones creates a tensor filled with 1.
func Ones[B Backend](shape Shape, b B) *Tensor[B] {
	return Full(shape, 1, b)
}

// Raw returns the underlying storage.
func (t *Tensor[B]) Raw() *RawTensor { return t.raw }

// Backend returns the backend.
func (t *Tensor[B]) Backend() B { return t.backend }

// Shape returns the shape.
func (t *Tensor[B]) Shape() Shape { return t.raw.shape }

// Data returns the underlying buffer.
func (t *Tensor[B]) Data() []float32 { return t.raw.data }

// At returns one element.
func (t *Tensor[B]) At(indices ...int) float32 { return t.raw.At(indices...) }

// Item returns the value of a single-element tensor.
func (t *Tensor[B]) Item() float32 {
	if t.raw.NumElements() != 1 {
		panic(fmt.Sprintf("tensor: Item on tensor with shape %v", t.raw.shape))
	}
	return t.raw.data[0]
}

// Clone deep-copies the storage. The copy has no recorded history.
func (t *Tensor[B]) Clone() *Tensor[B] {
	return New(t.raw.Clone(), t.backend)
}

// String returns a short description.
func (t *Tensor[B]) String() string {
	return fmt.Sprintf("Tensor(shape=%v, backend=%s)", t.raw.shape, t.backend.Name())
}

// Add performs element-wise addition with broadcasting.
func (t *Tensor[B]) Add(other *Tensor[B]) *Tensor[B] {
	return New(t.backend.Add(t.raw, other.raw), t.backend)
}

// Sub performs element-wise subtraction with broadcasting.
func (t *Tensor[B]) Sub(other *Tensor[B]) *Tensor[B] {
	return New(t.backend.Sub(t.raw, other.raw), t.backend)
}

// Mul performs element-wise multiplication with broadcasting.
func (t *Tensor[B]) Mul(other *Tensor[B]) *Tensor[B] {
	return New(t.backend.Mul(t.raw, other.raw), t.backend)
}

// Div performs element-wise division with broadcasting.
func (t *Tensor[B]) Div(other *Tensor[B]) *Tensor[B] {
	return New(t.backend.Div(t.raw, other.raw), t.backend)
}

// MulScalar multiplies every element by s.
func (t *Tensor[B]) MulScalar(s float32) *Tensor[B] {
	return New(t.backend.MulScalar(t.raw, s), t.backend)
}

// AddScalar adds s to every element.
func (t *Tensor[B]) AddScalar(s float32) *Tensor[B] {
	return New(t.backend.AddScalar(t.raw, s), t.backend)
}

// MatMul multiplies the last two axes: (..., M, K) @ (..., K, N) -> (..., M, N).
func (t *Tensor[B]) MatMul(other *Tensor[B]) *Tensor[B] {
	return New(t.backend.MatMul(t.raw, other.raw, false), t.backend)
}

// MatMulT multiplies by the transpose of other's last two axes:
// (..., M, K) @ (..., N, K)^T -> (..., M, N).
func (t *Tensor[B]) MatMulT(other *Tensor[B]) *Tensor[B] {
	return New(t.backend.MatMul(t.raw, other.raw, true), t.backend)
}

// Reshape returns a tensor with the same elements in a new shape.
// One dimension may be -1 and is inferred.
func (t *Tensor[B]) Reshape(dims ...int) *Tensor[B] {
	return New(t.backend.Reshape(t.raw, inferShape(dims, t.raw.NumElements())), t.backend)
}

// Transpose permutes axes. Without arguments the last two axes are swapped.
func (t *Tensor[B]) Transpose(axes ...int) *Tensor[B] {
	return New(t.backend.Transpose(t.raw, axes...), t.backend)
}

// Sqrt computes the element-wise square root.
func (t *Tensor[B]) Sqrt() *Tensor[B] {
	return New(t.backend.Sqrt(t.raw), t.backend)
}

// ReLU computes max(0, x).
func (t *Tensor[B]) ReLU() *Tensor[B] {
	return New(t.backend.ReLU(t.raw), t.backend)
}

// Softmax normalizes along the last axis.
func (t *Tensor[B]) Softmax() *Tensor[B] {
	return New(t.backend.Softmax(t.raw), t.backend)
}

// SumDim sums along dim.
func (t *Tensor[B]) SumDim(dim int, keepDim bool) *Tensor[B] {
	return New(t.backend.SumDim(t.raw, dim, keepDim), t.backend)
}

// MeanDim averages along dim.
func (t *Tensor[B]) MeanDim(dim int, keepDim bool) *Tensor[B] {
	n := t.raw.shape[t.raw.shape.Axis(dim)]
	return t.SumDim(dim, keepDim).MulScalar(1 / float32(n))
}

// FillMasked sets every element whose keep flag is false to value.
func (t *Tensor[B]) FillMasked(keep *Mask, value float32) *Tensor[B] {
	return New(t.backend.FillMasked(t.raw, keep, value), t.backend)
}

// Embedding treats t as a [vocab, dim] table and gathers rows for ids.
func (t *Tensor[B]) Embedding(ids *Indices) *Tensor[B] {
	return New(t.backend.Embedding(t.raw, ids), t.backend)
}

// CrossEntropy treats t as [N, C] logits and returns the mean loss over
// targets that differ from ignoreIndex.
func (t *Tensor[B]) CrossEntropy(targets *Indices, ignoreIndex int32) *Tensor[B] {
	return New(t.backend.CrossEntropy(t.raw, targets, ignoreIndex), t.backend)
}

func inferShape(dims []int, n int) Shape {
	shape := make(Shape, len(dims))
	infer, known := -1, 1
	for i, d := range dims {
		if d == -1 {
			if infer >= 0 {
				panic("tensor: only one dimension can be inferred")
			}
			infer = i
			continue
		}
		shape[i] = d
		known *= d
	}
	if infer >= 0 {
		if known == 0 || n%known != 0 {
			panic(fmt.Sprintf("tensor: cannot infer dimension for %d elements from %v", n, dims))
		}
		shape[infer] = n / known
	}
	return shape
}
