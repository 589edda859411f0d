// Package autodiff implements reverse-mode automatic differentiation as a backend decorator.
//
// AutodiffBackend wraps any tensor.Backend. Every operation is computed by the wrapped
// backend and, while the tape is recording, registered as an ops.Operation. Backward then
// replays the tape in reverse to produce gradients.
//
// Usage:
//
//	backend := autodiff.New(cpu.New())
//	backend.Tape().StartRecording()
//	loss := model.Forward(...).CrossEntropy(targets, pad)
//	grads := autodiff.Backward(loss, backend)
//	backend.Tape().Clear()
package autodiff

import (
	"github.com/born-ml/javi/internal/autodiff/ops"
	"github.com/born-ml/javi/internal/tensor"
)

// AutodiffBackend wraps a Backend and records operations on a GradientTape.
type AutodiffBackend[B tensor.Backend] struct {
	inner B
	tape  *GradientTape
}

// New creates a new AutodiffBackend wrapping the given backend.
func New[B tensor.Backend](backend B) *AutodiffBackend[B] {
	return &AutodiffBackend[B]{inner: backend, tape: NewGradientTape()}
}

// Tape returns the gradient tape.
func (b *AutodiffBackend[B]) Tape() *GradientTape { return b.tape }

// Inner returns the wrapped backend.
func (b *AutodiffBackend[B]) Inner() B { return b.inner }

// Name returns the backend name.
func (b *AutodiffBackend[B]) Name() string { return "Autodiff(" + b.inner.Name() + ")" }

func (b *AutodiffBackend[B]) record(op ops.Operation) {
	b.tape.Record(op)
}

// Add performs element-wise addition and records the operation.
func (b *AutodiffBackend[B]) Add(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Add(x, y)
	b.record(ops.NewAddOp(x, y, out))
	return out
}

// Sub performs element-wise subtraction and records the operation.
func (b *AutodiffBackend[B]) Sub(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Sub(x, y)
	b.record(ops.NewSubOp(x, y, out))
	return out
}

// Mul performs element-wise multiplication and records the operation.
func (b *AutodiffBackend[B]) Mul(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Mul(x, y)
	b.record(ops.NewMulOp(x, y, out))
	return out
}

// Div performs element-wise division and records the operation.
func (b *AutodiffBackend[B]) Div(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Div(x, y)
	b.record(ops.NewDivOp(x, y, out))
	return out
}

// MulScalar multiplies by a constant and records the operation.
func (b *AutodiffBackend[B]) MulScalar(x *tensor.RawTensor, s float32) *tensor.RawTensor {
	out := b.inner.MulScalar(x, s)
	b.record(ops.NewMulScalarOp(x, out, s))
	return out
}

// AddScalar adds a constant and records the operation.
func (b *AutodiffBackend[B]) AddScalar(x *tensor.RawTensor, s float32) *tensor.RawTensor {
	out := b.inner.AddScalar(x, s)
	b.record(ops.NewAddScalarOp(x, out))
	return out
}

// MatMul performs a (batched) matrix product and records the operation.
func (b *AutodiffBackend[B]) MatMul(x, y *tensor.RawTensor, transB bool) *tensor.RawTensor {
	out := b.inner.MatMul(x, y, transB)
	b.record(ops.NewMatMulOp(x, y, out, transB))
	return out
}

// Reshape changes the shape and records the operation.
func (b *AutodiffBackend[B]) Reshape(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	out := b.inner.Reshape(x, shape)
	b.record(ops.NewReshapeOp(x, out))
	return out
}

// Transpose permutes axes and records the operation.
func (b *AutodiffBackend[B]) Transpose(x *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	out := b.inner.Transpose(x, axes...)
	b.record(ops.NewTransposeOp(x, out, axes))
	return out
}

// Sqrt computes the square root and records the operation.
func (b *AutodiffBackend[B]) Sqrt(x *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Sqrt(x)
	b.record(ops.NewSqrtOp(x, out))
	return out
}

// ReLU applies the rectifier and records the operation.
func (b *AutodiffBackend[B]) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.ReLU(x)
	b.record(ops.NewReLUOp(x, out))
	return out
}

// Softmax normalizes the last axis and records the operation.
func (b *AutodiffBackend[B]) Softmax(x *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Softmax(x)
	b.record(ops.NewSoftmaxOp(x, out))
	return out
}

// SumDim reduces along dim and records the operation.
func (b *AutodiffBackend[B]) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	out := b.inner.SumDim(x, dim, keepDim)
	b.record(ops.NewSumDimOp(x, out, dim, keepDim))
	return out
}

// FillMasked overwrites masked positions and records the operation.
func (b *AutodiffBackend[B]) FillMasked(x *tensor.RawTensor, keep *tensor.Mask, value float32) *tensor.RawTensor {
	out := b.inner.FillMasked(x, keep, value)
	b.record(ops.NewFillMaskedOp(x, out, keep))
	return out
}

// Embedding gathers table rows and records the operation.
func (b *AutodiffBackend[B]) Embedding(weight *tensor.RawTensor, ids *tensor.Indices) *tensor.RawTensor {
	out := b.inner.Embedding(weight, ids)
	b.record(ops.NewEmbeddingOp(weight, out, ids))
	return out
}

// CrossEntropy computes the masked mean loss and records the operation.
func (b *AutodiffBackend[B]) CrossEntropy(logits *tensor.RawTensor, targets *tensor.Indices, ignoreIndex int32) *tensor.RawTensor {
	out := b.inner.CrossEntropy(logits, targets, ignoreIndex)
	b.record(ops.NewCrossEntropyOp(logits, out, targets, ignoreIndex))
	return out
}
