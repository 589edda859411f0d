package tensor

// Backend defines the operations a compute backend must provide.
// Backends own no tensor state: every operation allocates and returns a new RawTensor.
//
// Implementations:
//   - cpu.CPUBackend: gonum BLAS matrix products, parallel row kernels
//   - autodiff.AutodiffBackend: decorator that records operations for backpropagation
type Backend interface {
	// Element-wise binary operations with NumPy broadcasting.
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor
	Div(a, b *RawTensor) *RawTensor

	// Scalar operations.
	MulScalar(x *RawTensor, s float32) *RawTensor
	AddScalar(x *RawTensor, s float32) *RawTensor

	// MatMul multiplies the last two axes: [..., M, K] @ [..., K, N] -> [..., M, N].
	// Leading axes must match exactly. With transB the second operand is read as
	// [..., N, K] and transposed on the fly.
	MatMul(a, b *RawTensor, transB bool) *RawTensor

	// Shape operations.
	Reshape(x *RawTensor, shape Shape) *RawTensor
	Transpose(x *RawTensor, axes ...int) *RawTensor

	// Element-wise math.
	Sqrt(x *RawTensor) *RawTensor
	ReLU(x *RawTensor) *RawTensor

	// Softmax normalizes along the last axis.
	Softmax(x *RawTensor) *RawTensor

	// SumDim sums along one axis.
	SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor

	// FillMasked overwrites with value every element whose (broadcast) keep flag is false.
	FillMasked(x *RawTensor, keep *Mask, value float32) *RawTensor

	// Embedding gathers rows of weight [vocab, dim] for every id: ids [...] -> [..., dim].
	Embedding(weight *RawTensor, ids *Indices) *RawTensor

	// CrossEntropy returns the scalar mean negative log-likelihood of targets under
	// softmax(logits) for logits [N, C] and targets [N]. Rows whose target equals
	// ignoreIndex contribute nothing and are excluded from the mean.
	CrossEntropy(logits *RawTensor, targets *Indices, ignoreIndex int32) *RawTensor

	// Name identifies the backend in logs.
	Name() string
}
