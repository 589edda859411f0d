package nn

import (
	"fmt"
	"math"

	"github.com/born-ml/javi/internal/tensor"
)

// SinusoidalTable returns the [maxLen, dModel] positional table, row-major.
//
// Column c of row pos holds sin(pos / 10000^(2c/dModel)) for even c and
// cos(pos / 10000^(2c/dModel)) for odd c. The odd columns therefore use a larger
// exponent than the classic formulation; trained checkpoints depend on it.
//
// The table is computed in float64 and is bit-identical across calls.
func SinusoidalTable(dModel, maxLen int) []float32 {
	if dModel <= 0 || maxLen <= 0 {
		panic(fmt.Sprintf("positional: dModel and maxLen must be positive, got %d and %d", dModel, maxLen))
	}

	table := make([]float32, maxLen*dModel)
	for pos := range maxLen {
		row := table[pos*dModel : (pos+1)*dModel]
		for c := range dModel {
			angle := float64(pos) / math.Pow(10000, float64(2*c)/float64(dModel))
			if c%2 == 0 {
				row[c] = float32(math.Sin(angle))
			} else {
				row[c] = float32(math.Cos(angle))
			}
		}
	}
	return table
}

// PositionalEncoder scales embeddings by sqrt(dModel) and adds the fixed sinusoidal table.
//
// The table is a buffer, not a parameter: it never receives gradients and is not saved.
type PositionalEncoder[B tensor.Backend] struct {
	dModel int
	maxLen int
	table  []float32
	scale  float32
}

// NewPositionalEncoder precomputes the table for sequences up to maxLen.
func NewPositionalEncoder[B tensor.Backend](dModel, maxLen int) *PositionalEncoder[B] {
	return &PositionalEncoder[B]{
		dModel: dModel,
		maxLen: maxLen,
		table:  SinusoidalTable(dModel, maxLen),
		scale:  float32(math.Sqrt(float64(dModel))),
	}
}

// Forward computes x*sqrt(dModel) + PE[:seq] for x [batch, seq, dModel].
// It panics when seq exceeds maxLen.
func (p *PositionalEncoder[B]) Forward(x *tensor.Tensor[B]) *tensor.Tensor[B] {
	shape := x.Shape()
	if len(shape) != 3 || shape[2] != p.dModel {
		panic(fmt.Sprintf("positional: expected [batch, seq, %d], got %v", p.dModel, shape))
	}
	seq := shape[1]
	if seq > p.maxLen {
		panic(fmt.Sprintf("positional: sequence length %d exceeds maximum %d", seq, p.maxLen))
	}

	raw, err := tensor.FromFloat32(p.table[:seq*p.dModel], tensor.Shape{seq, p.dModel})
	if err != nil {
		panic(err)
	}
	return x.MulScalar(p.scale).Add(tensor.New(raw, x.Backend()))
}

// MaxLen returns the longest supported sequence.
func (p *PositionalEncoder[B]) MaxLen() int { return p.maxLen }
