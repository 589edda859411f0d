package ops

import (
	"math"

	"github.com/born-ml/javi/internal/tensor"
)

// CrossEntropyOp represents the mean negative log-likelihood of targets under
// softmax(logits), skipping targets equal to the ignore index.
//
// Backward for every counted row i:
//
//	dL/dlogits[i] = (softmax(logits[i]) - onehot(target[i])) / count
//
// Ignored rows receive zero gradient.
type CrossEntropyOp struct {
	unaryOp
	targets     *tensor.Indices
	ignoreIndex int32
}

// NewCrossEntropyOp creates a new CrossEntropyOp.
func NewCrossEntropyOp(logits, output *tensor.RawTensor, targets *tensor.Indices, ignoreIndex int32) *CrossEntropyOp {
	return &CrossEntropyOp{
		unaryOp:     unaryOp{input: logits, output: output},
		targets:     targets,
		ignoreIndex: ignoreIndex,
	}
}

// Backward computes the logits gradient.
func (op *CrossEntropyOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	shape := op.input.Shape()
	c := shape[1]
	td := op.targets.Data()

	count := 0
	for _, t := range td {
		if t != op.ignoreIndex {
			count++
		}
	}
	grad := tensor.MustRaw(shape)
	if count == 0 {
		return []*tensor.RawTensor{grad}
	}

	scale := float64(outputGrad.Data()[0]) / float64(count)
	ld, gd := op.input.Data(), grad.Data()
	for i, t := range td {
		if t == op.ignoreIndex {
			continue
		}
		row := ld[i*c : (i+1)*c]
		maxVal := row[0]
		for _, v := range row[1:] {
			maxVal = max(maxVal, v)
		}
		var sum float64
		for _, v := range row {
			sum += math.Exp(float64(v - maxVal))
		}
		g := gd[i*c : (i+1)*c]
		for j, v := range row {
			p := math.Exp(float64(v-maxVal)) / sum
			if int32(j) == t {
				p--
			}
			g[j] = float32(p * scale)
		}
	}
	return []*tensor.RawTensor{grad}
}
