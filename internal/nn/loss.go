package nn

import (
	"fmt"

	"github.com/born-ml/javi/internal/tensor"
)

// SequenceLoss is the mean token cross-entropy of logits [batch, T, vocab] against
// targets [batch, T]. Positions equal to ignoreIndex (the target pad) contribute
// neither loss nor gradient.
func SequenceLoss[B tensor.Backend](logits *tensor.Tensor[B], targets *tensor.Indices, ignoreIndex int32) *tensor.Tensor[B] {
	shape := logits.Shape()
	if len(shape) != 3 || !targets.Shape().Equal(shape[:2]) {
		panic(fmt.Sprintf("loss: logits %v do not match targets %v", shape, targets.Shape()))
	}

	flat, err := tensor.NewIndices(targets.Data(), tensor.Shape{shape[0] * shape[1]})
	if err != nil {
		panic(err)
	}
	return logits.Reshape(-1, shape[2]).CrossEntropy(flat, ignoreIndex)
}
