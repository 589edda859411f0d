package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/javi/internal/parallel"
	"github.com/born-ml/javi/internal/tensor"
)

// FillMasked copies x and overwrites with value every element whose keep flag is false.
// keep must broadcast to x's shape without enlarging it.
func (cpu *CPUBackend) FillMasked(x *tensor.RawTensor, keep *tensor.Mask, value float32) *tensor.RawTensor {
	shape := x.Shape()
	bshape, err := tensor.BroadcastShapes(shape, keep.Shape())
	if err != nil || !bshape.Equal(shape) {
		panic(fmt.Sprintf("fill masked: mask %v does not broadcast to %v", keep.Shape(), shape))
	}
	ms := tensor.BroadcastStrides(keep.Shape(), shape)
	out := x.Clone()
	od, md := out.Data(), keep.Data()
	last := len(shape) - 1
	inner := shape[last]
	parallel.Range(len(od)/inner, cpu.par, func(start, end int) {
		for r := start; r < end; r++ {
			mo, rem := 0, r
			for d := last - 1; d >= 0; d-- {
				mo += (rem % shape[d]) * ms[d]
				rem /= shape[d]
			}
			row := od[r*inner : (r+1)*inner]
			for j := range row {
				if !md[mo+j*ms[last]] {
					row[j] = value
				}
			}
		}
	})
	return out
}

// Embedding gathers rows of weight for every id.
func (cpu *CPUBackend) Embedding(weight *tensor.RawTensor, ids *tensor.Indices) *tensor.RawTensor {
	ws := weight.Shape()
	if len(ws) != 2 {
		panic(fmt.Sprintf("embedding: weight must be [vocab, dim], got %v", ws))
	}
	vocab, dim := ws[0], ws[1]
	out := tensor.MustRaw(append(ids.Shape().Clone(), dim))
	wd, od := weight.Data(), out.Data()
	for i, id := range ids.Data() {
		if id < 0 || int(id) >= vocab {
			panic(fmt.Sprintf("embedding: id %d out of range [0, %d)", id, vocab))
		}
		copy(od[i*dim:(i+1)*dim], wd[int(id)*dim:(int(id)+1)*dim])
	}
	return out
}

// CrossEntropy computes the mean negative log-likelihood of targets under the row-wise
// softmax of logits [N, C]. Targets equal to ignoreIndex are skipped. If every target is
// ignored the loss is 0.
func (cpu *CPUBackend) CrossEntropy(logits *tensor.RawTensor, targets *tensor.Indices, ignoreIndex int32) *tensor.RawTensor {
	ls := logits.Shape()
	if len(ls) != 2 || targets.Shape().NumElements() != ls[0] {
		panic(fmt.Sprintf("cross entropy: logits %v incompatible with targets %v", ls, targets.Shape()))
	}
	n, c := ls[0], ls[1]
	ld, td := logits.Data(), targets.Data()

	var total float64
	count := 0
	for i := 0; i < n; i++ {
		t := td[i]
		if t == ignoreIndex {
			continue
		}
		if t < 0 || int(t) >= c {
			panic(fmt.Sprintf("cross entropy: target %d out of range [0, %d)", t, c))
		}
		total += LogSumExp(ld[i*c:(i+1)*c]) - float64(ld[i*c+int(t)])
		count++
	}

	out := tensor.MustRaw(tensor.Shape{})
	if count > 0 {
		out.Data()[0] = float32(total / float64(count))
	}
	return out
}

// LogSumExp returns log(sum(exp(row))) computed stably in float64.
func LogSumExp(row []float32) float64 {
	maxVal := row[0]
	for _, v := range row[1:] {
		maxVal = max(maxVal, v)
	}
	var sum float64
	for _, v := range row {
		sum += math.Exp(float64(v - maxVal))
	}
	return float64(maxVal) + math.Log(sum)
}
