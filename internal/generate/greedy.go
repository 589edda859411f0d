// Package generate implements autoregressive greedy decoding for the translation model.
package generate

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/javi/internal/nn"
	"github.com/born-ml/javi/internal/tensor"
)

// Errors returned by Greedy.
var (
	ErrInvalidMaxLen = errors.New("generate: invalid max length")
	ErrEmptySource   = errors.New("generate: empty source sequence")
)

// Model is the part of the Transformer used while decoding.
type Model[B tensor.Backend] interface {
	Encode(src *tensor.Indices, srcMask *tensor.Mask) *tensor.Tensor[B]
	Decode(trg *tensor.Indices, memory *tensor.Tensor[B], srcMask, trgMask *tensor.Mask) *tensor.Tensor[B]
	Project(hidden *tensor.Tensor[B]) *tensor.Tensor[B]
	MaxSeqLen() int
}

// Config holds the reserved ids and the output length bound.
type Config struct {
	MaxLen int   // total output length including <sos>; at least 2
	SOS    int32 // target start marker
	EOS    int32 // target end marker
	SrcPad int32 // source padding id
}

// StopReason tells why decoding ended.
type StopReason int

// Stop reasons.
const (
	StopEOS    StopReason = iota // the model produced <eos>
	StopMaxLen                   // the output reached MaxLen without <eos>
)

// String returns "eos" or "max_len".
func (r StopReason) String() string {
	switch r {
	case StopEOS:
		return "eos"
	case StopMaxLen:
		return "max_len"
	default:
		return fmt.Sprintf("StopReason(%d)", int(r))
	}
}

// Result is a decoded target sequence.
type Result struct {
	// IDs starts with <sos> and ends with <eos> when Reason is StopEOS.
	// len(IDs) <= MaxLen.
	IDs []int32

	Reason StopReason

	// Steps is the number of decoder passes.
	Steps int

	// LogProb is the sum of log-probabilities of the chosen tokens.
	LogProb float64
}

// Greedy decodes src [S] one token at a time.
//
// The source is encoded once. Step i (1 <= i < MaxLen) runs the decoder over the
// current prefix of length i under a causal mask, takes the arg-max of the last
// position's distribution (lowest id on ties) and appends it. Decoding stops after
// <eos> or once the output holds MaxLen tokens; truncation is not an error.
func Greedy[B tensor.Backend](model Model[B], src []int32, cfg Config) (Result, error) {
	if cfg.MaxLen < 2 || cfg.MaxLen-1 > model.MaxSeqLen() {
		return Result{}, fmt.Errorf("%w: %d (must be in [2, %d])", ErrInvalidMaxLen, cfg.MaxLen, model.MaxSeqLen()+1)
	}
	if len(src) == 0 {
		return Result{}, ErrEmptySource
	}

	srcIDs := tensor.Row(src)
	srcMask := nn.SourceMask(srcIDs, cfg.SrcPad)
	memory := model.Encode(srcIDs, srcMask)

	outputs := make([]int32, 1, cfg.MaxLen)
	outputs[0] = cfg.SOS
	res := Result{Reason: StopMaxLen}

	for i := 1; i < cfg.MaxLen; i++ {
		logits := model.Project(model.Decode(tensor.Row(outputs), memory, srcMask, nn.CausalMask(i)))
		next, logProb := pick(lastRow(logits.Raw()))

		outputs = append(outputs, next)
		res.Steps++
		res.LogProb += logProb
		if next == cfg.EOS {
			res.Reason = StopEOS
			break
		}
	}
	res.IDs = outputs
	return res, nil
}

// lastRow returns the logits of the final position of a [1, T, V] tensor.
func lastRow(logits *tensor.RawTensor) []float32 {
	shape := logits.Shape()
	v := shape[len(shape)-1]
	data := logits.Data()
	return data[len(data)-v:]
}

// pick returns the arg-max id and its log-probability under softmax.
func pick(row []float32) (int32, float64) {
	values := make([]float64, len(row))
	for i, x := range row {
		values[i] = float64(x)
	}
	best := floats.MaxIdx(values)
	logProb := values[best] - floats.LogSumExp(values)
	if math.IsNaN(logProb) {
		logProb = math.Inf(-1)
	}
	return int32(best), logProb
}
