package generate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/javi/internal/backend/cpu"
	"github.com/born-ml/javi/internal/nn"
	"github.com/born-ml/javi/internal/tensor"
)

const (
	pad int32 = 0
	sos int32 = 1
	eos int32 = 2
)

// scriptedModel emits script[t-1] as the most likely token for a prefix of length t.
type scriptedModel struct {
	backend *cpu.CPUBackend
	vocab   int
	script  []int32
	encoded int
	decoded []int
}

func (m *scriptedModel) Encode(src *tensor.Indices, _ *tensor.Mask) *tensor.Tensor[*cpu.CPUBackend] {
	m.encoded++
	return tensor.Zeros(tensor.Shape{1, src.Shape()[1], 1}, m.backend)
}

func (m *scriptedModel) Decode(trg *tensor.Indices, _ *tensor.Tensor[*cpu.CPUBackend], _, trgMask *tensor.Mask) *tensor.Tensor[*cpu.CPUBackend] {
	t := trg.Shape()[1]
	if !trgMask.Shape().Equal(tensor.Shape{1, t, t}) {
		panic("unexpected target mask shape")
	}
	m.decoded = append(m.decoded, t)
	return tensor.Zeros(tensor.Shape{1, t, 1}, m.backend)
}

func (m *scriptedModel) Project(hidden *tensor.Tensor[*cpu.CPUBackend]) *tensor.Tensor[*cpu.CPUBackend] {
	t := hidden.Shape()[1]
	logits := tensor.Zeros(tensor.Shape{1, t, m.vocab}, m.backend)
	if t-1 < len(m.script) {
		logits.Data()[(t-1)*m.vocab+int(m.script[t-1])] = 5
	}
	return logits
}

func (m *scriptedModel) MaxSeqLen() int { return 16 }

func TestGreedyStopsAtEOS(t *testing.T) {
	m := &scriptedModel{backend: cpu.New(), vocab: 5, script: []int32{3, 4, eos, 3}}
	res, err := Greedy[*cpu.CPUBackend](m, []int32{3, 4}, Config{MaxLen: 10, SOS: sos, EOS: eos, SrcPad: pad})
	require.NoError(t, err)

	assert.Equal(t, []int32{sos, 3, 4, eos}, res.IDs)
	assert.Equal(t, StopEOS, res.Reason)
	assert.Equal(t, 3, res.Steps)
	assert.Equal(t, 1, m.encoded, "the source is encoded once")
	assert.Equal(t, []int{1, 2, 3}, m.decoded, "one decoder pass per growing prefix")

	want := 3 * (5 - math.Log(math.Exp(5)+4))
	assert.InDelta(t, want, res.LogProb, 1e-9)
}

func TestGreedyTruncatesAtMaxLen(t *testing.T) {
	m := &scriptedModel{backend: cpu.New(), vocab: 5, script: []int32{3, 3, 3, 3, 3, 3, 3, 3}}
	res, err := Greedy[*cpu.CPUBackend](m, []int32{3}, Config{MaxLen: 4, SOS: sos, EOS: eos})
	require.NoError(t, err)

	assert.Equal(t, []int32{sos, 3, 3, 3}, res.IDs)
	assert.Equal(t, StopMaxLen, res.Reason)
	assert.Equal(t, "max_len", res.Reason.String())
	assert.Equal(t, 3, res.Steps)
}

func TestGreedyTiesPickLowestID(t *testing.T) {
	// An empty script leaves every logit at 0.
	m := &scriptedModel{backend: cpu.New(), vocab: 5}
	res, err := Greedy[*cpu.CPUBackend](m, []int32{4}, Config{MaxLen: 3, SOS: sos, EOS: eos})
	require.NoError(t, err)
	assert.Equal(t, []int32{sos, 0, 0}, res.IDs)
	assert.InDelta(t, 2*-math.Log(5), res.LogProb, 1e-9)
}

func TestGreedyRejectsInvalidInput(t *testing.T) {
	m := &scriptedModel{backend: cpu.New(), vocab: 5}
	for _, maxLen := range []int{-1, 0, 1, 18} {
		_, err := Greedy[*cpu.CPUBackend](m, []int32{3}, Config{MaxLen: maxLen})
		assert.ErrorIs(t, err, ErrInvalidMaxLen, "max len %d", maxLen)
	}
	_, err := Greedy[*cpu.CPUBackend](m, nil, Config{MaxLen: 5})
	assert.ErrorIs(t, err, ErrEmptySource)
	assert.Zero(t, m.encoded)
}

// TestGreedyToyTransformer decodes with a real 1-layer, 1-head, d_model=4 model over
// the vocabulary {<pad>=0, <sos>=1, <eos>=2, a=3, b=4}.
func TestGreedyToyTransformer(t *testing.T) {
	cfg := nn.Config{
		SrcVocab: 5, TrgVocab: 5, DModel: 4, Heads: 1, Layers: 1,
		DFF: 8, Dropout: 0.1, Eps: 1e-6, MaxSeqLen: 16,
	}
	for seed := range uint64(5) {
		model, err := nn.NewTransformer(cfg, cpu.New(), nn.WithSeed(seed))
		require.NoError(t, err)

		const maxLen = 12
		res, err := Greedy[*cpu.CPUBackend](model, []int32{3, 4}, Config{MaxLen: maxLen, SOS: sos, EOS: eos, SrcPad: pad})
		require.NoError(t, err)

		require.NotEmpty(t, res.IDs)
		assert.Equal(t, sos, res.IDs[0])
		assert.LessOrEqual(t, len(res.IDs), maxLen)
		assert.Equal(t, len(res.IDs)-1, res.Steps)
		last := res.IDs[len(res.IDs)-1]
		if res.Reason == StopEOS {
			assert.Equal(t, eos, last)
		} else {
			assert.Len(t, res.IDs, maxLen)
			assert.NotContains(t, res.IDs[1:], eos)
		}
		assert.LessOrEqual(t, res.LogProb, 0.0)
	}
}
