package translate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/javi/internal/backend/cpu"
	"github.com/born-ml/javi/internal/generate"
	"github.com/born-ml/javi/internal/nn"
	"github.com/born-ml/javi/internal/tensor"
	"github.com/born-ml/javi/internal/tokenizer"
	"github.com/born-ml/javi/internal/vocab"
)

func vocabs(t *testing.T) (*vocab.Vocab, *vocab.Vocab) {
	t.Helper()
	src, err := vocab.Build([][]string{{"私", "は", "学生", "です"}}, vocab.Options{Specials: vocab.SourceSpecials})
	require.NoError(t, err)
	trg, err := vocab.Build([][]string{{"tôi", "là", "sinh", "viên"}}, vocab.Options{Specials: vocab.TargetSpecials})
	require.NoError(t, err)
	return src, trg
}

func newTranslator(t *testing.T, seed uint64, maxLen int) (*Translator[*cpu.CPUBackend], *nn.Transformer[*cpu.CPUBackend]) {
	t.Helper()
	src, trg := vocabs(t)
	cfg := nn.Config{
		SrcVocab: src.Len(), TrgVocab: trg.Len(),
		DModel: 8, Heads: 2, Layers: 1, DFF: 16,
		Dropout: 0.1, Eps: 1e-6, MaxSeqLen: 6,
	}
	model, err := nn.NewTransformer(cfg, cpu.New(), nn.WithSeed(seed))
	require.NoError(t, err)
	tr, err := New[*cpu.CPUBackend](model, tokenizer.NewWhitespace(), src, trg, maxLen)
	require.NoError(t, err)
	return tr, model
}

func TestTranslateEmpty(t *testing.T) {
	tr, _ := newTranslator(t, 1, 10)
	for _, in := range []string{"", "   \t"} {
		got, err := tr.Translate(in)
		require.NoError(t, err)
		assert.Empty(t, got)
	}
}

func TestTranslateMatchesGreedy(t *testing.T) {
	for seed := range uint64(5) {
		tr, model := newTranslator(t, seed, 5)
		_, trg := vocabs(t)

		res, err := tr.TranslateDetailed("私 は 未知 です")
		require.NoError(t, err)
		assert.Equal(t, []string{"私", "は", "未知", "です"}, res.SourceTokens)
		assert.False(t, res.SourceTruncated)

		want, err := generate.Greedy[*cpu.CPUBackend](model, []int32{
			int32(tr.src.Index("私")), int32(tr.src.Index("は")),
			int32(tr.src.UnkIndex()), int32(tr.src.Index("です")),
		}, tr.cfg)
		require.NoError(t, err)
		assert.Equal(t, want.Reason, res.Reason)
		assert.InDelta(t, want.LogProb, res.LogProb, 1e-9)

		assert.LessOrEqual(t, len(res.Tokens), 4)
		assert.NotContains(t, res.Text, vocab.SOS)
		for _, tok := range res.Tokens {
			assert.NotEqual(t, vocab.SOS, tok)
			_, ok := trg.Lookup(tok)
			assert.True(t, ok)
		}
		var kept []string
		for i, id := range want.IDs {
			if id == tr.cfg.SOS || (i == len(want.IDs)-1 && want.Reason == generate.StopEOS) {
				continue
			}
			kept = append(kept, trg.Token(int(id)))
		}
		assert.Equal(t, kept, res.Tokens)
		assert.Equal(t, strings.Join(res.Tokens, " "), res.Text)

		again, err := tr.Translate("私 は 未知 です")
		require.NoError(t, err)
		assert.Equal(t, res.Text, again, "eval mode is deterministic")
	}
}

func TestTranslateTruncatesLongSource(t *testing.T) {
	tr, _ := newTranslator(t, 2, 100)
	assert.Equal(t, 7, tr.cfg.MaxLen, "capped at max_seq_len+1")

	res, err := tr.TranslateDetailed(strings.Repeat("学生 ", 20))
	require.NoError(t, err)
	assert.True(t, res.SourceTruncated)
	assert.Len(t, res.SourceTokens, 6)
}

func TestNewRejectsMismatchedVocab(t *testing.T) {
	src, trg := vocabs(t)
	model, err := nn.NewTransformer(nn.Config{
		SrcVocab: src.Len() + 1, TrgVocab: trg.Len(),
		DModel: 4, Heads: 1, Layers: 1, DFF: 8, Eps: 1e-6, MaxSeqLen: 4,
	}, cpu.New())
	require.NoError(t, err)

	_, err = New[*cpu.CPUBackend](model, tokenizer.NewWhitespace(), src, trg, 4)
	assert.ErrorIs(t, err, ErrVocabMismatch)

	_, err = New[*cpu.CPUBackend](model, tokenizer.NewWhitespace(), trg, trg, 4)
	assert.ErrorIs(t, err, ErrVocabMismatch)
}

func TestNewRejectsShortMaxLen(t *testing.T) {
	src, trg := vocabs(t)
	model, err := nn.NewTransformer(nn.Config{
		SrcVocab: src.Len(), TrgVocab: trg.Len(),
		DModel: 4, Heads: 1, Layers: 1, DFF: 8, Eps: 1e-6, MaxSeqLen: 4,
	}, cpu.New())
	require.NoError(t, err)

	_, err = New[*cpu.CPUBackend](model, tokenizer.NewWhitespace(), src, trg, 1)
	assert.ErrorIs(t, err, generate.ErrInvalidMaxLen)
}

// scriptedModel makes script[t-1] the arg-max for a target prefix of length t.
type scriptedModel struct {
	backend *cpu.CPUBackend
	cfg     nn.Config
	script  []int32
}

func (m *scriptedModel) Encode(src *tensor.Indices, _ *tensor.Mask) *tensor.Tensor[*cpu.CPUBackend] {
	return tensor.Zeros(tensor.Shape{1, src.Shape()[1], 1}, m.backend)
}

func (m *scriptedModel) Decode(trg *tensor.Indices, _ *tensor.Tensor[*cpu.CPUBackend], _, _ *tensor.Mask) *tensor.Tensor[*cpu.CPUBackend] {
	return tensor.Zeros(tensor.Shape{1, trg.Shape()[1], 1}, m.backend)
}

func (m *scriptedModel) Project(hidden *tensor.Tensor[*cpu.CPUBackend]) *tensor.Tensor[*cpu.CPUBackend] {
	t, v := hidden.Shape()[1], m.cfg.TrgVocab
	logits := tensor.Zeros(tensor.Shape{1, t, v}, m.backend)
	if t-1 < len(m.script) {
		logits.Data()[(t-1)*v+int(m.script[t-1])] = 5
	}
	return logits
}

func (m *scriptedModel) MaxSeqLen() int    { return m.cfg.MaxSeqLen }
func (m *scriptedModel) Config() nn.Config { return m.cfg }

func TestTranslateDropsEverySOS(t *testing.T) {
	src, trg := vocabs(t)
	id := func(tok string) int32 {
		i, ok := trg.Lookup(tok)
		require.True(t, ok, tok)
		return int32(i)
	}
	sos, eos := int32(trg.SOSIndex()), int32(trg.EOSIndex())

	tests := []struct {
		name   string
		script []int32
		want   string
		reason generate.StopReason
	}{
		{"mid sequence", []int32{id("tôi"), sos, id("là"), eos}, "tôi là", generate.StopEOS},
		{"trailing at max len", []int32{id("là"), id("là"), id("là"), sos}, "là là là", generate.StopMaxLen},
		{"only sos", []int32{sos, sos, sos, sos}, "", generate.StopMaxLen},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := &scriptedModel{
				backend: cpu.New(),
				cfg:     nn.Config{SrcVocab: src.Len(), TrgVocab: trg.Len(), MaxSeqLen: 8},
				script:  tc.script,
			}
			tr, err := New[*cpu.CPUBackend](m, tokenizer.NewWhitespace(), src, trg, 5)
			require.NoError(t, err)

			res, err := tr.TranslateDetailed("私 は 学生 です")
			require.NoError(t, err)
			assert.Equal(t, tc.reason, res.Reason)
			assert.Equal(t, tc.want, res.Text)
			assert.NotContains(t, res.Tokens, vocab.SOS)
		})
	}
}
