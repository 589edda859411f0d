// Package translate turns a Japanese sentence into Vietnamese text with a trained model.
package translate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/born-ml/javi/internal/generate"
	"github.com/born-ml/javi/internal/nn"
	"github.com/born-ml/javi/internal/tensor"
	"github.com/born-ml/javi/internal/tokenizer"
	"github.com/born-ml/javi/internal/vocab"
)

// ErrVocabMismatch is returned when a vocabulary does not fit the model.
var ErrVocabMismatch = errors.New("translate: vocabulary does not match model")

// Result is a translation with the details of how it was produced.
type Result struct {
	Text            string
	SourceTokens    []string // after truncation
	Tokens          []string // target tokens without any <sos> or the final <eos>
	Reason          generate.StopReason
	SourceTruncated bool
	LogProb         float64
}

// Model is the decoding surface of the Transformer plus its configuration.
type Model[B tensor.Backend] interface {
	generate.Model[B]
	Config() nn.Config
}

// Translator bundles the source tokenizer, both vocabularies and the model.
//
// Translate is safe for concurrent use as long as the model stays in eval mode.
type Translator[B tensor.Backend] struct {
	model    Model[B]
	tok      tokenizer.Tokenizer
	src, trg *vocab.Vocab
	cfg      generate.Config
}

// New checks that the vocabularies match the model and returns a translator that
// decodes up to maxLen target tokens, <sos> included. maxLen is capped at what the
// model's positional table allows.
func New[B tensor.Backend](model Model[B], tok tokenizer.Tokenizer, src, trg *vocab.Vocab, maxLen int) (*Translator[B], error) {
	mc := model.Config()
	if src.Len() != mc.SrcVocab {
		return nil, fmt.Errorf("%w: source vocabulary has %d tokens, model expects %d", ErrVocabMismatch, src.Len(), mc.SrcVocab)
	}
	if trg.Len() != mc.TrgVocab {
		return nil, fmt.Errorf("%w: target vocabulary has %d tokens, model expects %d", ErrVocabMismatch, trg.Len(), mc.TrgVocab)
	}
	if trg.SOSIndex() < 0 || trg.EOSIndex() < 0 {
		return nil, fmt.Errorf("%w: target vocabulary needs <sos> and <eos>", ErrVocabMismatch)
	}
	if src.PadIndex() < 0 || src.UnkIndex() < 0 {
		return nil, fmt.Errorf("%w: source vocabulary needs <unk> and <pad>", ErrVocabMismatch)
	}
	if maxLen < 2 {
		return nil, fmt.Errorf("%w: %d", generate.ErrInvalidMaxLen, maxLen)
	}
	return &Translator[B]{
		model: model,
		tok:   tok,
		src:   src,
		trg:   trg,
		cfg: generate.Config{
			MaxLen: min(maxLen, model.MaxSeqLen()+1),
			SOS:    int32(trg.SOSIndex()),
			EOS:    int32(trg.EOSIndex()),
			SrcPad: int32(src.PadIndex()),
		},
	}, nil
}

// Translate returns the Vietnamese translation of sentence. A sentence with no tokens
// translates to the empty string.
func (t *Translator[B]) Translate(sentence string) (string, error) {
	res, err := t.TranslateDetailed(sentence)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// TranslateDetailed is Translate with the intermediate tokens and stop reason.
// Sources longer than the model's maximum sequence length are truncated.
func (t *Translator[B]) TranslateDetailed(sentence string) (Result, error) {
	tokens := t.tok.Tokenize(sentence)
	var res Result
	if n := t.model.MaxSeqLen(); len(tokens) > n {
		tokens = tokens[:n]
		res.SourceTruncated = true
	}
	res.SourceTokens = tokens
	if len(tokens) == 0 {
		res.Reason = generate.StopEOS
		return res, nil
	}

	ids := make([]int32, len(tokens))
	for i, tok := range tokens {
		ids[i] = int32(t.src.Index(tok))
	}
	out, err := generate.Greedy[B](t.model, ids, t.cfg)
	if err != nil {
		return Result{}, fmt.Errorf("translate: %w", err)
	}

	body := out.IDs
	if out.Reason == generate.StopEOS {
		body = body[:len(body)-1]
	}
	// <sos> never belongs in the text, wherever the model emits it.
	res.Tokens = make([]string, 0, len(body))
	for _, id := range body {
		if id == t.cfg.SOS {
			continue
		}
		res.Tokens = append(res.Tokens, t.trg.Token(int(id)))
	}
	res.Text = strings.Join(res.Tokens, " ")
	res.Reason = out.Reason
	res.LogProb = out.LogProb
	return res, nil
}
