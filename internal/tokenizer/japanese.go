package tokenizer

import (
	"fmt"
	"strings"

	"github.com/ikawaha/kagome-dict/ipa"
	kagome "github.com/ikawaha/kagome/v2/tokenizer"
	"golang.org/x/text/unicode/norm"
)

// Japanese segments text with the kagome morphological analyzer.
type Japanese struct {
	t *kagome.Tokenizer
}

// NewJapanese builds a Japanese tokenizer backed by the IPA dictionary.
//
// Loading the dictionary takes a noticeable moment; build one tokenizer and share it.
func NewJapanese() (*Japanese, error) {
	t, err := kagome.New(ipa.Dict(), kagome.OmitBosEos())
	if err != nil {
		return nil, fmt.Errorf("tokenizer: load kagome ipa dictionary: %w", err)
	}
	return &Japanese{t: t}, nil
}

// Tokenize returns the surface forms of the morphemes of the NFKC-normalized sentence.
func (j *Japanese) Tokenize(sentence string) []string {
	s := norm.NFKC.String(sentence)
	morphs := j.t.Analyze(s, kagome.Normal)
	out := make([]string, 0, len(morphs))
	for _, m := range morphs {
		surface := strings.TrimSpace(m.Surface)
		if surface == "" {
			continue
		}
		out = append(out, surface)
	}
	return out
}

// Language returns "ja".
func (j *Japanese) Language() string { return LangJapanese }
