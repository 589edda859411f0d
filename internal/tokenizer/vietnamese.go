package tokenizer

import (
	"github.com/dlclark/regexp2"
	"golang.org/x/text/unicode/norm"
)

// vietnameseRules are tried left to right at every position.
//
//	number        1.000,5  2024
//	abbreviation  "TP." in TP.HCM (dot directly followed by a letter)
//	word          letters and combining marks, with internal ' ’ or -
//	symbol        any other non-space rune
var vietnameseRules = regexp2.MustCompile(
	`\d+(?:[.,]\d+)*`+
		`|(?:\p{L}+\.)+(?=\p{L})`+
		`|[\p{L}\p{M}]+(?:['’\-][\p{L}\p{M}]+)*`+
		`|\S`,
	regexp2.None)

// Vietnamese is a rule-based tokenizer for Vietnamese text.
type Vietnamese struct{}

// NewVietnamese returns a Vietnamese tokenizer.
func NewVietnamese() *Vietnamese { return &Vietnamese{} }

// Tokenize splits the NFC-normalized sentence by the Vietnamese rules.
func (v *Vietnamese) Tokenize(sentence string) []string {
	s := norm.NFC.String(sentence)
	var out []string
	m, err := vietnameseRules.FindStringMatch(s)
	for err == nil && m != nil {
		out = append(out, m.String())
		m, err = vietnameseRules.FindNextMatch(m)
	}
	return out
}

// Language returns "vi".
func (v *Vietnamese) Language() string { return LangVietnamese }
