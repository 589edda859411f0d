package tokenizer

import "strings"

// Whitespace splits on Unicode white space. It is used for pre-tokenized corpora and tests.
type Whitespace struct{}

// NewWhitespace returns a whitespace tokenizer.
func NewWhitespace() *Whitespace { return &Whitespace{} }

// Tokenize returns the fields of sentence.
func (w *Whitespace) Tokenize(sentence string) []string { return strings.Fields(sentence) }

// Language returns "whitespace".
func (w *Whitespace) Language() string { return LangWhitespace }
