package tokenizer

import (
	"errors"
	"fmt"
)

// Language codes accepted by New.
const (
	LangJapanese   = "ja"
	LangVietnamese = "vi"
	LangWhitespace = "whitespace"
)

// ErrUnknownLanguage is returned by New for an unsupported language code.
var ErrUnknownLanguage = errors.New("tokenizer: unknown language")

// Tokenizer splits a sentence into tokens.
//
// Implementations are safe for concurrent use.
type Tokenizer interface {
	// Tokenize returns the tokens of sentence in order. Whitespace is never a token.
	Tokenize(sentence string) []string

	// Language returns the language code the tokenizer was built for.
	Language() string
}

// New returns the tokenizer for a language code ("ja", "vi" or "whitespace").
func New(lang string) (Tokenizer, error) {
	switch lang {
	case LangJapanese:
		return NewJapanese()
	case LangVietnamese:
		return NewVietnamese(), nil
	case LangWhitespace:
		return NewWhitespace(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownLanguage, lang)
	}
}
