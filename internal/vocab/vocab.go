// Package vocab maps tokens to integer ids and back.
//
// A Vocab is built from tokenized sentences: reserved symbols first, in the order given,
// then every token seen at least MinFreq times, most frequent first with ties broken
// lexicographically. Lookups of unseen tokens fall back to <unk> when the vocabulary has one.
package vocab

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
)

// Reserved symbols.
const (
	Unk = "<unk>"
	Pad = "<pad>"
	SOS = "<sos>"
	EOS = "<eos>"
)

// Errors returned by the package.
var (
	ErrUnknownToken = errors.New("vocab: unknown token")
	ErrDuplicate    = errors.New("vocab: duplicate token")
)

// SourceSpecials and TargetSpecials are the reserved symbols of the two vocabularies.
// Target sentences are framed by <sos> and <eos>; source sentences are not.
var (
	SourceSpecials = []string{Unk, Pad}
	TargetSpecials = []string{Unk, Pad, SOS, EOS}
)

// Options controls Build.
type Options struct {
	Specials []string
	MinFreq  int // tokens seen fewer times are dropped; 0 means 1
	MaxSize  int // upper bound on Len including specials; 0 means unbounded
}

// Vocab is an immutable token/id mapping.
type Vocab struct {
	itos     []string
	stoi     map[string]int
	specials []string
}

// Build counts the tokens of every sentence and returns the resulting vocabulary.
func Build(sentences [][]string, opts Options) (*Vocab, error) {
	minFreq := max(opts.MinFreq, 1)

	freq := make(map[string]int)
	for _, s := range sentences {
		for _, tok := range s {
			freq[tok]++
		}
	}

	reserved := make(map[string]bool, len(opts.Specials))
	for _, sp := range opts.Specials {
		reserved[sp] = true
	}
	words := make([]string, 0, len(freq))
	for tok, n := range freq {
		if n >= minFreq && !reserved[tok] {
			words = append(words, tok)
		}
	}
	slices.SortFunc(words, func(a, b string) int {
		if freq[a] != freq[b] {
			return freq[b] - freq[a]
		}
		return strings.Compare(a, b)
	})

	itos := append(slices.Clone(opts.Specials), words...)
	if opts.MaxSize > 0 && len(itos) > opts.MaxSize {
		if opts.MaxSize < len(opts.Specials) {
			return nil, fmt.Errorf("vocab: max size %d smaller than %d reserved symbols", opts.MaxSize, len(opts.Specials))
		}
		itos = itos[:opts.MaxSize]
	}
	return FromTokens(itos, opts.Specials)
}

// FromTokens builds a vocabulary with an explicit id order. Every special must appear in itos.
func FromTokens(itos, specials []string) (*Vocab, error) {
	stoi := make(map[string]int, len(itos))
	for i, tok := range itos {
		if _, dup := stoi[tok]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicate, tok)
		}
		stoi[tok] = i
	}
	for _, sp := range specials {
		if _, ok := stoi[sp]; !ok {
			return nil, fmt.Errorf("%w: reserved symbol %q", ErrUnknownToken, sp)
		}
	}
	return &Vocab{itos: slices.Clone(itos), stoi: stoi, specials: slices.Clone(specials)}, nil
}

// Len returns the number of tokens.
func (v *Vocab) Len() int { return len(v.itos) }

// Specials returns the reserved symbols in declaration order.
func (v *Vocab) Specials() []string { return slices.Clone(v.specials) }

// Tokens returns the id-ordered token list.
func (v *Vocab) Tokens() []string { return slices.Clone(v.itos) }

// Lookup returns the id of tok and whether it is in the vocabulary.
func (v *Vocab) Lookup(tok string) (int, bool) {
	id, ok := v.stoi[tok]
	return id, ok
}

// Index returns the id of tok, or the <unk> id (-1 without <unk>) for an unseen token.
func (v *Vocab) Index(tok string) int {
	if id, ok := v.stoi[tok]; ok {
		return id
	}
	return v.UnkIndex()
}

// Encode maps tokens to ids. Unseen tokens map to <unk>; without <unk> they are an error.
func (v *Vocab) Encode(tokens []string) ([]int, error) {
	ids := make([]int, len(tokens))
	for i, tok := range tokens {
		id := v.Index(tok)
		if id < 0 {
			return nil, fmt.Errorf("%w: %q", ErrUnknownToken, tok)
		}
		ids[i] = id
	}
	return ids, nil
}

// Token returns the token with the given id. It panics on an out-of-range id.
func (v *Vocab) Token(id int) string {
	if id < 0 || id >= len(v.itos) {
		panic(fmt.Sprintf("vocab: id %d out of range [0, %d)", id, len(v.itos)))
	}
	return v.itos[id]
}

// Decode maps ids back to tokens.
func (v *Vocab) Decode(ids []int) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = v.Token(id)
	}
	return out
}

func (v *Vocab) special(tok string) int {
	if id, ok := v.stoi[tok]; ok {
		return id
	}
	return -1
}

// UnkIndex returns the id of <unk>, or -1.
func (v *Vocab) UnkIndex() int { return v.special(Unk) }

// PadIndex returns the id of <pad>, or -1.
func (v *Vocab) PadIndex() int { return v.special(Pad) }

// SOSIndex returns the id of <sos>, or -1.
func (v *Vocab) SOSIndex() int { return v.special(SOS) }

// EOSIndex returns the id of <eos>, or -1.
func (v *Vocab) EOSIndex() int { return v.special(EOS) }

type vocabFile struct {
	Specials []string `json:"specials"`
	Tokens   []string `json:"tokens"`
}

// MarshalJSON encodes the vocabulary as its specials and id-ordered tokens.
func (v *Vocab) MarshalJSON() ([]byte, error) {
	return json.Marshal(vocabFile{Specials: v.specials, Tokens: v.itos})
}

// UnmarshalJSON decodes a vocabulary written by MarshalJSON.
func (v *Vocab) UnmarshalJSON(data []byte) error {
	var f vocabFile
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	nv, err := FromTokens(f.Tokens, f.Specials)
	if err != nil {
		return err
	}
	*v = *nv
	return nil
}

// Save writes the vocabulary to path as JSON.
func (v *Vocab) Save(path string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("vocab: encode: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("vocab: write %s: %w", path, err)
	}
	return nil
}

// Load reads a vocabulary written by Save.
func Load(path string) (*Vocab, error) {
	//nolint:gosec // Vocabulary path is user-specified by design.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("vocab: read %s: %w", path, err)
	}
	v := new(Vocab)
	if err := json.Unmarshal(data, v); err != nil {
		return nil, fmt.Errorf("vocab: decode %s: %w", path, err)
	}
	return v, nil
}
