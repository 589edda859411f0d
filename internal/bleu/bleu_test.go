package bleu

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func words(s string) []string { return strings.Fields(s) }

var (
	hyp1  = words("It is a guide to action which ensures that the military always obeys the commands of the party")
	ref1a = words("It is a guide to action that ensures that the military will forever heed Party commands")
	ref1b = words("It is the guiding principle which guarantees the military forces always being under the command of the Party")
	ref1c = words("It is the practical guide for the army always to heed the directions of the party")
	hyp2  = words("he read the book because he was interested in world history")
	ref2a = words("he was interested in world history because he read the book")
)

func TestSentence(t *testing.T) {
	tests := []struct {
		name string
		refs [][]string
		hyp  []string
		want float64
	}{
		{"multiple references", [][]string{ref1a, ref1b, ref1c}, hyp1, 0.5045666840058485},
		{"identical", [][]string{words("tôi là sinh viên giỏi")}, words("tôi là sinh viên giỏi"), 1},
		{"brevity penalty", [][]string{words("a b c d e f")}, words("a b c d"), 0.6065306597126334},
		{"dropped word", [][]string{words("the cat sat on the mat")}, words("the cat sat on mat"), 0.5789300674674098},
		{"no 4-gram match", [][]string{words("a b c d")}, words("a b d c"), 0},
		{"shorter than 4 tokens", [][]string{words("a b c")}, words("a b c"), 0},
		{"empty hypothesis", [][]string{words("a b c d")}, nil, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, Sentence(tc.refs, tc.hyp), 1e-12)
		})
	}
}

func TestCorpus(t *testing.T) {
	score, err := Corpus([][][]string{{ref1a, ref1b, ref1c}, {ref2a}}, [][]string{hyp1, hyp2})
	require.NoError(t, err)
	assert.InDelta(t, 0.5920778868801042, score, 1e-12)

	mean := (Sentence([][]string{ref1a, ref1b, ref1c}, hyp1) + Sentence([][]string{ref2a}, hyp2)) / 2
	assert.NotEqual(t, mean, score)

	_, err = Corpus([][][]string{{ref2a}}, nil)
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestClosestLength(t *testing.T) {
	refs := [][]string{make([]string, 4), make([]string, 8), make([]string, 6)}
	assert.Equal(t, 6, closestLength(refs, 7), "tie resolves to the shorter reference")
	assert.Equal(t, 4, closestLength(refs, 1))
	assert.Equal(t, 0, closestLength(nil, 3))
}

func TestClippedMatches(t *testing.T) {
	m, total := clippedMatches([][]string{words("the cat"), words("the the")}, words("the the the"), 1)
	assert.Equal(t, 2, m)
	assert.Equal(t, 3, total)
}
