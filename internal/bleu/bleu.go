// Package bleu scores translations with BLEU (Papineni et al., 2002).
//
// Scores use 1- to 4-gram modified precisions with uniform weights and the brevity
// penalty against the closest reference length. No smoothing is applied: if any n-gram
// order has no match the score is 0.
package bleu

import (
	"errors"
	"math"
	"strings"
)

// MaxOrder is the largest n-gram order.
const MaxOrder = 4

// ErrLengthMismatch is returned by Corpus when references and hypotheses differ in count.
var ErrLengthMismatch = errors.New("bleu: references and hypotheses differ in length")

// Stats accumulates the counts BLEU is computed from.
type Stats struct {
	Matches   [MaxOrder]int // clipped n-gram matches per order
	Totals    [MaxOrder]int // hypothesis n-grams per order, at least 1
	HypLen    int
	RefLen    int // closest reference length
	Sentences int
}

// Add accumulates the statistics of one hypothesis against its references.
func (s *Stats) Add(references [][]string, hypothesis []string) {
	for n := 1; n <= MaxOrder; n++ {
		m, t := clippedMatches(references, hypothesis, n)
		s.Matches[n-1] += m
		s.Totals[n-1] += t
	}
	s.HypLen += len(hypothesis)
	s.RefLen += closestLength(references, len(hypothesis))
	s.Sentences++
}

// Score returns the BLEU score of the accumulated statistics.
func (s *Stats) Score() float64 {
	var logSum float64
	for n := range MaxOrder {
		if s.Matches[n] == 0 {
			return 0
		}
		logSum += math.Log(float64(s.Matches[n]) / float64(s.Totals[n]))
	}
	return BrevityPenalty(s.RefLen, s.HypLen) * math.Exp(logSum/MaxOrder)
}

// BrevityPenalty is 1 when the hypothesis is longer than the reference and
// exp(1 - ref/hyp) otherwise.
func BrevityPenalty(refLen, hypLen int) float64 {
	switch {
	case hypLen > refLen:
		return 1
	case hypLen == 0:
		return 0
	default:
		return math.Exp(1 - float64(refLen)/float64(hypLen))
	}
}

// Sentence returns the BLEU score of one hypothesis.
func Sentence(references [][]string, hypothesis []string) float64 {
	var s Stats
	s.Add(references, hypothesis)
	return s.Score()
}

// Corpus returns corpus-level BLEU: counts are summed over all sentences before the
// precisions are taken, so it is not the mean of sentence scores.
func Corpus(references [][][]string, hypotheses [][]string) (float64, error) {
	if len(references) != len(hypotheses) {
		return 0, ErrLengthMismatch
	}
	var s Stats
	for i := range hypotheses {
		s.Add(references[i], hypotheses[i])
	}
	return s.Score(), nil
}

// clippedMatches counts hypothesis n-grams, each clipped to its largest count in any
// single reference. The total is at least 1.
func clippedMatches(references [][]string, hypothesis []string, n int) (matches, total int) {
	counts := countNgrams(hypothesis, n)
	maxRef := make(map[string]int, len(counts))
	for _, ref := range references {
		for g, c := range countNgrams(ref, n) {
			if _, ok := counts[g]; ok && c > maxRef[g] {
				maxRef[g] = c
			}
		}
	}
	for g, c := range counts {
		matches += min(c, maxRef[g])
		total += c
	}
	return matches, max(total, 1)
}

// countNgrams keys n-grams by their tokens joined with a unit separator.
func countNgrams(tokens []string, n int) map[string]int {
	counts := make(map[string]int)
	for i := 0; i+n <= len(tokens); i++ {
		counts[strings.Join(tokens[i:i+n], "\x1f")]++
	}
	return counts
}

// closestLength returns the reference length nearest to hypLen, the shorter on ties.
func closestLength(references [][]string, hypLen int) int {
	best := -1
	for _, ref := range references {
		l := len(ref)
		if best < 0 {
			best = l
			continue
		}
		d, bd := abs(l-hypLen), abs(best-hypLen)
		if d < bd || (d == bd && l < best) {
			best = l
		}
	}
	return max(best, 0)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
