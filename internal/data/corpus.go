package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/born-ml/javi/internal/parallel"
	"github.com/born-ml/javi/internal/tokenizer"
)

// Pair is one sentence pair of the parallel corpus.
type Pair struct {
	Source string // Japanese
	Target string // Vietnamese
}

// CSVStats counts what LoadCSV read.
type CSVStats struct {
	Rows    int // data rows, header excluded
	Skipped int // malformed rows or rows with an empty cell
}

// LoadCSV reads a corpus file. See ReadCSV.
func LoadCSV(path string) ([]Pair, CSVStats, error) {
	//nolint:gosec // Corpus path is user-specified by design.
	f, err := os.Open(path)
	if err != nil {
		return nil, CSVStats{}, fmt.Errorf("data: open corpus: %w", err)
	}
	defer f.Close()

	pairs, stats, err := ReadCSV(f)
	if err != nil {
		return nil, stats, fmt.Errorf("data: read %s: %w", path, err)
	}
	return pairs, stats, nil
}

// ReadCSV reads sentence pairs from CSV. The first row is a header. Column 0 holds the
// Japanese sentence and column 1 its Vietnamese translation; further columns are ignored.
// Rows that fail to parse, have fewer than two fields or an empty sentence are skipped.
func ReadCSV(r io.Reader) ([]Pair, CSVStats, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var (
		pairs  []Pair
		stats  CSVStats
		header = true
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if header {
			header = false
			if err == nil || errors.As(err, &perr) {
				continue
			}
			return nil, stats, err
		}
		stats.Rows++
		if errors.As(err, &perr) {
			stats.Skipped++
			continue
		}
		if err != nil {
			return nil, stats, err
		}
		if len(rec) < 2 {
			stats.Skipped++
			continue
		}
		src, trg := strings.TrimSpace(rec[0]), strings.TrimSpace(rec[1])
		if src == "" || trg == "" {
			stats.Skipped++
			continue
		}
		pairs = append(pairs, Pair{Source: src, Target: trg})
	}
	return pairs, stats, nil
}

// Example is a tokenized sentence pair.
type Example struct {
	Src []string
	Trg []string
}

// Tokenize splits every pair with the source and target tokenizers. Pairs are processed
// concurrently; the result keeps the input order.
func Tokenize(pairs []Pair, src, trg tokenizer.Tokenizer) []Example {
	out := make([]Example, len(pairs))
	parallel.For(len(pairs), parallel.DefaultConfig(), func(i int) {
		out[i] = Example{
			Src: src.Tokenize(pairs[i].Source),
			Trg: trg.Tokenize(pairs[i].Target),
		}
	})
	return out
}

// SourceSentences and TargetSentences return the token streams used to build vocabularies.
func SourceSentences(examples []Example) [][]string {
	out := make([][]string, len(examples))
	for i, ex := range examples {
		out[i] = ex.Src
	}
	return out
}

// TargetSentences is the target-side counterpart of SourceSentences.
func TargetSentences(examples []Example) [][]string {
	out := make([][]string, len(examples))
	for i, ex := range examples {
		out[i] = ex.Trg
	}
	return out
}
