package data

import (
	"errors"
	"fmt"

	"github.com/born-ml/javi/internal/vocab"
)

// ErrMissingMarker is returned when the target vocabulary lacks <sos> or <eos>.
var ErrMissingMarker = errors.New("data: target vocabulary needs <sos> and <eos>")

// Encoded is a numericalized example. Trg is framed as <sos> ... <eos>; Src carries no markers.
type Encoded struct {
	Src []int32
	Trg []int32
}

// Numericalize maps tokens to ids. Examples with an empty side are dropped.
func Numericalize(examples []Example, src, trg *vocab.Vocab) ([]Encoded, error) {
	sos, eos := trg.SOSIndex(), trg.EOSIndex()
	if sos < 0 || eos < 0 {
		return nil, ErrMissingMarker
	}
	out := make([]Encoded, 0, len(examples))
	for i, ex := range examples {
		if len(ex.Src) == 0 || len(ex.Trg) == 0 {
			continue
		}
		s, err := src.Encode(ex.Src)
		if err != nil {
			return nil, fmt.Errorf("data: example %d source: %w", i, err)
		}
		t, err := trg.Encode(ex.Trg)
		if err != nil {
			return nil, fmt.Errorf("data: example %d target: %w", i, err)
		}
		e := Encoded{Src: toInt32(s), Trg: make([]int32, 0, len(t)+2)}
		e.Trg = append(e.Trg, int32(sos))
		for _, id := range t {
			e.Trg = append(e.Trg, int32(id))
		}
		e.Trg = append(e.Trg, int32(eos))
		out = append(out, e)
	}
	return out, nil
}

// FilterLength drops examples the model cannot consume: sources longer than maxSeqLen and
// targets whose decoder input (target without its final token) is longer than maxSeqLen.
func FilterLength(examples []Encoded, maxSeqLen int) (kept []Encoded, dropped int) {
	kept = make([]Encoded, 0, len(examples))
	for _, e := range examples {
		if len(e.Src) > maxSeqLen || len(e.Trg)-1 > maxSeqLen {
			dropped++
			continue
		}
		kept = append(kept, e)
	}
	return kept, dropped
}

func toInt32(ids []int) []int32 {
	out := make([]int32, len(ids))
	for i, id := range ids {
		out[i] = int32(id)
	}
	return out
}
