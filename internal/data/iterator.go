package data

import (
	"cmp"
	"math/rand/v2"
	"slices"
)

// IteratorConfig controls batching.
type IteratorConfig struct {
	TokenBudget int    // padded tokens per batch, per side
	PoolFactor  int    // examples per sorting pool = TokenBudget * PoolFactor
	Shuffle     bool   // training order; false gives deterministic evaluation batches
	Seed        uint64 // seed of the shuffling source
	Epoch       int    // epochs already drawn; a resumed run passes its completed epochs
	SrcPad      int32
	TrgPad      int32
}

// DefaultIteratorConfig returns the training configuration.
func DefaultIteratorConfig(srcPad, trgPad int32) IteratorConfig {
	return IteratorConfig{
		TokenBudget: 1300,
		PoolFactor:  100,
		Shuffle:     true,
		Seed:        1,
		SrcPad:      srcPad,
		TrgPad:      trgPad,
	}
}

// BucketIterator groups examples of similar length into token-budget batches.
//
// In shuffle mode every call to Batches draws the order of the next epoch from a source
// seeded by (Seed, epoch), so a run is reproducible from its seed and a resumed run
// continues the sequence.
type BucketIterator struct {
	examples []Encoded
	cfg      IteratorConfig
	epoch    int
}

// NewBucketIterator returns an iterator over examples. The slice is not modified.
func NewBucketIterator(examples []Encoded, cfg IteratorConfig) *BucketIterator {
	if cfg.TokenBudget <= 0 {
		panic("data: token budget must be positive")
	}
	cfg.PoolFactor = max(cfg.PoolFactor, 1)
	return &BucketIterator{
		examples: examples,
		cfg:      cfg,
		epoch:    max(cfg.Epoch, 0),
	}
}

// Len returns the number of examples.
func (it *BucketIterator) Len() int { return len(it.examples) }

// Batches returns one epoch of batches.
func (it *BucketIterator) Batches() []*Batch {
	if len(it.examples) == 0 {
		return nil
	}
	if !it.cfg.Shuffle {
		var out []*Batch
		for _, group := range split(it.examples, it.cfg.TokenBudget) {
			group = slices.Clone(group)
			slices.SortStableFunc(group, byLength)
			out = append(out, NewBatch(group, it.cfg.SrcPad, it.cfg.TrgPad))
		}
		return out
	}

	rng := rand.New(rand.NewPCG(it.cfg.Seed, uint64(it.epoch)^0x9e3779b97f4a7c15))
	it.epoch++

	order := slices.Clone(it.examples)
	rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	var out []*Batch
	poolSize := it.cfg.TokenBudget * it.cfg.PoolFactor
	for start := 0; start < len(order); start += poolSize {
		pool := order[start:min(start+poolSize, len(order))]
		slices.SortStableFunc(pool, byLength)
		groups := split(pool, it.cfg.TokenBudget)
		rng.Shuffle(len(groups), func(i, j int) { groups[i], groups[j] = groups[j], groups[i] })
		for _, g := range groups {
			out = append(out, NewBatch(g, it.cfg.SrcPad, it.cfg.TrgPad))
		}
	}
	return out
}

func byLength(a, b Encoded) int {
	if c := cmp.Compare(len(a.Src), len(b.Src)); c != 0 {
		return c
	}
	return cmp.Compare(len(a.Trg), len(b.Trg))
}

// paddedSize is the larger side of a batch of count examples after padding. Target
// lengths count the two sentence markers.
func paddedSize(count, maxSrc, maxTrg int) int {
	return max(count*maxSrc, count*maxTrg)
}

// split cuts examples, in order, into consecutive groups within budget. An example that
// would overflow the current group starts the next one; an example over budget on its
// own forms a group by itself.
func split(examples []Encoded, budget int) [][]Encoded {
	var (
		groups         [][]Encoded
		start          int
		maxSrc, maxTrg int
	)
	for i, e := range examples {
		count := i - start + 1
		src, trg := max(maxSrc, len(e.Src)), max(maxTrg, len(e.Trg))
		if count > 1 && paddedSize(count, src, trg) > budget {
			groups = append(groups, examples[start:i:i])
			start = i
			src, trg = len(e.Src), len(e.Trg)
		}
		maxSrc, maxTrg = src, trg
	}
	return append(groups, examples[start:len(examples):len(examples)])
}
