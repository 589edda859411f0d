package train

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/javi/internal/autodiff"
	"github.com/born-ml/javi/internal/backend/cpu"
	"github.com/born-ml/javi/internal/data"
	"github.com/born-ml/javi/internal/nn"
	"github.com/born-ml/javi/internal/optim"
	"github.com/born-ml/javi/internal/serialization"
)

type backend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

const (
	srcPad = 1
	trgPad = 1
	sos    = 2
	eos    = 3
)

// fixedBatches returns the same batches every epoch.
type fixedBatches []*data.Batch

func (f fixedBatches) Batches() []*data.Batch { return f }

func tinyModel(t *testing.T) *nn.Transformer[backend] {
	t.Helper()
	cfg := nn.Config{
		SrcVocab: 8, TrgVocab: 8,
		DModel: 8, Heads: 2, Layers: 1, DFF: 16,
		Dropout: 0, Eps: 1e-6, MaxSeqLen: 8,
	}
	m, err := nn.NewTransformer(cfg, autodiff.New(cpu.New()), nn.WithSeed(11))
	require.NoError(t, err)
	return m
}

// copyBatch is a toy task: the target repeats the source.
func copyBatch() *data.Batch {
	return data.NewBatch([]data.Encoded{
		{Src: []int32{4, 5, 6}, Trg: []int32{sos, 4, 5, 6, eos}},
		{Src: []int32{7, 4}, Trg: []int32{sos, 7, 4, eos}},
	}, srcPad, trgPad)
}

// fakeClock advances one second per call.
func fakeClock() func() time.Time {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func newTrainer(t *testing.T, cfg Config, opts ...Option) (*Trainer[backend], *nn.Transformer[backend]) {
	t.Helper()
	model := tinyModel(t)
	opt := optim.NewAdam(model.Parameters(), optim.AdamConfig{LR: 0.01})
	cfg.SrcPad, cfg.TrgPad = srcPad, trgPad
	return New(model, opt, cfg, opts...), model
}

func TestStepReducesLoss(t *testing.T) {
	tr, model := newTrainer(t, Config{})
	s := tr.NewSession()
	batch := copyBatch()
	model.SetTraining(true)

	first, err := tr.Step(s, batch)
	require.NoError(t, err)
	assert.Greater(t, first, 0.0)

	var last float64
	for range 60 {
		last, err = tr.Step(s, batch)
		require.NoError(t, err)
	}
	assert.Less(t, last, first/2)
	assert.Equal(t, int64(61), s.Step)
	assert.Equal(t, 61, s.Iteration)
	assert.Zero(t, model.Backend().Tape().NumOps(), "tape is cleared after a step")
	assert.False(t, model.Backend().Tape().IsRecording())
}

func TestEvaluate(t *testing.T) {
	tr, model := newTrainer(t, Config{})
	before := model.StateDict()["out.bias"].Clone()
	model.SetTraining(true)

	loss := tr.Evaluate([]*data.Batch{copyBatch(), copyBatch()})
	single := tr.Evaluate([]*data.Batch{copyBatch()})
	assert.InDelta(t, single, loss, 1e-6, "identical batches give the same mean")
	assert.False(t, math.IsNaN(loss))
	assert.True(t, model.Training(), "training mode is restored")
	assert.Equal(t, before.Data(), model.StateDict()["out.bias"].Data())
	assert.True(t, math.IsNaN(tr.Evaluate(nil)))
}

func TestRunLogsAndCheckpoints(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	path := filepath.Join(t.TempDir(), "javi.ckpt")

	batches := fixedBatches{copyBatch(), copyBatch(), copyBatch(), copyBatch()}
	tr, model := newTrainer(t, Config{
		PrintEvery: 2,
		Train:      batches,
		Validation: fixedBatches{copyBatch()},
		Checkpoint: path,
	}, WithLogger(logger), WithClock(fakeClock()))

	s := tr.NewSession()
	require.NoError(t, tr.Run(context.Background(), s, 2))
	assert.Equal(t, 2, s.Epoch)
	assert.Equal(t, int64(8), s.Step)
	assert.False(t, model.Training())

	require.Len(t, s.History, 4)
	assert.Equal(t, 1, s.History[0].Epoch)
	assert.Equal(t, 2, s.History[0].Iteration)
	assert.Equal(t, 2, s.History[3].Epoch)
	assert.Equal(t, 4, s.History[3].Iteration)
	for _, p := range s.History {
		assert.InDelta(t, math.Exp(p.Loss), p.Perplexity, 1e-9)
	}

	var progress, epochs int
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		switch rec["msg"] {
		case "training progress":
			progress++
			assert.Contains(t, rec, "perplexity")
		case "epoch finished":
			epochs++
			assert.Contains(t, rec, "val_loss")
			assert.Equal(t, path, rec["checkpoint"])
		}
	}
	assert.Equal(t, 4, progress)
	assert.Equal(t, 2, epochs)

	ckpt, err := nn.LoadCheckpoint(path, cpu.New())
	require.NoError(t, err)
	assert.Equal(t, s.RunID, ckpt.RunID)
	assert.Equal(t, 2, ckpt.Epoch)
	assert.Equal(t, int64(8), ckpt.Step)
	assert.Contains(t, ckpt.OptimizerState, "step")
	assert.Contains(t, ckpt.OptimizerState, "m.out.bias")
	assert.Equal(t, model.StateDict()["out.weight"].Data(), ckpt.Model.StateDict()["out.weight"].Data())

	_, header, err := serialization.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Adam", header.CheckpointMeta.OptimizerType)
}

func TestRunResumesAtEpoch(t *testing.T) {
	tr, _ := newTrainer(t, Config{Train: fixedBatches{copyBatch()}})
	s := ResumeSession("run-1", 3, 30, time.Now())

	require.NoError(t, tr.Run(context.Background(), s, 3))
	assert.Equal(t, int64(30), s.Step, "nothing left to train")

	require.NoError(t, tr.Run(context.Background(), s, 4))
	assert.Equal(t, 4, s.Epoch)
	assert.Equal(t, int64(31), s.Step)
	assert.Equal(t, "run-1", s.RunID)
}

func TestRunStopsOnCancel(t *testing.T) {
	tr, _ := newTrainer(t, Config{Train: fixedBatches{copyBatch(), copyBatch()}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := tr.NewSession()
	err := tr.Run(ctx, s, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, s.Step)
	assert.Zero(t, s.Epoch)
}

func TestRunNeedsBatches(t *testing.T) {
	tr, _ := newTrainer(t, Config{})
	assert.Error(t, tr.Run(context.Background(), tr.NewSession(), 1))
}

func TestSessionIDs(t *testing.T) {
	a, b := NewSession(time.Now()), NewSession(time.Now())
	assert.Len(t, a.RunID, 36)
	assert.NotEqual(t, a.RunID, b.RunID)
	assert.NotEmpty(t, ResumeSession("", 1, 1, time.Now()).RunID)
}
