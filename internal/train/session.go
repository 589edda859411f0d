// Package train fits the translation model on bucketed batches.
//
// A Session carries the mutable progress of one run and is passed explicitly to every
// Trainer call. Training is strictly sequential: one batch at a time, each step
// recording a fresh gradient tape.
package train

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Progress is one logged training window.
type Progress struct {
	Epoch      int // 1-based
	Iteration  int // 1-based within the epoch
	Step       int64
	Loss       float64 // mean loss over the window
	Perplexity float64
	Elapsed    time.Duration // since the session started
	Window     time.Duration // duration of the window
}

// Session is the state of one training run.
type Session struct {
	RunID     string
	Epoch     int   // completed epochs
	Iteration int   // completed batches in the current epoch
	Step      int64 // completed batches in the run
	LastLoss  float64
	History   []Progress

	start       time.Time
	windowStart time.Time
	windowLoss  float64
	windowCount int
}

// NewSession starts a run with a fresh random id.
func NewSession(now time.Time) *Session {
	return &Session{RunID: uuid.NewString(), start: now, windowStart: now}
}

// ResumeSession continues a run restored from a checkpoint.
func ResumeSession(runID string, epoch int, step int64, now time.Time) *Session {
	if runID == "" {
		runID = uuid.NewString()
	}
	return &Session{RunID: runID, Epoch: epoch, Step: step, start: now, windowStart: now}
}

func (s *Session) observe(loss float64) {
	s.Iteration++
	s.Step++
	s.LastLoss = loss
	s.windowLoss += loss
	s.windowCount++
}

// flush closes the current window and returns its summary.
func (s *Session) flush(now time.Time) Progress {
	avg := 0.0
	if s.windowCount > 0 {
		avg = s.windowLoss / float64(s.windowCount)
	}
	p := Progress{
		Epoch:      s.Epoch + 1,
		Iteration:  s.Iteration,
		Step:       s.Step,
		Loss:       avg,
		Perplexity: math.Exp(avg),
		Elapsed:    now.Sub(s.start),
		Window:     now.Sub(s.windowStart),
	}
	s.History = append(s.History, p)
	s.windowLoss, s.windowCount = 0, 0
	s.windowStart = now
	return p
}
