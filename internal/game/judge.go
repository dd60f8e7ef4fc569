// Package game runs practice rounds: judging drawings against the current
// problem and sequencing problems, score and retries.
package game

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/f3rmion/kakitori/internal/canvas"
	"github.com/f3rmion/kakitori/internal/logging"
	"github.com/f3rmion/kakitori/internal/preprocess"
	"github.com/f3rmion/kakitori/internal/recognizer"
	"github.com/f3rmion/kakitori/internal/verdict"
	"gorgonia.org/tensor"
)

// ErrJudgeInFlight is returned when Judge is called while a previous
// judgment has not finished.
var ErrJudgeInFlight = errors.New("judgment already in progress")

// Classifier ranks candidate characters for a normalized drawing.
// *recognizer.Session satisfies it.
type Classifier interface {
	Ready() bool
	Predict(ctx context.Context, input *tensor.Dense, topN int) ([]recognizer.Result, error)
}

// Judge connects the canvas to the classifier and verdict policy.
type Judge struct {
	canvas     *canvas.Canvas
	classifier Classifier
	policy     verdict.Policy

	busy atomic.Bool
}

// NewJudge creates a Judge over c.
func NewJudge(c *canvas.Canvas, classifier Classifier, policy verdict.Policy) *Judge {
	return &Judge{canvas: c, classifier: classifier, policy: policy}
}

// Canvas returns the drawing surface being judged.
func (j *Judge) Canvas() *canvas.Canvas { return j.canvas }

// Ready reports whether the classifier can take judgments.
func (j *Judge) Ready() bool { return j.classifier.Ready() }

// Busy reports whether a judgment is outstanding.
func (j *Judge) Busy() bool { return j.busy.Load() }

// Clear wipes the canvas. An outstanding judgment keeps the snapshot it
// already took.
func (j *Judge) Clear() { j.canvas.Clear() }

// Judge decides whether the current drawing is target. Failures are
// returned as errors and never as an incorrect verdict.
func (j *Judge) Judge(ctx context.Context, target string) (verdict.Verdict, error) {
	if !j.busy.CompareAndSwap(false, true) {
		return verdict.Verdict{}, ErrJudgeInFlight
	}
	defer j.busy.Store(false)

	if !j.classifier.Ready() {
		return verdict.Verdict{}, fmt.Errorf("judging %q: %w", target, recognizer.ErrNotReady)
	}

	input, err := preprocess.Normalize(j.canvas.Snapshot())
	if err != nil {
		return verdict.Verdict{}, fmt.Errorf("normalizing drawing: %w", err)
	}

	results, err := j.classifier.Predict(ctx, input, j.policy.Limit())
	if err != nil {
		return verdict.Verdict{}, fmt.Errorf("classifying drawing: %w", err)
	}

	v := j.policy.Decide(results, target)
	logging.L().Debug("drawing judged",
		"target", target,
		"correct", v.Correct,
		"candidates", v.Candidates,
	)
	return v, nil
}
