// Package recognizer manages the kanji classifier: loading the inference
// runtime, label vocabulary and model once, and ranking predictions.
package recognizer

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/f3rmion/kakitori/internal/logging"
	"golang.org/x/sync/singleflight"
	"gorgonia.org/tensor"
)

const (
	// DefaultModelURL is the published TF.js kanji recognition model.
	DefaultModelURL = "https://ichisadashioko.github.io/kanji-recognition/kanji-model-v3-tfjs/model.json"
	// DefaultLabelURL is the vocabulary matching DefaultModelURL.
	DefaultLabelURL = "https://raw.githubusercontent.com/ichisadashioko/kanji-recognition/gh-pages/label.js"
	// DefaultTopN is the number of candidates returned when none is given.
	DefaultTopN = 5
)

// State is the lifecycle state of a Session.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Result is one ranked candidate.
type Result struct {
	Char  string  `json:"char"`
	Score float64 `json:"score"` // Probability x 100
}

// Output is the raw result of one inference. Release must be called once
// the probabilities are no longer needed.
type Output interface {
	Probabilities() []float32
	Release()
}

// Model is a loaded classifier.
type Model interface {
	Predict(ctx context.Context, input *tensor.Dense) (Output, error)
}

// Runtime loads models in its serialized format.
type Runtime interface {
	LoadModel(ctx context.Context, fetch Fetcher, location string) (Model, error)
}

// RuntimeFunc acquires the inference runtime.
type RuntimeFunc func(ctx context.Context) (Runtime, error)

// Config locates the classifier assets.
type Config struct {
	ModelURL    string
	LabelURL    string
	LoadTimeout time.Duration // Zero means no limit beyond the caller's
}

// Session is a classifier that loads lazily and at most once at a time.
type Session struct {
	cfg     Config
	runtime RuntimeFunc
	fetcher Fetcher

	group singleflight.Group

	mu     sync.RWMutex
	state  State
	labels []string
	model  Model

	// One inference at a time keeps memory bounded and results
	// attributable to the drawing that produced them.
	predictMu sync.Mutex
}

// NewSession creates an uninitialized session. Empty URLs fall back to the
// published model and vocabulary.
func NewSession(cfg Config, runtime RuntimeFunc, fetcher Fetcher) *Session {
	if cfg.ModelURL == "" {
		cfg.ModelURL = DefaultModelURL
	}
	if cfg.LabelURL == "" {
		cfg.LabelURL = DefaultLabelURL
	}
	return &Session{cfg: cfg, runtime: runtime, fetcher: fetcher}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Ready reports whether Predict may be called.
func (s *Session) Ready() bool {
	return s.State() == StateReady
}

// Labels returns a copy of the loaded vocabulary.
func (s *Session) Labels() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.labels...)
}

// Init loads the runtime, vocabulary and model. It returns immediately once
// Ready; concurrent callers share a single in-flight load; after a failure
// the next call retries. The load itself is not bound to ctx cancellation,
// so one caller giving up does not fail the others.
func (s *Session) Init(ctx context.Context) error {
	if s.Ready() {
		return nil
	}

	ch := s.group.DoChan("init", func() (interface{}, error) {
		return nil, s.load(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

func (s *Session) load(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateReady {
		s.mu.Unlock()
		return nil
	}
	s.state = StateLoading
	s.mu.Unlock()

	if s.cfg.LoadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.LoadTimeout)
		defer cancel()
	}

	log := logging.L()
	start := time.Now()

	rt, err := s.runtime(ctx)
	if err != nil {
		return s.fail(StageRuntime, err)
	}

	payload, err := s.fetcher.Fetch(ctx, s.cfg.LabelURL)
	if err != nil {
		return s.fail(StageVocabulary, err)
	}
	labels, err := ParseLabels(payload)
	if err != nil {
		return s.fail(StageVocabulary, err)
	}
	log.Debug("kanji labels loaded", "count", len(labels))

	model, err := rt.LoadModel(ctx, s.fetcher, s.cfg.ModelURL)
	if err != nil {
		return s.fail(StageModel, err)
	}

	s.mu.Lock()
	s.labels = labels
	s.model = model
	s.state = StateReady
	s.mu.Unlock()

	log.Info("kanji classifier ready", "labels", len(labels), "elapsed", time.Since(start))
	return nil
}

func (s *Session) fail(stage Stage, err error) error {
	s.mu.Lock()
	s.state = StateFailed
	s.mu.Unlock()

	ierr := &InitError{Stage: stage, Err: err}
	logging.L().Error("kanji classifier failed to load", "stage", stage, "err", err)
	return ierr
}

// Predict classifies input and returns the topN candidates by descending
// score. topN below 1 means DefaultTopN.
func (s *Session) Predict(ctx context.Context, input *tensor.Dense, topN int) ([]Result, error) {
	s.mu.RLock()
	state, model, labels := s.state, s.model, s.labels
	s.mu.RUnlock()

	if state != StateReady {
		logging.L().Error("predict called before classifier ready", "state", state)
		return nil, ErrNotReady
	}
	if topN < 1 {
		topN = DefaultTopN
	}

	s.predictMu.Lock()
	defer s.predictMu.Unlock()

	out, err := model.Predict(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("running inference: %w", err)
	}
	defer out.Release()

	probs := out.Probabilities()
	if len(probs) != len(labels) {
		return nil, fmt.Errorf("%w: model has %d outputs, vocabulary has %d", ErrVocabularyMismatch, len(probs), len(labels))
	}

	results := make([]Result, len(probs))
	for i, p := range probs {
		results[i] = Result{Char: labels[i], Score: float64(p * 100)}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	if topN < len(results) {
		results = append([]Result(nil), results[:topN]...)
	}
	return results, nil
}
