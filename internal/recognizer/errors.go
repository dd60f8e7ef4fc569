package recognizer

import (
	"errors"
	"fmt"
)

var (
	// ErrInitialization matches every *InitError via errors.Is.
	ErrInitialization = errors.New("classifier initialization failed")

	// ErrNotReady is returned by Predict before the session reaches Ready.
	// It indicates a caller that did not gate on readiness.
	ErrNotReady = errors.New("classifier not ready")

	// ErrVocabularyMismatch means the model output width differs from the
	// label vocabulary length. Retrying will not fix the asset pairing.
	ErrVocabularyMismatch = errors.New("vocabulary does not match model output")
)

// Stage names the step of the load sequence that failed.
type Stage string

const (
	StageRuntime    Stage = "runtime"
	StageVocabulary Stage = "vocabulary"
	StageModel      Stage = "model"
)

// InitError reports a failed load. The session stays usable: a later Init
// retries the whole sequence.
type InitError struct {
	Stage Stage
	Err   error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("initializing classifier (%s): %v", e.Stage, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrInitialization) match any InitError.
func (e *InitError) Is(target error) bool { return target == ErrInitialization }
