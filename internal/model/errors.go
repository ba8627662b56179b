package model

import (
	"errors"
	"fmt"
)

// Stage identifies the pipeline stage an error originated from.
type Stage string

const (
	StageAcquisition   Stage = "acquisition"
	StageTranscription Stage = "transcription"
	StageComposition   Stage = "composition"
	StageStorage       Stage = "storage"
)

// ErrRateLimited marks upstream 429/quota responses so composition
// failures can be reported to the user distinctly from generic ones.
var ErrRateLimited = errors.New("rate limited by upstream service")

// PipelineError wraps a stage failure. Once a task exists, these are
// recorded on the task record rather than surfaced as HTTP errors.
type PipelineError struct {
	Stage Stage
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

func NewPipelineError(stage Stage, err error) *PipelineError {
	return &PipelineError{Stage: stage, Err: err}
}

// StageOf returns the stage a pipeline error belongs to, or "" when the
// error carries no stage information.
func StageOf(err error) Stage {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Stage
	}
	return ""
}
