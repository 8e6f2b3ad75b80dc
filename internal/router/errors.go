package router

import (
	"errors"
	"fmt"
)

// ErrEmptyMessage is returned when a turn carries no text.
var ErrEmptyMessage = errors.New("message cannot be empty")

// Turn stages reported in TurnError.Stage
const (
	stageValidate  = "validate"
	stageQueue     = "queue"
	stageSession   = "session"
	stageResolve   = "resolve"
	stageCommit    = "commit"
	stageRevisions = "revisions"
	stageContent   = "content"
)

// TurnError reports the stage at which a turn was aborted.
type TurnError struct {
	Stage   string
	Message string
	Err     error
}

// Error implements the error interface for TurnError.
func (e *TurnError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("turn failed at %s: %s: %v", e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("turn failed at %s: %s", e.Stage, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *TurnError) Unwrap() error {
	return e.Err
}

func newTurnError(stage, message string, err error) *TurnError {
	return &TurnError{Stage: stage, Message: message, Err: err}
}
