package crawler

import (
	"errors"
	"fmt"

	"github.com/thep200/github-frontier/internal/model"
)

var (
	// ErrNothingToDo is returned by a step whose queue is empty.
	ErrNothingToDo = errors.New("crawler: nothing to do")
	// ErrRateLimited is returned when the budget cannot pay for the next step.
	ErrRateLimited = errors.New("crawler: rate limited")
	// ErrMaxErrorsExceeded stops the loop once fetch failures pass the threshold.
	ErrMaxErrorsExceeded = errors.New("crawler: max errors exceeded")
)

type FailureKind int

const (
	MalformedResponse FailureKind = iota
	EmptyResult
)

func (k FailureKind) String() string {
	if k == EmptyResult {
		return "EmptyResult"
	}
	return "MalformedResponse"
}

// StepError is a recoverable failure of one step. TodoID is set for expand.
type StepError struct {
	Kind   FailureKind
	Op     model.OpKind
	TodoID uint
	Err    error
}

func (e *StepError) Error() string {
	if e.Op == model.OpExpand {
		return fmt.Sprintf("crawler: %s %s (todo %d): %v", e.Op, e.Kind, e.TodoID, e.Err)
	}
	return fmt.Sprintf("crawler: %s %s: %v", e.Op, e.Kind, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
