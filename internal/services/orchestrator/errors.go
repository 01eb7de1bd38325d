package orchestrator

import (
	"errors"
	"fmt"

	"github.com/phambaophuc/product-studio/internal/services/tier"
)

var (
	ErrNothingToProcess = errors.New("nothing to process")
	ErrRunInProgress    = errors.New("a run is already in progress")
	ErrRunDiscarded     = errors.New("run discarded by reset")
	ErrAlreadyExecuted  = errors.New("run already executed")
)

// BlockedError is returned when a batch exceeds the plan's batch ceiling.
// Callers surface it as an upgrade prompt.
type BlockedError struct {
	Decision tier.Decision
}

func (e *BlockedError) Error() string {
	return e.Decision.Reason
}

// RunError reports the item that stopped a run.
type RunError struct {
	Filename string
	Err      error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("Failed to process %s. %v", e.Filename, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}
