package recon

import (
	"errors"
	"fmt"
)

// Stages of one outlet, used in OutletError.
const (
	StageStart       = "start"
	StageFetchSource = "fetch source"
	StageFetchTarget = "fetch target"
	StagePersist     = "persist"
)

// ErrSkipped marks outlets that never started because the run was aborted.
var ErrSkipped = errors.New("skipped")

// OutletError is the failure of one outlet at one stage.
type OutletError struct {
	Outlet string
	Stage  string
	Err    error
}

func (e *OutletError) Error() string {
	return fmt.Sprintf("outlet %s: %s: %v", e.Outlet, e.Stage, e.Err)
}

func (e *OutletError) Unwrap() error {
	return e.Err
}
