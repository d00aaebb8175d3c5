package service

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("validation") // 400
	ErrNotFound   = errors.New("not found")  // 404
	ErrConflict   = errors.New("conflict")   // 409

	ErrIneligible           = fmt.Errorf("%w: order is not eligible for a return", ErrConflict)
	ErrSubmissionInProgress = fmt.Errorf("%w: a submission for this order is already running", ErrConflict)
	ErrInvalidTransition    = fmt.Errorf("%w: status transition not allowed", ErrConflict)
	ErrNothingSelected      = fmt.Errorf("%w: select at least one item", ErrValidation)
	ErrNoDraft              = fmt.Errorf("%w: no return draft for this order", ErrNotFound)
)

// IneligibleError carries the CTA label explaining why a return cannot start.
type IneligibleError struct {
	Label string
}

func (e *IneligibleError) Error() string { return ErrIneligible.Error() + ": " + e.Label }
func (e *IneligibleError) Unwrap() error { return ErrIneligible }
