// Copyright (c) 2024, The Bipbap Authors.
// See LICENSE for licensing information.

// Package pipe holds the pipeline stages and what they share.
package pipe

import "errors"

// IsSkip returns true if the error is an ErrSkip.
func IsSkip(err error) bool {
	return errors.As(err, &ErrSkip{})
}

// ErrSkip occurs when a stage has nothing to do for some reason.
type ErrSkip struct {
	reason string
}

// Error implements the error interface. returns the reason the stage was skipped.
func (e ErrSkip) Error() string {
	return e.reason
}

// Skip skips this stage with the given reason.
func Skip(reason string) ErrSkip {
	return ErrSkip{reason: reason}
}
