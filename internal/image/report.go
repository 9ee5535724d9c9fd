// Copyright (c) 2024, The Bipbap Authors.
// See LICENSE for licensing information.

package image

import (
	"sync"

	"github.com/hashicorp/go-multierror"
)

// Report collects the per-item failures of a run. None of them stop the run;
// they are logged at the end.
type Report struct {
	mu   sync.Mutex
	errs *multierror.Error

	Classes   int
	Resources int
	Bytes     int64
}

// Add records err if it is not nil.
func (r *Report) Add(err error) {
	if err == nil {
		return
	}
	r.mu.Lock()
	r.errs = multierror.Append(r.errs, err)
	r.mu.Unlock()
}

// Errors returns the recorded failures in the order they were added.
func (r *Report) Errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.errs == nil {
		return nil
	}
	return append([]error(nil), r.errs.Errors...)
}

// Err returns all failures as a single error, or nil.
func (r *Report) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errs.ErrorOrNil()
}
