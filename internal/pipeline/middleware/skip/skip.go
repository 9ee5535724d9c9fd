// Copyright (c) 2024, The Bipbap Authors.
// See LICENSE for licensing information.

// Package skip can skip an entire stage.
package skip

import (
	"fmt"

	"github.com/apex/log"

	"github.com/bipbap/bipbap/internal/pipeline/context"
	"github.com/bipbap/bipbap/internal/pipeline/middleware"
)

// Skipper defines a method to skip an entire stage.
type Skipper interface {
	// Skip returns true if the stage should be skipped.
	Skip(ctx *context.Context) bool
	fmt.Stringer
}

// Maybe returns an action that skips immediately if the given stage is a
// Skipper and its Skip method returns true.
func Maybe(skipper any, next middleware.Action) middleware.Action {
	if skipper, ok := skipper.(Skipper); ok {
		return func(ctx *context.Context) error {
			if skipper.Skip(ctx) {
				log.Debugf("skipped %s", skipper.String())
				return nil
			}
			return next(ctx)
		}
	}
	return next
}
