// Copyright (c) 2024, The Bipbap Authors.
// See LICENSE for licensing information.

package errhandler

import (
	"github.com/apex/log"

	"github.com/bipbap/bipbap/internal/pipe"
	"github.com/bipbap/bipbap/internal/pipeline/context"
	"github.com/bipbap/bipbap/internal/pipeline/middleware"
)

// Handle handles an action error, ignoring and logging skipped stages.
func Handle(action middleware.Action) middleware.Action {
	return func(ctx *context.Context) error {
		err := action(ctx)
		if err == nil {
			return nil
		}
		if pipe.IsSkip(err) {
			log.WithField("reason", err.Error()).Warn("stage skipped")
			return nil
		}
		return err
	}
}
