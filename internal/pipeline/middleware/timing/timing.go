// Copyright (c) 2024, The Bipbap Authors.
// See LICENSE for licensing information.

// Package timing measures how long a stage takes.
package timing

import (
	"time"

	"github.com/apex/log"

	"github.com/bipbap/bipbap/internal/pipeline/context"
	"github.com/bipbap/bipbap/internal/pipeline/middleware"
)

// Log runs next and records its elapsed time under the stage's statistics.
func Log(stage string, next middleware.Action) middleware.Action {
	return func(ctx *context.Context) error {
		log.Infof("running %s", stage)
		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)
		ctx.Stats.Stage(stage).Elapsed = elapsed
		log.WithField("took", elapsed.Round(time.Millisecond)).Debugf("finished %s", stage)
		return err
	}
}
