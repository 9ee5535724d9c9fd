// Copyright (c) 2024, The Bipbap Authors.
// See LICENSE for licensing information.

// Package pipeline runs the obfuscation stages over a program image.
package pipeline

import (
	"fmt"

	"github.com/bipbap/bipbap/internal/pipe/constants"
	"github.com/bipbap/bipbap/internal/pipe/indy"
	"github.com/bipbap/bipbap/internal/pipe/misc"
	"github.com/bipbap/bipbap/internal/pipe/optimize"
	"github.com/bipbap/bipbap/internal/pipe/rename"
	"github.com/bipbap/bipbap/internal/pipeline/context"
	"github.com/bipbap/bipbap/internal/pipeline/middleware/errhandler"
	"github.com/bipbap/bipbap/internal/pipeline/middleware/skip"
	"github.com/bipbap/bipbap/internal/pipeline/middleware/timing"
)

// Stage is a transformation of the whole image. Its name is also the name
// of its configuration section.
type Stage interface {
	fmt.Stringer

	// Run the stage.
	Run(ctx *context.Context) error
}

// Stages in the order they run. Renaming comes after constant encryption so
// that companion classes get renamed too, and call indirection comes after
// renaming so that the encrypted call targets carry the final names.
var Stages = []Stage{
	optimize.Pipe{},
	constants.Pipe{},
	rename.Pipe{},
	indy.Pipe{},
	misc.Pipe{},
}

// Run runs every stage in order, stopping at the first failure.
func Run(ctx *context.Context) error {
	return run(ctx, Stages)
}

func run(ctx *context.Context, stages []Stage) error {
	for _, stage := range stages {
		if err := skip.Maybe(
			stage,
			timing.Log(
				stage.String(),
				errhandler.Handle(stage.Run),
			),
		)(ctx); err != nil {
			return fmt.Errorf("%s: %w", stage, err)
		}
	}
	return nil
}
