// Copyright (c) 2024, The Bipbap Authors.
// See LICENSE for licensing information.

// Package middleware defines middlewares for stages.
package middleware

import "github.com/bipbap/bipbap/internal/pipeline/context"

// Action is a function that takes a context and returns an error.
type Action func(ctx *context.Context) error
