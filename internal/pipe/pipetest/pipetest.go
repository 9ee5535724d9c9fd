// Copyright (c) 2024, The Bipbap Authors.
// See LICENSE for licensing information.

// Package pipetest builds run contexts from class documents for stage tests.
package pipetest

import (
	"strings"
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/bipbap/bipbap/internal/config"
	"github.com/bipbap/bipbap/internal/image"
	"github.com/bipbap/bipbap/internal/jvm"
	"github.com/bipbap/bipbap/internal/modelcodec"
	"github.com/bipbap/bipbap/internal/pipeline/context"
)

// Context decodes class documents and returns a context over them with a
// fixed seed and the default configuration, so every stage is disabled.
func Context(t testing.TB, docs ...string) *context.Context {
	t.Helper()
	return SeededContext(t, 1, docs...)
}

// SeededContext is like Context with a chosen seed.
func SeededContext(t testing.TB, seed int64, docs ...string) *context.Context {
	t.Helper()
	img := image.New()
	for _, doc := range docs {
		c, err := modelcodec.Codec{}.Decode([]byte(doc))
		qt.Assert(t, qt.IsNil(err))
		qt.Assert(t, qt.IsNil(img.AddClass(c)))
	}
	ctx := context.New(config.Default(), img, seed)
	ctx.Parallelism = 2
	return ctx
}

// Code returns a method body in assembly form, without the trailing newline.
func Code(t testing.TB, m *jvm.Method) string {
	t.Helper()
	code, err := modelcodec.FormatCode(m.Instructions)
	qt.Assert(t, qt.IsNil(err))
	return strings.TrimSuffix(code, "\n")
}

// Lines trims a multi-line literal the way Code formats its result.
func Lines(s string) string {
	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(s), "\n") {
		lines = append(lines, strings.TrimSpace(line))
	}
	return strings.Join(lines, "\n")
}

// Method returns the named method, failing the test if it is missing.
func Method(t testing.TB, c *jvm.Class, name, desc string) *jvm.Method {
	t.Helper()
	m := c.Method(name, desc)
	qt.Assert(t, qt.IsNotNil(m), qt.Commentf("method %s.%s%s", c.Name, name, desc))
	return m
}
