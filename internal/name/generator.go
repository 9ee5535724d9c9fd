// Copyright (c) 2024, The Bipbap Authors.
// See LICENSE for licensing information.

// Package name generates the identifiers that replace field, method, local
// variable and class names, and the random suffixes of synthetic members.
package name

import (
	mathrand "math/rand"
	"strings"
	"sync"
)

const (
	// Confusable holds characters that look alike in most fonts.
	Confusable  = "iIl1"
	DefaultSize = 30

	alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ1234567890"
)

// Generator hands out identifiers drawn from one random source. It is safe
// for concurrent use; calls are serialized.
//
// Identifiers are not checked against each other or against existing
// names. With the default alphabet and size a repeat is astronomically
// unlikely, but not impossible.
type Generator struct {
	mu       *sync.Mutex
	rand     *mathrand.Rand
	alphabet string
	size     int
}

func NewGenerator(rand *mathrand.Rand) *Generator {
	return &Generator{mu: new(sync.Mutex), rand: rand, alphabet: Confusable, size: DefaultSize}
}

// WithSize returns a generator sharing g's random source that produces
// identifiers of the given length.
func (g *Generator) WithSize(size int) *Generator {
	return &Generator{mu: g.mu, rand: g.rand, alphabet: g.alphabet, size: size}
}

// Next returns a fresh identifier.
func (g *Generator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return pick(g.rand, g.alphabet, g.size)
}

// Random returns n alphanumeric characters.
func Random(rand *mathrand.Rand, n int) string {
	return pick(rand, alphanumeric, n)
}

func pick(rand *mathrand.Rand, alphabet string, n int) string {
	var sb strings.Builder
	sb.Grow(n)
	for i := 0; i < n; i++ {
		sb.WriteByte(alphabet[rand.Intn(len(alphabet))])
	}
	return sb.String()
}
