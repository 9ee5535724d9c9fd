// Copyright (c) 2024, The Bipbap Authors.
// See LICENSE for licensing information.

// Package image holds the whole program being obfuscated: every class unit
// keyed by its internal name, plus the opaque resources of the archive.
package image

import (
	"fmt"
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/bipbap/bipbap/internal/jvm"
)

// Filter reports whether a class or entry name matches some rule, such as an
// exclusion list.
type Filter func(name string) bool

// Image is the program image. Structural edits go through its methods and
// may be called from several goroutines; class contents are owned by whoever
// is rewriting that class.
type Image struct {
	mu        sync.Mutex
	classes   map[string]*jvm.Class
	resources map[string][]byte
}

func New() *Image {
	return &Image{
		classes:   make(map[string]*jvm.Class),
		resources: make(map[string][]byte),
	}
}

// AddClass inserts c, failing if a class with the same name already exists.
func (img *Image) AddClass(c *jvm.Class) error {
	img.mu.Lock()
	defer img.mu.Unlock()
	if _, ok := img.classes[c.Name]; ok {
		return fmt.Errorf("duplicate class %s", c.Name)
	}
	img.classes[c.Name] = c
	return nil
}

func (img *Image) Class(name string) *jvm.Class {
	img.mu.Lock()
	defer img.mu.Unlock()
	return img.classes[name]
}

func (img *Image) Len() int {
	img.mu.Lock()
	defer img.mu.Unlock()
	return len(img.classes)
}

// Classes returns every class sorted by name.
func (img *Image) Classes() []*jvm.Class {
	img.mu.Lock()
	defer img.mu.Unlock()
	names := maps.Keys(img.classes)
	slices.Sort(names)
	out := make([]*jvm.Class, len(names))
	for i, name := range names {
		out[i] = img.classes[name]
	}
	return out
}

// NonExcluded returns the classes, sorted by name, that no given filter
// matches.
func (img *Image) NonExcluded(excluded ...Filter) []*jvm.Class {
	all := img.Classes()
	out := all[:0]
classes:
	for _, c := range all {
		for _, f := range excluded {
			if f != nil && f(c.Name) {
				continue classes
			}
		}
		out = append(out, c)
	}
	return out
}

func (img *Image) PutResource(name string, data []byte) {
	img.mu.Lock()
	defer img.mu.Unlock()
	img.resources[name] = data
}

func (img *Image) Resource(name string) ([]byte, bool) {
	img.mu.Lock()
	defer img.mu.Unlock()
	data, ok := img.resources[name]
	return data, ok
}

// ResourceNames returns the resource entry names in sorted order.
func (img *Image) ResourceNames() []string {
	img.mu.Lock()
	defer img.mu.Unlock()
	names := maps.Keys(img.resources)
	slices.Sort(names)
	return names
}

// rekey moves classes whose Name no longer matches their key.
func (img *Image) rekey() error {
	img.mu.Lock()
	defer img.mu.Unlock()
	next := make(map[string]*jvm.Class, len(img.classes))
	for _, c := range img.classes {
		if _, ok := next[c.Name]; ok {
			return fmt.Errorf("rename produced duplicate class %s", c.Name)
		}
		next[c.Name] = c
	}
	img.classes = next
	return nil
}
