// Copyright (c) 2024, The Bipbap Authors.
// See LICENSE for licensing information.

package rename

import (
	"errors"
	"fmt"

	"github.com/dominikbraun/graph"
	"golang.org/x/exp/slices"

	"github.com/bipbap/bipbap/internal/jvm"
)

// hierarchy groups classes that are connected through super class or
// interface edges, in either direction. Only classes in the image take part;
// edges to outside types are dropped.
type hierarchy struct {
	components map[string][]string
}

func newHierarchy(classes []*jvm.Class) (*hierarchy, error) {
	g := graph.New(graph.StringHash)
	for _, c := range classes {
		if err := g.AddVertex(c.Name); err != nil {
			return nil, fmt.Errorf("add class %s: %w", c.Name, err)
		}
	}
	for _, c := range classes {
		for _, super := range c.Supertypes() {
			if _, err := g.Vertex(super); err != nil {
				continue
			}
			err := g.AddEdge(c.Name, super)
			if err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
				return nil, fmt.Errorf("link %s to %s: %w", c.Name, super, err)
			}
		}
	}

	h := &hierarchy{components: make(map[string][]string, len(classes))}
	for _, c := range classes {
		if _, done := h.components[c.Name]; done {
			continue
		}
		var component []string
		err := graph.BFS(g, c.Name, func(name string) bool {
			component = append(component, name)
			return false
		})
		if err != nil {
			return nil, err
		}
		slices.Sort(component)
		for _, name := range component {
			h.components[name] = component
		}
	}
	return h, nil
}

// component returns the sorted names of every class connected to name,
// including name itself.
func (h *hierarchy) component(name string) []string {
	if c, ok := h.components[name]; ok {
		return c
	}
	return []string{name}
}
