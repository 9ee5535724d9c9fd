// Copyright (c) 2024, The Bipbap Authors.
// See LICENSE for licensing information.

package config

import "fmt"

// Preset is a named intensity level that enables a fixed set of stages.
type Preset int

const (
	PresetNone Preset = iota
	PresetLow
	PresetMedium
	PresetHigh
)

func (p Preset) String() string {
	switch p {
	case PresetNone:
		return "none"
	case PresetLow:
		return "Low intensity"
	case PresetMedium:
		return "Medium intensity"
	case PresetHigh:
		return "High intensity"
	}
	return fmt.Sprintf("Preset(%d)", int(p))
}

// Apply switches stages on or off as the preset prescribes. Options the
// preset does not mention keep their current values.
func (p Preset) Apply(c *Config) {
	if p == PresetNone {
		return
	}
	c.CodeOptimizer.Enabled = true
	c.ConstantEncryptor.Enabled = true
	c.MembersRenamer.Enabled = true
	c.MembersRenamer.LocalVariable = true
	c.Miscellaneous.Enabled = true

	higher := p >= PresetMedium
	c.InvokeDynamics.Enabled = higher
	c.MembersRenamer.Field = higher
	c.MembersRenamer.Method = higher
	c.Miscellaneous.Crasher = p == PresetHigh
}
