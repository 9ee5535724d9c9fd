// Copyright (c) 2024, The Bipbap Authors.
// See LICENSE for licensing information.

// Package config holds the obfuscator's settings: one section per stage plus
// the global Settings section, stored as a JSON document.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/apex/log"
	"github.com/go-viper/mapstructure/v2"
	"github.com/invopop/jsonschema"
	"github.com/spf13/viper"
)

// Exclusion is a list of name prefixes. Matching is literal, so an entry
// may cover more names than intended; "a/B" also excludes "a/Bc".
type Exclusion []string

// Match reports whether name starts with any of the prefixes.
func (e Exclusion) Match(name string) bool {
	for _, prefix := range e {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

type Config struct {
	Settings          Settings          `json:"Settings" mapstructure:"Settings"`
	CodeOptimizer     CodeOptimizer     `json:"CodeOptimizer" mapstructure:"CodeOptimizer"`
	ConstantEncryptor ConstantEncryptor `json:"ConstantEncryptor" mapstructure:"ConstantEncryptor"`
	MembersRenamer    MembersRenamer    `json:"MembersRenamer" mapstructure:"MembersRenamer"`
	InvokeDynamics    InvokeDynamics    `json:"InvokeDynamics" mapstructure:"InvokeDynamics"`
	Miscellaneous     Miscellaneous     `json:"Miscellaneous" mapstructure:"Miscellaneous"`
}

type Settings struct {
	Input            string    `json:"Input" mapstructure:"Input" jsonschema:"default=input.jar"`
	Output           string    `json:"Output" mapstructure:"Output" jsonschema:"default=output.jar"`
	Exclusions       Exclusion `json:"Exclusions" mapstructure:"Exclusions" jsonschema:"description=class name prefixes no stage touches"`
	FileRemovePrefix Exclusion `json:"FileRemovePrefix" mapstructure:"FileRemovePrefix" jsonschema:"description=entries starting with one of these are left out of the output"`
	FileRemoveSuffix []string  `json:"FileRemoveSuffix" mapstructure:"FileRemoveSuffix" jsonschema:"description=entries ending with one of these are left out of the output"`
	// Libraries is accepted so that older documents load cleanly. Nothing
	// reads it: hierarchies reaching outside the input archive stop there.
	Libraries        []string  `json:"Libraries" mapstructure:"Libraries" jsonschema:"description=class path archives; currently unused"`
}

// IsExcluded reports whether a class is covered by the global exclusions.
func (s *Settings) IsExcluded(name string) bool {
	return s.Exclusions.Match(name)
}

// ShouldRemove reports whether an archive entry is dropped from the output.
// name is a class's internal name or a resource path.
func (s *Settings) ShouldRemove(name string) bool {
	if s.FileRemovePrefix.Match(name) {
		return true
	}
	for _, suffix := range s.FileRemoveSuffix {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

type CodeOptimizer struct {
	Enabled          bool      `json:"Enabled" mapstructure:"Enabled"`
	RemoveSource     bool      `json:"RemoveSource" mapstructure:"RemoveSource" jsonschema:"default=true"`
	RemoveInnerClass bool      `json:"RemoveInnerClass" mapstructure:"RemoveInnerClass" jsonschema:"default=true"`
	RemoveDeadCodes  bool      `json:"RemoveDeadCodes" mapstructure:"RemoveDeadCodes" jsonschema:"default=true"`
	KotlinOptimize   bool      `json:"KotlinOptimize" mapstructure:"KotlinOptimize" jsonschema:"default=true"`
	Exclusion        Exclusion `json:"Exclusion" mapstructure:"Exclusion"`
}

type ConstantEncryptor struct {
	Enabled   bool      `json:"Enabled" mapstructure:"Enabled"`
	Integer   bool      `json:"Integer" mapstructure:"Integer" jsonschema:"default=true"`
	Long      bool      `json:"Long" mapstructure:"Long" jsonschema:"default=true"`
	Float     bool      `json:"Float" mapstructure:"Float" jsonschema:"default=true"`
	Double    bool      `json:"Double" mapstructure:"Double" jsonschema:"default=true"`
	String    bool      `json:"String" mapstructure:"String" jsonschema:"default=true"`
	Exclusion Exclusion `json:"Exclusion" mapstructure:"Exclusion"`
}

type MembersRenamer struct {
	Enabled       bool `json:"Enabled" mapstructure:"Enabled"`
	LocalVariable bool `json:"LocalVariable" mapstructure:"LocalVariable" jsonschema:"default=true"`
	Field         bool `json:"Field" mapstructure:"Field"`
	Method        bool `json:"Method" mapstructure:"Method"`
	Class         bool `json:"Class" mapstructure:"Class" jsonschema:"description=also rename classes inside their package"`
	// Exclusion entries are matched against member keys (owner.name for
	// fields, owner.name plus descriptor for methods) and class names.
	Exclusion Exclusion `json:"Exclusion" mapstructure:"Exclusion"`
}

type InvokeDynamics struct {
	Enabled           bool      `json:"Enabled" mapstructure:"Enabled"`
	ReplacePercentage int       `json:"ReplacePercentage" mapstructure:"ReplacePercentage" jsonschema:"default=30,minimum=0,maximum=100"`
	InvokeStatic      bool      `json:"InvokeStatic" mapstructure:"InvokeStatic" jsonschema:"default=true"`
	InvokeVirtual     bool      `json:"InvokeVirtual" mapstructure:"InvokeVirtual" jsonschema:"default=true"`
	Exclusion         Exclusion `json:"Exclusion" mapstructure:"Exclusion"`
}

type Miscellaneous struct {
	Enabled    bool      `json:"Enabled" mapstructure:"Enabled"`
	Crasher    bool      `json:"Crasher" mapstructure:"Crasher"`
	HideCode   bool      `json:"HideCode" mapstructure:"HideCode" jsonschema:"default=true"`
	Watermark  bool      `json:"Watermark" mapstructure:"Watermark" jsonschema:"default=true"`
	Watermarks []string  `json:"Watermarks" mapstructure:"Watermarks"`
	Exclusion  Exclusion `json:"Exclusion" mapstructure:"Exclusion"`
}

// Default returns the configuration used when no document is given. Every
// stage starts disabled.
func Default() *Config {
	return &Config{
		Settings: Settings{
			Input:  "input.jar",
			Output: "output.jar",
			Exclusions: Exclusion{
				"assets/",
				"baritone/",
				"club/minnced",
				"com/github/",
				"com/google/",
				"com/mojang/",
				"io/netty/",
				"io/github/",
				"it/unimi/",
				"javassist/",
				"javax/",
				"javafx/",
				"kotlin/",
				"kotlinx/",
				"org/jetbrains/",
				"org/lwjgl/",
				"org/spongepowered/",
				"org/intellij/",
				"org/joml/",
				"org/apache/",
				"org/ow2/",
				"net/fabricmc/",
				"net/minecraft/",
				"net/minecraftforge/",
				"net/java/",
			},
			FileRemovePrefix: Exclusion{},
			FileRemoveSuffix: []string{},
			Libraries:        []string{},
		},
		CodeOptimizer: CodeOptimizer{
			RemoveSource:     true,
			RemoveInnerClass: true,
			RemoveDeadCodes:  true,
			KotlinOptimize:   true,
			Exclusion:        Exclusion{},
		},
		ConstantEncryptor: ConstantEncryptor{
			Integer:   true,
			Long:      true,
			Float:     true,
			Double:    true,
			String:    true,
			Exclusion: Exclusion{},
		},
		MembersRenamer: MembersRenamer{
			LocalVariable: true,
			Exclusion: Exclusion{
				"net/spartanb312/Example.field",
				"net/spartanb312/Example.method()V",
			},
		},
		InvokeDynamics: InvokeDynamics{
			ReplacePercentage: 30,
			InvokeStatic:      true,
			InvokeVirtual:     true,
			Exclusion:         Exclusion{},
		},
		Miscellaneous: Miscellaneous{
			HideCode:   true,
			Watermark:  true,
			Watermarks: []string{"PROTECTED BY EVERETT", "PROTECTED BY SPARTAN 1186"},
			Exclusion:  Exclusion{},
		},
	}
}

// ConfigError reports a configuration document that could not be read or
// did not hold valid settings.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Load reads the JSON document at path on top of the defaults. Sections and
// keys missing from the document keep their default values; key names are
// matched case-insensitively. Any failure is a *ConfigError.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}

	cfg := Default()
	var md mapstructure.Metadata
	err := v.Unmarshal(cfg,
		viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
			stringToExclusionHook,
			mapstructure.StringToSliceHookFunc(","),
		)),
		func(dc *mapstructure.DecoderConfig) { dc.Metadata = &md },
	)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	for _, key := range md.Unused {
		log.WithField("key", key).Warn("unknown configuration key")
	}
	if err := cfg.Validate(); err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	log.WithField("path", path).Debug("loaded configuration")
	return cfg, nil
}

var exclusionType = reflect.TypeOf(Exclusion(nil))

// stringToExclusionHook accepts a single comma-separated string where an
// exclusion list is expected.
func stringToExclusionHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != exclusionType {
		return data, nil
	}
	s := data.(string)
	if s == "" {
		return Exclusion{}, nil
	}
	var e Exclusion
	for _, part := range strings.Split(s, ",") {
		e = append(e, strings.TrimSpace(part))
	}
	return e, nil
}

// Validate checks value ranges that the document format cannot express.
func (c *Config) Validate() error {
	if p := c.InvokeDynamics.ReplacePercentage; p < 0 || p > 100 {
		return fmt.Errorf("InvokeDynamics.ReplacePercentage must be within [0, 100], got %d", p)
	}
	return nil
}

// Save writes the configuration as indented JSON, creating parent
// directories as needed.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o777); err != nil {
			return err
		}
	}
	return os.WriteFile(path, append(data, '\n'), 0o666)
}

// Schema returns the JSON schema describing the configuration document.
func Schema() *jsonschema.Schema {
	r := jsonschema.Reflector{
		DoNotReference: true,
	}
	schema := r.Reflect(&Config{})
	schema.Title = "bipbap configuration"
	return schema
}
