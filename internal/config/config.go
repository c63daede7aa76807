// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package config handles hexproc.toml configuration and its environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/xyproto/env/v2"

	"nickandperla.net/hexproc/internal/output"
	"nickandperla.net/hexproc/internal/scanner"
)

// DefaultFile is the configuration file looked up in the working directory.
const DefaultFile = "hexproc.toml"

// Config represents a hexproc.toml configuration.
type Config struct {
	Endian string            `toml:"endian,omitempty"`
	Output Output            `toml:"output"`
	Store  Store             `toml:"store"`
	Labels map[string]string `toml:"labels"`
	Log    Log               `toml:"log"`

	// Path is the file the configuration was read from (set at load time).
	Path string `toml:"-"`
	// NoColor is set when the NO_COLOR convention applies.
	NoColor bool `toml:"-"`
}

// Output configures pass-2 rendering.
type Output struct {
	Mode    string `toml:"mode,omitempty"`
	Palette []int  `toml:"palette"`
}

// Store configures the label library.
type Store struct {
	Path    string `toml:"path,omitempty"`
	Persist bool   `toml:"persist"`
}

// Log configures operational logging.
type Log struct {
	Verbosity int `toml:"verbosity"`
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	return &Config{
		Output: Output{
			Palette: append([]int(nil), output.DefaultPalette...),
		},
		Labels: map[string]string{},
	}
}

// Load parses the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	c.Path = path

	// Defaults
	if len(c.Output.Palette) == 0 {
		c.Output.Palette = append([]int(nil), output.DefaultPalette...)
	}
	if c.Labels == nil {
		c.Labels = map[string]string{}
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Find locates and loads the configuration: the explicit path if given,
// then $HEXPROC_CONFIG, then ./hexproc.toml. A missing default file is not
// an error. Environment overrides are applied to the result.
func Find(explicit string) (*Config, error) {
	path := explicit
	if path == "" {
		path = env.Str("HEXPROC_CONFIG")
	}

	var c *Config
	var err error
	switch {
	case path != "":
		c, err = Load(path)
	default:
		c, err = Load(DefaultFile)
		if errors.Is(err, fs.ErrNotExist) {
			c, err = Default(), nil
		}
	}
	if err != nil {
		return nil, err
	}

	c.ApplyEnv()
	return c, c.Validate()
}

// ApplyEnv applies HEXPROC_DB, HEXPROC_ENDIAN, HEXPROC_VERBOSE and NO_COLOR.
func (c *Config) ApplyEnv() {
	c.Store.Path = env.Str("HEXPROC_DB", c.Store.Path)
	c.Endian = env.Str("HEXPROC_ENDIAN", c.Endian)
	c.Log.Verbosity = env.Int("HEXPROC_VERBOSE", c.Log.Verbosity)
	c.NoColor = env.Has("NO_COLOR")
}

// Validate checks values that cannot be represented by the TOML types.
func (c *Config) Validate() error {
	if c.Output.Mode != "" {
		if _, ok := output.ParseMode(c.Output.Mode); !ok {
			return fmt.Errorf("unknown output mode %q", c.Output.Mode)
		}
	}
	switch strings.ToUpper(c.Endian) {
	case "", "LE", "BE":
	default:
		return fmt.Errorf("endian must be LE or BE, got %q", c.Endian)
	}
	for _, code := range c.Output.Palette {
		if code < 0 || code > 255 {
			return fmt.Errorf("invalid color code %d", code)
		}
	}
	for name, expr := range c.Labels {
		if name == "" || scanner.NameLen(name) != len(name) || scanner.IsDigit(name[0]) {
			return fmt.Errorf("invalid label name %q", name)
		}
		if strings.TrimSpace(expr) == "" || strings.ContainsAny(expr, ";\r\n") {
			return fmt.Errorf("label %s: expression must be a single statement, got %q", name, expr)
		}
	}
	return nil
}

// Mode returns the configured output mode. ok is false when the file does
// not choose one.
func (c *Config) Mode() (m output.Mode, ok bool) {
	if c.Output.Mode == "" {
		return output.Hex, false
	}
	return output.ParseMode(c.Output.Mode)
}

// Definitions returns the configured labels as hexproc source, one lazy
// assignment per line in name order. The endian setting, if any, comes
// first.
func (c *Config) Definitions() string {
	var b strings.Builder
	if c.Endian != "" {
		fmt.Fprintf(&b, "hexproc.endian := %s\n", strings.ToUpper(c.Endian))
	}
	names := make([]string, 0, len(c.Labels))
	for name := range c.Labels {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "%s = %s\n", name, c.Labels[name])
	}
	return b.String()
}

// Dump writes the effective configuration as TOML.
func (c *Config) Dump(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}
