/*
   Copyright 2025 The DIRPX Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

// Package config constructs and loads family selections.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"dirpx.dev/swapx/apis"
)

// NewSelection constructs an apis.Selection from the given options.
// A selection with no options enables the default family set.
func NewSelection(opts ...Option) apis.Selection {
	sel := DefaultSelection()
	for _, opt := range opts {
		opt(&sel)
	}
	return sel
}

// DefaultSelection is the empty selection: every default-on family enabled,
// opt-in-only families left off.
func DefaultSelection() apis.Selection {
	return apis.Selection{
		Families: make(map[string]bool),
	}
}

// Option is a functional option that mutates an apis.Selection during
// construction.
type Option func(*apis.Selection)

// WithFamily sets a single family flag.
func WithFamily(name string, on bool) Option {
	return func(s *apis.Selection) {
		s.Families[name] = on
	}
}

// WithAll forces every recognized family, including opt-in-only families,
// to the given value. Explicit per-family flags still take precedence.
func WithAll(on bool) Option {
	return func(s *apis.Selection) {
		s.All = &on
	}
}

// fileSelection mirrors the on-disk selection format:
//
//	all = true            # optional
//	[families]
//	socket = true
//	mysqldb = false
type fileSelection struct {
	All      *bool           `toml:"all"`
	Families map[string]bool `toml:"families"`
}

// LoadSelection reads a selection from a TOML file. Unknown keys are
// rejected so a typoed family name fails loudly instead of silently
// applying the defaults.
func LoadSelection(path string) (apis.Selection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return apis.Selection{}, fmt.Errorf("swapx(config): read selection: %w", err)
	}
	return ParseSelection(data)
}

// ParseSelection decodes a TOML selection document.
func ParseSelection(data []byte) (apis.Selection, error) {
	var fs fileSelection
	md, err := toml.Decode(string(data), &fs)
	if err != nil {
		return apis.Selection{}, fmt.Errorf("swapx(config): decode selection: %w", err)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return apis.Selection{}, fmt.Errorf("swapx(config): unknown selection key %q", undec[0].String())
	}
	sel := DefaultSelection()
	sel.All = fs.All
	for name, on := range fs.Families {
		sel.Families[name] = on
	}
	return sel, nil
}
