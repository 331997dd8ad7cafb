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

// Package inject implements the transactional save-override-resolve-restore
// cycle that makes a component resolve against substituted dependencies
// without ever losing the prior registry state.
package inject

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"dirpx.dev/swapx/apis"
	"dirpx.dev/swapx/component"
)

// PatchedPrefix is the reserved name under which an already-patched wrapper
// of a component is cached. A binding under this prefix is never part of
// any snapshot, so it survives the transaction that created it.
const PatchedPrefix = "__patched__"

// ErrEmptyName is returned when an empty target name is injected.
var ErrEmptyName = errors.New("swapx(inject): empty component name provided")

// Override binds a component name to a substitute for the duration of a
// transaction.
type Override struct {
	// Name is the ComponentName to cover.
	Name string
	// Component is the substitute binding.
	Component apis.Component
}

// Option configures an Injector.
type Option func(*Injector)

// WithCoopSource supplies the source of default overrides used when a call
// provides none.
func WithCoopSource(src apis.CoopSource) Option {
	return func(j *Injector) { j.coops = src }
}

// WithLogger sets the injector's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(j *Injector) { j.log = log }
}

// DefaultFamilies are the families whose cooperative sets serve as the
// default override selection when an injection names none explicitly.
var DefaultFamilies = []string{
	apis.FamilyOS,
	apis.FamilySelect,
	apis.FamilySocket,
	apis.FamilyThread,
	apis.FamilyTime,
}

// New constructs an Injector over reg.
func New(reg apis.Registry, opts ...Option) *Injector {
	j := &Injector{reg: reg, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Injector performs transactional injections against a single registry.
type Injector struct {
	reg   apis.Registry
	coops apis.CoopSource
	log   zerolog.Logger
}

// Inject resolves name with the given overrides visible in place of its
// dependencies. The prior bindings of name and of every override are
// captured first and restored on every exit path; a resolution failure
// propagates to the caller after the restore has run.
//
// When dst is non-nil, every public attribute of the resolved component is
// copied into it. The resolved component is cached under PatchedPrefix+name
// so a repeated injection of the same target returns the identical object
// without repeating any of the transaction.
//
// Empty overrides default to the cooperative sets of DefaultFamilies.
func (j *Injector) Inject(name string, dst map[string]any, overrides ...Override) (apis.Component, error) {
	if name == "" {
		return nil, ErrEmptyName
	}

	j.reg.Lock()
	defer j.reg.Unlock()

	// Returning the cached wrapper keeps existing references to patched
	// components valid.
	if c, ok := j.reg.Lookup(PatchedPrefix + name); ok {
		return c, nil
	}

	if len(overrides) == 0 {
		overrides = j.defaultOverrides()
	}

	snap := j.reg.Capture(overrideNames(overrides)...)
	snap.Save(name)
	defer snap.Restore()

	for _, o := range overrides {
		if o.Name == "" || o.Component == nil {
			continue
		}
		j.reg.Bind(o.Name, o.Component)
	}

	// Force a fresh resolution under the overridden view.
	j.reg.Drop(name)
	j.reg.DropSubtree(name)

	c, err := j.reg.Resolve(name)
	if err != nil {
		j.log.Warn().Str("component", name).Err(err).Msg("injection resolution failed")
		return nil, fmt.Errorf("swapx(inject): %w", err)
	}

	if dst != nil {
		c.Range(func(attr string, v any) bool {
			// Dunder attributes are bookkeeping, not public surface.
			if !strings.HasPrefix(attr, "__") {
				dst[attr] = v
			}
			return true
		})
	}

	j.reg.Bind(PatchedPrefix+name, c)
	return c, nil
}

// ImportPatched resolves name under the default (or given) overrides and
// returns the patched component without populating a destination map.
func (j *Injector) ImportPatched(name string, overrides ...Override) (apis.Component, error) {
	return j.Inject(name, nil, overrides...)
}

// Patched runs body with the overrides bound, restoring the prior bindings
// on every exit path. Empty overrides default to the cooperative sets of
// DefaultFamilies. The body runs under the exclusion lock.
func (j *Injector) Patched(body func() error, overrides ...Override) error {
	if len(overrides) == 0 {
		overrides = j.defaultOverrides()
	}

	snap := j.reg.Capture()
	defer snap.Restore()

	for _, o := range overrides {
		if o.Name == "" || o.Component == nil {
			continue
		}
		snap.Save(o.Name)
		j.reg.Bind(o.Name, o.Component)
	}
	return body()
}

// Scoped resolves name fresh under the overrides, hands the resolved
// component to body, and restores the prior bindings on every exit path.
// Unlike Inject, nothing is cached: the resolution is transient.
func (j *Injector) Scoped(name string, overrides []Override, body func(apis.Component) error) error {
	if name == "" {
		return ErrEmptyName
	}

	snap := j.reg.Capture(overrideNames(overrides)...)
	snap.Save(name)
	defer snap.Restore()

	for _, o := range overrides {
		if o.Name == "" || o.Component == nil {
			continue
		}
		j.reg.Bind(o.Name, o.Component)
	}
	j.reg.Drop(name)
	j.reg.DropSubtree(name)

	c, err := j.reg.Resolve(name)
	if err != nil {
		return fmt.Errorf("swapx(inject): %w", err)
	}
	return body(c)
}

// defaultOverrides assembles override components from the cooperative sets
// of DefaultFamilies. Families without a registered set contribute nothing.
func (j *Injector) defaultOverrides() []Override {
	if j.coops == nil {
		return nil
	}
	var out []Override
	for _, fam := range DefaultFamilies {
		coops, ok := j.coops.Family(fam)
		if !ok {
			continue
		}
		for _, co := range coops {
			out = append(out, Override{
				Name:      co.Target,
				Component: component.NewWithAttrs(co.Target, co.Patched),
			})
		}
	}
	return out
}

func overrideNames(overrides []Override) []string {
	names := make([]string, 0, len(overrides))
	for _, o := range overrides {
		if o.Name != "" {
			names = append(names, o.Name)
		}
	}
	return names
}
