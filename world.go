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

package swapx

import (
	"github.com/rs/zerolog"

	"dirpx.dev/swapx/apis"
	"dirpx.dev/swapx/inject"
	"dirpx.dev/swapx/mods"
	"dirpx.dev/swapx/native"
	"dirpx.dev/swapx/patch"
	"dirpx.dev/swapx/registry"
)

// WorldOption configures a World during construction.
type WorldOption func(*worldOptions)

type worldOptions struct {
	log          zerolog.Logger
	forkHook     func(onFork func())
	audit        bool
	integrations map[string]apis.Integration
}

// WithLogger sets the logger shared by every layer of the World.
func WithLogger(log zerolog.Logger) WorldOption {
	return func(o *worldOptions) { o.log = log }
}

// WithForkHook supplies a process fork-notification hook. When present,
// the threading family's after-fork cleanup is suppressed on substitution.
func WithForkHook(hook func(onFork func())) WorldOption {
	return func(o *worldOptions) { o.forkHook = hook }
}

// WithAudit toggles the post-substitution lock audit.
func WithAudit(on bool) WorldOption {
	return func(o *worldOptions) { o.audit = on }
}

// WithIntegration registers a driver integration hook for an opt-in
// family.
func WithIntegration(family string, hook apis.Integration) WorldOption {
	return func(o *worldOptions) { o.integrations[family] = hook }
}

// NewWorld builds a fully wired substitution world: a registry seeded with
// the native component loaders, the cooperative source, the native cache,
// the injector and the coordinator.
func NewWorld(opts ...WorldOption) (*World, error) {
	o := worldOptions{
		log:          zerolog.Nop(),
		audit:        true,
		integrations: make(map[string]apis.Integration),
	}
	for _, opt := range opts {
		opt(&o)
	}

	reg := registry.New()
	if err := mods.RegisterNatives(reg); err != nil {
		return nil, err
	}
	coops := mods.NewSource()
	nat := native.NewCache(reg, native.WithLogger(o.log))
	inj := inject.New(reg, inject.WithCoopSource(coops), inject.WithLogger(o.log))

	copts := []patch.Option{
		patch.WithLogger(o.log),
		patch.WithAudit(o.audit),
	}
	if o.forkHook != nil {
		copts = append(copts, patch.WithForkHook(o.forkHook))
	}
	for fam, hook := range o.integrations {
		copts = append(copts, patch.WithIntegration(fam, hook))
	}
	coord := patch.New(reg, nat, inj, coops, copts...)

	return &World{
		reg:   reg,
		coops: coops,
		nat:   nat,
		inj:   inj,
		coord: coord,
		log:   o.log,
	}, nil
}

// World bundles the layers of one substitution domain. A process normally
// uses the package-level default World, but tests and embedders may build
// isolated Worlds that share nothing.
type World struct {
	reg   apis.Registry
	coops *mods.Source
	nat   *native.Cache
	inj   *inject.Injector
	coord *patch.Coordinator
	log   zerolog.Logger
}

// Registry returns the World's component registry.
func (w *World) Registry() apis.Registry {
	return w.reg
}

// Source returns the World's cooperative source, for registering family
// attribute sets beyond the built-in thread and time sets.
func (w *World) Source() *mods.Source {
	return w.coops
}

// Natives returns the World's native component cache.
func (w *World) Natives() *native.Cache {
	return w.nat
}

// Injector returns the World's injector.
func (w *World) Injector() *inject.Injector {
	return w.inj
}

// Coordinator returns the World's substitution coordinator.
func (w *World) Coordinator() *patch.Coordinator {
	return w.coord
}

// Apply performs global substitution for the given selection.
func (w *World) Apply(sel apis.Selection) error {
	return w.coord.Apply(sel)
}

// IsApplied reports whether a family, or the family owning the named
// component, has been substituted in this World.
func (w *World) IsApplied(name string) bool {
	return w.coord.IsApplied(name)
}

// NativeOf returns the unmodified variant of a named component.
func (w *World) NativeOf(name string) (apis.Component, error) {
	return w.nat.Original(name)
}

// ImportPatched resolves a patched wrapper of the named component without
// touching the globally bound variant.
func (w *World) ImportPatched(name string, overrides ...inject.Override) (apis.Component, error) {
	return w.inj.ImportPatched(name, overrides...)
}

// Inject resolves a patched wrapper and copies its attributes into dst.
func (w *World) Inject(name string, dst map[string]any, overrides ...inject.Override) (apis.Component, error) {
	return w.inj.Inject(name, dst, overrides...)
}
