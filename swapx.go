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
	"sync"
	"sync/atomic"

	"dirpx.dev/swapx/apis"
	"dirpx.dev/swapx/inject"
)

// init initializes the global World state.
func init() {
	w, err := NewWorld()
	if err != nil {
		panic(err)
	}
	st.Store(w)
}

var (
	// st holds the current global World. Readers load it atomically and
	// never mutate it.
	st atomic.Pointer[World]
	// buildMu serializes writers that replace the global World.
	buildMu sync.Mutex
)

// Default returns the global World.
func Default() *World {
	return st.Load()
}

// SetWorld replaces the global World. A nil argument leaves the current
// World in place.
func SetWorld(w *World) {
	if w == nil {
		return
	}
	buildMu.Lock()
	defer buildMu.Unlock()
	st.Store(w)
}

// Configure rebuilds the global World from the given options, discarding
// all state of the previous one, including its substitution record.
func Configure(opts ...WorldOption) error {
	buildMu.Lock()
	defer buildMu.Unlock()

	w, err := NewWorld(opts...)
	if err != nil {
		return err
	}
	st.Store(w)
	return nil
}

// Apply performs global substitution for the given selection using the
// global World.
// This is a convenience wrapper around the global World.
func Apply(sel apis.Selection) error {
	return st.Load().Apply(sel)
}

// IsApplied reports whether a family or component has been substituted.
// This is a convenience wrapper around the global World.
func IsApplied(name string) bool {
	return st.Load().IsApplied(name)
}

// NativeOf returns the unmodified variant of a named component.
// This is a convenience wrapper around the global World.
func NativeOf(name string) (apis.Component, error) {
	return st.Load().NativeOf(name)
}

// ImportPatched resolves a patched wrapper of the named component.
// This is a convenience wrapper around the global World.
func ImportPatched(name string, overrides ...inject.Override) (apis.Component, error) {
	return st.Load().ImportPatched(name, overrides...)
}

// Inject resolves a patched wrapper and copies its attributes into dst.
// This is a convenience wrapper around the global World.
func Inject(name string, dst map[string]any, overrides ...inject.Override) (apis.Component, error) {
	return st.Load().Inject(name, dst, overrides...)
}

// WithInjected resolves a transient patched wrapper of the named component,
// runs body against it, and restores every displaced binding before
// returning. The wrapper is never cached, so repeated calls with different
// overrides stay independent.
func WithInjected[R any](name string, overrides []inject.Override, body func(apis.Component) (R, error)) (R, error) {
	var out R
	err := st.Load().Injector().Scoped(name, overrides, func(c apis.Component) error {
		r, err := body(c)
		if err != nil {
			return err
		}
		out = r
		return nil
	})
	return out, err
}
