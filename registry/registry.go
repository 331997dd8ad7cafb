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

// Package registry implements the process-wide component binding table and
// its transactional snapshots.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"dirpx.dev/swapx/apis"
	"dirpx.dev/swapx/coopsync"
)

var (
	// ErrEmptyName is returned when an empty component name is provided.
	ErrEmptyName = errors.New("swapx(registry): empty component name provided")
	// ErrNilLoader is returned when a nil loader is registered.
	ErrNilLoader = errors.New("swapx(registry): nil loader provided")
	// ErrUnknownComponent indicates that a name has neither a live binding
	// nor a registered loader.
	ErrUnknownComponent = errors.New("swapx(registry): unknown component")
	// ErrNilComponent is returned when a loader produces a nil component.
	ErrNilComponent = errors.New("swapx(registry): loader returned nil component")
)

// New constructs an empty Registry. The exclusion lock starts on the native
// identity provider; resolution must never be cooperative.
func New() *Registry {
	lk := coopsync.NewPortableRLock()
	lk.SetIdent(coopsync.NativeIdent)
	return &Registry{
		excl:     lk,
		bindings: make(map[string]apis.Component),
		loaders:  make(map[string]apis.LoaderFunc),
	}
}

// Registry is the concrete component table. A single re-entrant exclusion
// lock serializes every read and write so a resolver running during a
// mutation window still sees a consistent view.
type Registry struct {
	// excl is the process-wide exclusion lock. Re-entrant, native identity,
	// never a cooperative lock.
	excl *coopsync.PortableRLock
	// bindings maps ComponentName to its single live binding.
	bindings map[string]apis.Component
	// loaders maps ComponentName to its resolution function.
	loaders map[string]apis.LoaderFunc
}

var _ apis.Registry = (*Registry)(nil)

// Lock acquires the exclusion lock. Re-entrant.
func (r *Registry) Lock() {
	r.excl.Acquire()
}

// Unlock releases one level of the exclusion lock. Unlocking a lock the
// caller does not own is a programming error and panics, matching the
// stdlib mutex contract.
func (r *Registry) Unlock() {
	if err := r.excl.Release(); err != nil {
		panic(err)
	}
}

// SetIdent pins the exclusion lock's identity provider.
func (r *Registry) SetIdent(ident func() uint64) {
	r.excl.SetIdent(coopsync.Ident(ident))
}

// Lookup returns the current binding for name.
func (r *Registry) Lookup(name string) (apis.Component, bool) {
	r.Lock()
	defer r.Unlock()
	c, ok := r.bindings[name]
	return c, ok
}

// Bind installs c as the live binding for name.
func (r *Registry) Bind(name string, c apis.Component) {
	r.Lock()
	defer r.Unlock()
	r.bindings[name] = c
}

// Drop removes the live binding for name, if any.
func (r *Registry) Drop(name string) {
	r.Lock()
	defer r.Unlock()
	delete(r.bindings, name)
}

// DropSubtree removes every binding textually nested under prefix.
func (r *Registry) DropSubtree(prefix string) {
	r.Lock()
	defer r.Unlock()
	dotted := prefix + "."
	for name := range r.bindings {
		if strings.HasPrefix(name, dotted) {
			delete(r.bindings, name)
		}
	}
}

// Names returns the currently bound names in sorted order.
func (r *Registry) Names() []string {
	r.Lock()
	defer r.Unlock()
	names := make([]string, 0, len(r.bindings))
	for name := range r.bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterLoader associates a loader with name. The last registration for a
// name wins, mirroring how a loader table is assembled at boot.
func (r *Registry) RegisterLoader(name string, l apis.LoaderFunc) error {
	if name == "" {
		return ErrEmptyName
	}
	if l == nil {
		return ErrNilLoader
	}
	r.Lock()
	defer r.Unlock()
	r.loaders[name] = l
	return nil
}

// Resolve returns the live binding for name, loading and binding it first
// when absent. The loader runs under the exclusion lock and may resolve
// further names re-entrantly.
func (r *Registry) Resolve(name string) (apis.Component, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	r.Lock()
	defer r.Unlock()

	if c, ok := r.bindings[name]; ok {
		return c, nil
	}
	l, ok := r.loaders[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownComponent, name)
	}
	c, err := l(r)
	if err != nil {
		return nil, fmt.Errorf("swapx(registry): resolving %q: %w", name, err)
	}
	if c == nil {
		return nil, fmt.Errorf("%w: %q", ErrNilComponent, name)
	}
	r.bindings[name] = c
	return c, nil
}
