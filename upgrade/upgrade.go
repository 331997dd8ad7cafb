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

// Package upgrade walks live object graphs and replaces instances of a
// target type in place, preserving aliasing across multiple references.
//
// The traversal follows a closed set of edge kinds: map values, slice
// elements, the attribute set of AttrContainer implementations, and
// exported struct fields reached through pointers. Each distinct object
// identity is visited at most once per pass, so arbitrary cycles
// terminate.
package upgrade

import (
	"reflect"

	"github.com/rs/zerolog"
)

// DefaultMaxDepth bounds traversal depth as a guard against pathological
// graphs; identity tracking already terminates cycles.
const DefaultMaxDepth = 4096

// AttrContainer is the attribute-set edge kind: any object exposing an
// enumerable, in-place-mutable attribute map. Components satisfy it.
type AttrContainer interface {
	Range(fn func(attr string, v any) bool)
	Set(attr string, v any)
}

// ConvertFunc produces the upgraded equivalent of a matched instance.
type ConvertFunc func(old any) (any, error)

// Option configures an Upgrader.
type Option func(*Upgrader)

// WithLogger sets the upgrader's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(u *Upgrader) { u.log = log }
}

// WithMaxDepth overrides the traversal depth guard.
func WithMaxDepth(depth int) Option {
	return func(u *Upgrader) {
		if depth > 0 {
			u.maxDepth = depth
		}
	}
}

// New constructs an Upgrader that replaces instances of target (a pointer
// type) with the product of convert.
func New(target reflect.Type, convert ConvertFunc, opts ...Option) *Upgrader {
	u := &Upgrader{
		target:   target,
		convert:  convert,
		log:      zerolog.Nop(),
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Upgrader performs upgrade passes over object graphs.
type Upgrader struct {
	target   reflect.Type
	convert  ConvertFunc
	log      zerolog.Logger
	maxDepth int
}

// Stats summarizes one pass.
type Stats struct {
	// Visited counts distinct object identities traversed.
	Visited int
	// Replaced counts conversions performed (not referencing slots
	// rewritten; aliased references share one conversion).
	Replaced int
	// Skipped counts nodes abandoned after becoming invalid mid-traversal
	// or slots whose static type could not accept the replacement.
	Skipped int
}

// UpgradeAll traverses the graphs reachable from roots, replacing every
// matched instance at its referencing slot with its converted equivalent.
// Multiple references to one original all end up referencing the identical
// replacement. Traversal never descends into a replacement. A conversion
// failure is fatal and aborts the pass; per-node reference failures are
// skipped and logged.
func (u *Upgrader) UpgradeAll(roots ...any) (Stats, error) {
	w := &walker{
		u:       u,
		visited: make(map[uintptr]bool),
		memo:    make(map[uintptr]any),
	}
	for _, root := range roots {
		if w.err != nil {
			break
		}
		w.traverse(root, 0)
	}
	return w.stats, w.err
}

// Audit re-walks the graphs reachable from roots and counts distinct
// instances of the target type still referenced. Best-effort: the count is
// diagnostic, not a correctness failure.
func (u *Upgrader) Audit(roots ...any) int {
	w := &walker{
		u:       u,
		visited: make(map[uintptr]bool),
		memo:    make(map[uintptr]any),
		audit:   true,
	}
	for _, root := range roots {
		w.traverse(root, 0)
	}
	return w.remaining
}

// walker is the per-pass state: identity-keyed visited set, old-identity to
// replacement memo, and counters.
type walker struct {
	u         *Upgrader
	visited   map[uintptr]bool
	memo      map[uintptr]any
	stats     Stats
	remaining int
	audit     bool
	err       error
}

// identity returns a per-object identity for reference-kind values. Values
// without reference identity carry no slots the pass could rewrite through,
// so they report ok=false and are not traversed.
func identity(rv reflect.Value) (uintptr, bool) {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		if rv.IsNil() {
			return 0, false
		}
		return rv.Pointer(), true
	}
	return 0, false
}

// replacement reports whether v is a matched instance and, if so, returns
// the (memoized) upgraded equivalent. It never descends into the result.
func (w *walker) replacement(v any) (any, bool) {
	if v == nil || w.err != nil {
		return nil, false
	}
	if reflect.TypeOf(v) != w.u.target {
		return nil, false
	}
	id, ok := identity(reflect.ValueOf(v))
	if !ok {
		return nil, false
	}
	if w.audit {
		// Distinct instances, not referencing slots: aliases of one
		// leftover lock count once.
		if !w.visited[id] {
			w.visited[id] = true
			w.remaining++
		}
		return nil, false
	}
	if n, seen := w.memo[id]; seen {
		return n, true
	}
	n, err := w.u.convert(v)
	if err != nil {
		w.err = err
		return nil, false
	}
	w.memo[id] = n
	w.stats.Replaced++
	if nid, ok := identity(reflect.ValueOf(n)); ok {
		w.visited[nid] = true
	}
	return n, true
}

// traverse walks one object. A panic while examining the object means it
// became invalid mid-traversal; the node is skipped and the pass continues.
func (w *walker) traverse(v any, depth int) {
	if v == nil || w.err != nil || depth > w.u.maxDepth {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			w.stats.Skipped++
			w.u.log.Warn().Interface("cause", r).Msg("object became invalid mid-traversal; node skipped")
		}
	}()

	rv := reflect.ValueOf(v)
	id, ok := identity(rv)
	if !ok {
		return
	}
	if w.visited[id] {
		return
	}
	w.visited[id] = true
	w.stats.Visited++

	if ac, isAttrs := v.(AttrContainer); isAttrs {
		w.walkAttrs(ac, depth)
		return
	}
	switch rv.Kind() {
	case reflect.Map:
		w.walkMap(rv, depth)
	case reflect.Slice:
		w.walkSlice(rv, depth)
	case reflect.Pointer:
		w.walkPointer(rv, depth)
	}
}

func (w *walker) walkAttrs(ac AttrContainer, depth int) {
	type update struct {
		attr string
		v    any
	}
	var updates []update
	ac.Range(func(attr string, v any) bool {
		if n, ok := w.replacement(v); ok {
			updates = append(updates, update{attr, n})
			return w.err == nil
		}
		w.traverse(v, depth+1)
		return w.err == nil
	})
	// Mutate after the iteration so Range implementations need not support
	// writes from within a callback.
	for _, up := range updates {
		ac.Set(up.attr, up.v)
	}
}

func (w *walker) walkMap(rv reflect.Value, depth int) {
	elemType := rv.Type().Elem()
	for _, k := range rv.MapKeys() {
		mv := rv.MapIndex(k)
		if !mv.CanInterface() {
			continue
		}
		v := mv.Interface()
		if n, ok := w.replacement(v); ok {
			nv := reflect.ValueOf(n)
			if nv.Type().AssignableTo(elemType) {
				rv.SetMapIndex(k, nv)
			} else {
				w.slotSkip(elemType, nv.Type())
			}
			continue
		}
		w.traverse(v, depth+1)
	}
}

func (w *walker) walkSlice(rv reflect.Value, depth int) {
	for i := 0; i < rv.Len(); i++ {
		ev := rv.Index(i)
		if !ev.CanInterface() {
			continue
		}
		v := ev.Interface()
		if n, ok := w.replacement(v); ok {
			nv := reflect.ValueOf(n)
			if ev.CanSet() && nv.Type().AssignableTo(ev.Type()) {
				ev.Set(nv)
			} else {
				w.slotSkip(ev.Type(), nv.Type())
			}
			continue
		}
		w.traverse(v, depth+1)
	}
}

func (w *walker) walkPointer(rv reflect.Value, depth int) {
	elem := rv.Elem()
	if !elem.IsValid() {
		return
	}
	switch elem.Kind() {
	case reflect.Struct:
		w.walkStruct(elem, depth)
	case reflect.Map, reflect.Slice, reflect.Interface, reflect.Pointer:
		if elem.CanInterface() {
			w.traverse(elem.Interface(), depth+1)
		}
	}
}

func (w *walker) walkStruct(sv reflect.Value, depth int) {
	for i := 0; i < sv.NumField(); i++ {
		fv := sv.Field(i)
		if !fv.CanInterface() {
			continue
		}
		v := fv.Interface()
		if n, ok := w.replacement(v); ok {
			nv := reflect.ValueOf(n)
			if fv.CanSet() && nv.Type().AssignableTo(fv.Type()) {
				fv.Set(nv)
			} else {
				w.slotSkip(fv.Type(), nv.Type())
			}
			continue
		}
		w.traverse(v, depth+1)
	}
}

// slotSkip records a slot whose static type cannot hold the replacement.
func (w *walker) slotSkip(slot, repl reflect.Type) {
	w.stats.Skipped++
	w.u.log.Warn().
		Stringer("slot", slot).
		Stringer("replacement", repl).
		Msg("replacement not assignable to referencing slot; left original in place")
}
