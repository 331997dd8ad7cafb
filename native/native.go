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

// Package native resolves and caches the unpatched form of components,
// independent of whatever is currently installed in the registry.
package native

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"dirpx.dev/swapx/apis"
	"dirpx.dev/swapx/coopsync"
)

// ErrEmptyName is returned when an empty component name is requested.
var ErrEmptyName = errors.New("swapx(native): empty component name provided")

// deps is the fixed dependency table for native resolution: the threading
// component needs the thread-identity component resolved natively first,
// and the queueing component needs threading. Nothing else in the swap set
// depends on another member.
var deps = map[string]string{
	"threading": "_thread",
	"queue":     "threading",
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the cache's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Cache) { c.log = log }
}

// NewCache constructs a Cache over reg. Entries live for the process; there
// is no eviction.
func NewCache(reg apis.Registry, opts ...Option) *Cache {
	c := &Cache{reg: reg, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Cache lazily resolves the native form of components. First resolutions of
// the same name from different goroutines are deduplicated; everything else
// is a lock-free map hit.
type Cache struct {
	reg apis.Registry
	m   cacheMap
	sf  singleflight.Group
	log zerolog.Logger
}

// Original returns the native, unpatched form of name, resolving and
// caching it on first use. The currently effective bindings are disturbed
// only for the instant of the lookup, under the exclusion lock.
func (c *Cache) Original(name string) (apis.Component, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if comp, ok := c.m.load(name); ok {
		return comp, nil
	}

	// Only lock-free callers may enter the flight group. A caller already
	// holding the exclusion lock could join a flight whose leader is
	// blocked acquiring that same lock; such callers use OriginalLocked,
	// and nested dependency resolution goes through originalLocked.
	v, err, _ := c.sf.Do(name, func() (any, error) {
		c.reg.Lock()
		defer c.reg.Unlock()
		return c.originalLocked(name)
	})
	if err != nil {
		return nil, err
	}
	return v.(apis.Component), nil
}

// OriginalLocked is Original for callers that hold the registry exclusion
// lock. It bypasses the first-resolution flight group entirely; a later
// lock-free Original for the same name finds the cached entry.
func (c *Cache) OriginalLocked(name string) (apis.Component, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	return c.originalLocked(name)
}

// originalLocked resolves the native form of name. The exclusion lock must
// be held.
func (c *Cache) originalLocked(name string) (apis.Component, error) {
	if comp, ok := c.m.load(name); ok {
		return comp, nil
	}

	snap := c.reg.Capture(name)
	defer snap.Restore()

	// Natives are resolved from scratch, never through whatever overlay is
	// currently installed.
	c.reg.Drop(name)

	if dep, ok := deps[name]; ok {
		depOrig, err := c.originalLocked(dep)
		if err != nil {
			return nil, fmt.Errorf("swapx(native): dependency %q of %q: %w", dep, name, err)
		}
		snap.Save(dep)
		c.reg.Bind(dep, depOrig)
	}

	comp, err := c.reg.Resolve(name)
	if err != nil {
		return nil, fmt.Errorf("swapx(native): %w", err)
	}

	if name == "queue" {
		c.pinQueueConstructor(comp)
	}

	c.m.store(name, comp)
	c.log.Debug().Str("component", name).Msg("native form cached")
	return comp, nil
}

// WithOriginals runs body with the native forms of the given names bound in
// the registry, restoring the displaced bindings on every exit path. The
// body runs under the exclusion lock.
func (c *Cache) WithOriginals(body func() error, names ...string) error {
	snap := c.reg.Capture()
	defer snap.Restore()

	for _, name := range names {
		orig, err := c.originalLocked(name)
		if err != nil {
			return err
		}
		snap.Save(name)
		c.reg.Bind(name, orig)
	}
	return body()
}

// pinQueueConstructor wraps the queueing component's constructor so every
// instantiation resolves the native threading component, regardless of what
// is installed globally at construction time. The unwrapped constructor
// eagerly re-resolves threading on each call.
func (c *Cache) pinQueueConstructor(comp apis.Component) {
	if _, pinned := comp.Get("_threading"); pinned {
		return
	}
	v, ok := comp.Get("New")
	if !ok {
		return
	}
	ctor, ok := v.(coopsync.QueueFactory)
	if !ok {
		c.log.Debug().Str("component", comp.Name()).Msg("queue constructor has unexpected shape; not pinned")
		return
	}
	comp.Set("New", coopsync.QueueFactory(func() (*coopsync.Queue, error) {
		var q *coopsync.Queue
		err := c.WithOriginals(func() error {
			var err error
			q, err = ctor()
			return err
		}, "threading")
		return q, err
	}))
	comp.Set("_threading", true)
}
