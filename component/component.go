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

// Package component implements the shared attribute-bag component model.
package component

import (
	"sync"

	"dirpx.dev/swapx/apis"
)

// New constructs an empty component with the given name.
func New(name string) apis.Component {
	return &component{name: name, attrs: make(map[string]any)}
}

// NewWithAttrs constructs a component pre-populated with attrs.
// The map is copied; the caller keeps ownership of its argument.
func NewWithAttrs(name string, attrs map[string]any) apis.Component {
	c := &component{name: name, attrs: make(map[string]any, len(attrs))}
	for k, v := range attrs {
		c.attrs[k] = v
	}
	return c
}

// component is a mutex-guarded attribute map. The zero of everything here
// is deliberate: components are mutated in place by the coordinator while
// other code holds references to the same instance.
type component struct {
	name  string
	mu    sync.RWMutex
	attrs map[string]any
}

var _ apis.Component = (*component)(nil)

func (c *component) Name() string {
	return c.name
}

func (c *component) Get(attr string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.attrs[attr]
	return v, ok
}

func (c *component) Set(attr string, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attrs[attr] = v
}

func (c *component) Delete(attr string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.attrs, attr)
}

func (c *component) Range(fn func(attr string, v any) bool) {
	c.mu.RLock()
	snapshot := make(map[string]any, len(c.attrs))
	for k, v := range c.attrs {
		snapshot[k] = v
	}
	c.mu.RUnlock()

	for k, v := range snapshot {
		if !fn(k, v) {
			return
		}
	}
}

func (c *component) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.attrs)
}
