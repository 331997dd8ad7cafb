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

package native

import (
	"sort"
	"sync"

	"dirpx.dev/swapx/apis"
)

// cacheMap is the permanent name -> native component store. Reads outrun
// writes by orders of magnitude once the process warms up, hence sync.Map.
type cacheMap struct {
	m sync.Map // map[string]apis.Component
}

func (c *cacheMap) load(name string) (apis.Component, bool) {
	v, ok := c.m.Load(name)
	if !ok {
		return nil, false
	}
	return v.(apis.Component), true
}

func (c *cacheMap) store(name string, comp apis.Component) {
	c.m.Store(name, comp)
}

// names returns the cached names in sorted order, for diagnostics.
func (c *cacheMap) names() []string {
	var out []string
	c.m.Range(func(k, _ any) bool {
		out = append(out, k.(string))
		return true
	})
	sort.Strings(out)
	return out
}

// Names returns the names with a cached native form, sorted.
func (c *Cache) Names() []string {
	return c.m.names()
}
