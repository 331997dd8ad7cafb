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

package patch

import (
	"sort"
	"sync"
)

// NewRecord returns an empty application record.
func NewRecord() *Record {
	return &Record{applied: make(map[string]bool)}
}

// Record tracks which families have been applied. Entries are monotonic:
// once marked, a family stays marked for the life of the process. There is
// no un-patch operation.
type Record struct {
	mu      sync.RWMutex
	applied map[string]bool
}

// Applied reports whether family has been marked.
func (r *Record) Applied(family string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.applied[family]
}

// Mark records family as applied.
func (r *Record) Mark(family string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applied[family] = true
}

// Families returns the marked family names, sorted.
func (r *Record) Families() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.applied))
	for name := range r.applied {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
