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

package registry

import "dirpx.dev/swapx/apis"

// Capture acquires the exclusion lock and records the bindings currently
// visible for the given names, with an explicit absent marker for names
// that have no binding. The lock is held until the Snapshot is restored;
// every exit path of the guarded operation must run Restore.
func (r *Registry) Capture(names ...string) apis.Snapshot {
	r.Lock()
	s := &snapshot{reg: r, saved: make(map[string]binding, len(names))}
	s.save(names)
	return s
}

// binding is one captured entry. present distinguishes a real value from
// the absent marker.
type binding struct {
	c       apis.Component
	present bool
}

// snapshot is a consume-once capture. It owns one level of the exclusion
// lock from Capture until Restore.
type snapshot struct {
	reg   *Registry
	saved map[string]binding
	done  bool
}

var _ apis.Snapshot = (*snapshot)(nil)

// Save records the current bindings of additional names. First-seen values
// win, so saving a name twice cannot clobber its pre-transaction state.
func (s *snapshot) Save(names ...string) {
	s.save(names)
}

func (s *snapshot) save(names []string) {
	for _, name := range names {
		if name == "" {
			continue
		}
		if _, seen := s.saved[name]; seen {
			continue
		}
		c, ok := s.reg.bindings[name]
		s.saved[name] = binding{c: c, present: ok}
	}
}

// Restore writes every recorded name back into the registry and releases
// the exclusion lock. The lock release happens even if callers captured
// nothing. A snapshot is invalidated by its first Restore; further calls do
// nothing, so a deferred Restore composes with an early explicit one.
func (s *snapshot) Restore() {
	if s.done {
		return
	}
	s.done = true
	defer s.reg.Unlock()

	for name, b := range s.saved {
		if b.present {
			s.reg.bindings[name] = b.c
		} else {
			delete(s.reg.bindings, name)
		}
	}
}
