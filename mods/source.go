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

package mods

import (
	"net"
	"runtime"
	"sort"
	"sync"
	"time"

	"dirpx.dev/swapx/apis"
	"dirpx.dev/swapx/coopsync"
)

// NewSource constructs the default cooperative source. It ships sets for
// the threading and timer families, the two the engine's own corrections
// and upgrade pass depend on, plus the readiness-selection set, which is
// defined by what it deletes. The remaining families are plug-in
// registrations supplied via SetFamily by the cooperative implementations
// themselves.
func NewSource() *Source {
	s := &Source{
		families: make(map[string][]apis.Coop),
		owner:    make(map[string]string),
	}
	s.SetFamily(apis.FamilySelect, selectCoops())
	s.SetFamily(apis.FamilyThread, threadCoops())
	s.SetFamily(apis.FamilyTime, timeCoops())
	return s
}

// Source is a mutable registry of cooperative component sets per family.
type Source struct {
	mu       sync.RWMutex
	families map[string][]apis.Coop
	owner    map[string]string // component target -> family
}

var _ apis.CoopSource = (*Source)(nil)

// SetFamily registers (or replaces) the cooperative set for a family.
func (s *Source) SetFamily(family string, coops []apis.Coop) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, co := range s.families[family] {
		delete(s.owner, co.Target)
	}
	s.families[family] = coops
	for _, co := range coops {
		s.owner[co.Target] = family
	}
}

// Family returns the cooperative set registered for a family.
func (s *Source) Family(name string) ([]apis.Coop, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	coops, ok := s.families[name]
	return coops, ok
}

// Families returns the family names with a registered set, sorted.
func (s *Source) Families() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.families))
	for name := range s.families {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// FamilyOf maps a ComponentName to the family whose set targets it.
func (s *Source) FamilyOf(component string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fam, ok := s.owner[component]
	return fam, ok
}

// threadCoops is the cooperative threading set: portable identity,
// cooperative low-level locks, portable reentrant locks, and a queue
// constructor wired to cooperative locks.
func threadCoops() []apis.Coop {
	return []apis.Coop{
		{
			Target: "_thread",
			Patched: map[string]any{
				"get_ident":     coopsync.Ident(coopsync.PortableIdent),
				"allocate_lock": coopsync.LockFactory(coopsync.AllocateCoopLock),
			},
		},
		{
			Target: "threading",
			Patched: map[string]any{
				"get_ident": coopsync.Ident(coopsync.PortableIdent),
				"Lock":      coopsync.LockFactory(coopsync.AllocateCoopLock),
				"RLock": coopsync.RLockFactory(func() coopsync.ReentrantLock {
					l := coopsync.NewPortableRLock()
					l.SetBlock(coopsync.AllocateCoopLock())
					return l
				}),
			},
		},
		{
			Target: "queue",
			Patched: map[string]any{
				"New": coopsync.QueueFactory(func() (*coopsync.Queue, error) {
					return coopsync.NewQueue(coopsync.AllocateCoopLock()), nil
				}),
				"SimpleQueue": coopsync.SimpleQueueFactory(coopsync.NewPortableSimpleQueue),
			},
		},
	}
}

// selectCoops is the cooperative readiness-selection set. The cooperative
// variant multiplexes through the scheduler, so the platform-specific
// poller constructors are removed outright rather than replaced.
func selectCoops() []apis.Coop {
	return []apis.Coop{
		{
			Target: "select",
			Patched: map[string]any{
				"select": func(conns []net.Conn, timeout time.Duration) []net.Conn {
					runtime.Gosched()
					return nil
				},
			},
			Deleted: []string{"poll", "epoll", "kqueue"},
		},
	}
}

// timeCoops is the cooperative timer set: sleeping yields explicitly before
// parking so a cooperative scheduler gets its turn.
func timeCoops() []apis.Coop {
	return []apis.Coop{
		{
			Target: "time",
			Patched: map[string]any{
				"sleep": func(d time.Duration) {
					runtime.Gosched()
					time.Sleep(d)
				},
			},
		},
	}
}
