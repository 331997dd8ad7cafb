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

package apis

// LoaderFunc resolves a component by constructing it. Loaders may resolve
// other names through the registry; the exclusion lock is re-entrant, so
// nested resolution from within a loader is legal.
type LoaderFunc func(reg Registry) (Component, error)

// Registry is the process-wide table of named component bindings, the
// equivalent of a module table. At most one binding per name is live at any
// instant. All mutation is serialized behind a single re-entrant exclusion
// lock keyed on native execution-context identity; callers must not mutate
// bindings outside that discipline.
type Registry interface {
	// Lookup returns the current binding for name, without loading.
	Lookup(name string) (Component, bool)
	// Bind installs c as the current binding for name.
	Bind(name string, c Component)
	// Drop removes the current binding for name, if any.
	Drop(name string)
	// DropSubtree removes every binding whose name is textually nested
	// under prefix (prefix + "."). The binding for prefix itself is kept.
	DropSubtree(prefix string)
	// Names returns the currently bound names in sorted order.
	Names() []string

	// RegisterLoader associates a loader with name. A later registration
	// for the same name replaces the earlier one.
	RegisterLoader(name string, l LoaderFunc) error
	// Resolve returns the current binding for name, loading and binding it
	// first if absent. Resolution runs under the exclusion lock.
	Resolve(name string) (Component, error)

	// Capture acquires the exclusion lock and records the bindings
	// currently visible for the given names. The lock is only released by
	// the returned Snapshot's Restore.
	Capture(names ...string) Snapshot

	// Lock and Unlock expose the exclusion lock directly for callers that
	// need to compound several operations. The lock is re-entrant.
	Lock()
	Unlock()

	// SetIdent pins the exclusion lock's execution-context identity
	// provider. The resolution machinery must never use a cooperative
	// identity, so coordinators force the native provider here after
	// substitution. Must be called while holding the lock, or before the
	// registry is shared.
	SetIdent(ident func() uint64)
}

// Snapshot is a consume-once capture of registry bindings. It is owned by
// the transaction that created it; Restore is the only way to release the
// exclusion lock acquired at capture time, so every exit path of the guarded
// operation must run Restore.
type Snapshot interface {
	// Save records the current bindings (or absence) of additional names.
	// Names already recorded keep their first-seen value.
	Save(names ...string)
	// Restore writes every recorded name back into the registry, re-binding
	// the prior value or dropping names that were absent, then releases the
	// exclusion lock. A Snapshot is invalidated after its first Restore;
	// further calls are no-ops.
	Restore()
}
