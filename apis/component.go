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

// Component is a live, named bag of attributes: the process-wide stand-in
// for a loaded module or service table entry. Components are mutated in
// place rather than replaced, because other code may hold direct references
// to the same instance; the substitution machinery relies on that sharing.
//
// Implementations must be safe for concurrent use.
type Component interface {
	// Name returns the component's registered name.
	Name() string
	// Get returns the attribute value for attr, if present.
	Get(attr string) (any, bool)
	// Set installs or overwrites the attribute attr in place.
	Set(attr string, v any)
	// Delete removes the attribute attr. Deleting an absent attribute is a no-op.
	Delete(attr string)
	// Range calls fn for each attribute until fn returns false.
	// The iteration order is unspecified.
	Range(fn func(attr string, v any) bool)
	// Len returns the number of attributes.
	Len() int
}
