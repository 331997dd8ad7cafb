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

// Family names recognized by the patch coordinator. Most families cover the
// single component of the same name; Thread covers the threading primitives
// ("_thread", "threading", "queue") and Socket also covers "ssl" when a
// cooperative set provides it.
const (
	FamilyOS         = "os"
	FamilySelect     = "select"
	FamilySocket     = "socket"
	FamilyThread     = "thread"
	FamilyTime       = "time"
	FamilySubprocess = "subprocess"
	FamilyPsycopg    = "psycopg"
	FamilyMySQL      = "mysqldb"
	FamilyBuiltins   = "builtins"
)

// Coop describes one cooperative component: the name of the native component
// it targets, the attribute set to install onto the shared native object in
// place, and the attribute set to remove from it.
type Coop struct {
	// Target is the ComponentName of the native component to mutate.
	Target string
	// Patched enumerates the attributes to copy onto the target.
	Patched map[string]any
	// Deleted enumerates the attributes to remove from the target.
	Deleted []string
}

// CoopSource supplies the cooperative component sets per family. The
// concrete cooperative implementations are external collaborators; a source
// is the plug-in surface through which they register.
type CoopSource interface {
	// Family returns the cooperative set for a family, if one is registered.
	Family(name string) ([]Coop, bool)
	// Families returns the family names with a registered set, sorted.
	Families() []string
	// FamilyOf maps a ComponentName to the family whose set targets it.
	FamilyOf(component string) (string, bool)
}

// Integration is an opt-in plug-in hook for component families that patch
// through driver-specific means rather than attribute sets (for example a
// database driver). It runs under the exclusion lock.
type Integration func(reg Registry) error
