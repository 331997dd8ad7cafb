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
	"errors"
	"fmt"

	"dirpx.dev/swapx/apis"
)

var (
	// ErrUnknownFamily is returned when a selection names an unrecognized
	// family.
	ErrUnknownFamily = errors.New("swapx(patch): unknown family")
	// ErrAliasConflict is returned when two aliases of the same family are
	// both supplied.
	ErrAliasConflict = errors.New("swapx(patch): conflicting family aliases supplied")
)

// Recognized lists every family the coordinator accepts, in the order
// families are installed. Order is insignificant for independent families
// but deterministic installation keeps failures reproducible.
var Recognized = []string{
	apis.FamilyOS,
	apis.FamilySelect,
	apis.FamilySocket,
	apis.FamilyThread,
	apis.FamilyTime,
	apis.FamilySubprocess,
	apis.FamilyPsycopg,
	apis.FamilyMySQL,
	apis.FamilyBuiltins,
}

// aliasBuiltin is the accepted legacy spelling of the builtins family.
const aliasBuiltin = "builtin"

// optInOnly families never default to on; they apply only when explicitly
// selected.
var optInOnly = map[string]bool{
	apis.FamilyMySQL:    true,
	apis.FamilyBuiltins: true,
}

// integrations are the families that patch through a registered hook
// instead of a cooperative attribute set.
var integrations = map[string]bool{
	apis.FamilyPsycopg: true,
	apis.FamilyMySQL:   true,
}

// resolveSelection turns a Selection into the effective on/off map for
// every recognized family.
func resolveSelection(sel apis.Selection) (map[string]bool, error) {
	known := make(map[string]bool, len(Recognized))
	for _, fam := range Recognized {
		known[fam] = true
	}

	explicit := make(map[string]bool, len(sel.Families))
	for name, on := range sel.Families {
		if name == aliasBuiltin {
			if _, both := sel.Families[apis.FamilyBuiltins]; both {
				return nil, fmt.Errorf("%w: %q and %q", ErrAliasConflict, aliasBuiltin, apis.FamilyBuiltins)
			}
			name = apis.FamilyBuiltins
		}
		if !known[name] {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFamily, name)
		}
		explicit[name] = on
	}

	// Allow-list semantics: an explicit true flips the default for unset
	// families to false. An explicit All overrides that computed default.
	defaultOn := true
	for _, on := range explicit {
		if on {
			defaultOn = false
			break
		}
	}
	if sel.All != nil {
		defaultOn = *sel.All
	}

	out := make(map[string]bool, len(Recognized))
	for _, fam := range Recognized {
		if on, ok := explicit[fam]; ok {
			out[fam] = on
			continue
		}
		if optInOnly[fam] {
			out[fam] = false
			continue
		}
		out[fam] = defaultOn
	}
	return out, nil
}
