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

// Selection enumerates the family toggles for a patch application.
// It is passed by value and treated as read-only by the coordinator.
//
// Resolution policy: families absent from Families default to on, unless at
// least one family is explicitly set to true, in which case unset families
// default to off (allow-list semantics). The opt-in-only families default to
// off in both cases. An explicit All overrides the computed default for
// unset families.
type Selection struct {
	// Families maps a family name to an explicit toggle.
	Families map[string]bool
	// All, when non-nil, overrides the default applied to unset families.
	All *bool
}
