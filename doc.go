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

// Package swapx provides a process-wide runtime substitution engine.
//
// swapx maintains a registry of named components. A component is a mutable
// bag of named attributes, typically function values and factories, that
// the rest of a process resolves capabilities through: "time" holds a
// sleep function, "threading" holds lock factories, "socket" holds dial
// functions, and so on. Substitution replaces selected attributes of these
// shared components in place, so every consumer that resolved the
// component, before or after the swap, observes the cooperative variants.
//
// # Design
//
// The engine is layered, and each layer is usable on its own:
//
//   - Registry: the name-to-component table plus a loader table that
//     materializes components on first resolution. All structural
//     mutation happens under the registry's reentrant exclusion lock,
//     which is deliberately pinned to native thread identity so it keeps
//     working while the very primitives around it are being swapped.
//
//   - Snapshot: a consume-once capture of selected bindings. Every
//     multi-step mutation in the engine runs between a Capture and a
//     deferred Restore, so a failing resolution can never leave the
//     registry with half its bindings displaced.
//
//   - Injector: resolves a component with chosen dependencies substituted,
//     producing an isolated patched wrapper cached under a reserved name.
//     The globally bound variant is untouched.
//
//   - Native cache: the inverse of the injector. It resolves a component
//     with its dependency chain guaranteed unpatched and memoizes the
//     result, so callers can reach the real primitives after global
//     substitution.
//
//   - Coordinator: the global entry point. It resolves a family
//     selection, installs cooperative attribute sets in place, runs the
//     always-on corrections, and upgrades reentrant locks that were
//     allocated before substitution, transferring ownership and recursion
//     state to portable equivalents.
//
// The package root holds one default World, an immutable composition of
// all five layers, behind an atomic pointer. Readers load it without
// locking; Configure and SetWorld swap in a replacement wholesale.
//
// # Usage
//
// Most processes substitute once, early in main, and never think about it
// again:
//
//	if err := swapx.Apply(config.NewSelection()); err != nil {
//		log.Fatal().Err(err).Msg("substitution failed")
//	}
//
// The default selection enables the os, select, socket, thread and time
// families. Opt-in families must be named explicitly:
//
//	sel := config.NewSelection(config.WithFamily("builtins", true))
//
// Naming any family on an explicit true switches the selection to
// allow-list semantics: only the named families are substituted.
//
// Code that needs the real primitives after substitution asks the native
// cache rather than the registry:
//
//	tmod, err := swapx.NativeOf("time")
//
// And code that wants cooperative behavior in a process that did NOT
// substitute globally imports a patched wrapper:
//
//	smod, err := swapx.ImportPatched("socket")
//
// Both directions leave the globally bound components exactly as they
// were.
package swapx
