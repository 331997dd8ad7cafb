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

// Package coopsync holds the documented swap set of synchronization
// primitives the substitution engine acts on: reentrant locks with an
// observable owner identity and recursion depth, low-level lock handles in
// native and cooperative variants, execution-context identity providers,
// and the queue types whose constructors the engine pins or replaces.
//
// The full cooperative reimplementations of sockets, timers and threads are
// external collaborators; this package only defines the primitive surface
// the coordinator's corrections and the live-object upgrader need.
package coopsync

import (
	"bytes"
	"runtime"
	"strconv"

	"github.com/petermattis/goid"
)

// Ident returns the identity of the current execution context.
type Ident func() uint64

// NativeIdent is the machine-assisted identity provider. It reads the
// goroutine id directly from the runtime and is the variant the resolution
// machinery itself must use.
func NativeIdent() uint64 {
	return uint64(goid.Get())
}

// PortableIdent derives the same goroutine id without machine assistance by
// parsing the runtime's stack header. It is slower than NativeIdent but has
// no dependency on runtime internals, which makes it the variant compatible
// with cooperative scheduling.
func PortableIdent() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	// The header has the fixed form "goroutine <id> [".
	s := buf[:n]
	s = bytes.TrimPrefix(s, []byte("goroutine "))
	if i := bytes.IndexByte(s, ' '); i >= 0 {
		s = s[:i]
	}
	id, err := strconv.ParseUint(string(s), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
