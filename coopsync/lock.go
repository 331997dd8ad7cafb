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

package coopsync

import "sync"

// LockFactory allocates a low-level lock handle.
type LockFactory func() sync.Locker

// AllocateLock returns a native low-level lock. Blocking on it parks the
// OS thread through the runtime's native path.
func AllocateLock() sync.Locker {
	return new(sync.Mutex)
}

// AllocateCoopLock returns a cooperative-aware low-level lock. Blocking on
// it is an ordinary channel receive, a well-defined scheduling point for
// cooperative execution.
func AllocateCoopLock() sync.Locker {
	l := &coopLock{ch: make(chan struct{}, 1)}
	return l
}

// coopLock is a channel-based mutual exclusion lock.
type coopLock struct {
	ch chan struct{}
}

func (l *coopLock) Lock()   { l.ch <- struct{}{} }
func (l *coopLock) Unlock() { <-l.ch }

// IsCoopLock reports whether lk was produced by AllocateCoopLock.
func IsCoopLock(lk sync.Locker) bool {
	_, ok := lk.(*coopLock)
	return ok
}
