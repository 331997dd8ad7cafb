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

import (
	"errors"
	"sync"
	"sync/atomic"
)

var (
	// ErrNotOwner is returned when Release is called by an execution
	// context that does not own the lock.
	ErrNotOwner = errors.New("swapx(coopsync): reentrant lock released by non-owner")
)

// ReentrantLock is the shared contract of the native and portable reentrant
// lock variants. Ownership and recursion depth are observable so the
// upgrader can transfer them exactly.
type ReentrantLock interface {
	// Acquire takes the lock, or increments the recursion depth when the
	// caller already owns it.
	Acquire()
	// Release decrements the recursion depth, dropping the lock at zero.
	Release() error
	// IsOwned reports whether the calling execution context owns the lock.
	IsOwned() bool
	// Owner returns the owning context's identity and the recursion depth.
	// A zero identity means unowned.
	Owner() (id uint64, depth int)
}

// RLockFactory constructs a reentrant lock.
type RLockFactory func() ReentrantLock

// RLock is the native reentrant lock: machine-assisted identity, native
// low-level lock handle. Instances allocated before substitution are what
// the live-object upgrader hunts for.
type RLock struct {
	block sync.Mutex
	owner atomic.Uint64
	depth int
}

// NewRLock returns an unowned native reentrant lock.
func NewRLock() *RLock {
	return &RLock{}
}

// Acquire takes the lock, re-entering if the caller already owns it.
func (l *RLock) Acquire() {
	me := NativeIdent()
	if l.owner.Load() == me {
		l.depth++
		return
	}
	l.block.Lock()
	l.owner.Store(me)
	l.depth = 1
}

// Release undoes one Acquire by the owning context.
func (l *RLock) Release() error {
	if l.owner.Load() != NativeIdent() {
		return ErrNotOwner
	}
	l.depth--
	if l.depth == 0 {
		l.owner.Store(0)
		l.block.Unlock()
	}
	return nil
}

// IsOwned reports whether the caller owns the lock.
func (l *RLock) IsOwned() bool {
	return l.owner.Load() == NativeIdent() && l.depth > 0
}

// Owner returns the owning identity and recursion depth.
func (l *RLock) Owner() (uint64, int) {
	return l.owner.Load(), l.depth
}

// PortableRLock is the portable reentrant lock variant: the identity
// provider and the internal low-level lock handle are both swappable, which
// is what makes it compatible with cooperative scheduling and what the
// upgrader exploits when transferring state from a native instance.
type PortableRLock struct {
	block sync.Locker
	ident Ident
	owner atomic.Uint64
	depth int
}

// NewPortableRLock returns an unowned portable reentrant lock with a native
// low-level handle and the portable identity provider.
func NewPortableRLock() *PortableRLock {
	return &PortableRLock{block: AllocateLock(), ident: PortableIdent}
}

// Acquire takes the lock, re-entering if the caller already owns it.
func (l *PortableRLock) Acquire() {
	me := l.ident()
	if l.owner.Load() == me {
		l.depth++
		return
	}
	l.block.Lock()
	l.owner.Store(me)
	l.depth = 1
}

// Release undoes one Acquire by the owning context.
func (l *PortableRLock) Release() error {
	if l.owner.Load() != l.ident() {
		return ErrNotOwner
	}
	l.depth--
	if l.depth == 0 {
		l.owner.Store(0)
		l.block.Unlock()
	}
	return nil
}

// IsOwned reports whether the caller owns the lock.
func (l *PortableRLock) IsOwned() bool {
	return l.owner.Load() == l.ident() && l.depth > 0
}

// Owner returns the owning identity and recursion depth.
func (l *PortableRLock) Owner() (uint64, int) {
	return l.owner.Load(), l.depth
}

// Block returns the internal low-level lock handle.
func (l *PortableRLock) Block() sync.Locker {
	return l.block
}

// SetBlock replaces the internal low-level lock handle. Must only be called
// while the lock is not contended, i.e. during construction or an upgrade
// pass that runs before competing contexts exist.
func (l *PortableRLock) SetBlock(block sync.Locker) {
	if block != nil {
		l.block = block
	}
}

// SetIdent replaces the identity provider. When the caller currently owns
// the lock, the ownership record is rewritten so later Release calls by the
// same context still match. Same call constraints as SetBlock.
func (l *PortableRLock) SetIdent(ident Ident) {
	if ident == nil {
		return
	}
	if l.owner.Load() == l.ident() && l.depth > 0 {
		l.owner.Store(ident())
	}
	l.ident = ident
}

// SetOwner pins the ownership record to the given identity without touching
// the recursion depth. Used by the upgrader after replaying acquisitions.
func (l *PortableRLock) SetOwner(id uint64) {
	l.owner.Store(id)
}
