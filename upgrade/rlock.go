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

package upgrade

import (
	"errors"
	"fmt"
	"sync"
)

// ErrIntegrity indicates that a lock involved in an upgrade does not have
// the shape the conversion relies on. Continuing would silently corrupt
// lock semantics, so this error is fatal to the pass.
var ErrIntegrity = errors.New("swapx(upgrade): reentrant lock has unexpected shape")

// PortableLock is the shape the converter requires of the portable
// reentrant lock it builds replacements from.
type PortableLock interface {
	Acquire()
	Release() error
	IsOwned() bool
	SetBlock(block sync.Locker)
	SetOwner(id uint64)
}

// heldLock is what the converter needs from the original: observable
// ownership and a release path.
type heldLock interface {
	IsOwned() bool
	Release() error
}

// RLockConverter returns a ConvertFunc for reentrant locks. The produced
// converter builds a fresh portable lock, swaps its internal low-level
// handle for one from newBlock, and transfers the original's ownership and
// recursion depth exactly: each level held by the current execution context
// is released on the original while being acquired on the replacement, and
// the replacement's ownership record is then pinned to tid.
//
// Pinning to tid is valid only because an upgrade pass runs before any
// competing execution context exists.
func RLockConverter(tid uint64, newPortable func() any, newBlock func() sync.Locker) ConvertFunc {
	return func(old any) (any, error) {
		o, ok := old.(heldLock)
		if !ok {
			return nil, fmt.Errorf("%w: original %T", ErrIntegrity, old)
		}
		p, ok := newPortable().(PortableLock)
		if !ok {
			return nil, fmt.Errorf("%w: factory produced %T", ErrIntegrity, newPortable())
		}
		p.SetBlock(newBlock())

		acquired := false
		for o.IsOwned() {
			if err := o.Release(); err != nil {
				return nil, fmt.Errorf("%w: releasing original: %v", ErrIntegrity, err)
			}
			p.Acquire()
			acquired = true
		}
		if acquired {
			p.SetOwner(tid)
		}
		return p, nil
	}
}
