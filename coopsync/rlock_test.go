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

package coopsync_test

import (
	"errors"
	"runtime"
	"sync"
	"testing"

	"dirpx.dev/swapx/coopsync"
)

func testReentrancy(t *testing.T, l coopsync.ReentrantLock) {
	t.Helper()

	l.Acquire()
	l.Acquire()
	l.Acquire()

	if !l.IsOwned() {
		t.Fatalf("IsOwned() = false while holding the lock")
	}
	if _, depth := l.Owner(); depth != 3 {
		t.Fatalf("Owner() depth = %d, want 3", depth)
	}

	for i := 0; i < 3; i++ {
		if err := l.Release(); err != nil {
			t.Fatalf("Release %d: unexpected error: %v", i, err)
		}
	}
	if l.IsOwned() {
		t.Fatalf("IsOwned() = true after full release")
	}
	if id, depth := l.Owner(); id != 0 || depth != 0 {
		t.Fatalf("Owner() = (%d,%d) after full release, want (0,0)", id, depth)
	}
}

func TestRLockReentrancy(t *testing.T) {
	testReentrancy(t, coopsync.NewRLock())
}

func TestPortableRLockReentrancy(t *testing.T) {
	testReentrancy(t, coopsync.NewPortableRLock())
}

func testNonOwnerRelease(t *testing.T, l coopsync.ReentrantLock) {
	t.Helper()

	l.Acquire()
	defer func() {
		if err := l.Release(); err != nil {
			t.Fatalf("owner Release: unexpected error: %v", err)
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- l.Release()
	}()
	if err := <-errCh; !errors.Is(err, coopsync.ErrNotOwner) {
		t.Fatalf("foreign Release: got %v, want ErrNotOwner", err)
	}
}

func TestRLockNonOwnerRelease(t *testing.T) {
	testNonOwnerRelease(t, coopsync.NewRLock())
}

func TestPortableRLockNonOwnerRelease(t *testing.T) {
	testNonOwnerRelease(t, coopsync.NewPortableRLock())
}

func testExclusion(t *testing.T, l coopsync.ReentrantLock) {
	t.Helper()

	l.Acquire()
	acquired := make(chan struct{})
	go func() {
		l.Acquire()
		defer l.Release()
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatalf("second goroutine acquired a held lock")
	default:
	}

	if err := l.Release(); err != nil {
		t.Fatalf("Release: unexpected error: %v", err)
	}
	<-acquired
}

func TestRLockExclusion(t *testing.T) {
	testExclusion(t, coopsync.NewRLock())
}

func TestPortableRLockExclusion(t *testing.T) {
	testExclusion(t, coopsync.NewPortableRLock())
}

func TestPortableRLockSetBlock(t *testing.T) {
	l := coopsync.NewPortableRLock()

	coop := coopsync.AllocateCoopLock()
	l.SetBlock(coop)
	if l.Block() != coop {
		t.Fatalf("Block() did not return the installed handle")
	}

	// The lock must keep working through the replacement handle.
	l.Acquire()
	l.Acquire()
	if err := l.Release(); err != nil {
		t.Fatalf("Release: unexpected error: %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("Release: unexpected error: %v", err)
	}

	// Nil is ignored.
	l.SetBlock(nil)
	if l.Block() != coop {
		t.Fatalf("SetBlock(nil) replaced the handle")
	}
}

func TestPortableRLockSetIdentWhileHeld(t *testing.T) {
	l := coopsync.NewPortableRLock()

	l.Acquire()
	l.Acquire()

	// Swapping the identity provider mid-hold must rewrite the ownership
	// record so the same context can still release.
	l.SetIdent(coopsync.NativeIdent)

	if !l.IsOwned() {
		t.Fatalf("IsOwned() = false after identity swap while held")
	}
	if _, depth := l.Owner(); depth != 2 {
		t.Fatalf("Owner() depth = %d after identity swap, want 2", depth)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("Release after identity swap: unexpected error: %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("final Release: unexpected error: %v", err)
	}
}

func TestPortableRLockSetOwner(t *testing.T) {
	l := coopsync.NewPortableRLock()

	l.Acquire()
	l.SetOwner(42)

	if id, depth := l.Owner(); id != 42 || depth != 1 {
		t.Fatalf("Owner() = (%d,%d) after SetOwner, want (42,1)", id, depth)
	}
}

func TestRLockContention(t *testing.T) {
	l := coopsync.NewRLock()

	var counter int
	wg := sync.WaitGroup{}
	workers := runtime.GOMAXPROCS(0) * 2

	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				l.Acquire()
				l.Acquire()
				counter++
				l.Release()
				l.Release()
			}
		}()
	}
	wg.Wait()

	if want := workers * 500; counter != want {
		t.Fatalf("counter = %d, want %d", counter, want)
	}
}
