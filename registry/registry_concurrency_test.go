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

package registry_test

import (
	"fmt"
	"runtime"
	"sync"
	"testing"

	"dirpx.dev/swapx/apis"
	"dirpx.dev/swapx/component"
	"dirpx.dev/swapx/registry"
)

// TestConcurrentResolveAndLookup verifies that Resolve/Lookup/Names are
// race-free and consistent under concurrent use, and that each loader runs
// exactly once no matter how many goroutines race to resolve its name.
func TestConcurrentResolveAndLookup(t *testing.T) {
	reg := registry.New()

	const nNames = 10
	names := make([]string, nNames)
	counts := make([]int, nNames)
	for i := range names {
		names[i] = fmt.Sprintf("comp%d", i)
		i := i
		if err := reg.RegisterLoader(names[i], func(apis.Registry) (apis.Component, error) {
			counts[i]++
			return component.New(names[i]), nil
		}); err != nil {
			t.Fatalf("RegisterLoader(%s): %v", names[i], err)
		}
	}

	wg := sync.WaitGroup{}
	workers := runtime.GOMAXPROCS(0) * 4

	// Resolvers race on first-load.
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(id int) {
			defer wg.Done()
			for i := 0; i < 2000; i++ {
				name := names[(i+id)%nNames]
				if _, err := reg.Resolve(name); err != nil {
					t.Errorf("Resolve(%s): %v", name, err)
					return
				}
			}
		}(w)
	}

	// Readers
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < 2000; i++ {
				_, _ = reg.Lookup(names[i%nNames])
				_ = reg.Names()
			}
		}()
	}

	// Re-binders exercise bind/drop of a name outside the loaded set.
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				reg.Bind("scratch", component.New("scratch"))
				reg.Drop("scratch")
			}
		}()
	}

	wg.Wait()

	// Loaders run under the exclusion lock, so each must have fired once.
	for i, n := range counts {
		if n != 1 {
			t.Fatalf("loader for %s ran %d times, want 1", names[i], n)
		}
	}
}

// TestConcurrentCaptureRestore verifies snapshot transactions stay isolated
// when many goroutines capture, mutate and restore the same name.
func TestConcurrentCaptureRestore(t *testing.T) {
	reg := registry.New()
	orig := component.New("shared")
	reg.Bind("shared", orig)

	wg := sync.WaitGroup{}
	workers := runtime.GOMAXPROCS(0) * 2

	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < 300; i++ {
				snap := reg.Capture("shared")
				reg.Bind("shared", component.New("transient"))
				snap.Restore()
			}
		}()
	}
	wg.Wait()

	if got, _ := reg.Lookup("shared"); got != orig {
		t.Fatalf("shared binding corrupted by concurrent capture/restore")
	}
}
