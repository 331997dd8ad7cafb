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
	"errors"
	"reflect"
	"testing"

	"dirpx.dev/swapx/apis"
	"dirpx.dev/swapx/component"
	"dirpx.dev/swapx/registry"
)

func TestBindAndLookup(t *testing.T) {
	reg := registry.New()

	if _, ok := reg.Lookup("time"); ok {
		t.Fatalf("Lookup(time) on empty registry: got ok=true, want false")
	}

	c := component.New("time")
	reg.Bind("time", c)

	got, ok := reg.Lookup("time")
	if !ok {
		t.Fatalf("Lookup(time): got ok=false, want true")
	}
	if got != c {
		t.Fatalf("Lookup(time): got a different component than was bound")
	}

	reg.Drop("time")
	if _, ok := reg.Lookup("time"); ok {
		t.Fatalf("Lookup(time) after Drop: got ok=true, want false")
	}
}

func TestDropSubtree(t *testing.T) {
	reg := registry.New()
	for _, name := range []string{"os", "os.path", "os.signal", "osmium"} {
		reg.Bind(name, component.New(name))
	}

	reg.DropSubtree("os")

	if _, ok := reg.Lookup("os.path"); ok {
		t.Fatalf("Lookup(os.path) after DropSubtree: got ok=true, want false")
	}
	if _, ok := reg.Lookup("os.signal"); ok {
		t.Fatalf("Lookup(os.signal) after DropSubtree: got ok=true, want false")
	}
	// The root itself and unrelated prefixes survive.
	if _, ok := reg.Lookup("os"); !ok {
		t.Fatalf("Lookup(os) after DropSubtree: got ok=false, want true")
	}
	if _, ok := reg.Lookup("osmium"); !ok {
		t.Fatalf("Lookup(osmium) after DropSubtree: got ok=false, want true")
	}
}

func TestNamesSorted(t *testing.T) {
	reg := registry.New()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		reg.Bind(name, component.New(name))
	}

	want := []string{"alpha", "mid", "zeta"}
	if got := reg.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
}

func TestResolveViaLoader(t *testing.T) {
	reg := registry.New()

	calls := 0
	err := reg.RegisterLoader("time", func(apis.Registry) (apis.Component, error) {
		calls++
		return component.NewWithAttrs("time", map[string]any{"sleep": func() {}}), nil
	})
	if err != nil {
		t.Fatalf("RegisterLoader: unexpected error: %v", err)
	}

	first, err := reg.Resolve("time")
	if err != nil {
		t.Fatalf("Resolve(time): unexpected error: %v", err)
	}
	second, err := reg.Resolve("time")
	if err != nil {
		t.Fatalf("Resolve(time) again: unexpected error: %v", err)
	}
	if first != second {
		t.Fatalf("Resolve(time) twice returned distinct components")
	}
	if calls != 1 {
		t.Fatalf("loader calls = %d, want 1 (second Resolve must hit the binding)", calls)
	}
}

func TestResolveErrors(t *testing.T) {
	reg := registry.New()

	if _, err := reg.Resolve("missing"); !errors.Is(err, registry.ErrUnknownComponent) {
		t.Fatalf("Resolve(missing): got %v, want ErrUnknownComponent", err)
	}

	boom := errors.New("boom")
	if err := reg.RegisterLoader("bad", func(apis.Registry) (apis.Component, error) {
		return nil, boom
	}); err != nil {
		t.Fatalf("RegisterLoader(bad): unexpected error: %v", err)
	}
	if _, err := reg.Resolve("bad"); !errors.Is(err, boom) {
		t.Fatalf("Resolve(bad): got %v, want wrapped boom", err)
	}

	if err := reg.RegisterLoader("nil", func(apis.Registry) (apis.Component, error) {
		return nil, nil
	}); err != nil {
		t.Fatalf("RegisterLoader(nil): unexpected error: %v", err)
	}
	if _, err := reg.Resolve("nil"); !errors.Is(err, registry.ErrNilComponent) {
		t.Fatalf("Resolve(nil): got %v, want ErrNilComponent", err)
	}
}

func TestRegisterLoaderValidation(t *testing.T) {
	reg := registry.New()

	if err := reg.RegisterLoader("", func(apis.Registry) (apis.Component, error) {
		return component.New("x"), nil
	}); !errors.Is(err, registry.ErrEmptyName) {
		t.Fatalf("RegisterLoader(empty): got %v, want ErrEmptyName", err)
	}
	if err := reg.RegisterLoader("x", nil); !errors.Is(err, registry.ErrNilLoader) {
		t.Fatalf("RegisterLoader(nil func): got %v, want ErrNilLoader", err)
	}
}

func TestLoaderLastWins(t *testing.T) {
	reg := registry.New()

	if err := reg.RegisterLoader("time", func(apis.Registry) (apis.Component, error) {
		return component.NewWithAttrs("time", map[string]any{"v": 1}), nil
	}); err != nil {
		t.Fatalf("RegisterLoader first: unexpected error: %v", err)
	}
	if err := reg.RegisterLoader("time", func(apis.Registry) (apis.Component, error) {
		return component.NewWithAttrs("time", map[string]any{"v": 2}), nil
	}); err != nil {
		t.Fatalf("RegisterLoader second: unexpected error: %v", err)
	}

	c, err := reg.Resolve("time")
	if err != nil {
		t.Fatalf("Resolve(time): unexpected error: %v", err)
	}
	if v, _ := c.Get("v"); v != 2 {
		t.Fatalf(`Get("v") = %v, want 2 (last loader wins)`, v)
	}
}

func TestLockReentrancy(t *testing.T) {
	reg := registry.New()

	reg.Lock()
	reg.Lock() // same goroutine, must not deadlock
	reg.Bind("x", component.New("x"))
	reg.Unlock()
	reg.Unlock()

	if _, ok := reg.Lookup("x"); !ok {
		t.Fatalf("Lookup(x) after nested lock: got ok=false, want true")
	}
}

func TestUnlockWithoutLockPanics(t *testing.T) {
	reg := registry.New()

	defer func() {
		if recover() == nil {
			t.Fatalf("Unlock without Lock did not panic")
		}
	}()
	reg.Unlock()
}
