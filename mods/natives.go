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

// Package mods defines the built-in component set: native loaders for the
// documented component names, and the default cooperative sets for the
// families the engine itself depends on.
package mods

import (
	"crypto/tls"
	"net"
	"os"
	"os/exec"
	"time"

	"dirpx.dev/swapx/apis"
	"dirpx.dev/swapx/component"
	"dirpx.dev/swapx/coopsync"
)

// RegisterNatives installs the default native loader for every documented
// component name into reg. Loaders resolve their dependencies through the
// registry, which is what gives the threading -> _thread and
// queue -> threading edges their observable order.
func RegisterNatives(reg apis.Registry) error {
	loaders := map[string]apis.LoaderFunc{
		"os":         loadOS,
		"time":       loadTime,
		"select":     loadSelect,
		"selectors":  loadSelectors,
		"socket":     loadSocket,
		"ssl":        loadSSL,
		"subprocess": loadSubprocess,
		"builtins":   loadBuiltins,
		"_thread":    loadThreadIdent,
		"threading":  loadThreading,
		"queue":      loadQueue,
	}
	for name, l := range loaders {
		if err := reg.RegisterLoader(name, l); err != nil {
			return err
		}
	}
	return nil
}

func loadThreadIdent(apis.Registry) (apis.Component, error) {
	return component.NewWithAttrs("_thread", map[string]any{
		"get_ident":     coopsync.Ident(coopsync.NativeIdent),
		"allocate_lock": coopsync.LockFactory(coopsync.AllocateLock),
		"start_new":     func(fn func()) { go fn() },
	}), nil
}

func loadThreading(reg apis.Registry) (apis.Component, error) {
	th, err := reg.Resolve("_thread")
	if err != nil {
		return nil, err
	}
	ident, _ := th.Get("get_ident")
	alloc, _ := th.Get("allocate_lock")
	return component.NewWithAttrs("threading", map[string]any{
		"get_ident":   ident,
		"Lock":        alloc,
		"RLock":       coopsync.RLockFactory(func() coopsync.ReentrantLock { return coopsync.NewRLock() }),
		"_after_fork": func() {},
	}), nil
}

func loadQueue(reg apis.Registry) (apis.Component, error) {
	if _, err := reg.Resolve("threading"); err != nil {
		return nil, err
	}
	return component.NewWithAttrs("queue", map[string]any{
		// The constructor re-resolves threading on every instantiation.
		// The native cache wraps this to pin the resolution; see
		// native.Cache's queue fix-up.
		"New": coopsync.QueueFactory(func() (*coopsync.Queue, error) {
			thr, err := reg.Resolve("threading")
			if err != nil {
				return nil, err
			}
			v, _ := thr.Get("Lock")
			alloc, ok := v.(coopsync.LockFactory)
			if !ok {
				alloc = coopsync.AllocateLock
			}
			return coopsync.NewQueue(alloc()), nil
		}),
		"SimpleQueue": coopsync.SimpleQueueFactory(coopsync.NewSimpleQueue),
	}), nil
}

func loadTime(apis.Registry) (apis.Component, error) {
	return component.NewWithAttrs("time", map[string]any{
		"sleep": func(d time.Duration) { time.Sleep(d) },
		"now":   time.Now,
	}), nil
}

func loadOS(apis.Registry) (apis.Component, error) {
	return component.NewWithAttrs("os", map[string]any{
		"getpid":  os.Getpid,
		"pipe":    os.Pipe,
		"environ": os.Environ,
	}), nil
}

func loadSelect(apis.Registry) (apis.Component, error) {
	return component.NewWithAttrs("select", map[string]any{
		"select": func(conns []net.Conn, timeout time.Duration) []net.Conn { return nil },
		"poll":   func() any { return nil },
		"epoll":  func() any { return nil },
		"kqueue": func() any { return nil },
	}), nil
}

func loadSelectors(apis.Registry) (apis.Component, error) {
	return component.NewWithAttrs("selectors", map[string]any{
		"default": func() any { return nil },
	}), nil
}

func loadSocket(apis.Registry) (apis.Component, error) {
	return component.NewWithAttrs("socket", map[string]any{
		"dial":   net.Dial,
		"listen": net.Listen,
		"lookup": net.LookupHost,
	}), nil
}

func loadSSL(apis.Registry) (apis.Component, error) {
	return component.NewWithAttrs("ssl", map[string]any{
		"client": tls.Client,
		"dial":   tls.Dial,
	}), nil
}

func loadSubprocess(apis.Registry) (apis.Component, error) {
	return component.NewWithAttrs("subprocess", map[string]any{
		"command": exec.Command,
	}), nil
}

func loadBuiltins(apis.Registry) (apis.Component, error) {
	return component.NewWithAttrs("builtins", map[string]any{
		"open": os.Open,
	}), nil
}
