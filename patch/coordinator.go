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

// Package patch implements the idempotent coordinator that substitutes
// component families in place and upgrades already-allocated locks.
package patch

import (
	"fmt"
	"reflect"

	"github.com/rs/zerolog"

	"dirpx.dev/swapx/apis"
	"dirpx.dev/swapx/coopsync"
	"dirpx.dev/swapx/inject"
	"dirpx.dev/swapx/native"
	"dirpx.dev/swapx/upgrade"
)

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the coordinator's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Coordinator) { c.log = log }
}

// WithForkHook supplies the process's fork-notification hook. Presence is
// detected at construction: when absent, the after-fork suppression step of
// the threading family is skipped.
func WithForkHook(hook func(onFork func())) Option {
	return func(c *Coordinator) { c.forkHook = hook }
}

// WithIntegration registers an opt-in integration hook for a family that
// patches through driver-specific means.
func WithIntegration(family string, hook apis.Integration) Option {
	return func(c *Coordinator) { c.hooks[family] = hook }
}

// WithAudit toggles the best-effort post-upgrade audit.
func WithAudit(on bool) Option {
	return func(c *Coordinator) { c.audit = on }
}

// New constructs a Coordinator over the given registry, native cache,
// injector and cooperative source.
func New(reg apis.Registry, natives *native.Cache, inj *inject.Injector, coops apis.CoopSource, opts ...Option) *Coordinator {
	c := &Coordinator{
		reg:     reg,
		natives: natives,
		inj:     inj,
		coops:   coops,
		record:  NewRecord(),
		hooks:   make(map[string]apis.Integration),
		audit:   true,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Coordinator is the top-level substitution entry point. Apply is safe to
// call repeatedly with any selection; only families not yet recorded as
// applied incur work, and previously-applied families are never rolled
// back.
type Coordinator struct {
	reg     apis.Registry
	natives *native.Cache
	inj     *inject.Injector
	coops   apis.CoopSource
	record  *Record
	hooks   map[string]apis.Integration
	forkHook func(onFork func())
	audit   bool
	log     zerolog.Logger
}

// Record exposes the application record for diagnostics.
func (c *Coordinator) Record() *Record {
	return c.record
}

// RegisterIntegration installs an integration hook after construction. A
// family skipped earlier for lack of a hook applies on the next Apply call.
func (c *Coordinator) RegisterIntegration(family string, hook apis.Integration) {
	c.reg.Lock()
	defer c.reg.Unlock()
	c.hooks[family] = hook
}

// IsApplied reports whether a family, or the family owning a component
// name, has been applied.
func (c *Coordinator) IsApplied(name string) bool {
	if c.record.Applied(name) {
		return true
	}
	if fam, ok := c.coops.FamilyOf(name); ok {
		return c.record.Applied(fam)
	}
	return false
}

// Apply installs the cooperative attribute sets for every family the
// selection resolves to on, then runs the two always-on corrections, and
// finally upgrades already-allocated reentrant locks when the threading
// family was among the families just installed.
func (c *Coordinator) Apply(sel apis.Selection) error {
	on, err := resolveSelection(sel)
	if err != nil {
		return err
	}

	c.reg.Lock()
	defer c.reg.Unlock()

	type install struct {
		family string
		coop   apis.Coop
	}
	var installs []install
	threadApplied := false

	for _, fam := range Recognized {
		if !on[fam] || c.record.Applied(fam) {
			continue
		}
		if integrations[fam] {
			hook, ok := c.hooks[fam]
			if !ok {
				// Left unmarked so a later registration still applies.
				c.log.Debug().Str("family", fam).Msg("no integration hook registered; family skipped")
				continue
			}
			if err := hook(c.reg); err != nil {
				c.log.Warn().Str("family", fam).Err(err).Msg("integration hook failed; family skipped")
				continue
			}
			c.record.Mark(fam)
			continue
		}

		coops, ok := c.coops.Family(fam)
		if !ok || len(coops) == 0 {
			c.log.Debug().Str("family", fam).Msg("no cooperative set registered; family skipped")
			continue
		}
		for _, co := range coops {
			installs = append(installs, install{family: fam, coop: co})
		}
		c.record.Mark(fam)
		if fam == apis.FamilyThread {
			threadApplied = true
		}
	}

	for _, in := range installs {
		if err := c.installCoop(in.coop); err != nil {
			return err
		}
	}

	if err := c.corrections(); err != nil {
		return err
	}

	if threadApplied {
		c.upgradeLocks()
	}
	return nil
}

// installCoop mutates the live native component in place: the cooperative
// set's patched attributes are copied onto it and its deleted attributes
// removed. The shared object is mutated rather than rebound because other
// code may hold direct references to it.
func (c *Coordinator) installCoop(co apis.Coop) error {
	orig, ok := c.reg.Lookup(co.Target)
	if !ok {
		var err error
		orig, err = c.reg.Resolve(co.Target)
		if err != nil {
			return fmt.Errorf("swapx(patch): native %q: %w", co.Target, err)
		}
	}
	for attr, v := range co.Patched {
		if v != nil {
			orig.Set(attr, v)
		}
	}
	for _, attr := range co.Deleted {
		orig.Delete(attr)
	}
	c.log.Debug().Str("component", co.Target).Int("patched", len(co.Patched)).Int("deleted", len(co.Deleted)).Msg("cooperative set installed")

	if co.Target == "threading" && c.forkHook != nil {
		c.suppressAfterFork(orig)
	}
	return nil
}

// suppressAfterFork neutralizes the threading component's after-fork
// cleanup. Cooperative threads survive a fork, so the native post-fork
// bookkeeping would tear down live state. Both the in-place component and
// the patched wrapper are neutralized because the hook was registered
// against whichever existed first.
func (c *Coordinator) suppressAfterFork(orig apis.Component) {
	noop := func() {}
	orig.Set("_after_fork", noop)
	patched, err := c.inj.Inject("threading", nil)
	if err != nil {
		c.log.Warn().Err(err).Msg("patched threading wrapper unavailable; after-fork suppression partial")
		return
	}
	patched.Set("_after_fork", noop)
}

// corrections are the two fixed adjustments that run after every Apply,
// regardless of family selection. The coordinator holds the exclusion lock
// here, so native forms are fetched through OriginalLocked.
func (c *Coordinator) corrections() error {
	// The resolution machinery must never be cooperative: pin the
	// exclusion lock's identity provider to the native thread-identity
	// component.
	th, err := c.natives.OriginalLocked("_thread")
	if err != nil {
		return fmt.Errorf("swapx(patch): native thread identity: %w", err)
	}
	if v, ok := th.Get("get_ident"); ok {
		if ident, ok := v.(coopsync.Ident); ok {
			c.reg.SetIdent(ident)
		}
	}

	// The machine-assisted reentrant-lock and single-producer queue
	// variants are incompatible with cooperative scheduling: force the
	// portable implementations. The reentrant lock's low-level handle is
	// taken from the live thread-identity component at each construction,
	// so locks handed out after the thread family is installed carry the
	// cooperative handle that family put in place.
	live, err := c.reg.Resolve("_thread")
	if err != nil {
		return fmt.Errorf("swapx(patch): thread-identity component: %w", err)
	}
	thr, err := c.reg.Resolve("threading")
	if err != nil {
		return fmt.Errorf("swapx(patch): threading component: %w", err)
	}
	thr.Set("RLock", coopsync.RLockFactory(func() coopsync.ReentrantLock {
		l := coopsync.NewPortableRLock()
		if v, ok := live.Get("allocate_lock"); ok {
			if alloc, ok := v.(coopsync.LockFactory); ok {
				l.SetBlock(alloc())
			}
		}
		return l
	}))

	q, err := c.reg.Resolve("queue")
	if err != nil {
		return fmt.Errorf("swapx(patch): queue component: %w", err)
	}
	q.Set("SimpleQueue", coopsync.SimpleQueueFactory(coopsync.NewPortableSimpleQueue))
	return nil
}

// upgradeLocks replaces reentrant locks allocated before substitution with
// portable, cooperative-aware equivalents, preserving ownership and
// recursion state. Roots are the currently loaded components. Failures here
// are surfaced as warnings: the patch itself has already succeeded, and a
// residual un-upgraded lock is uncommon but not a correctness failure.
func (c *Coordinator) upgradeLocks() {
	tid := c.cooperativeIdent()()
	conv := upgrade.RLockConverter(tid,
		func() any { return coopsync.NewPortableRLock() },
		coopsync.AllocateCoopLock,
	)
	u := upgrade.New(reflect.TypeOf((*coopsync.RLock)(nil)), conv, upgrade.WithLogger(c.log))

	roots := make([]any, 0)
	for _, name := range c.reg.Names() {
		if comp, ok := c.reg.Lookup(name); ok {
			roots = append(roots, comp)
		}
	}

	stats, err := u.UpgradeAll(roots...)
	if err != nil {
		c.log.Error().Err(err).Msg("lock upgrade aborted")
		return
	}
	c.log.Debug().Int("visited", stats.Visited).Int("replaced", stats.Replaced).Int("skipped", stats.Skipped).Msg("lock upgrade pass complete")

	if !c.audit {
		return
	}
	if remaining := u.Audit(roots...); remaining > 0 {
		c.log.Warn().Int("remaining", remaining).
			Msg("reentrant locks were not upgraded; apply substitution before allocating locks")
	}
}

// cooperativeIdent returns the identity provider of the installed threading
// component, falling back to the portable provider.
func (c *Coordinator) cooperativeIdent() coopsync.Ident {
	if thr, ok := c.reg.Lookup("threading"); ok {
		if v, ok := thr.Get("get_ident"); ok {
			if ident, ok := v.(coopsync.Ident); ok {
				return ident
			}
		}
	}
	return coopsync.PortableIdent
}
