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

package upgrade_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"dirpx.dev/swapx/component"
	"dirpx.dev/swapx/coopsync"
	"dirpx.dev/swapx/upgrade"
)

func newRLockUpgrader(t *testing.T, tid uint64) *upgrade.Upgrader {
	t.Helper()
	conv := upgrade.RLockConverter(tid,
		func() any { return coopsync.NewPortableRLock() },
		coopsync.AllocateCoopLock,
	)
	return upgrade.New(reflect.TypeOf((*coopsync.RLock)(nil)), conv)
}

func TestUpgradeMapValue(t *testing.T) {
	u := newRLockUpgrader(t, 7)

	old := coopsync.NewRLock()
	m := map[string]any{"lock": old, "other": 42}

	stats, err := u.UpgradeAll(m)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Replaced)

	_, ok := m["lock"].(*coopsync.PortableRLock)
	require.True(t, ok, "map value not upgraded: %T", m["lock"])
	require.Equal(t, 42, m["other"])
}

func TestUpgradeSliceElement(t *testing.T) {
	u := newRLockUpgrader(t, 7)

	s := []any{coopsync.NewRLock(), "keep"}
	_, err := u.UpgradeAll(s)
	require.NoError(t, err)

	_, ok := s[0].(*coopsync.PortableRLock)
	require.True(t, ok, "slice element not upgraded: %T", s[0])
	require.Equal(t, "keep", s[1])
}

func TestUpgradeComponentAttr(t *testing.T) {
	u := newRLockUpgrader(t, 7)

	c := component.NewWithAttrs("holder", map[string]any{
		"lock":  coopsync.NewRLock(),
		"label": "keep",
	})

	_, err := u.UpgradeAll(c)
	require.NoError(t, err)

	v, _ := c.Get("lock")
	_, ok := v.(*coopsync.PortableRLock)
	require.True(t, ok, "component attribute not upgraded: %T", v)
	label, _ := c.Get("label")
	require.Equal(t, "keep", label)
}

type lockHolder struct {
	Named   coopsync.ReentrantLock
	Ignored string
}

func TestUpgradeStructFieldThroughPointer(t *testing.T) {
	u := newRLockUpgrader(t, 7)

	h := &lockHolder{Named: coopsync.NewRLock(), Ignored: "keep"}
	m := map[string]any{"holder": h}

	_, err := u.UpgradeAll(m)
	require.NoError(t, err)

	_, ok := h.Named.(*coopsync.PortableRLock)
	require.True(t, ok, "interface struct field not upgraded: %T", h.Named)
	require.Equal(t, "keep", h.Ignored)
}

type concreteHolder struct {
	Lock *coopsync.RLock
}

func TestUpgradeSkipsNonAssignableSlot(t *testing.T) {
	u := newRLockUpgrader(t, 7)

	h := &concreteHolder{Lock: coopsync.NewRLock()}
	orig := h.Lock

	stats, err := u.UpgradeAll(map[string]any{"holder": h})
	require.NoError(t, err)

	// The slot's static type cannot hold the portable variant; the
	// original stays and the pass records the skip.
	require.Same(t, orig, h.Lock)
	require.Equal(t, 1, stats.Skipped)
}

func TestUpgradePreservesAliasing(t *testing.T) {
	u := newRLockUpgrader(t, 7)

	shared := coopsync.NewRLock()
	m1 := map[string]any{"a": shared, "b": shared}
	m2 := map[string]any{"c": shared}

	stats, err := u.UpgradeAll(m1, m2)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Replaced, "one original must convert exactly once")

	ra := m1["a"].(*coopsync.PortableRLock)
	require.Same(t, ra, m1["b"].(*coopsync.PortableRLock))
	require.Same(t, ra, m2["c"].(*coopsync.PortableRLock))
}

func TestUpgradeTerminatesOnCycles(t *testing.T) {
	u := newRLockUpgrader(t, 7)

	m := map[string]any{"lock": coopsync.NewRLock()}
	m["self"] = m
	s := []any{m}
	m["ring"] = s

	stats, err := u.UpgradeAll(m)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Replaced)
	_, ok := m["lock"].(*coopsync.PortableRLock)
	require.True(t, ok)
}

func TestUpgradeTransfersOwnershipAndDepth(t *testing.T) {
	const tid = 1234
	u := newRLockUpgrader(t, tid)

	old := coopsync.NewRLock()
	old.Acquire()
	old.Acquire()
	old.Acquire()

	m := map[string]any{"lock": old}
	_, err := u.UpgradeAll(m)
	require.NoError(t, err)

	nl, ok := m["lock"].(*coopsync.PortableRLock)
	require.True(t, ok)

	id, depth := nl.Owner()
	require.Equal(t, uint64(tid), id)
	require.Equal(t, 3, depth)

	// The original ended fully released.
	oid, odepth := old.Owner()
	require.Equal(t, uint64(0), oid)
	require.Equal(t, 0, odepth)

	// The replacement carries a cooperative low-level handle.
	require.True(t, coopsync.IsCoopLock(nl.Block()))
}

func TestUpgradeUnownedLockStaysUnowned(t *testing.T) {
	u := newRLockUpgrader(t, 99)

	m := map[string]any{"lock": coopsync.NewRLock()}
	_, err := u.UpgradeAll(m)
	require.NoError(t, err)

	nl := m["lock"].(*coopsync.PortableRLock)
	id, depth := nl.Owner()
	require.Equal(t, uint64(0), id)
	require.Equal(t, 0, depth)
	require.False(t, nl.IsOwned())
}

func TestUpgradeNeverDescendsIntoReplacement(t *testing.T) {
	calls := 0
	conv := func(old any) (any, error) {
		calls++
		return coopsync.NewPortableRLock(), nil
	}
	u := upgrade.New(reflect.TypeOf((*coopsync.RLock)(nil)), conv)

	m := map[string]any{"lock": coopsync.NewRLock()}
	_, err := u.UpgradeAll(m)
	require.NoError(t, err)
	// Walking the same graph again finds the replacement, which is not of
	// the target type, so the converter must not run a second time.
	_, err = u.UpgradeAll(m)
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestAuditCountsRemaining(t *testing.T) {
	u := newRLockUpgrader(t, 7)

	shared := coopsync.NewRLock()
	reachable := map[string]any{
		"a": shared,
		"b": shared,
		"c": coopsync.NewRLock(),
		"holder": &concreteHolder{
			Lock: coopsync.NewRLock(),
		},
	}

	// Audit counts distinct instances without converting: the shared lock
	// is referenced from two slots but is one leftover.
	require.Equal(t, 3, u.Audit(reachable))

	stats, err := u.UpgradeAll(reachable)
	require.NoError(t, err)
	require.Equal(t, 2, stats.Replaced)

	// Only the slot that could not accept the replacement still holds one.
	require.Equal(t, 1, u.Audit(reachable))
}

func TestConverterRejectsForeignShape(t *testing.T) {
	conv := upgrade.RLockConverter(1,
		func() any { return "not a lock" },
		coopsync.AllocateCoopLock,
	)
	_, err := conv(coopsync.NewRLock())
	require.ErrorIs(t, err, upgrade.ErrIntegrity)
}
