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

// SimpleQueue is the single-producer queue contract whose default
// implementation the coordinator forces to the portable variant.
type SimpleQueue interface {
	// Put appends v to the queue.
	Put(v any)
	// Get removes and returns the oldest element, blocking while empty.
	Get() any
	// Len returns the number of queued elements.
	Len() int
}

// SimpleQueueFactory constructs a SimpleQueue.
type SimpleQueueFactory func() SimpleQueue

// NewSimpleQueue returns the native SimpleQueue variant, backed by a
// runtime channel. Its blocking behavior is tied to the native scheduler,
// which is what makes it unsuitable once cooperative scheduling is in
// effect.
func NewSimpleQueue() SimpleQueue {
	return &chanQueue{ch: make(chan any, nativeQueueCap)}
}

// nativeQueueCap bounds the native variant; Put blocks when full.
const nativeQueueCap = 64

type chanQueue struct {
	ch chan any
}

func (q *chanQueue) Put(v any) { q.ch <- v }
func (q *chanQueue) Get() any  { return <-q.ch }
func (q *chanQueue) Len() int  { return len(q.ch) }

// NewPortableSimpleQueue returns the portable SimpleQueue variant, an
// unbounded condition-variable queue with no scheduler coupling.
func NewPortableSimpleQueue() SimpleQueue {
	q := &condQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

type condQueue struct {
	mu    sync.Mutex
	cond  *sync.Cond
	items []any
}

func (q *condQueue) Put(v any) {
	q.mu.Lock()
	q.items = append(q.items, v)
	q.mu.Unlock()
	q.cond.Signal()
}

func (q *condQueue) Get() any {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 {
		q.cond.Wait()
	}
	v := q.items[0]
	q.items = q.items[1:]
	return v
}

func (q *condQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Queue is the general queue primitive. Its constructor takes the low-level
// lock handle guarding the queue, historically obtained by re-resolving the
// threading component on every instantiation; the native cache's fix-up
// exists to pin that resolution to the native form.
type Queue struct {
	lock  sync.Locker
	inner SimpleQueue
}

// QueueFactory constructs a Queue, resolving its lock dependency at call
// time.
type QueueFactory func() (*Queue, error)

// NewQueue returns a queue guarded by the given low-level lock.
func NewQueue(lock sync.Locker) *Queue {
	if lock == nil {
		lock = AllocateLock()
	}
	return &Queue{lock: lock, inner: NewPortableSimpleQueue()}
}

// Put appends v to the queue.
func (q *Queue) Put(v any) {
	q.lock.Lock()
	defer q.lock.Unlock()
	q.inner.Put(v)
}

// TryGet removes and returns the oldest element without blocking.
func (q *Queue) TryGet() (any, bool) {
	q.lock.Lock()
	defer q.lock.Unlock()
	if q.inner.Len() == 0 {
		return nil, false
	}
	return q.inner.Get(), true
}

// Len returns the number of queued elements.
func (q *Queue) Len() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.inner.Len()
}

// Lock returns the low-level lock handle the queue was constructed with.
// Exposed so callers can verify which variant a constructor wired in.
func (q *Queue) Lock() sync.Locker {
	return q.lock
}
