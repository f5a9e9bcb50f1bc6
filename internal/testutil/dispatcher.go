// Copyright (c) 2026 Keymaster Team
// wgkeys - WireGuard key management client
// This source code is licensed under the MIT license found in the LICENSE file.

package testutil

import (
	"sync"
	"testing"
	"time"
)

// Dispatcher queues posted funcs until the test runs them, which makes the
// test goroutine the single logical thread.
type Dispatcher struct {
	mu     sync.Mutex
	queue  []func()
	notify chan struct{}
}

// NewDispatcher returns an empty queue.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{notify: make(chan struct{}, 1)}
}

// Post may be called from any goroutine.
func (d *Dispatcher) Post(fn func()) {
	d.mu.Lock()
	d.queue = append(d.queue, fn)
	d.mu.Unlock()
	select {
	case d.notify <- struct{}{}:
	default:
	}
}

// Len returns the number of queued funcs.
func (d *Dispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Wait blocks until at least n funcs are queued, failing the test after a
// generous timeout.
func (d *Dispatcher) Wait(t testing.TB, n int) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for d.Len() < n {
		select {
		case <-d.notify:
		case <-deadline:
			t.Fatalf("timed out waiting for %d posted funcs, have %d", n, d.Len())
		}
	}
}

// RunPending runs queued funcs until the queue is empty and returns how many
// ran.
func (d *Dispatcher) RunPending() int {
	ran := 0
	for {
		d.mu.Lock()
		if len(d.queue) == 0 {
			d.mu.Unlock()
			return ran
		}
		fn := d.queue[0]
		d.queue = d.queue[1:]
		d.mu.Unlock()
		fn()
		ran++
	}
}

// Settle waits for n posts and runs everything queued.
func (d *Dispatcher) Settle(t testing.TB, n int) {
	t.Helper()
	d.Wait(t, n)
	d.RunPending()
}
