// Copyright (c) 2026 Keymaster Team
// wgkeys - WireGuard key management client
// This source code is licensed under the MIT license found in the LICENSE file.

package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/toeirei/wgkeys/internal/model"
)

// VerifyCall is one pending Backend.VerifyKey call.
type VerifyCall struct {
	Ctx   context.Context
	Key   model.KeyMetadata
	reply chan error
}

// Respond completes the call. It never blocks.
func (c *VerifyCall) Respond(err error) { c.reply <- err }

type regenResult struct {
	key model.KeyMetadata
	err error
}

// RegenerateCall is one pending Backend.RegenerateKey call.
type RegenerateCall struct {
	Ctx   context.Context
	reply chan regenResult
}

// Respond completes the call. It never blocks.
func (c *RegenerateCall) Respond(key model.KeyMetadata, err error) {
	c.reply <- regenResult{key: key, err: err}
}

// Backend is a scripted keyscreen.Backend. VerifyKey and RegenerateKey block
// until the test responds or the context is cancelled.
type Backend struct {
	mu     sync.Mutex
	key    *model.KeyMetadata
	subs   map[int]func(*model.KeyMetadata)
	nextID int

	verifies chan *VerifyCall
	regens   chan *RegenerateCall
}

// NewBackend returns a backend holding key, which may be nil.
func NewBackend(key *model.KeyMetadata) *Backend {
	return &Backend{
		key:      key,
		subs:     make(map[int]func(*model.KeyMetadata)),
		verifies: make(chan *VerifyCall, 16),
		regens:   make(chan *RegenerateCall, 16),
	}
}

func (b *Backend) CurrentKey() *model.KeyMetadata {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.key == nil {
		return nil
	}
	k := *b.key
	return &k
}

func (b *Backend) Subscribe(fn func(*model.KeyMetadata)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// Subscribers returns the number of live subscriptions.
func (b *Backend) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// SetKey replaces the key without notifying subscribers.
func (b *Backend) SetKey(key *model.KeyMetadata) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.key = key
}

// ChangeKey replaces the key and notifies subscribers.
func (b *Backend) ChangeKey(key *model.KeyMetadata) {
	b.mu.Lock()
	b.key = key
	subs := make([]func(*model.KeyMetadata), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.Unlock()
	for _, fn := range subs {
		fn(key)
	}
}

func (b *Backend) VerifyKey(ctx context.Context, key model.KeyMetadata) error {
	call := &VerifyCall{Ctx: ctx, Key: key, reply: make(chan error, 1)}
	b.verifies <- call
	select {
	case err := <-call.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Backend) RegenerateKey(ctx context.Context) (model.KeyMetadata, error) {
	call := &RegenerateCall{Ctx: ctx, reply: make(chan regenResult, 1)}
	b.regens <- call
	select {
	case r := <-call.reply:
		return r.key, r.err
	case <-ctx.Done():
		return model.KeyMetadata{}, ctx.Err()
	}
}

// NextVerify returns the next VerifyKey call.
func (b *Backend) NextVerify(t testing.TB) *VerifyCall {
	t.Helper()
	select {
	case c := <-b.verifies:
		return c
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for VerifyKey")
		return nil
	}
}

// NextRegenerate returns the next RegenerateKey call.
func (b *Backend) NextRegenerate(t testing.TB) *RegenerateCall {
	t.Helper()
	select {
	case c := <-b.regens:
		return c
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for RegenerateKey")
		return nil
	}
}
