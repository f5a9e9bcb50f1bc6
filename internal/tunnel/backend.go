// Copyright (c) 2026 Keymaster Team
// wgkeys - WireGuard key management client
// This source code is licensed under the MIT license found in the LICENSE file.

package tunnel

import (
	"context"

	"github.com/toeirei/wgkeys/internal/keyscreen"
	"github.com/toeirei/wgkeys/internal/model"
)

// KeyBackend adapts a Manager to keyscreen.Backend.
type KeyBackend struct {
	m *Manager
}

var _ keyscreen.Backend = (*KeyBackend)(nil)

// NewKeyBackend wraps m.
func NewKeyBackend(m *Manager) *KeyBackend {
	return &KeyBackend{m: m}
}

func (b *KeyBackend) CurrentKey() *model.KeyMetadata { return b.m.CurrentKey() }

func (b *KeyBackend) Subscribe(fn func(*model.KeyMetadata)) func() { return b.m.AddObserver(fn) }

func (b *KeyBackend) VerifyKey(ctx context.Context, key model.KeyMetadata) error {
	found, err := b.m.VerifyKey(ctx, key)
	if err != nil {
		return err
	}
	if !found {
		return keyscreen.ErrKeyNotFound
	}
	return nil
}

func (b *KeyBackend) RegenerateKey(ctx context.Context) (model.KeyMetadata, error) {
	return b.m.RegeneratePrivateKey(ctx)
}
