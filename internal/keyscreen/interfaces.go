// Copyright (c) 2026 Keymaster Team
// wgkeys - WireGuard key management client
// This source code is licensed under the MIT license found in the LICENSE file.

package keyscreen

import (
	"context"
	"errors"

	"github.com/toeirei/wgkeys/internal/model"
)

// ErrKeyNotFound is returned by Backend.VerifyKey when the server does not
// know the key. It is an expected outcome, not a failure.
var ErrKeyNotFound = errors.New("key not found on server")

// Backend owns the device key.
type Backend interface {
	// CurrentKey returns the active key or nil.
	CurrentKey() *model.KeyMetadata
	// Subscribe registers fn for key changes. fn may be called from any
	// goroutine.
	Subscribe(fn func(*model.KeyMetadata)) (unsubscribe func())
	VerifyKey(ctx context.Context, key model.KeyMetadata) error
	RegenerateKey(ctx context.Context) (model.KeyMetadata, error)
}

// Frame is everything the key row shows.
type Frame struct {
	Key    string
	Age    string
	Status Status
}

// Display is the surface the controller drives. All methods are called on
// the dispatcher's thread.
type Display interface {
	Render(f Frame)
	SetControlsEnabled(enabled bool)
	Announce(text string)
	ShowError(title, message string)
}

// Clipboard receives the copied key.
type Clipboard interface {
	WriteString(text string) error
}

// Dispatcher runs funcs one at a time on the UI's logical thread.
type Dispatcher interface {
	Post(fn func())
}

// DispatcherFunc adapts a plain function to Dispatcher.
type DispatcherFunc func(fn func())

func (f DispatcherFunc) Post(fn func()) { f(fn) }
