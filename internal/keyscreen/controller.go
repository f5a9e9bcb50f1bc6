// Copyright (c) 2026 Keymaster Team
// wgkeys - WireGuard key management client
// This source code is licensed under the MIT license found in the LICENSE file.

// Package keyscreen drives the WireGuard key screen: it shows the device's
// public key and its age, verifies the key against the server, regenerates
// it and copies it to the clipboard.
//
// A Controller is confined to one logical thread. Every exported method must
// be called through the Dispatcher it was built with, and every asynchronous
// result is posted back through the same Dispatcher, so the controller never
// needs a lock.
package keyscreen // import "github.com/toeirei/wgkeys/internal/keyscreen"

import (
	"context"
	"errors"
	"time"

	"github.com/toeirei/wgkeys/internal/clock"
	"github.com/toeirei/wgkeys/internal/i18n"
	"github.com/toeirei/wgkeys/internal/logging"
	"github.com/toeirei/wgkeys/internal/model"
)

// Defaults for Options fields left zero.
const (
	DefaultRefreshInterval = 60 * time.Second
	DefaultCopiedDuration  = 3 * time.Second
	DefaultDisplayLength   = 20
)

// Options tunes a Controller.
type Options struct {
	RefreshInterval time.Duration
	CopiedDuration  time.Duration
	DisplayLength   int
	Clock           clock.Clock
}

func (o Options) withDefaults() Options {
	if o.RefreshInterval <= 0 {
		o.RefreshInterval = DefaultRefreshInterval
	}
	if o.CopiedDuration <= 0 {
		o.CopiedDuration = DefaultCopiedDuration
	}
	if o.DisplayLength <= 0 {
		o.DisplayLength = DefaultDisplayLength
	}
	if o.Clock == nil {
		o.Clock = clock.System()
	}
	return o
}

// operation is one pending slot. Continuations compare their own pointer
// against the slot to detect that they were superseded.
type operation struct {
	cancel context.CancelFunc
	timer  clock.Timer
}

func (op *operation) stop() {
	if op.cancel != nil {
		op.cancel()
	}
	if op.timer != nil {
		op.timer.Stop()
	}
}

// Controller mediates between a Backend and a Display.
type Controller struct {
	backend    Backend
	display    Display
	clipboard  Clipboard
	dispatcher Dispatcher
	opts       Options

	state  ViewState
	key    *model.KeyMetadata
	copied bool

	verifyOp  *operation
	regenOp   *operation
	copyOp    *operation
	refresh   clock.Timer
	unsub     func()
	started   bool
	destroyed bool
}

// New returns a controller. Nothing happens until Initialize.
func New(backend Backend, display Display, clipboard Clipboard, dispatcher Dispatcher, opts Options) *Controller {
	return &Controller{
		backend:    backend,
		display:    display,
		clipboard:  clipboard,
		dispatcher: dispatcher,
		opts:       opts.withDefaults(),
		state:      Default,
	}
}

// State returns the current view state.
func (c *Controller) State() ViewState { return c.state }

// Initialize subscribes to key changes, renders the current key and starts
// the age refresh timer. Calling it twice has no effect.
func (c *Controller) Initialize() {
	if c.started || c.destroyed {
		return
	}
	c.started = true
	c.unsub = c.backend.Subscribe(func(key *model.KeyMetadata) {
		c.dispatcher.Post(func() {
			if c.destroyed {
				return
			}
			c.OnKeyChanged(key)
		})
	})
	c.key = c.backend.CurrentKey()
	c.setState(Default)
	c.scheduleRefresh()
}

// OnKeyChanged re-renders the key and its age. A pending "copied" label is
// replaced by the new key. The view state is unchanged.
func (c *Controller) OnKeyChanged(key *model.KeyMetadata) {
	if c.destroyed {
		return
	}
	c.cancel(&c.copyOp)
	c.copied = false
	c.key = key
	c.render()
}

// Verify checks the current key against the server. A pending verification
// is superseded. It does nothing without a key or while a regeneration is
// running.
func (c *Controller) Verify() {
	if c.destroyed || c.regenOp != nil {
		return
	}
	key := c.backend.CurrentKey()
	if key == nil {
		return
	}
	c.cancel(&c.verifyOp)

	ctx, cancel := context.WithCancel(context.Background())
	op := &operation{cancel: cancel}
	c.verifyOp = op
	c.setState(Verifying)

	target := *key
	go func() {
		err := c.backend.VerifyKey(ctx, target)
		c.dispatcher.Post(func() { c.finishVerify(op, err) })
	}()
}

func (c *Controller) finishVerify(op *operation, err error) {
	if c.destroyed || c.verifyOp != op {
		return
	}
	c.verifyOp = nil
	op.stop()

	switch {
	case err == nil:
		c.setState(Verified(true))
		c.display.Announce(i18n.T("key_screen.announce_valid"))
	case errors.Is(err, ErrKeyNotFound):
		c.setState(Verified(false))
		c.display.Announce(i18n.T("key_screen.announce_invalid"))
	default:
		logging.ErrorChainf(err, "failed to verify key")
		c.display.ShowError(
			i18n.T("key_screen.verify_failure_title"),
			i18n.T("key_screen.verify_failure_message", logging.ErrorChain(err)),
		)
		c.setState(Default)
	}
}

// Regenerate replaces the device key. Any pending verification or
// regeneration is superseded.
func (c *Controller) Regenerate() {
	if c.destroyed {
		return
	}
	c.cancel(&c.verifyOp)
	c.cancel(&c.regenOp)

	ctx, cancel := context.WithCancel(context.Background())
	op := &operation{cancel: cancel}
	c.regenOp = op
	c.setState(Regenerating)

	go func() {
		key, err := c.backend.RegenerateKey(ctx)
		c.dispatcher.Post(func() { c.finishRegenerate(op, key, err) })
	}()
}

func (c *Controller) finishRegenerate(op *operation, key model.KeyMetadata, err error) {
	if c.destroyed || c.regenOp != op {
		return
	}
	c.regenOp = nil
	op.stop()

	if err != nil {
		logging.ErrorChainf(err, "failed to regenerate the private key")
		c.display.ShowError(i18n.T("key_screen.regenerate_failure_title"), logging.ErrorChain(err))
		c.setState(Regenerated(false))
		return
	}
	c.key = &key
	c.setState(Regenerated(true))
	c.display.Announce(i18n.T("key_screen.announce_regenerated"))
}

// CopyKeyToClipboard writes the full current key to the clipboard and shows
// a transient label in place of the key. When the label expires the row shows
// whatever key is current at that moment.
func (c *Controller) CopyKeyToClipboard() {
	if c.destroyed {
		return
	}
	key := c.backend.CurrentKey()
	if key == nil {
		return
	}
	if err := c.clipboard.WriteString(key.String()); err != nil {
		logging.ErrorChainf(err, "failed to copy key to clipboard")
		c.display.ShowError(i18n.T("key_screen.copy_failure_title"), logging.ErrorChain(err))
		return
	}
	c.cancel(&c.copyOp)

	op := &operation{}
	c.copyOp = op
	c.copied = true
	c.render()
	op.timer = c.opts.Clock.AfterFunc(c.opts.CopiedDuration, func() {
		c.dispatcher.Post(func() { c.finishCopy(op) })
	})
}

func (c *Controller) finishCopy(op *operation) {
	if c.destroyed || c.copyOp != op {
		return
	}
	c.copyOp = nil
	c.copied = false
	c.key = c.backend.CurrentKey()
	c.render()
}

// Destroy stops the refresh timer, cancels pending operations and
// unsubscribes from the backend. The display is not touched afterwards.
func (c *Controller) Destroy() {
	if c.destroyed {
		return
	}
	c.destroyed = true
	if c.refresh != nil {
		c.refresh.Stop()
		c.refresh = nil
	}
	c.cancel(&c.verifyOp)
	c.cancel(&c.regenOp)
	c.cancel(&c.copyOp)
	if c.unsub != nil {
		c.unsub()
		c.unsub = nil
	}
}

func (c *Controller) cancel(slot **operation) {
	if *slot != nil {
		(*slot).stop()
		*slot = nil
	}
}

func (c *Controller) scheduleRefresh() {
	var t clock.Timer
	t = c.opts.Clock.AfterFunc(c.opts.RefreshInterval, func() {
		c.dispatcher.Post(func() {
			if c.destroyed || c.refresh != t {
				return
			}
			c.render()
			c.scheduleRefresh()
		})
	})
	c.refresh = t
}

func (c *Controller) setState(s ViewState) {
	c.state = s
	c.display.SetControlsEnabled(s.ControlsEnabled())
	c.render()
}

func (c *Controller) render() {
	label := KeyLabel(c.key, c.opts.DisplayLength)
	if c.copied {
		label = i18n.T("key_screen.copied")
	}
	c.display.Render(Frame{
		Key:    label,
		Age:    AgeLabel(c.key, c.opts.Clock.Now()),
		Status: c.state.Status(),
	})
}
