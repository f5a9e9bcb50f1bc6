// Copyright (c) 2026 Keymaster Team
// wgkeys - WireGuard key management client
// This source code is licensed under the MIT license found in the LICENSE file.

// Package tunnel owns the device's account and WireGuard key. It keeps the
// local store and the key API in step and tells observers when the active
// key changes.
package tunnel // import "github.com/toeirei/wgkeys/internal/tunnel"

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/toeirei/wgkeys/internal/db"
	"github.com/toeirei/wgkeys/internal/logging"
	"github.com/toeirei/wgkeys/internal/model"
	"github.com/toeirei/wgkeys/internal/rest"
	"github.com/toeirei/wgkeys/internal/wgkey"
)

// ErrNotLoggedIn is returned by operations that need an account.
var ErrNotLoggedIn = errors.New("not logged in")

// Audit log actions.
const (
	ActionLogin          = "LOGIN"
	ActionLogout         = "LOGOUT"
	ActionKeyRegenerated = "KEY_REGENERATED"
)

// KeyAPI is the subset of rest.Client the manager needs.
type KeyAPI interface {
	GetAccount(ctx context.Context, token string) (rest.AccountResponse, error)
	AddKey(ctx context.Context, token string, pub wgkey.Key) (rest.KeyResponse, error)
	GetKey(ctx context.Context, token string, pub wgkey.Key) (rest.KeyResponse, error)
	ReplaceKey(ctx context.Context, token string, oldKey, newKey wgkey.Key) (rest.KeyResponse, error)
	RemoveKey(ctx context.Context, token string, pub wgkey.Key) error
}

// Info is a snapshot of the logged in account and its active key.
type Info struct {
	Token  string
	Expiry time.Time
	Serial int
	// Key is nil when the account has no active key.
	Key        *model.KeyMetadata
	PrivateKey wgkey.PrivateKey
}

// Manager coordinates the store and the key API.
type Manager struct {
	store db.Store
	api   KeyAPI

	mu   sync.RWMutex
	info *Info

	// regenMu serialises key changes.
	regenMu sync.Mutex

	obsMu     sync.Mutex
	observers map[int]func(*model.KeyMetadata)
	nextObs   int
}

// NewManager returns a manager with no state loaded.
func NewManager(store db.Store, api KeyAPI) *Manager {
	return &Manager{
		store:     store,
		api:       api,
		observers: make(map[int]func(*model.KeyMetadata)),
	}
}

// NormalizeToken strips everything but letters and digits, so account
// numbers can be typed with spaces or dashes.
func NormalizeToken(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

// Load reads the account and active key from the store. Observers are
// notified when the active key differs from the one held before. It waits
// for a running login, logout or regeneration so it never publishes a key
// read before that change was stored.
func (m *Manager) Load(ctx context.Context) error {
	m.regenMu.Lock()
	defer m.regenMu.Unlock()
	return m.load(ctx)
}

// load is Load with regenMu already held.
func (m *Manager) load(ctx context.Context) error {
	info, err := m.readInfo(ctx)
	if err != nil {
		return err
	}
	m.setInfo(info)
	return nil
}

func (m *Manager) readInfo(ctx context.Context) (*Info, error) {
	acc, err := m.store.GetAccount(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if acc == nil {
		return nil, nil
	}
	info := &Info{Token: acc.Token, Expiry: acc.Expiry}

	dk, err := m.store.GetActiveDeviceKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load device key: %w", err)
	}
	if dk == nil {
		return info, nil
	}
	md, err := dk.Metadata()
	if err != nil {
		return nil, fmt.Errorf("stored device key %d: %w", dk.Serial, err)
	}
	priv, err := wgkey.ParsePrivateKey(dk.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("stored device key %d: %w", dk.Serial, err)
	}
	info.Serial = dk.Serial
	info.Key = &md
	info.PrivateKey = priv
	return info, nil
}

// TunnelInfo returns a copy of the current state, or nil when logged out.
func (m *Manager) TunnelInfo() *Info {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.info == nil {
		return nil
	}
	cp := *m.info
	if m.info.Key != nil {
		k := *m.info.Key
		cp.Key = &k
	}
	return &cp
}

// CurrentKey returns the active key metadata or nil.
func (m *Manager) CurrentKey() *model.KeyMetadata {
	info := m.TunnelInfo()
	if info == nil {
		return nil
	}
	return info.Key
}

// AddObserver registers fn for active key changes. fn is called from the
// goroutine that made the change.
func (m *Manager) AddObserver(fn func(*model.KeyMetadata)) (remove func()) {
	m.obsMu.Lock()
	defer m.obsMu.Unlock()
	id := m.nextObs
	m.nextObs++
	m.observers[id] = fn
	return func() {
		m.obsMu.Lock()
		defer m.obsMu.Unlock()
		delete(m.observers, id)
	}
}

func sameKey(a, b *model.KeyMetadata) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.PublicKey == b.PublicKey && a.CreatedAt.Equal(b.CreatedAt)
}

func (m *Manager) setInfo(info *Info) {
	m.mu.Lock()
	var before *model.KeyMetadata
	if m.info != nil {
		before = m.info.Key
	}
	m.info = info
	var after *model.KeyMetadata
	if info != nil && info.Key != nil {
		k := *info.Key
		after = &k
	}
	m.mu.Unlock()

	if !sameKey(before, after) {
		m.notify(after)
	}
}

func (m *Manager) notify(key *model.KeyMetadata) {
	m.obsMu.Lock()
	fns := make([]func(*model.KeyMetadata), 0, len(m.observers))
	for _, fn := range m.observers {
		fns = append(fns, fn)
	}
	m.obsMu.Unlock()
	for _, fn := range fns {
		var cp *model.KeyMetadata
		if key != nil {
			k := *key
			cp = &k
		}
		fn(cp)
	}
}

// Login checks token against the server, registers a fresh key for this
// device and stores both. An existing login is replaced.
func (m *Manager) Login(ctx context.Context, token string) error {
	token = NormalizeToken(token)
	if token == "" {
		return fmt.Errorf("empty account number: %w", rest.ErrInvalidAccount)
	}

	m.regenMu.Lock()
	defer m.regenMu.Unlock()

	acc, err := m.api.GetAccount(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to look up account: %w", err)
	}

	if cur := m.TunnelInfo(); cur != nil && cur.Key != nil {
		m.removeServerKey(ctx, cur)
	}

	priv, err := wgkey.GeneratePrivateKey()
	if err != nil {
		return err
	}
	pub, err := priv.PublicKey()
	if err != nil {
		return err
	}
	added, err := m.api.AddKey(ctx, token, pub)
	if err != nil {
		return fmt.Errorf("failed to push key to server: %w", err)
	}

	// The key now exists on the server; persist it even if ctx is cancelled.
	ctx = context.WithoutCancel(ctx)
	if err := m.store.SetAccount(ctx, model.Account{Token: token, Expiry: acc.Expiry}); err != nil {
		return fmt.Errorf("failed to store account: %w", err)
	}
	if _, err := m.store.RotateDeviceKey(ctx, priv.String(), pub.String(), createdOrNow(added.Created)); err != nil {
		return fmt.Errorf("failed to store device key: %w", err)
	}
	if err := m.store.LogAction(ctx, ActionLogin, "pubkey: "+pub.String()); err != nil {
		logging.Warnf("tunnel: failed to write audit log: %v", err)
	}
	return m.load(ctx)
}

func createdOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

func (m *Manager) removeServerKey(ctx context.Context, info *Info) {
	if err := m.api.RemoveKey(ctx, info.Token, info.Key.PublicKey); err != nil && !errors.Is(err, rest.ErrPubKeyNotFound) {
		logging.Warnf("tunnel: failed to remove key from server: %s", logging.ErrorChain(err))
	}
}

// Logout removes the device key from the server on a best-effort basis and
// forgets the account locally. Logging out while logged out is a no-op.
func (m *Manager) Logout(ctx context.Context) error {
	m.regenMu.Lock()
	defer m.regenMu.Unlock()

	info := m.TunnelInfo()
	if info == nil {
		return nil
	}
	if info.Key != nil {
		m.removeServerKey(ctx, info)
	}
	if err := m.store.DeactivateDeviceKeys(ctx); err != nil {
		return fmt.Errorf("failed to deactivate device keys: %w", err)
	}
	if err := m.store.ClearAccount(ctx); err != nil {
		return fmt.Errorf("failed to clear account: %w", err)
	}
	if err := m.store.LogAction(ctx, ActionLogout, ""); err != nil {
		logging.Warnf("tunnel: failed to write audit log: %v", err)
	}
	m.setInfo(nil)
	return nil
}

// VerifyKey reports whether the server knows key.
func (m *Manager) VerifyKey(ctx context.Context, key model.KeyMetadata) (bool, error) {
	info := m.TunnelInfo()
	if info == nil {
		return false, ErrNotLoggedIn
	}
	if _, err := m.api.GetKey(ctx, info.Token, key.PublicKey); err != nil {
		if errors.Is(err, rest.ErrPubKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// RegeneratePrivateKey creates a new key pair, swaps it in on the server and
// makes it the active key. Concurrent calls run one after another.
func (m *Manager) RegeneratePrivateKey(ctx context.Context) (model.KeyMetadata, error) {
	m.regenMu.Lock()
	defer m.regenMu.Unlock()

	info := m.TunnelInfo()
	if info == nil {
		return model.KeyMetadata{}, ErrNotLoggedIn
	}

	priv, err := wgkey.GeneratePrivateKey()
	if err != nil {
		return model.KeyMetadata{}, err
	}
	pub, err := priv.PublicKey()
	if err != nil {
		return model.KeyMetadata{}, err
	}

	var resp rest.KeyResponse
	if info.Key != nil {
		resp, err = m.api.ReplaceKey(ctx, info.Token, info.Key.PublicKey, pub)
	} else {
		resp, err = m.api.AddKey(ctx, info.Token, pub)
	}
	if err != nil {
		return model.KeyMetadata{}, fmt.Errorf("failed to replace key on server: %w", err)
	}

	ctx = context.WithoutCancel(ctx)
	created := createdOrNow(resp.Created)
	serial, err := m.store.RotateDeviceKey(ctx, priv.String(), pub.String(), created)
	if err != nil {
		return model.KeyMetadata{}, fmt.Errorf("failed to store new key: %w", err)
	}
	if err := m.store.LogAction(ctx, ActionKeyRegenerated, fmt.Sprintf("serial: %d, pubkey: %s", serial, pub.String())); err != nil {
		logging.Warnf("tunnel: failed to write audit log: %v", err)
	}

	md := model.KeyMetadata{PublicKey: pub, CreatedAt: created}
	m.setInfo(&Info{Token: info.Token, Expiry: info.Expiry, Serial: serial, Key: &md, PrivateKey: priv})
	return md, nil
}
