// Copyright (c) 2026 Keymaster Team
// wgkeys - WireGuard key management client
// This source code is licensed under the MIT license found in the LICENSE file.

package tunnel

import (
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toeirei/wgkeys/internal/apiserver"
	"github.com/toeirei/wgkeys/internal/db"
	"github.com/toeirei/wgkeys/internal/keyscreen"
	"github.com/toeirei/wgkeys/internal/model"
	"github.com/toeirei/wgkeys/internal/rest"
)

const testToken = "1234567890123456"

type fixture struct {
	mgr   *Manager
	store db.Store
	srv   *apiserver.Server
	api   *rest.Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:tunnel_" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	return newFixtureWithDSN(t, dsn, nil)
}

func newFixtureWithDSN(t *testing.T, dsn string, srv *apiserver.Server) *fixture {
	t.Helper()
	store, err := db.NewStoreFromDSN("sqlite", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	if srv == nil {
		srv = apiserver.New()
		srv.AddAccount(testToken, time.Now().Add(24*time.Hour))
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	api := rest.NewClient(ts.URL, 5*time.Second)
	return &fixture{mgr: NewManager(store, api), store: store, srv: srv, api: api}
}

type recorder struct {
	mu   sync.Mutex
	keys []*model.KeyMetadata
}

func (r *recorder) observe(k *model.KeyMetadata) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, k)
}

func (r *recorder) snapshot() []*model.KeyMetadata {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*model.KeyMetadata(nil), r.keys...)
}

func TestNormalizeToken(t *testing.T) {
	assert.Equal(t, "1234567890123456", NormalizeToken(" 1234 5678-9012 3456\n"))
	assert.Equal(t, "", NormalizeToken(" - "))
}

func TestLogin_StoresAccountAndRegistersKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := &recorder{}
	f.mgr.AddObserver(rec.observe)

	require.NoError(t, f.mgr.Login(ctx, "1234 5678 9012 3456"))

	info := f.mgr.TunnelInfo()
	require.NotNil(t, info)
	require.NotNil(t, info.Key)
	assert.Equal(t, testToken, info.Token)
	assert.Equal(t, 1, info.Serial)
	assert.Equal(t, []string{info.Key.String()}, f.srv.Keys(testToken))

	pub, err := info.PrivateKey.PublicKey()
	require.NoError(t, err)
	assert.Equal(t, info.Key.PublicKey, pub)

	acc, err := f.store.GetAccount(ctx)
	require.NoError(t, err)
	require.NotNil(t, acc)
	assert.Equal(t, testToken, acc.Token)

	keys := rec.snapshot()
	require.Len(t, keys, 1)
	assert.Equal(t, info.Key.PublicKey, keys[0].PublicKey)
}

func TestLogin_InvalidAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.mgr.Login(ctx, "0000000000000000")
	require.Error(t, err)
	assert.True(t, errors.Is(err, rest.ErrInvalidAccount))

	acc, err := f.store.GetAccount(ctx)
	require.NoError(t, err)
	assert.Nil(t, acc)
	assert.Nil(t, f.mgr.TunnelInfo())
}

func TestRegeneratePrivateKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.mgr.Login(ctx, testToken))
	old := f.mgr.CurrentKey()
	require.NotNil(t, old)

	rec := &recorder{}
	f.mgr.AddObserver(rec.observe)

	md, err := f.mgr.RegeneratePrivateKey(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, old.PublicKey, md.PublicKey)

	assert.Equal(t, []string{md.String()}, f.srv.Keys(testToken), "old key must be replaced on the server")

	active, err := f.store.GetActiveDeviceKey(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, 2, active.Serial)
	assert.Equal(t, md.String(), active.PublicKey)

	entries, err := f.store.GetAllAuditLogEntries(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, ActionKeyRegenerated, entries[0].Action)

	keys := rec.snapshot()
	require.Len(t, keys, 1)
	assert.Equal(t, md.PublicKey, keys[0].PublicKey)
}

// pausingStore holds the next GetActiveDeviceKey call, after the row was
// read, until release is closed.
type pausingStore struct {
	db.Store
	armed   atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func (s *pausingStore) GetActiveDeviceKey(ctx context.Context) (*model.DeviceKey, error) {
	dk, err := s.Store.GetActiveDeviceKey(ctx)
	if s.armed.CompareAndSwap(true, false) {
		close(s.entered)
		<-s.release
	}
	return dk, err
}

func TestLoad_OverlappingRegenerateKeepsNewKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ps := &pausingStore{Store: f.store, entered: make(chan struct{}), release: make(chan struct{})}
	mgr := NewManager(ps, f.api)
	require.NoError(t, mgr.Login(ctx, testToken))
	old := mgr.CurrentKey()
	require.NotNil(t, old)

	ps.armed.Store(true)
	loadErr := make(chan error, 1)
	go func() { loadErr <- mgr.Load(ctx) }()
	select {
	case <-ps.entered:
	case <-time.After(5 * time.Second):
		t.Fatalf("Load never read the device key")
	}

	type regenResult struct {
		md  model.KeyMetadata
		err error
	}
	regenDone := make(chan regenResult, 1)
	go func() {
		md, err := mgr.RegeneratePrivateKey(ctx)
		regenDone <- regenResult{md, err}
	}()

	select {
	case <-regenDone:
		t.Fatalf("regeneration finished while a Load held the old key")
	case <-time.After(100 * time.Millisecond):
	}
	close(ps.release)

	require.NoError(t, <-loadErr)
	var res regenResult
	select {
	case res = <-regenDone:
	case <-time.After(5 * time.Second):
		t.Fatalf("regeneration did not finish")
	}
	require.NoError(t, res.err)
	require.NotEqual(t, old.PublicKey, res.md.PublicKey)

	cur := mgr.CurrentKey()
	require.NotNil(t, cur)
	assert.Equal(t, res.md.PublicKey, cur.PublicKey, "manager must report the regenerated key")
	assert.Equal(t, []string{res.md.String()}, f.srv.Keys(testToken))
}

func TestRegeneratePrivateKey_ServerFailureKeepsOldKey(t *testing.T) {
	srv := apiserver.New(apiserver.WithKeyLimit(1))
	srv.AddAccount(testToken, time.Now().Add(time.Hour))
	f := newFixtureWithDSN(t, "file:tunnel_regen_fail?mode=memory&cache=shared", srv)
	ctx := context.Background()
	require.NoError(t, f.mgr.Login(ctx, testToken))
	old := f.mgr.CurrentKey()

	// The server lost our key and the account slot is taken by another
	// device, so the replace behaves like an add and hits the limit.
	require.True(t, srv.DropKey(testToken, old.String()))
	other := old.PublicKey
	other[0] ^= 0xff
	_, err := f.api.AddKey(ctx, testToken, other)
	require.NoError(t, err)

	_, err = f.mgr.RegeneratePrivateKey(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, rest.ErrKeyLimitReached))
	assert.Equal(t, old.PublicKey, f.mgr.CurrentKey().PublicKey)

	active, err := f.store.GetActiveDeviceKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, active.Serial)
}

func TestVerifyKey_AndBackendMapping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.mgr.Login(ctx, testToken))
	key := *f.mgr.CurrentKey()

	found, err := f.mgr.VerifyKey(ctx, key)
	require.NoError(t, err)
	assert.True(t, found)

	b := NewKeyBackend(f.mgr)
	assert.NoError(t, b.VerifyKey(ctx, key))

	require.True(t, f.srv.DropKey(testToken, key.String()))
	found, err = f.mgr.VerifyKey(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)
	assert.True(t, errors.Is(b.VerifyKey(ctx, key), keyscreen.ErrKeyNotFound))
}

func TestNotLoggedIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.mgr.Load(ctx))
	assert.Nil(t, f.mgr.CurrentKey())

	_, err := f.mgr.RegeneratePrivateKey(ctx)
	assert.True(t, errors.Is(err, ErrNotLoggedIn))
	_, err = f.mgr.VerifyKey(ctx, model.KeyMetadata{})
	assert.True(t, errors.Is(err, ErrNotLoggedIn))
	assert.NoError(t, f.mgr.Logout(ctx))
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.mgr.Login(ctx, testToken))
	rec := &recorder{}
	f.mgr.AddObserver(rec.observe)

	require.NoError(t, f.mgr.Logout(ctx))
	assert.Nil(t, f.mgr.TunnelInfo())
	assert.Empty(t, f.srv.Keys(testToken))

	acc, err := f.store.GetAccount(ctx)
	require.NoError(t, err)
	assert.Nil(t, acc)
	active, err := f.store.GetActiveDeviceKey(ctx)
	require.NoError(t, err)
	assert.Nil(t, active)

	keys := rec.snapshot()
	require.Len(t, keys, 1)
	assert.Nil(t, keys[0])
}

func TestLoad_NotifiesOnlyOnChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.mgr.Login(ctx, testToken))

	// A second manager on the same store plays the other process.
	other := NewManager(f.store, f.api)
	require.NoError(t, other.Load(ctx))
	rec := &recorder{}
	other.AddObserver(rec.observe)

	require.NoError(t, other.Load(ctx))
	assert.Empty(t, rec.snapshot())

	md, err := f.mgr.RegeneratePrivateKey(ctx)
	require.NoError(t, err)
	require.NoError(t, other.Load(ctx))
	keys := rec.snapshot()
	require.Len(t, keys, 1)
	assert.Equal(t, md.PublicKey, keys[0].PublicKey)
}

func TestRemoveObserver(t *testing.T) {
	f := newFixture(t)
	rec := &recorder{}
	remove := f.mgr.AddObserver(rec.observe)
	remove()
	require.NoError(t, f.mgr.Login(context.Background(), testToken))
	assert.Empty(t, rec.snapshot())
}

func TestWatch_ReloadsOnFileChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wgkeys.db")
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)"

	writer := newFixtureWithDSN(t, dsn, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, writer.mgr.Login(ctx, testToken))

	readerStore, err := db.NewStoreFromDSN("sqlite", dsn)
	require.NoError(t, err)
	defer func() { _ = readerStore.Close() }()
	reader := NewManager(readerStore, writer.api)
	require.NoError(t, reader.Load(ctx))

	changed := make(chan *model.KeyMetadata, 4)
	reader.AddObserver(func(k *model.KeyMetadata) { changed <- k })
	require.NoError(t, reader.Watch(ctx, path))

	md, err := writer.mgr.RegeneratePrivateKey(ctx)
	require.NoError(t, err)

	select {
	case k := <-changed:
		require.NotNil(t, k)
		assert.Equal(t, md.PublicKey, k.PublicKey)
	case <-time.After(10 * time.Second):
		t.Fatal("watcher did not pick up the rotated key")
	}
}
