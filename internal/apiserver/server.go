// Copyright (c) 2026 Keymaster Team
// wgkeys - WireGuard key management client
// This source code is licensed under the MIT license found in the LICENSE file.

// Package apiserver is an in-memory implementation of the WireGuard key API.
// It backs `wgkeys mock-api` and the HTTP tests of the client packages.
package apiserver // import "github.com/toeirei/wgkeys/internal/apiserver"

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/toeirei/wgkeys/internal/clock"
	"github.com/toeirei/wgkeys/internal/logging"
	"github.com/toeirei/wgkeys/internal/rest"
	"github.com/toeirei/wgkeys/internal/wgkey"
)

// DefaultKeyLimit is the number of keys one account may hold.
const DefaultKeyLimit = 5

// DefaultAccountLifetime is the paid-until offset given to new accounts.
const DefaultAccountLifetime = 30 * 24 * time.Hour

type account struct {
	expiry time.Time
	keys   map[string]time.Time
}

// Server holds accounts and their keys in memory.
type Server struct {
	mu       sync.Mutex
	accounts map[string]*account
	clk      clock.Clock
	limit    int
	lifetime time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithClock sets the clock used for creation and expiry times.
func WithClock(c clock.Clock) Option { return func(s *Server) { s.clk = c } }

// WithKeyLimit overrides DefaultKeyLimit.
func WithKeyLimit(n int) Option { return func(s *Server) { s.limit = n } }

// WithAccountLifetime overrides DefaultAccountLifetime.
func WithAccountLifetime(d time.Duration) Option { return func(s *Server) { s.lifetime = d } }

// New returns an empty server.
func New(opts ...Option) *Server {
	s := &Server{
		accounts: make(map[string]*account),
		clk:      clock.System(),
		limit:    DefaultKeyLimit,
		lifetime: DefaultAccountLifetime,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// newToken derives a 16 digit account number from a random UUID.
func newToken() string {
	id := uuid.New()
	var b strings.Builder
	for _, c := range id[:16] {
		b.WriteByte('0' + c%10)
	}
	return b.String()
}

// AddAccount registers token directly. Used to seed state.
func (s *Server) AddAccount(token string, expiry time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[token] = &account{expiry: expiry.UTC(), keys: make(map[string]time.Time)}
}

// DropKey removes a key without going through the API, simulating a key
// revoked out of band.
func (s *Server) DropKey(token, pubkey string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[token]
	if !ok {
		return false
	}
	if _, ok := acc.keys[pubkey]; !ok {
		return false
	}
	delete(acc.keys, pubkey)
	return true
}

// Keys returns the public keys registered on token.
func (s *Server) Keys(token string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[token]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(acc.keys))
	for k := range acc.keys {
		out = append(out, k)
	}
	return out
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	// Base64 keys contain '/', which must stay encoded inside the path variable.
	r.UseEncodedPath()
	r.HandleFunc("/v1/accounts", s.handleCreateAccount).Methods(http.MethodPost)
	r.HandleFunc("/v1/me", s.authed(s.handleMe)).Methods(http.MethodGet)
	r.HandleFunc("/v1/wireguard-keys", s.authed(s.handleAddKey)).Methods(http.MethodPost)
	r.HandleFunc("/v1/wireguard-keys/{pubkey}", s.authed(s.handleGetKey)).Methods(http.MethodGet)
	r.HandleFunc("/v1/wireguard-keys/{pubkey}", s.authed(s.handleRemoveKey)).Methods(http.MethodDelete)
	r.HandleFunc("/v1/replace-wireguard-key", s.authed(s.handleReplaceKey)).Methods(http.MethodPost)
	return r
}

// ListenAndServe serves the API on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

type authedHandler func(w http.ResponseWriter, r *http.Request, token string, acc *account)

// authed resolves the Authorization header and holds the lock for the
// duration of the handler.
func (s *Server) authed(h authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Token ")
		token = strings.TrimSpace(token)
		s.mu.Lock()
		defer s.mu.Unlock()
		acc, found := s.accounts[token]
		if !ok || !found {
			writeError(w, http.StatusUnauthorized, rest.CodeInvalidAccount, "unknown account")
			return
		}
		h(w, r, token, acc)
	}
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	token := newToken()
	for _, exists := s.accounts[token]; exists; _, exists = s.accounts[token] {
		token = newToken()
	}
	acc := &account{expiry: s.clk.Now().Add(s.lifetime).UTC(), keys: make(map[string]time.Time)}
	s.accounts[token] = acc
	s.mu.Unlock()

	logging.Infof("apiserver: created account %s", token)
	writeJSON(w, http.StatusCreated, rest.AccountResponse{Token: token, Expiry: acc.expiry})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, token string, acc *account) {
	writeJSON(w, http.StatusOK, rest.AccountResponse{Token: token, Expiry: acc.expiry})
}

func (s *Server) handleAddKey(w http.ResponseWriter, r *http.Request, token string, acc *account) {
	var req rest.AddKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, rest.CodeInvalidPubKey, "malformed body")
		return
	}
	if _, err := wgkey.ParseKey(req.PubKey); err != nil {
		writeError(w, http.StatusBadRequest, rest.CodeInvalidPubKey, err.Error())
		return
	}
	if created, ok := acc.keys[req.PubKey]; ok {
		writeJSON(w, http.StatusOK, rest.KeyResponse{PubKey: req.PubKey, Created: created})
		return
	}
	if len(acc.keys) >= s.limit {
		writeError(w, http.StatusBadRequest, rest.CodeKeyLimitReached, "too many keys")
		return
	}
	created := s.clk.Now().UTC()
	acc.keys[req.PubKey] = created
	writeJSON(w, http.StatusCreated, rest.KeyResponse{PubKey: req.PubKey, Created: created})
}

func pathKey(r *http.Request) (string, bool) {
	raw := mux.Vars(r)["pubkey"]
	key, err := url.PathUnescape(raw)
	if err != nil {
		return "", false
	}
	return key, true
}

func (s *Server) handleGetKey(w http.ResponseWriter, r *http.Request, token string, acc *account) {
	key, ok := pathKey(r)
	if !ok {
		writeError(w, http.StatusBadRequest, rest.CodeInvalidPubKey, "bad path")
		return
	}
	created, found := acc.keys[key]
	if !found {
		writeError(w, http.StatusNotFound, rest.CodePubKeyNotFound, "")
		return
	}
	writeJSON(w, http.StatusOK, rest.KeyResponse{PubKey: key, Created: created})
}

func (s *Server) handleRemoveKey(w http.ResponseWriter, r *http.Request, token string, acc *account) {
	key, ok := pathKey(r)
	if !ok {
		writeError(w, http.StatusBadRequest, rest.CodeInvalidPubKey, "bad path")
		return
	}
	if _, found := acc.keys[key]; !found {
		writeError(w, http.StatusNotFound, rest.CodePubKeyNotFound, "")
		return
	}
	delete(acc.keys, key)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReplaceKey(w http.ResponseWriter, r *http.Request, token string, acc *account) {
	var req rest.ReplaceKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, rest.CodeInvalidPubKey, "malformed body")
		return
	}
	if _, err := wgkey.ParseKey(req.New); err != nil {
		writeError(w, http.StatusBadRequest, rest.CodeInvalidPubKey, err.Error())
		return
	}
	if _, found := acc.keys[req.Old]; !found {
		// Replacing a key the server lost behaves like adding a new one.
		if len(acc.keys) >= s.limit {
			writeError(w, http.StatusBadRequest, rest.CodeKeyLimitReached, "too many keys")
			return
		}
	}
	delete(acc.keys, req.Old)
	created := s.clk.Now().UTC()
	acc.keys[req.New] = created
	writeJSON(w, http.StatusCreated, rest.KeyResponse{PubKey: req.New, Created: created})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warnf("apiserver: write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, rest.ErrorBody{Code: code, Detail: detail})
}
