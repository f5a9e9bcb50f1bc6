// Copyright (c) 2026 Keymaster Team
// wgkeys - WireGuard key management client
// This source code is licensed under the MIT license found in the LICENSE file.

// Package rest is a small JSON client for the WireGuard key API: account
// lookup and creation plus registration, lookup, replacement and removal of
// device public keys.
package rest // import "github.com/toeirei/wgkeys/internal/rest"

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/toeirei/wgkeys/internal/wgkey"
)

// DefaultTimeout bounds every request when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// AccountResponse describes an account token and its paid-until time.
type AccountResponse struct {
	Token  string    `json:"token"`
	Expiry time.Time `json:"expiry"`
}

// KeyResponse describes a public key registered on the server.
type KeyResponse struct {
	PubKey  string    `json:"pubkey"`
	Created time.Time `json:"created"`
}

// AddKeyRequest is the body of POST /v1/wireguard-keys.
type AddKeyRequest struct {
	PubKey string `json:"pubkey"`
}

// ReplaceKeyRequest is the body of POST /v1/replace-wireguard-key.
type ReplaceKeyRequest struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// Client talks to the key API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a client for baseURL. A non-positive timeout selects
// DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithHTTPClient replaces the underlying http.Client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// CreateAccount asks the server for a new account token.
func (c *Client) CreateAccount(ctx context.Context) (AccountResponse, error) {
	var out AccountResponse
	err := c.do(ctx, http.MethodPost, "/v1/accounts", "", nil, &out)
	return out, err
}

// GetAccount returns the account for token.
func (c *Client) GetAccount(ctx context.Context, token string) (AccountResponse, error) {
	var out AccountResponse
	err := c.do(ctx, http.MethodGet, "/v1/me", token, nil, &out)
	return out, err
}

// AddKey registers a public key with the account.
func (c *Client) AddKey(ctx context.Context, token string, pub wgkey.Key) (KeyResponse, error) {
	var out KeyResponse
	err := c.do(ctx, http.MethodPost, "/v1/wireguard-keys", token, AddKeyRequest{PubKey: pub.String()}, &out)
	return out, err
}

// GetKey looks up a public key on the account. A key the server does not
// know yields an error matching ErrPubKeyNotFound.
func (c *Client) GetKey(ctx context.Context, token string, pub wgkey.Key) (KeyResponse, error) {
	var out KeyResponse
	err := c.do(ctx, http.MethodGet, "/v1/wireguard-keys/"+url.PathEscape(pub.String()), token, nil, &out)
	return out, err
}

// ReplaceKey atomically swaps oldKey for newKey on the account.
func (c *Client) ReplaceKey(ctx context.Context, token string, oldKey, newKey wgkey.Key) (KeyResponse, error) {
	var out KeyResponse
	err := c.do(ctx, http.MethodPost, "/v1/replace-wireguard-key", token, ReplaceKeyRequest{Old: oldKey.String(), New: newKey.String()}, &out)
	return out, err
}

// RemoveKey deletes a public key from the account.
func (c *Client) RemoveKey(ctx context.Context, token string, pub wgkey.Key) error {
	return c.do(ctx, http.MethodDelete, "/v1/wireguard-keys/"+url.PathEscape(pub.String()), token, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serr := &ServerError{Status: resp.StatusCode}
		var eb ErrorBody
		if json.Unmarshal(data, &eb) == nil {
			serr.Code = eb.Code
			serr.Message = eb.Detail
		}
		if serr.Code == "" {
			serr.Message = strings.TrimSpace(string(data))
		}
		return serr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
