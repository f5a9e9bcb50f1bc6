// Copyright (c) 2026 Keymaster Team
// wgkeys - WireGuard key management client
// This source code is licensed under the MIT license found in the LICENSE file.

package rest

import (
	"errors"
	"fmt"
)

// Error codes returned by the key API.
const (
	CodeInvalidAccount  = "INVALID_ACCOUNT"
	CodePubKeyNotFound  = "PUBKEY_NOT_FOUND"
	CodeKeyLimitReached = "KEY_LIMIT_REACHED"
	CodeInvalidPubKey   = "INVALID_PUBKEY"
	CodePubKeyInUse     = "PUBKEY_IN_USE"
)

var (
	// ErrPubKeyNotFound matches a ServerError for a key the server does not know.
	ErrPubKeyNotFound = errors.New("public key not found")
	// ErrInvalidAccount matches a ServerError for an unknown account token.
	ErrInvalidAccount = errors.New("invalid account")
	// ErrKeyLimitReached matches a ServerError when the account holds too many keys.
	ErrKeyLimitReached = errors.New("key limit reached")
)

// ServerError is a non-2xx response from the key API.
type ServerError struct {
	Status  int
	Code    string
	Message string
}

func (e *ServerError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d %s", e.Status, e.Code)
}

// Is lets errors.Is match a ServerError against the package sentinels.
func (e *ServerError) Is(target error) bool {
	switch target {
	case ErrPubKeyNotFound:
		return e.Code == CodePubKeyNotFound
	case ErrInvalidAccount:
		return e.Code == CodeInvalidAccount
	case ErrKeyLimitReached:
		return e.Code == CodeKeyLimitReached
	}
	return false
}

// ErrorBody is the JSON error envelope shared by client and mock server.
type ErrorBody struct {
	Code   string `json:"code"`
	Detail string `json:"detail,omitempty"`
}
