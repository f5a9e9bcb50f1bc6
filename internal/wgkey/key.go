// Copyright (c) 2026 Keymaster Team
// wgkeys - WireGuard key management client
// This source code is licensed under the MIT license found in the LICENSE file.

// Package wgkey implements WireGuard (Curve25519) key pairs and their textual
// representation.
package wgkey

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/curve25519"
)

// KeyLen is the size of a WireGuard key in bytes.
const KeyLen = 32

// ErrInvalidKey is returned when a key cannot be decoded.
var ErrInvalidKey = errors.New("invalid wireguard key")

// Key is a raw 32-byte Curve25519 key, public or private.
type Key [KeyLen]byte

// PrivateKey is a clamped Curve25519 scalar.
type PrivateKey Key

// randReader is swapped in tests.
var randReader io.Reader = rand.Reader

// GeneratePrivateKey returns a fresh, clamped private key.
func GeneratePrivateKey() (PrivateKey, error) {
	var k PrivateKey
	if _, err := io.ReadFull(randReader, k[:]); err != nil {
		return PrivateKey{}, fmt.Errorf("failed to read random bytes: %w", err)
	}
	k.clamp()
	return k, nil
}

func (k *PrivateKey) clamp() {
	k[0] &= 248
	k[31] = (k[31] & 127) | 64
}

// PublicKey derives the public key for k.
func (k PrivateKey) PublicKey() (Key, error) {
	out, err := curve25519.X25519(k[:], curve25519.Basepoint)
	if err != nil {
		return Key{}, fmt.Errorf("failed to derive public key: %w", err)
	}
	var pub Key
	copy(pub[:], out)
	return pub, nil
}

// String returns the base64 encoding of the private key.
func (k PrivateKey) String() string {
	return Key(k).String()
}

// ParsePrivateKey decodes a base64 private key.
func ParsePrivateKey(s string) (PrivateKey, error) {
	k, err := ParseKey(s)
	if err != nil {
		return PrivateKey{}, err
	}
	return PrivateKey(k), nil
}

// String returns the standard base64 representation used by WireGuard.
func (k Key) String() string {
	return base64.StdEncoding.EncodeToString(k[:])
}

// IsZero reports whether k is all zeroes.
func (k Key) IsZero() bool {
	return k == Key{}
}

// Display returns the base64 representation truncated to at most maxLen
// characters. A truncated key ends with an ellipsis that counts towards
// maxLen. maxLen <= 0 disables truncation.
func (k Key) Display(maxLen int) string {
	return Truncate(k.String(), maxLen)
}

// ParseKey decodes a base64 key and checks its length.
func ParseKey(s string) (Key, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return Key{}, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(raw) != KeyLen {
		return Key{}, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKey, len(raw), KeyLen)
	}
	var k Key
	copy(k[:], raw)
	return k, nil
}

// Truncate shortens s to maxLen runes, replacing the tail with "…".
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if maxLen <= 0 || len(r) <= maxLen {
		return s
	}
	if maxLen == 1 {
		return "…"
	}
	return string(r[:maxLen-1]) + "…"
}
