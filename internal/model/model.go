// Copyright (c) 2026 Keymaster Team
// wgkeys - WireGuard key management client
// This source code is licensed under the MIT license found in the LICENSE file.

// Package model holds the plain data types shared between the store, the
// key API client and the key screen.
package model

import (
	"fmt"
	"time"

	"github.com/toeirei/wgkeys/internal/wgkey"
)

// KeyMetadata describes the device's current public key. It is immutable
// once produced.
type KeyMetadata struct {
	PublicKey wgkey.Key
	CreatedAt time.Time
}

// String returns the full base64 form of the public key.
func (m KeyMetadata) String() string {
	return m.PublicKey.String()
}

// Display returns the public key truncated to maxLen characters.
func (m KeyMetadata) Display(maxLen int) string {
	return m.PublicKey.Display(maxLen)
}

// DeviceKey is a stored key pair. Exactly one row is active at a time.
type DeviceKey struct {
	ID         int
	Serial     int
	PrivateKey string
	PublicKey  string
	CreatedAt  time.Time
	IsActive   bool
}

// Metadata converts the stored public key into KeyMetadata.
func (k DeviceKey) Metadata() (KeyMetadata, error) {
	pub, err := wgkey.ParseKey(k.PublicKey)
	if err != nil {
		return KeyMetadata{}, fmt.Errorf("device key %d: %w", k.Serial, err)
	}
	return KeyMetadata{PublicKey: pub, CreatedAt: k.CreatedAt}, nil
}

// Account is the logged-in key API account.
type Account struct {
	Token  string
	Expiry time.Time
}

// IsExpired reports whether the account has expired at now.
func (a Account) IsExpired(now time.Time) bool {
	return !a.Expiry.IsZero() && !now.Before(a.Expiry)
}

// AuditLogEntry represents a single entry in the audit log.
type AuditLogEntry struct {
	ID        int
	Timestamp time.Time
	Username  string
	Action    string
	Details   string
}

// BackupData is the full export of the local store.
type BackupData struct {
	SchemaVersion int             `json:"schema_version"`
	Account       *Account        `json:"account,omitempty"`
	DeviceKeys    []DeviceKey     `json:"device_keys"`
	AuditLog      []AuditLogEntry `json:"audit_log"`
}
