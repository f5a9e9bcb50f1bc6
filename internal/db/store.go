// Copyright (c) 2026 Keymaster Team
// wgkeys - WireGuard key management client
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"time"

	"github.com/toeirei/wgkeys/internal/model"
)

// Store defines every database operation wgkeys performs.
type Store interface {
	// Device key methods
	GetActiveDeviceKey(ctx context.Context) (*model.DeviceKey, error)
	GetDeviceKeyBySerial(ctx context.Context, serial int) (*model.DeviceKey, error)
	HasDeviceKeys(ctx context.Context) (bool, error)
	RotateDeviceKey(ctx context.Context, privateKey, publicKey string, createdAt time.Time) (int, error)
	DeactivateDeviceKeys(ctx context.Context) error

	// Account methods
	GetAccount(ctx context.Context) (*model.Account, error)
	SetAccount(ctx context.Context, account model.Account) error
	ClearAccount(ctx context.Context) error

	// Audit Log methods
	LogAction(ctx context.Context, action, details string) error
	GetAllAuditLogEntries(ctx context.Context) ([]model.AuditLogEntry, error)

	// Backup methods
	ExportDataForBackup(ctx context.Context) (*model.BackupData, error)
	ImportDataFromBackup(ctx context.Context, backup *model.BackupData) error

	Close() error
}
