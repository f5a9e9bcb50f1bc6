// Copyright (c) 2026 Keymaster Team
// wgkeys - WireGuard key management client
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os/user"
	"strings"
	"time"

	"github.com/toeirei/wgkeys/internal/model"
	"github.com/uptrace/bun"
)

// backupSchemaVersion is written into every export.
const backupSchemaVersion = 1

// DeviceKeyModel maps the device_keys table.
type DeviceKeyModel struct {
	bun.BaseModel `bun:"table:device_keys"`
	ID            int       `bun:"id,pk,autoincrement"`
	Serial        int       `bun:"serial"`
	PrivateKey    string    `bun:"private_key"`
	PublicKey     string    `bun:"public_key"`
	CreatedAt     time.Time `bun:"created_at"`
	IsActive      bool      `bun:"is_active"`
}

// AccountModel maps the single-row account table.
type AccountModel struct {
	bun.BaseModel `bun:"table:account"`
	ID            int          `bun:"id,pk"`
	Token         string       `bun:"token"`
	Expiry        sql.NullTime `bun:"expiry"`
}

// AuditLogModel maps the audit_log table.
type AuditLogModel struct {
	bun.BaseModel `bun:"table:audit_log"`
	ID            int       `bun:"id,pk,autoincrement"`
	CreatedAt     time.Time `bun:"created_at"`
	Username      string    `bun:"username"`
	Action        string    `bun:"action"`
	Details       string    `bun:"details"`
}

func deviceKeyModelToModel(d DeviceKeyModel) model.DeviceKey {
	return model.DeviceKey{
		ID:         d.ID,
		Serial:     d.Serial,
		PrivateKey: d.PrivateKey,
		PublicKey:  d.PublicKey,
		CreatedAt:  d.CreatedAt.UTC(),
		IsActive:   d.IsActive,
	}
}

func accountModelToModel(a AccountModel) model.Account {
	acc := model.Account{Token: a.Token}
	if a.Expiry.Valid {
		acc.Expiry = a.Expiry.Time.UTC()
	}
	return acc
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// BunStore implements Store on top of a *bun.DB for every supported engine.
type BunStore struct {
	bun    *bun.DB
	dbType string
}

// BunDB exposes the underlying *bun.DB for callers that need raw access.
func (s *BunStore) BunDB() *bun.DB { return s.bun }

// GetActiveDeviceKey returns the active device key or nil when none exists.
func (s *BunStore) GetActiveDeviceKey(ctx context.Context) (*model.DeviceKey, error) {
	var dk DeviceKeyModel
	err := s.bun.NewSelect().Model(&dk).Where("is_active = ?", true).OrderExpr("serial DESC").Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	m := deviceKeyModelToModel(dk)
	return &m, nil
}

// GetDeviceKeyBySerial returns the key with the given serial or nil.
func (s *BunStore) GetDeviceKeyBySerial(ctx context.Context, serial int) (*model.DeviceKey, error) {
	var dk DeviceKeyModel
	err := s.bun.NewSelect().Model(&dk).Where("serial = ?", serial).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	m := deviceKeyModelToModel(dk)
	return &m, nil
}

// HasDeviceKeys reports whether any device key was ever stored.
func (s *BunStore) HasDeviceKeys(ctx context.Context) (bool, error) {
	n, err := s.bun.NewSelect().Model((*DeviceKeyModel)(nil)).Count(ctx)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RotateDeviceKey deactivates existing keys and inserts a new active key
// within a single transaction. It returns the serial of the new key.
func (s *BunStore) RotateDeviceKey(ctx context.Context, privateKey, publicKey string, createdAt time.Time) (int, error) {
	newSerial := 0
	err := WithTx(ctx, s.bun, func(ctx context.Context, tx bun.Tx) error {
		// Bun requires a WHERE clause on Update, so use a raw statement.
		if _, err := ExecRaw(ctx, tx, "UPDATE device_keys SET is_active = ?", false); err != nil {
			return fmt.Errorf("failed to deactivate old device keys: %w", err)
		}

		var max sql.NullInt64
		if err := QueryRawInto(ctx, tx, &max, "SELECT MAX(serial) FROM device_keys"); err != nil {
			return err
		}
		newSerial = 1
		if max.Valid {
			newSerial = int(max.Int64) + 1
		}

		_, err := tx.NewInsert().Model(&DeviceKeyModel{
			Serial:     newSerial,
			PrivateKey: privateKey,
			PublicKey:  publicKey,
			CreatedAt:  createdAt.UTC(),
			IsActive:   true,
		}).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert new device key: %w", MapDBError(err))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return newSerial, nil
}

// DeactivateDeviceKeys marks every stored key inactive. Used on logout so a
// later login starts from a fresh key.
func (s *BunStore) DeactivateDeviceKeys(ctx context.Context) error {
	_, err := ExecRaw(ctx, s.bun, "UPDATE device_keys SET is_active = ?", false)
	return err
}

// GetAccount returns the stored account or nil when logged out.
func (s *BunStore) GetAccount(ctx context.Context) (*model.Account, error) {
	var am AccountModel
	err := s.bun.NewSelect().Model(&am).Where("id = ?", 1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	acc := accountModelToModel(am)
	return &acc, nil
}

// SetAccount replaces the stored account.
func (s *BunStore) SetAccount(ctx context.Context, account model.Account) error {
	return WithTx(ctx, s.bun, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*AccountModel)(nil)).Where("id = ?", 1).Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewInsert().Model(&AccountModel{ID: 1, Token: account.Token, Expiry: nullTime(account.Expiry)}).Exec(ctx)
		return MapDBError(err)
	})
}

// ClearAccount removes the stored account. It is not an error when none exists.
func (s *BunStore) ClearAccount(ctx context.Context) error {
	_, err := s.bun.NewDelete().Model((*AccountModel)(nil)).Where("id = ?", 1).Exec(ctx)
	return err
}

// currentUsername returns the OS user name without a Windows domain prefix.
func currentUsername() string {
	curUser, err := user.Current()
	if err != nil {
		return "unknown"
	}
	if parts := strings.Split(curUser.Username, `\`); len(parts) > 1 {
		return parts[1]
	}
	return curUser.Username
}

// LogAction inserts an audit log entry with the current OS user.
func (s *BunStore) LogAction(ctx context.Context, action, details string) error {
	_, err := s.bun.NewInsert().Model(&AuditLogModel{
		CreatedAt: time.Now().UTC(),
		Username:  currentUsername(),
		Action:    action,
		Details:   details,
	}).Exec(ctx)
	return MapDBError(err)
}

// GetAllAuditLogEntries retrieves audit log entries, newest first.
func (s *BunStore) GetAllAuditLogEntries(ctx context.Context) ([]model.AuditLogEntry, error) {
	var am []AuditLogModel
	if err := s.bun.NewSelect().Model(&am).OrderExpr("created_at DESC, id DESC").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.AuditLogEntry, 0, len(am))
	for _, a := range am {
		out = append(out, model.AuditLogEntry{ID: a.ID, Timestamp: a.CreatedAt.UTC(), Username: a.Username, Action: a.Action, Details: a.Details})
	}
	return out, nil
}

// ExportDataForBackup exports all tables into a model.BackupData inside one
// transaction so the snapshot is consistent.
func (s *BunStore) ExportDataForBackup(ctx context.Context) (*model.BackupData, error) {
	var backup *model.BackupData
	err := WithTx(ctx, s.bun, func(ctx context.Context, tx bun.Tx) error {
		backup = &model.BackupData{SchemaVersion: backupSchemaVersion}

		var accounts []AccountModel
		if err := tx.NewSelect().Model(&accounts).Scan(ctx); err != nil {
			return err
		}
		if len(accounts) > 0 {
			acc := accountModelToModel(accounts[0])
			backup.Account = &acc
		}

		var dks []DeviceKeyModel
		if err := tx.NewSelect().Model(&dks).OrderExpr("serial ASC").Scan(ctx); err != nil {
			return err
		}
		for _, d := range dks {
			backup.DeviceKeys = append(backup.DeviceKeys, deviceKeyModelToModel(d))
		}

		var als []AuditLogModel
		if err := tx.NewSelect().Model(&als).OrderExpr("id ASC").Scan(ctx); err != nil {
			return err
		}
		for _, a := range als {
			backup.AuditLog = append(backup.AuditLog, model.AuditLogEntry{ID: a.ID, Timestamp: a.CreatedAt.UTC(), Username: a.Username, Action: a.Action, Details: a.Details})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return backup, nil
}

// ImportDataFromBackup performs a full wipe-and-replace. Row IDs are
// reassigned by the database.
func (s *BunStore) ImportDataFromBackup(ctx context.Context, backup *model.BackupData) error {
	if backup == nil {
		return errors.New("nil backup")
	}
	if backup.SchemaVersion > backupSchemaVersion {
		return fmt.Errorf("unsupported backup schema version %d", backup.SchemaVersion)
	}
	return WithTx(ctx, s.bun, func(ctx context.Context, tx bun.Tx) error {
		for _, t := range []string{"audit_log", "device_keys", "account"} {
			if _, err := ExecRaw(ctx, tx, fmt.Sprintf("DELETE FROM %s", t)); err != nil {
				return err
			}
		}

		if backup.Account != nil {
			if _, err := tx.NewInsert().Model(&AccountModel{ID: 1, Token: backup.Account.Token, Expiry: nullTime(backup.Account.Expiry)}).Exec(ctx); err != nil {
				return MapDBError(err)
			}
		}
		for _, dk := range backup.DeviceKeys {
			m := &DeviceKeyModel{Serial: dk.Serial, PrivateKey: dk.PrivateKey, PublicKey: dk.PublicKey, CreatedAt: dk.CreatedAt.UTC(), IsActive: dk.IsActive}
			if _, err := tx.NewInsert().Model(m).Exec(ctx); err != nil {
				return MapDBError(err)
			}
		}
		for _, ale := range backup.AuditLog {
			m := &AuditLogModel{CreatedAt: ale.Timestamp.UTC(), Username: ale.Username, Action: ale.Action, Details: ale.Details}
			if _, err := tx.NewInsert().Model(m).Exec(ctx); err != nil {
				return MapDBError(err)
			}
		}
		return nil
	})
}

// Close releases the underlying connection pool.
func (s *BunStore) Close() error {
	return s.bun.Close()
}
