// Copyright (c) 2026 Keymaster Team
// wgkeys - WireGuard key management client
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"testing"
	"time"

	"github.com/toeirei/wgkeys/internal/model"
)

func TestRotateDeviceKey_SerialsAndActiveFlag(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if has, err := s.HasDeviceKeys(ctx); err != nil || has {
		t.Fatalf("expected empty store, has=%v err=%v", has, err)
	}
	if k, err := s.GetActiveDeviceKey(ctx); err != nil || k != nil {
		t.Fatalf("expected no active key, got %+v err=%v", k, err)
	}

	t1 := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	serial, err := s.RotateDeviceKey(ctx, "priv1", "pub1", t1)
	if err != nil {
		t.Fatalf("RotateDeviceKey: %v", err)
	}
	if serial != 1 {
		t.Fatalf("expected serial 1, got %d", serial)
	}

	serial, err = s.RotateDeviceKey(ctx, "priv2", "pub2", t1.Add(time.Hour))
	if err != nil {
		t.Fatalf("RotateDeviceKey: %v", err)
	}
	if serial != 2 {
		t.Fatalf("expected serial 2, got %d", serial)
	}

	active, err := s.GetActiveDeviceKey(ctx)
	if err != nil || active == nil {
		t.Fatalf("GetActiveDeviceKey: %v %v", active, err)
	}
	if active.PublicKey != "pub2" || active.PrivateKey != "priv2" || !active.IsActive {
		t.Fatalf("unexpected active key: %+v", active)
	}
	if !active.CreatedAt.Equal(t1.Add(time.Hour)) {
		t.Fatalf("unexpected created_at: %v", active.CreatedAt)
	}

	old, err := s.GetDeviceKeyBySerial(ctx, 1)
	if err != nil || old == nil {
		t.Fatalf("GetDeviceKeyBySerial: %v %v", old, err)
	}
	if old.IsActive {
		t.Fatalf("expected serial 1 to be inactive")
	}
	if missing, err := s.GetDeviceKeyBySerial(ctx, 42); err != nil || missing != nil {
		t.Fatalf("expected nil for unknown serial, got %+v err=%v", missing, err)
	}
}

func TestDeactivateDeviceKeys(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if _, err := s.RotateDeviceKey(ctx, "p", "q", time.Now()); err != nil {
		t.Fatalf("RotateDeviceKey: %v", err)
	}
	if err := s.DeactivateDeviceKeys(ctx); err != nil {
		t.Fatalf("DeactivateDeviceKeys: %v", err)
	}
	if k, err := s.GetActiveDeviceKey(ctx); err != nil || k != nil {
		t.Fatalf("expected no active key after deactivate, got %+v err=%v", k, err)
	}
	if has, _ := s.HasDeviceKeys(ctx); !has {
		t.Fatalf("history should be kept after deactivate")
	}
}

func TestAccount_SetGetClear(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if acc, err := s.GetAccount(ctx); err != nil || acc != nil {
		t.Fatalf("expected no account, got %+v err=%v", acc, err)
	}

	exp := time.Date(2030, 5, 1, 0, 0, 0, 0, time.UTC)
	if err := s.SetAccount(ctx, model.Account{Token: "1234123412341234", Expiry: exp}); err != nil {
		t.Fatalf("SetAccount: %v", err)
	}
	if err := s.SetAccount(ctx, model.Account{Token: "5555666677778888", Expiry: exp}); err != nil {
		t.Fatalf("SetAccount replace: %v", err)
	}
	acc, err := s.GetAccount(ctx)
	if err != nil || acc == nil {
		t.Fatalf("GetAccount: %v %v", acc, err)
	}
	if acc.Token != "5555666677778888" || !acc.Expiry.Equal(exp) {
		t.Fatalf("unexpected account: %+v", acc)
	}

	if err := s.ClearAccount(ctx); err != nil {
		t.Fatalf("ClearAccount: %v", err)
	}
	if err := s.ClearAccount(ctx); err != nil {
		t.Fatalf("ClearAccount twice: %v", err)
	}
	if acc, _ := s.GetAccount(ctx); acc != nil {
		t.Fatalf("expected account to be cleared")
	}
}

func TestAccount_ZeroExpiryStoredAsNull(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.SetAccount(ctx, model.Account{Token: "abc"}); err != nil {
		t.Fatalf("SetAccount: %v", err)
	}
	acc, err := s.GetAccount(ctx)
	if err != nil || acc == nil {
		t.Fatalf("GetAccount: %v %v", acc, err)
	}
	if !acc.Expiry.IsZero() {
		t.Fatalf("expected zero expiry, got %v", acc.Expiry)
	}
}

func TestAuditLog(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.LogAction(ctx, "KEY_ROTATED", "serial: 1"); err != nil {
		t.Fatalf("LogAction: %v", err)
	}
	if err := s.LogAction(ctx, "LOGOUT", ""); err != nil {
		t.Fatalf("LogAction: %v", err)
	}
	entries, err := s.GetAllAuditLogEntries(ctx)
	if err != nil {
		t.Fatalf("GetAllAuditLogEntries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Action != "LOGOUT" {
		t.Fatalf("expected newest entry first, got %q", entries[0].Action)
	}
	if entries[0].Username == "" {
		t.Fatalf("expected username to be recorded")
	}
}

func TestBackupExportImport(t *testing.T) {
	src := newTestStore(t)
	ctx := context.Background()
	created := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	if _, err := src.RotateDeviceKey(ctx, "priv1", "pub1", created); err != nil {
		t.Fatalf("RotateDeviceKey: %v", err)
	}
	if _, err := src.RotateDeviceKey(ctx, "priv2", "pub2", created.Add(time.Minute)); err != nil {
		t.Fatalf("RotateDeviceKey: %v", err)
	}
	if err := src.SetAccount(ctx, model.Account{Token: "tok"}); err != nil {
		t.Fatalf("SetAccount: %v", err)
	}
	if err := src.LogAction(ctx, "LOGIN", "tok"); err != nil {
		t.Fatalf("LogAction: %v", err)
	}

	backup, err := src.ExportDataForBackup(ctx)
	if err != nil {
		t.Fatalf("ExportDataForBackup: %v", err)
	}
	if backup.SchemaVersion != 1 || backup.Account == nil || len(backup.DeviceKeys) != 2 || len(backup.AuditLog) != 1 {
		t.Fatalf("unexpected backup: %+v", backup)
	}

	dst := newTestStore(t)
	// Pre-existing data must be wiped.
	if _, err := dst.RotateDeviceKey(ctx, "x", "y", created); err != nil {
		t.Fatalf("RotateDeviceKey: %v", err)
	}
	if err := dst.ImportDataFromBackup(ctx, backup); err != nil {
		t.Fatalf("ImportDataFromBackup: %v", err)
	}
	active, err := dst.GetActiveDeviceKey(ctx)
	if err != nil || active == nil {
		t.Fatalf("GetActiveDeviceKey: %v %v", active, err)
	}
	if active.PublicKey != "pub2" || active.Serial != 2 {
		t.Fatalf("unexpected active key after import: %+v", active)
	}
	if k, _ := dst.GetDeviceKeyBySerial(ctx, 1); k == nil || k.PublicKey != "pub1" {
		t.Fatalf("expected serial 1 restored, got %+v", k)
	}
	acc, _ := dst.GetAccount(ctx)
	if acc == nil || acc.Token != "tok" {
		t.Fatalf("unexpected account after import: %+v", acc)
	}
}

func TestImportDataFromBackup_RejectsNewerSchema(t *testing.T) {
	s := newTestStore(t)
	err := s.ImportDataFromBackup(context.Background(), &model.BackupData{SchemaVersion: 99})
	if err == nil {
		t.Fatalf("expected error for future schema version")
	}
}
