// Copyright (c) 2026 Keymaster Team
// wgkeys - WireGuard key management client
// This source code is licensed under the MIT license found in the LICENSE file.

package backup

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/toeirei/wgkeys/internal/db"
	"github.com/toeirei/wgkeys/internal/model"
)

func newStore(t *testing.T, name string) db.Store {
	t.Helper()
	st, err := db.NewStoreFromDSN("sqlite", "file:backup_"+name+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("NewStoreFromDSN: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func seed(t *testing.T, st db.Store) {
	t.Helper()
	ctx := context.Background()
	if err := st.SetAccount(ctx, model.Account{Token: "1111222233334444", Expiry: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}); err != nil {
		t.Fatalf("SetAccount: %v", err)
	}
	if _, err := st.RotateDeviceKey(ctx, "priv", "pub", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("RotateDeviceKey: %v", err)
	}
	if err := st.LogAction(ctx, "LOGIN", "seed"); err != nil {
		t.Fatalf("LogAction: %v", err)
	}
}

func TestWriteRestore(t *testing.T) {
	ctx := context.Background()
	src := newStore(t, "src")
	seed(t, src)

	var buf bytes.Buffer
	if err := Write(ctx, src, &buf); err != nil {
		t.Fatalf("Write: %v", err)
	}

	dst := newStore(t, "dst")
	if err := Restore(ctx, bytes.NewReader(buf.Bytes()), dst); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	acc, err := dst.GetAccount(ctx)
	if err != nil || acc == nil || acc.Token != "1111222233334444" {
		t.Fatalf("account not restored: %+v %v", acc, err)
	}
	key, err := dst.GetActiveDeviceKey(ctx)
	if err != nil || key == nil || key.PublicKey != "pub" {
		t.Fatalf("key not restored: %+v %v", key, err)
	}
	entries, err := dst.GetAllAuditLogEntries(ctx)
	if err != nil || len(entries) != 1 {
		t.Fatalf("audit log not restored: %v %v", entries, err)
	}
}

func TestEncodeIsIndentedJSONInZstd(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&model.BackupData{SchemaVersion: 1}, &buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	zr, err := zstd.NewReader(&buf)
	if err != nil {
		t.Fatalf("zstd.NewReader: %v", err)
	}
	defer zr.Close()
	var plain bytes.Buffer
	if _, err := plain.ReadFrom(zr); err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if !strings.Contains(plain.String(), "\n  \"schema_version\": 1") {
		t.Fatalf("expected indented JSON, got %q", plain.String())
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode(strings.NewReader("not zstd")); err == nil {
		t.Fatalf("expected error for garbage input")
	}
}

func TestMigrate(t *testing.T) {
	ctx := context.Background()
	src := newStore(t, "migrate_src")
	seed(t, src)
	target := "file:backup_migrate_dst?mode=memory&cache=shared"

	// Keep one connection open so the shared in-memory target survives.
	keep, err := db.NewStoreFromDSN("sqlite", target)
	if err != nil {
		t.Fatalf("open target: %v", err)
	}
	defer func() { _ = keep.Close() }()

	if err := Migrate(ctx, src, "sqlite", target); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	acc, err := keep.GetAccount(ctx)
	if err != nil || acc == nil {
		t.Fatalf("migrated account missing: %v %v", acc, err)
	}
}

func TestFilenames(t *testing.T) {
	if got := DefaultFilename(time.Date(2025, 10, 26, 0, 0, 0, 0, time.UTC)); got != "wgkeys-backup-2025-10-26.json.zst" {
		t.Fatalf("DefaultFilename = %q", got)
	}
	if WithExtension("a.json") != "a.json.zst" || WithExtension("a.zst") != "a.zst" {
		t.Fatalf("WithExtension mismatch")
	}
}
