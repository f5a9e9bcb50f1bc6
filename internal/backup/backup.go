// Copyright (c) 2026 Keymaster Team
// wgkeys - WireGuard key management client
// This source code is licensed under the MIT license found in the LICENSE file.

// Package backup writes and restores zstd-compressed JSON snapshots of the
// wgkeys database.
package backup // import "github.com/toeirei/wgkeys/internal/backup"

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/toeirei/wgkeys/internal/db"
	"github.com/toeirei/wgkeys/internal/model"
)

// Extension is appended to backup file names that lack it.
const Extension = ".zst"

// DefaultFilename returns the backup file name used when none is given.
func DefaultFilename(now time.Time) string {
	return fmt.Sprintf("wgkeys-backup-%s.json%s", now.Format("2006-01-02"), Extension)
}

// WithExtension appends Extension to name unless present.
func WithExtension(name string) string {
	if strings.HasSuffix(name, Extension) {
		return name
	}
	return name + Extension
}

// Write exports st and writes it to w.
func Write(ctx context.Context, st db.Store, w io.Writer) error {
	data, err := st.ExportDataForBackup(ctx)
	if err != nil {
		return fmt.Errorf("export backup: %w", err)
	}
	return Encode(data, w)
}

// Encode writes data as indented JSON inside a zstd stream.
func Encode(data *model.BackupData, w io.Writer) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("create zstd writer: %w", err)
	}
	enc := json.NewEncoder(zw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		_ = zw.Close()
		return fmt.Errorf("encode backup: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("flush backup: %w", err)
	}
	return nil
}

// Decode reads a backup written by Encode.
func Decode(r io.Reader) (*model.BackupData, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("create zstd reader: %w", err)
	}
	defer zr.Close()
	var data model.BackupData
	if err := json.NewDecoder(zr).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode backup: %w", err)
	}
	return &data, nil
}

// Restore replaces the contents of st with the backup read from r.
func Restore(ctx context.Context, r io.Reader, st db.Store) error {
	data, err := Decode(r)
	if err != nil {
		return err
	}
	if err := st.ImportDataFromBackup(ctx, data); err != nil {
		return fmt.Errorf("import backup: %w", err)
	}
	return nil
}

// Migrate copies everything in st into a freshly migrated store at
// targetType/targetDSN.
func Migrate(ctx context.Context, st db.Store, targetType, targetDSN string) error {
	data, err := st.ExportDataForBackup(ctx)
	if err != nil {
		return fmt.Errorf("export backup: %w", err)
	}
	target, err := db.NewStoreFromDSN(targetType, targetDSN)
	if err != nil {
		return fmt.Errorf("init target store: %w", err)
	}
	defer func() { _ = target.Close() }()
	if err := target.ImportDataFromBackup(ctx, data); err != nil {
		return fmt.Errorf("import to target: %w", err)
	}
	return nil
}
