// Copyright (c) 2026 Keymaster Team
// wgkeys - WireGuard key management client
// This source code is licensed under the MIT license found in the LICENSE file.

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	cfg "github.com/toeirei/wgkeys/internal/config"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())

	got, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, cfg.Defaults(), nil)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if got.Database.Type != "sqlite" || got.Database.Dsn != "./wgkeys.db" {
		t.Fatalf("unexpected database defaults: %+v", got.Database)
	}
	if got.Keys.RefreshInterval != 60*time.Second {
		t.Fatalf("expected 60s refresh interval, got %s", got.Keys.RefreshInterval)
	}
	if got.Keys.CopiedDuration != 3*time.Second {
		t.Fatalf("expected 3s copied duration, got %s", got.Keys.CopiedDuration)
	}
	if got.Keys.DisplayLength != 20 {
		t.Fatalf("expected display length 20, got %d", got.Keys.DisplayLength)
	}
	if !got.Watch {
		t.Fatalf("expected watch enabled by default")
	}
}

func TestLoadConfig_ReadsExplicitFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	tmp := t.TempDir()
	yaml := "database:\n  type: postgres\n  dsn: postgresql://user@/db\nlanguage: de\nkeys:\n  refresh_interval: 30s\n"
	file := filepath.Join(tmp, "cfg.yaml")
	if err := os.WriteFile(file, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	got, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, cfg.Defaults(), &file)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if got.Database.Type != "postgres" {
		t.Fatalf("expected postgres, got %q", got.Database.Type)
	}
	if got.Language != "de" {
		t.Fatalf("expected de, got %q", got.Language)
	}
	if got.Keys.RefreshInterval != 30*time.Second {
		t.Fatalf("expected 30s refresh interval, got %s", got.Keys.RefreshInterval)
	}
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	file := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := os.WriteFile(file, []byte("api:\n  url: http://file\n"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	t.Setenv("WGKEYS_API_URL", "http://env")

	got, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, cfg.Defaults(), &file)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if got.API.URL != "http://env" {
		t.Fatalf("expected env to win, got %q", got.API.URL)
	}
}

func TestLoadConfig_FlagOverridesEnv(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("WGKEYS_LANGUAGE", "de")

	cmd := &cobra.Command{}
	cmd.Flags().String("lang", "en", "")
	if err := cmd.Flags().Set("lang", "en"); err != nil {
		t.Fatalf("set flag: %v", err)
	}

	got, err := cfg.LoadConfig[cfg.Config](cmd, cfg.Defaults(), nil)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if got.Language != "en" {
		t.Fatalf("expected explicit flag to win, got %q", got.Language)
	}
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	file := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(file, []byte("database: [unterminated"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, cfg.Defaults(), &file); err == nil {
		t.Fatalf("expected error for malformed config")
	}
}

func TestWriteConfigFile_CreatesFile(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)

	c := cfg.Config{}
	c.Database.Type = "sqlite"
	c.Database.Dsn = "./wgkeys.db"
	c.Language = "en"

	path, err := cfg.WriteConfigFile(&c, false)
	if err != nil {
		t.Fatalf("WriteConfigFile failed: %v", err)
	}
	want, err := cfg.GetConfigPath(false)
	if err != nil {
		t.Fatalf("GetConfigPath failed: %v", err)
	}
	if path != want {
		t.Fatalf("expected path %s, got %s", want, path)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected config file at %s, stat error: %v", path, err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600 permissions, got %v", info.Mode().Perm())
	}
}
