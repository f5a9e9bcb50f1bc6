// Copyright (c) 2026 Keymaster Team
// wgkeys - WireGuard key management client
// This source code is licensed under the MIT license found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/toeirei/wgkeys/buildvars"
	"github.com/toeirei/wgkeys/internal/config"
	"github.com/toeirei/wgkeys/internal/db"
	"github.com/toeirei/wgkeys/internal/i18n"
	"github.com/toeirei/wgkeys/internal/keyscreen"
	"github.com/toeirei/wgkeys/internal/logging"
	"github.com/toeirei/wgkeys/internal/rest"
	"github.com/toeirei/wgkeys/internal/tui"
	"github.com/toeirei/wgkeys/internal/tunnel"
)

// annotationNoStore marks commands that run without opening the database.
const annotationNoStore = "wgkeys.no-store"

// app holds what PersistentPreRunE sets up for the subcommands.
type app struct {
	cfgFile string
	cfg     config.Config

	logFile *os.File
	store   db.Store
	api     *rest.Client
	mgr     *tunnel.Manager
}

// NewRootCmd creates the root command with all subcommands attached. Each
// call returns an independent tree, which keeps tests isolated.
func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "wgkeys",
		Short: "wgkeys manages the WireGuard key of this device.",
		Long: `wgkeys keeps the device's WireGuard key pair in a local database and
registers the public key with your account on the key server.

Running without a subcommand launches the interactive key screen.`,
		SilenceUsage:       true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
		RunE:               a.runKeyScreen,
	}

	cmd.Version = fmt.Sprintf("%s (commit %s, built %s)", buildvars.VersionOrDefault(version), gitCommit, buildDate)

	cmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ./wgkeys.yaml or the user config directory)")
	cmd.PersistentFlags().String("db-type", "sqlite", "Database type (sqlite, postgres, mysql)")
	cmd.PersistentFlags().String("db-dsn", "./wgkeys.db", "Database connection string (DSN)")
	cmd.PersistentFlags().String("api-url", "http://127.0.0.1:8085", "Base URL of the key API")
	cmd.PersistentFlags().String("lang", "en", `Language ("en", "de")`)
	cmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-file", "", "Write logs to this file instead of stderr")
	cmd.Flags().Bool("watch", true, "Reload the key when another wgkeys process rotates it")

	cmd.AddCommand(
		newKeyCmd(a),
		newAccountCmd(a),
		newBackupCmd(a),
		newDBCmd(a),
		newAuditCmd(a),
		newMockAPICmd(),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return cmd
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig[config.Config](cmd, config.Defaults(), &a.cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	a.cfg = cfg

	if err := logging.SetLevel(cfg.Log.Level); err != nil {
		return err
	}
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		a.logFile = f
		logging.SetOutput(f)
	}
	i18n.Init(cfg.Language)

	if cmd.Annotations[annotationNoStore] == "true" {
		return nil
	}

	store, err := db.New(cfg.Database.Type, cfg.Database.Dsn)
	if err != nil {
		return errors.New(i18n.T("config.error_init_db", err))
	}
	a.store = store
	a.api = rest.NewClient(cfg.API.URL, cfg.API.Timeout)
	a.mgr = tunnel.NewManager(store, a.api)
	return a.mgr.Load(cmd.Context())
}

func (a *app) teardown(cmd *cobra.Command, args []string) error {
	var err error
	if a.store != nil {
		err = a.store.Close()
		a.store = nil
	}
	if a.logFile != nil {
		logging.SetOutput(os.Stderr)
		_ = a.logFile.Close()
		a.logFile = nil
	}
	return err
}

// runKeyScreen launches the TUI. Logs would corrupt the alternate screen,
// so they are discarded unless a log file is configured.
func (a *app) runKeyScreen(cmd *cobra.Command, args []string) error {
	if a.logFile == nil {
		logging.SetOutput(io.Discard)
		defer logging.SetOutput(os.Stderr)
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	if path := sqliteFilePath(a.cfg.Database.Type, a.cfg.Database.Dsn); a.cfg.Watch && path != "" {
		if err := a.mgr.Watch(ctx, path); err != nil {
			logging.Warnf("key reload disabled: %v", err)
		}
	}

	return tui.Run(tunnel.NewKeyBackend(a.mgr), tui.SystemClipboard{}, keyscreen.Options{
		RefreshInterval: a.cfg.Keys.RefreshInterval,
		CopiedDuration:  a.cfg.Keys.CopiedDuration,
		DisplayLength:   a.cfg.Keys.DisplayLength,
	})
}

// sqliteFilePath returns the database file behind a sqlite DSN, or "" when
// there is no file to watch.
func sqliteFilePath(dbType, dsn string) string {
	if dbType != "sqlite" {
		return ""
	}
	path := strings.TrimPrefix(dsn, "file:")
	query := ""
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path, query = path[:i], path[i+1:]
	}
	if path == "" || path == ":memory:" || strings.Contains(query, "mode=memory") {
		return ""
	}
	return path
}

// signalContext is used by long-running commands that stop on Ctrl+C.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
