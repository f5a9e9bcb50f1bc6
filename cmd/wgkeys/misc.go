// Copyright (c) 2026 Keymaster Team
// wgkeys - WireGuard key management client
// This source code is licensed under the MIT license found in the LICENSE file.

package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/toeirei/wgkeys/buildvars"
	"github.com/toeirei/wgkeys/internal/apiserver"
	"github.com/toeirei/wgkeys/internal/config"
	"github.com/toeirei/wgkeys/internal/i18n"
	"github.com/toeirei/wgkeys/internal/logging"
)

func newAuditCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Print the local audit log, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := a.store.GetAllAuditLogEntries(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Timestamp.Local().Format(time.DateTime), e.Username, e.Action, e.Details)
			}
			return w.Flush()
		},
	}
}

func newMockAPICmd() *cobra.Command {
	var listen string
	var keyLimit int
	cmd := &cobra.Command{
		Use:         "mock-api",
		Short:       "Serve an in-memory key API for development",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationNoStore: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			srv := apiserver.New(apiserver.WithKeyLimit(keyLimit))
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.mock_api_listening", listen))
			logging.Infof("mock key API listening on %s", listen)
			return srv.ListenAndServe(ctx, listen)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", ":8085", "Address to listen on")
	cmd.Flags().IntVar(&keyLimit, "key-limit", 5, "Maximum keys per account")
	return cmd
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	var system bool
	write := &cobra.Command{
		Use:         "write",
		Short:       "Write the effective configuration to the config file",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationNoStore: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.WriteConfigFile(&a.cfg, system)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.config_written", path))
			return nil
		},
	}
	write.Flags().BoolVar(&system, "system", false, "Write the system-wide file instead of the user file")
	cmd.AddCommand(write)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationNoStore: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "wgkeys %s\ncommit: %s\nbuilt:  %s\n", buildvars.VersionOrDefault(version), gitCommit, buildDate)
		},
	}
}
