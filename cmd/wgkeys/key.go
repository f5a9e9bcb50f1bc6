// Copyright (c) 2026 Keymaster Team
// wgkeys - WireGuard key management client
// This source code is licensed under the MIT license found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/toeirei/wgkeys/internal/i18n"
	"github.com/toeirei/wgkeys/internal/keyscreen"
	"github.com/toeirei/wgkeys/internal/model"
	"github.com/toeirei/wgkeys/internal/tui"
)

// clipboardWriter is swapped in tests; CI machines have no clipboard.
var clipboardWriter keyscreen.Clipboard = tui.SystemClipboard{}

func newKeyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Show, verify, regenerate or copy the device key",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the public key and when it was generated",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := a.currentKey()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, i18n.T("cli.public_key", key.String()))
			fmt.Fprintln(out, i18n.T("cli.created", key.CreatedAt.Local().Format(time.DateTime), keyscreen.AgeLabel(key, time.Now())))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "verify",
		Short: "Check that the key is registered on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := a.currentKey()
			if err != nil {
				return err
			}
			ok, err := a.mgr.VerifyKey(cmd.Context(), *key)
			if err != nil {
				return fmt.Errorf("failed to verify the WireGuard key on server: %w", err)
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.key_invalid"))
				return errKeyInvalid
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.key_valid"))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "regenerate",
		Short: "Generate a new key pair and replace the old key on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := a.mgr.RegeneratePrivateKey(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.key_regenerated", key.String()))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "copy",
		Short: "Copy the public key to the clipboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := a.currentKey()
			if err != nil {
				return err
			}
			if err := clipboardWriter.WriteString(key.String()); err != nil {
				return fmt.Errorf("failed to copy key: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.key_copied"))
			return nil
		},
	})

	return cmd
}

// errKeyInvalid makes `key verify` exit non-zero for unregistered keys.
var errKeyInvalid = errors.New("key is not registered on the server")

func (a *app) currentKey() (*model.KeyMetadata, error) {
	info := a.mgr.TunnelInfo()
	if info == nil {
		return nil, errors.New(i18n.T("cli.not_logged_in"))
	}
	if info.Key == nil {
		return nil, errors.New(i18n.T("cli.no_key"))
	}
	return info.Key, nil
}
