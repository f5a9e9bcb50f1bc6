// Copyright (c) 2026 Keymaster Team
// wgkeys - WireGuard key management client
// This source code is licensed under the MIT license found in the LICENSE file.

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/toeirei/wgkeys/internal/i18n"
	"golang.org/x/term"
)

func newAccountCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage the key server account",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create",
		Short: "Create a new account and log in with it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			acc, err := a.api.CreateAccount(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to create account: %w", err)
			}
			if err := a.mgr.Login(cmd.Context(), acc.Token); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.account_created", acc.Token))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "login [ACCOUNT]",
		Short: "Log in with an account number and register a new device key",
		Long: `Logs in with the given account number. When the number is omitted it
is read from the terminal without echo. Spaces and dashes are ignored.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var token string
			if len(args) == 1 {
				token = args[0]
			} else {
				var err error
				token, err = promptToken(cmd)
				if err != nil {
					return err
				}
			}
			if err := a.mgr.Login(cmd.Context(), token); err != nil {
				return err
			}
			info := a.mgr.TunnelInfo()
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.logged_in", info.Token))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "logout",
		Short: "Remove the device key from the account and forget the account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.mgr.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.logged_out"))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Show the account and its expiry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			info := a.mgr.TunnelInfo()
			if info == nil {
				fmt.Fprintln(out, i18n.T("cli.no_account"))
				return nil
			}
			fmt.Fprintln(out, i18n.T("cli.account", info.Token))
			if !info.Expiry.IsZero() {
				fmt.Fprintln(out, i18n.T("cli.expires", info.Expiry.Local().Format(time.DateTime)))
			}
			return nil
		},
	})

	return cmd
}

// promptToken reads an account number, hiding input on a terminal.
func promptToken(cmd *cobra.Command) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), i18n.T("cli.enter_account"))

	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return "", fmt.Errorf("failed to read account number: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read account number: %w", err)
	}
	return strings.TrimSpace(line), nil
}
