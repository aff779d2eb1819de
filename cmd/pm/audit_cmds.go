package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Hussein-Mazeh/passman/internal/db"
	"github.com/Hussein-Mazeh/passman/internal/keyring"
)

func newAuditCmd(a *app) *cobra.Command {
	var (
		limit     int
		all       bool
		pruneDays int
	)
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the audit log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.audit == nil {
				return userError{msg: "the audit log is disabled or unavailable"}
			}
			ctx := cmd.Context()

			if pruneDays > 0 {
				n, err := db.PruneEvents(ctx, a.audit, time.Now().AddDate(0, 0, -pruneDays))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), hint.Sprintf("pruned %d events", n))
			}

			vault := a.vault
			if all {
				vault = ""
			}
			events, err := db.ListEvents(ctx, a.audit, vault, limit)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tVAULT\tACTION\tOUTCOME\tDETAIL")
			for _, e := range events {
				outcome := success.Sprint(e.Outcome)
				if e.Outcome == db.OutcomeFailed {
					outcome = errorText.Sprint(e.Outcome)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					e.At.Local().Format("2006-01-02 15:04:05"), e.Vault, e.Action, outcome, e.Detail)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "number of events to show")
	cmd.Flags().BoolVar(&all, "all", false, "show events for every vault")
	cmd.Flags().IntVar(&pruneDays, "prune-days", 0, "first delete events older than this many days")
	return cmd
}

func newKeyringCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keyring",
		Short: "Manage the master password cached in the OS keyring",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "save",
		Short: "Verify the master password and store it in the keyring",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// The password to cache never comes from the keyring itself.
			a.noKeyring = true
			svc, pw, err := a.unlockVault()
			if err != nil {
				return err
			}
			defer svc.Close()
			defer wipe(pw)

			if err := keyring.SavePassword(a.vault, pw); err != nil {
				return fmt.Errorf("save to keyring: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), success.Sprintf("Saved the master password for %s", a.vault))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "forget",
		Short: "Remove the cached master password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := keyring.DeletePassword(a.vault); err != nil {
				return fmt.Errorf("delete from keyring: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), success.Sprintf("Forgot the master password for %s", a.vault))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Report whether a master password is cached",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if keyring.HasPassword(a.vault) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", a.vault, success.Sprint("cached"))
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", a.vault, hint.Sprint("not cached"))
			}
			return nil
		},
	})
	return cmd
}
