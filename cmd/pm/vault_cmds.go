package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	pmerr "github.com/Hussein-Mazeh/passman/internal/errors"
	"github.com/Hussein-Mazeh/passman/internal/keyring"
	"github.com/Hussein-Mazeh/passman/internal/service"
)

func newInitCmd(a *app) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a new vault",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := service.New(a.vault, a.options())
			if err != nil {
				return err
			}
			if svc.Exists() {
				return fmt.Errorf("%s: %w", a.vault, pmerr.ErrVaultExists)
			}

			pw, err := a.newMasterPassword("New master password: ")
			if err != nil {
				return err
			}
			defer wipe(pw)

			stop := a.startSpinner("Deriving vault key...")
			err = svc.Init(strings.TrimSpace(email), pw)
			stop()
			if err != nil {
				return err
			}
			defer svc.Close()

			fmt.Fprintln(cmd.OutOrStdout(), success.Sprintf("Created vault %s", a.vault))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "owner email address")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newVaultsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "vaults",
		Short: "List vaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := service.ListVaults(a.paths())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(names) == 0 {
				fmt.Fprintln(out, hint.Sprint("no vaults; create one with pm init"))
				return nil
			}
			for _, name := range names {
				marker := " "
				if name == a.cfg.DefaultVault {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %s\n", marker, name)
			}
			return nil
		},
	}
}

func newDeleteVaultCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete-vault <name>",
		Short: "Delete a vault and all of its backups",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if !yes {
				fmt.Fprintf(cmd.ErrOrStderr(), "Type %s to delete it and every backup: ", name)
				answer, err := a.in.ReadString('\n')
				if err != nil && answer == "" {
					return userError{msg: "confirmation required; pass --yes"}
				}
				if strings.TrimSpace(answer) != name {
					return userError{msg: "aborted"}
				}
			}

			if err := service.DeleteVault(name, a.options()); err != nil {
				return err
			}
			if !a.noKeyring {
				if err := keyring.DeletePassword(name); err != nil {
					a.log.Warn().Err(err).Msg("could not remove keyring entry")
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), success.Sprintf("Deleted vault %s", name))
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "do not ask for confirmation")
	return cmd
}

func newPasswdCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "passwd",
		Short: "Change the master password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, current, err := a.unlockVault()
			if err != nil {
				return err
			}
			defer svc.Close()
			defer wipe(current)
			next, err := a.readConfirmed("New master password: ")
			if err != nil {
				return err
			}
			defer wipe(next)

			stop := a.startSpinner("Re-encrypting vault...")
			err = svc.ChangeMaster(current, next)
			stop()
			if err != nil {
				return err
			}

			if !a.noKeyring && keyring.HasPassword(a.vault) {
				if err := keyring.SavePassword(a.vault, next); err != nil {
					a.log.Warn().Err(err).Msg("could not update keyring entry")
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), success.Sprint("Master password changed"))
			return nil
		},
	}
}

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the vault file and its backups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := service.New(a.vault, a.options())
			if err != nil {
				return err
			}
			info, err := svc.Info()
			if err != nil {
				return err
			}
			backups, err := svc.Backups()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printField(out, "Vault", a.vault)
			printField(out, "Path", info.Path)
			printField(out, "Size", fmt.Sprintf("%d bytes", info.Size))
			printField(out, "Modified", info.Modified.Local().Format("2006-01-02 15:04:05"))
			printField(out, "Backups", fmt.Sprintf("%d", len(backups)))
			if len(backups) > 0 {
				printField(out, "Latest", backups[0].Taken.Local().Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export <path>",
		Short: "Write the vault to an export file under the current key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.openVault()
			if err != nil {
				return err
			}
			defer svc.Close()

			if err := svc.Export(args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), success.Sprintf("Exported to %s", args[0]))
			fmt.Fprintln(cmd.ErrOrStderr(), hint.Sprint("the export can only be imported while this master password is unchanged"))
			return nil
		},
	}
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <path>",
		Short: "Replace the vault contents with an export file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.openVault()
			if err != nil {
				return err
			}
			defer svc.Close()

			if err := svc.Import(args[0]); err != nil {
				if errors.Is(err, pmerr.ErrDecrypt) {
					return userErrorf("%s was not exported under this vault's current key", args[0])
				}
				return err
			}
			accounts, err := svc.Accounts()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), success.Sprintf("Imported %d accounts", len(accounts)))
			return nil
		},
	}
}
