package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Hussein-Mazeh/passman/auth"
	"github.com/Hussein-Mazeh/passman/internal/config"
	"github.com/Hussein-Mazeh/passman/internal/db"
	"github.com/Hussein-Mazeh/passman/internal/logging"
	"github.com/Hussein-Mazeh/passman/internal/service"
	"github.com/Hussein-Mazeh/passman/store"
)

const cliVersion = "0.2.0"

// app holds the state shared by every command of one invocation.
type app struct {
	vault     string
	verbose   bool
	debug     bool
	noKeyring bool

	// interactive is set when stdin is a terminal.
	interactive bool

	cfg   config.Config
	log   zerolog.Logger
	audit *db.DB
	in    *bufio.Reader
}

func newApp() *app {
	return &app{log: logging.Nop(), interactive: isTerminal(os.Stdin)}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "pm",
		Short:         "pm - a local, encrypted password vault",
		Long:          "pm keeps accounts and passwords in vault files encrypted with a key derived from your master password.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.vault, "vault", "v", "", "vault name (default from config)")
	flags.BoolVar(&a.verbose, "verbose", false, "enable verbose output")
	flags.BoolVar(&a.debug, "debug", false, "enable debug output")
	flags.BoolVar(&a.noKeyring, "no-keyring", false, "never read the master password from the OS keyring")

	root.AddCommand(
		newInitCmd(a),
		newAddCmd(a),
		newListCmd(a),
		newShowCmd(a),
		newUpdateCmd(a),
		newRemoveCmd(a),
		newGenerateCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newVaultsCmd(a),
		newDeleteVaultCmd(a),
		newPasswdCmd(a),
		newInfoCmd(a),
		newAuditCmd(a),
		newKeyringCmd(a),
		newVersionCmd(),
	)
	return root
}

// setup loads the configuration, builds the logger and opens the audit log.
func (a *app) setup(cmd *cobra.Command) error {
	a.in = bufio.NewReader(cmd.InOrStdin())

	root, err := config.DefaultRoot()
	if err != nil {
		return err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := cfg.Log.Level
	switch {
	case a.debug:
		level = "debug"
	case a.verbose:
		level = "info"
	}
	a.log = logging.New(os.Stderr, level, cfg.Log.Format)

	if a.vault == "" {
		a.vault = cfg.DefaultVault
	}
	if err := store.ValidateName(a.vault); err != nil {
		return err
	}

	if cfg.Audit.Enabled {
		d, err := db.Open(cfg.AuditPath())
		if err != nil {
			a.log.Warn().Err(err).Msg("audit log unavailable")
		} else {
			a.audit = d
		}
	}
	a.log.Debug().Str("root", cfg.Root).Str("vault", a.vault).Msg("configuration loaded")
	return nil
}

func (a *app) teardown() error {
	if a.audit == nil {
		return nil
	}
	err := a.audit.Close()
	a.audit = nil
	return err
}

func (a *app) paths() store.Paths {
	return store.Paths{Root: a.cfg.Root}
}

// options builds the service options from the loaded configuration.
func (a *app) options() service.Options {
	opts := service.Options{
		Paths: a.paths(),
		Session: auth.Config{
			MaxFailedAttempts: a.cfg.Session.MaxFailedAttempts,
			Timeout:           a.cfg.SessionTimeout(),
		},
		BackupRetention: a.cfg.Backup.Retention,
		Policy: auth.PolicyOptions{
			MinLength:   a.cfg.Policy.MinLength,
			MinScore:    a.cfg.Policy.MinScore,
			CheckBreach: a.cfg.Policy.CheckBreach,
		},
		Logger: a.log,
	}
	if a.audit != nil {
		opts.Audit = a.audit
	}
	return opts
}

// openVault opens the selected vault with the master password from the
// environment, the keyring or a prompt. The caller must Close it.
func (a *app) openVault() (*service.Service, error) {
	svc, pw, err := a.unlockVault()
	wipe(pw)
	return svc, err
}

// unlockVault is openVault for callers that need the master password again.
// The caller must wipe it.
func (a *app) unlockVault() (*service.Service, []byte, error) {
	svc, err := service.New(a.vault, a.options())
	if err != nil {
		return nil, nil, err
	}
	if !svc.Exists() {
		return nil, nil, userErrorf("vault %q does not exist; create it with pm init", a.vault)
	}

	pw, src, err := a.masterPassword()
	if err != nil {
		return nil, nil, err
	}

	stop := a.startSpinner("Unlocking vault...")
	err = svc.Open(pw)
	stop()
	if err != nil {
		wipe(pw)
		if src == sourceKeyring {
			a.log.Warn().Msg("the password cached in the keyring was rejected; run pm keyring forget")
		}
		return nil, nil, err
	}
	a.log.Info().Str("source", string(src)).Msg("vault unlocked")
	return svc, pw, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the pm version",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), cliVersion)
		},
	}
}
