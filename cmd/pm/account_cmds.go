package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	pmerr "github.com/Hussein-Mazeh/passman/internal/errors"
	"github.com/Hussein-Mazeh/passman/internal/generator"
	"github.com/Hussein-Mazeh/passman/internal/service"
	"github.com/Hussein-Mazeh/passman/internal/site"
	"github.com/Hussein-Mazeh/passman/internal/vault"
)

// recordFlags are the editable record fields shared by add and update.
type recordFlags struct {
	category string
	url      string
	username string
	notes    string
	tags     []string
	generate bool
	length   int
}

func (f *recordFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.category, "category", "", "one of "+categoryList())
	cmd.Flags().StringVar(&f.url, "url", "", "site URL")
	cmd.Flags().StringVar(&f.username, "username", "", "login name")
	cmd.Flags().StringVar(&f.notes, "notes", "", "free-form notes")
	cmd.Flags().StringArrayVar(&f.tags, "tag", nil, "tag (repeatable)")
	cmd.Flags().BoolVar(&f.generate, "generate", false, "generate the password instead of prompting")
	cmd.Flags().IntVar(&f.length, "length", 0, "generated password length")
}

func categoryList() string {
	names := make([]string, len(vault.Categories))
	for i, c := range vault.Categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

// warnURL prints any safety warnings for a record URL.
func warnURL(w io.Writer, raw string) {
	if strings.TrimSpace(raw) == "" {
		return
	}
	v, err := site.Inspect(raw)
	if err != nil {
		fmt.Fprintln(w, warning.Sprintf("warning: %v", err))
		return
	}
	for _, warn := range v.Warnings {
		fmt.Fprintln(w, warning.Sprintf("warning: %s looks unsafe (%s)", v.Host, warn))
	}
}

// accountPassword generates or prompts for a record password.
func (a *app) accountPassword(svc *service.Service, f recordFlags) (string, error) {
	if !f.generate {
		pw, err := a.readSecret("Account password: ")
		if err != nil {
			return "", err
		}
		defer wipe(pw)
		return string(pw), nil
	}

	opts := generator.DefaultOptions()
	if meta, err := svc.Metadata(); err == nil {
		opts = meta.Settings.DefaultPasswordOptions
	}
	if f.length > 0 {
		opts.Length = f.length
	}
	return generator.Generate(opts)
}

func newAddCmd(a *app) *cobra.Command {
	var f recordFlags
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, err := vault.ParseCategory(f.category)
			if err != nil {
				return err
			}
			svc, err := a.openVault()
			if err != nil {
				return err
			}
			defer svc.Close()

			warnURL(cmd.ErrOrStderr(), f.url)
			pw, err := a.accountPassword(svc, f)
			if err != nil {
				return err
			}
			rec, err := svc.AddAccount(vault.RecordInput{
				Name:     args[0],
				Category: category,
				URL:      f.url,
				Username: f.username,
				Password: pw,
				Notes:    f.notes,
				Tags:     f.tags,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, success.Sprintf("Added %s", rec.Name))
			printField(out, "ID", rec.ID.String())
			if f.generate {
				printField(out, "Password", secret.Sprint(rec.Password))
			}
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	var (
		category      string
		tag           string
		search        string
		siteURL       string
		showPasswords bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.openVault()
			if err != nil {
				return err
			}
			defer svc.Close()

			var recs []vault.Record
			switch {
			case siteURL != "":
				recs, err = svc.ForSite(siteURL)
			case search != "":
				recs, err = svc.Search(search)
			case tag != "":
				recs, err = svc.ByTag(tag)
			case category != "":
				var c vault.Category
				if c, err = vault.ParseCategory(category); err == nil {
					recs, err = svc.ByCategory(c)
				}
			default:
				recs, err = svc.Accounts()
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(recs) == 0 {
				fmt.Fprintln(out, hint.Sprint("no accounts"))
				return nil
			}
			printRecords(out, recs, showPasswords)
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "only accounts in this category")
	cmd.Flags().StringVar(&tag, "tag", "", "only accounts with this tag")
	cmd.Flags().StringVar(&search, "search", "", "match name, username, URL, notes and tags")
	cmd.Flags().StringVar(&siteURL, "site", "", "only accounts for this site's registrable domain")
	cmd.Flags().BoolVar(&showPasswords, "show-passwords", false, "include passwords in the listing")
	return cmd
}

func printRecords(w io.Writer, recs []vault.Record, showPasswords bool) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	header := "NAME\tCATEGORY\tUSERNAME\tURL\tID"
	if showPasswords {
		header += "\tPASSWORD"
	}
	fmt.Fprintln(tw, header)
	for _, r := range recs {
		line := fmt.Sprintf("%s\t%s\t%s\t%s\t%s", r.Name, r.Category, r.Username, r.URL, r.ID)
		if showPasswords {
			line += "\t" + r.Password
		}
		fmt.Fprintln(tw, line)
	}
	tw.Flush()
}

// resolve finds a record by ID or by exact name.
func resolve(svc *service.Service, ref string) (vault.Record, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return svc.Account(id)
	}
	matches, err := svc.FindByName(ref)
	if err != nil {
		return vault.Record{}, err
	}
	switch len(matches) {
	case 0:
		return vault.Record{}, fmt.Errorf("%s: %w", ref, pmerr.ErrAccountNotFound)
	case 1:
		return svc.Account(matches[0].ID)
	default:
		return vault.Record{}, userErrorf("%d accounts are named %q; use the ID", len(matches), ref)
	}
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name|id>",
		Short: "Show one account including its password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.openVault()
			if err != nil {
				return err
			}
			defer svc.Close()

			rec, err := resolve(svc, args[0])
			if err != nil {
				return err
			}
			score, name := generator.Strength(rec.Password, rec.Username, rec.Name)

			out := cmd.OutOrStdout()
			printField(out, "Name", rec.Name)
			printField(out, "ID", rec.ID.String())
			printField(out, "Category", string(rec.Category))
			printField(out, "Username", rec.Username)
			printField(out, "URL", rec.URL)
			printField(out, "Password", secret.Sprint(rec.Password))
			printField(out, "Strength", strengthText(score, name))
			printField(out, "Tags", strings.Join(rec.Tags, ", "))
			printField(out, "Notes", rec.Notes)
			printField(out, "Updated", rec.UpdatedAt.Local().Format("2006-01-02 15:04"))
			return nil
		},
	}
}

func newUpdateCmd(a *app) *cobra.Command {
	var (
		f        recordFlags
		name     string
		password bool
	)
	cmd := &cobra.Command{
		Use:   "update <name|id>",
		Short: "Change fields of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.openVault()
			if err != nil {
				return err
			}
			defer svc.Close()

			rec, err := resolve(svc, args[0])
			if err != nil {
				return err
			}
			in := vault.RecordInput{
				Name:     rec.Name,
				Category: rec.Category,
				URL:      rec.URL,
				Username: rec.Username,
				Password: rec.Password,
				Notes:    rec.Notes,
				Tags:     rec.Tags,
			}

			flags := cmd.Flags()
			if flags.Changed("name") {
				in.Name = name
			}
			if flags.Changed("category") {
				if in.Category, err = vault.ParseCategory(f.category); err != nil {
					return err
				}
			}
			if flags.Changed("url") {
				in.URL = f.url
				warnURL(cmd.ErrOrStderr(), f.url)
			}
			if flags.Changed("username") {
				in.Username = f.username
			}
			if flags.Changed("notes") {
				in.Notes = f.notes
			}
			if flags.Changed("tag") {
				in.Tags = f.tags
			}
			if password || f.generate {
				if in.Password, err = a.accountPassword(svc, f); err != nil {
					return err
				}
			}

			updated, err := svc.UpdateAccount(rec.ID, in)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), success.Sprintf("Updated %s", updated.Name))
			if f.generate {
				printField(cmd.OutOrStdout(), "Password", secret.Sprint(updated.Password))
			}
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&name, "name", "", "new account name")
	cmd.Flags().BoolVar(&password, "password", false, "prompt for a new password")
	return cmd
}

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <name|id>",
		Aliases: []string{"remove"},
		Short:   "Delete an account",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.openVault()
			if err != nil {
				return err
			}
			defer svc.Close()

			rec, err := resolve(svc, args[0])
			if err != nil {
				return err
			}
			if err := svc.DeleteAccount(rec.ID); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), success.Sprintf("Removed %s", rec.Name))
			return nil
		},
	}
}

func newGenerateCmd(a *app) *cobra.Command {
	var (
		length           int
		noUpper          bool
		noLower          bool
		noDigits         bool
		noSpecial        bool
		excludeSimilar   bool
		excludeAmbiguous bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Print a random password",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := generator.DefaultOptions()
			opts.Length = length
			opts.Upper = !noUpper
			opts.Lower = !noLower
			opts.Digits = !noDigits
			opts.Special = !noSpecial
			opts.ExcludeSimilar = opts.ExcludeSimilar || excludeSimilar
			opts.ExcludeAmbiguous = excludeAmbiguous

			pw, err := generator.Generate(opts)
			if err != nil {
				return err
			}
			score, name := generator.Strength(pw)
			fmt.Fprintln(cmd.OutOrStdout(), pw)
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", label.Sprint("strength:"), strengthText(score, name))
			return nil
		},
	}
	flags := cmd.Flags()
	flags.IntVar(&length, "length", generator.DefaultOptions().Length, "password length")
	flags.BoolVar(&noUpper, "no-upper", false, "leave out uppercase letters")
	flags.BoolVar(&noLower, "no-lower", false, "leave out lowercase letters")
	flags.BoolVar(&noDigits, "no-digits", false, "leave out digits")
	flags.BoolVar(&noSpecial, "no-special", false, "leave out special characters")
	flags.BoolVar(&excludeSimilar, "exclude-similar", false, "leave out look-alike characters such as 0 and O")
	flags.BoolVar(&excludeAmbiguous, "exclude-ambiguous", false, "leave out brackets, slashes and punctuation")
	return cmd
}
