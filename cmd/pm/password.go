package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/awnumar/memguard"
	"golang.org/x/term"

	"github.com/Hussein-Mazeh/passman/internal/keyring"
)

// EnvPassword supplies the master password non-interactively.
const EnvPassword = "PASSMAN_PASSWORD"

type passwordSource string

const (
	sourceEnv     passwordSource = "env"
	sourceKeyring passwordSource = "keyring"
	sourcePrompt  passwordSource = "prompt"
)

// masterPassword returns the vault's master password from $PASSMAN_PASSWORD,
// the OS keyring or an interactive prompt, in that order.
func (a *app) masterPassword() ([]byte, passwordSource, error) {
	if pw, ok := os.LookupEnv(EnvPassword); ok && pw != "" {
		return []byte(pw), sourceEnv, nil
	}
	if !a.noKeyring {
		pw, err := keyring.GetPassword(a.vault)
		switch {
		case err == nil:
			return pw, sourceKeyring, nil
		case !errors.Is(err, keyring.ErrNotFound):
			a.log.Debug().Err(err).Msg("keyring lookup failed")
		}
	}
	pw, err := a.readSecret(fmt.Sprintf("Master password for %s: ", a.vault))
	if err != nil {
		return nil, "", err
	}
	return pw, sourcePrompt, nil
}

// newMasterPassword asks for a new master password twice. $PASSMAN_PASSWORD
// is used as is when set.
func (a *app) newMasterPassword(prompt string) ([]byte, error) {
	if pw, ok := os.LookupEnv(EnvPassword); ok && pw != "" {
		return []byte(pw), nil
	}
	return a.readConfirmed(prompt)
}

func (a *app) readConfirmed(prompt string) ([]byte, error) {
	pw, err := a.readSecret(prompt)
	if err != nil {
		return nil, err
	}
	again, err := a.readSecret("Repeat: ")
	if err != nil {
		wipe(pw)
		return nil, err
	}
	defer wipe(again)
	if !bytes.Equal(pw, again) {
		wipe(pw)
		return nil, userError{msg: "passwords do not match"}
	}
	return pw, nil
}

// readSecret reads a secret without echo from a terminal, or one line from
// stdin otherwise.
func (a *app) readSecret(prompt string) ([]byte, error) {
	if a.interactive {
		fmt.Fprint(os.Stderr, prompt)
		pw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return nil, fmt.Errorf("read password: %w", err)
		}
		if len(pw) == 0 {
			return nil, userError{msg: "password is required"}
		}
		return pw, nil
	}

	line, err := a.in.ReadString('\n')
	if err != nil && line == "" {
		return nil, userErrorf("no password on stdin; set %s or run in a terminal", EnvPassword)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return nil, userError{msg: "password is required"}
	}
	return []byte(line), nil
}

func wipe(b []byte) {
	memguard.WipeBytes(b)
}
