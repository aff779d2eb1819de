package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/nbutton23/zxcvbn-go"

	pmerr "github.com/Hussein-Mazeh/passman/internal/errors"
)

const (
	specialChars = "!\"#$%&'()*+,-./:;<=>?@[\\]^_{|}~`"

	// MaxPasswordLength bounds master passwords.
	MaxPasswordLength = 128
)

// PolicyOptions tunes master password validation.
type PolicyOptions struct {
	MinLength int
	// MinScore is the minimum zxcvbn score (0-4). Zero disables the check.
	MinScore int
	// CheckBreach queries the HIBP range API and rejects known-breached passwords.
	CheckBreach bool
	// UserInputs are words zxcvbn should penalise, such as the owner's email.
	UserInputs []string
	// Breach overrides the HIBP client, mostly for tests.
	Breach *HIBPClient
}

// DefaultPolicyOptions returns the policy applied to new master passwords.
func DefaultPolicyOptions() PolicyOptions {
	return PolicyOptions{MinLength: 12, MinScore: 3}
}

// ValidateMasterPassword applies the master password policy requirements.
func ValidateMasterPassword(ctx context.Context, pw string, opts PolicyOptions) error {
	if err := checkComposition(pw, opts.MinLength); err != nil {
		return pmerr.Wrap(pmerr.KindInvalidInput, "validate master password", err)
	}

	if opts.MinScore > 0 {
		if score := zxcvbn.PasswordStrength(pw, opts.UserInputs).Score; score < opts.MinScore {
			return pmerr.Wrap(pmerr.KindInvalidInput, "validate master password",
				fmt.Errorf("password is too easy to guess (strength %d of 4, need %d)", score, opts.MinScore))
		}
	}

	if opts.CheckBreach {
		client := opts.Breach
		if client == nil {
			client = DefaultHIBPClient()
		}
		res, err := client.Check(ctx, pw)
		if err != nil {
			return fmt.Errorf("breach check: %w", err)
		}
		if res.Found {
			return pmerr.Wrap(pmerr.KindInvalidInput, "validate master password",
				fmt.Errorf("password appears in %d known breaches", res.Count))
		}
	}
	return nil
}

func checkComposition(pw string, minLen int) error {
	n := utf8.RuneCountInString(pw)
	if minLen <= 0 {
		minLen = DefaultPolicyOptions().MinLength
	}
	if n < minLen {
		return fmt.Errorf("password must be at least %d characters long", minLen)
	}
	if n > MaxPasswordLength {
		return fmt.Errorf("password must be at most %d characters long", MaxPasswordLength)
	}
	if !hasUpper(pw) {
		return errors.New("password must include an uppercase letter")
	}
	if !hasLower(pw) {
		return errors.New("password must include a lowercase letter")
	}
	if !hasDigit(pw) {
		return errors.New("password must include a digit")
	}
	if !hasSpecial(pw) {
		return errors.New("password must include a special character")
	}
	return nil
}

func hasUpper(s string) bool {
	for _, r := range s {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

func hasLower(s string) bool {
	for _, r := range s {
		if unicode.IsLower(r) {
			return true
		}
	}
	return false
}

func hasDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func hasSpecial(s string) bool {
	for _, r := range s {
		if strings.ContainsRune(specialChars, r) {
			return true
		}
	}
	return false
}
