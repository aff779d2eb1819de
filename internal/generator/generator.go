// Package generator produces random passwords and scores password strength.
package generator

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/nbutton23/zxcvbn-go"

	pmerr "github.com/Hussein-Mazeh/passman/internal/errors"
)

const (
	upperChars     = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerChars     = "abcdefghijklmnopqrstuvwxyz"
	digitChars     = "0123456789"
	specialChars   = "!@#$%^&*()_+-=[]{}|;:,.<>?"
	similarChars   = "0OIl1|"
	ambiguousChars = "{}[]()\\/~,;.<>"

	// MaxLength bounds a single generated password.
	MaxLength = 1000
)

// Options selects the character classes and length of a generated password.
type Options struct {
	Length           int  `json:"length"`
	Upper            bool `json:"upper"`
	Lower            bool `json:"lower"`
	Digits           bool `json:"digits"`
	Special          bool `json:"special"`
	ExcludeSimilar   bool `json:"excludeSimilar"`
	ExcludeAmbiguous bool `json:"excludeAmbiguous"`
}

// DefaultOptions returns a 16 character password using every class, without
// visually similar characters.
func DefaultOptions() Options {
	return Options{
		Length:         16,
		Upper:          true,
		Lower:          true,
		Digits:         true,
		Special:        true,
		ExcludeSimilar: true,
	}
}

func (o Options) validate() error {
	switch {
	case o.Length <= 0:
		return pmerr.Wrap(pmerr.KindInvalidInput, "generate password", fmt.Errorf("length must be greater than 0"))
	case o.Length > MaxLength:
		return pmerr.Wrap(pmerr.KindInvalidInput, "generate password", fmt.Errorf("length must be at most %d", MaxLength))
	case !o.Upper && !o.Lower && !o.Digits && !o.Special:
		return pmerr.Wrap(pmerr.KindInvalidInput, "generate password", fmt.Errorf("at least one character class must be enabled"))
	}
	return nil
}

func (o Options) classes() []string {
	var sets []string
	add := func(enabled bool, chars string) {
		if !enabled {
			return
		}
		chars = o.strip(chars)
		if chars != "" {
			sets = append(sets, chars)
		}
	}
	add(o.Upper, upperChars)
	add(o.Lower, lowerChars)
	add(o.Digits, digitChars)
	add(o.Special, specialChars)
	return sets
}

func (o Options) strip(chars string) string {
	return strings.Map(func(r rune) rune {
		if o.ExcludeSimilar && strings.ContainsRune(similarChars, r) {
			return -1
		}
		if o.ExcludeAmbiguous && strings.ContainsRune(ambiguousChars, r) {
			return -1
		}
		return r
	}, chars)
}

// Generate returns a random password with at least one character from every
// enabled class.
func Generate(o Options) (string, error) {
	if err := o.validate(); err != nil {
		return "", err
	}
	sets := o.classes()
	if len(sets) == 0 {
		return "", pmerr.Wrap(pmerr.KindInvalidInput, "generate password", fmt.Errorf("no characters available"))
	}
	all := strings.Join(sets, "")

	out := make([]byte, 0, o.Length)
	for _, set := range sets {
		if len(out) == o.Length {
			break
		}
		c, err := pick(set)
		if err != nil {
			return "", err
		}
		out = append(out, c)
	}
	for len(out) < o.Length {
		c, err := pick(all)
		if err != nil {
			return "", err
		}
		out = append(out, c)
	}
	if err := shuffle(out); err != nil {
		return "", err
	}
	return string(out), nil
}

func pick(set string) (byte, error) {
	n, err := randInt(len(set))
	if err != nil {
		return 0, err
	}
	return set[n], nil
}

func shuffle(b []byte) error {
	for i := len(b) - 1; i > 0; i-- {
		j, err := randInt(i + 1)
		if err != nil {
			return err
		}
		b[i], b[j] = b[j], b[i]
	}
	return nil
}

func randInt(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, pmerr.Wrap(pmerr.KindCrypto, "read random", err)
	}
	return int(v.Int64()), nil
}

// Strength scores pw from 0 (weakest) to 4 using zxcvbn and returns a label.
// userInputs are words the score should penalise, such as the vault owner.
func Strength(pw string, userInputs ...string) (int, string) {
	if pw == "" {
		return 0, Label(0)
	}
	score := zxcvbn.PasswordStrength(pw, userInputs).Score
	return score, Label(score)
}

// Label names a zxcvbn score.
func Label(score int) string {
	switch score {
	case 0:
		return "very weak"
	case 1:
		return "weak"
	case 2:
		return "fair"
	case 3:
		return "strong"
	default:
		return "very strong"
	}
}
