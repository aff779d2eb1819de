package generator_test

import (
	"strings"
	"testing"

	pmerr "github.com/Hussein-Mazeh/passman/internal/errors"
	"github.com/Hussein-Mazeh/passman/internal/generator"
)

func TestGenerateHonoursLengthAndClasses(t *testing.T) {
	opts := generator.DefaultOptions()
	opts.Length = 24

	for i := 0; i < 50; i++ {
		pw, err := generator.Generate(opts)
		if err != nil {
			t.Fatalf("Generate returned error: %v", err)
		}
		if len(pw) != 24 {
			t.Fatalf("expected 24 characters, got %d", len(pw))
		}
		if !strings.ContainsAny(pw, "ABCDEFGHJKLMNPQRSTUVWXYZ") ||
			!strings.ContainsAny(pw, "abcdefghijkmnopqrstuvwxyz") ||
			!strings.ContainsAny(pw, "23456789") ||
			!strings.ContainsAny(pw, "!@#$%^&*()_+-=[]{};:,.<>?") {
			t.Fatalf("password %q is missing a character class", pw)
		}
		if strings.ContainsAny(pw, "0OIl1|") {
			t.Fatalf("password %q contains a similar character", pw)
		}
	}
}

func TestGenerateDigitsOnly(t *testing.T) {
	pw, err := generator.Generate(generator.Options{Length: 8, Digits: true})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if strings.Trim(pw, "0123456789") != "" {
		t.Fatalf("expected digits only, got %q", pw)
	}
}

func TestGenerateRejectsInvalidOptions(t *testing.T) {
	cases := map[string]generator.Options{
		"zero length": {Length: 0, Lower: true},
		"too long":    {Length: generator.MaxLength + 1, Lower: true},
		"no classes":  {Length: 10},
	}
	for name, opts := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := generator.Generate(opts); !pmerr.Is(err, pmerr.KindInvalidInput) {
				t.Fatalf("expected InvalidInput, got %v", err)
			}
		})
	}
}

func TestStrength(t *testing.T) {
	weak, _ := generator.Strength("password")
	strong, label := generator.Strength("vN7#qT!r2@Lz9$wXk4")
	if weak >= strong {
		t.Fatalf("expected %d < %d", weak, strong)
	}
	if label == "" {
		t.Fatalf("expected a label")
	}
	if score, _ := generator.Strength(""); score != 0 {
		t.Fatalf("empty password scored %d", score)
	}
}
