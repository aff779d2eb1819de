// Package site reduces account URLs to registrable domains and flags URLs
// that look unsafe to store credentials against.
package site

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"

	pmerr "github.com/Hussein-Mazeh/passman/internal/errors"
)

// Warning names a reason a URL looks unsafe.
type Warning string

const (
	WarnInsecure    Warning = "INSECURE_SCHEME"
	WarnPunycode    Warning = "PUNYCODE"
	WarnMixedScript Warning = "MIXED_SCRIPT"
	WarnNoDomain    Warning = "NO_REGISTRABLE_DOMAIN"
)

// Verdict is the result of inspecting one URL.
type Verdict struct {
	Host     string
	Domain   string
	Warnings []Warning
}

// OK reports whether no warning was raised.
func (v Verdict) OK() bool { return len(v.Warnings) == 0 }

// Domain returns the eTLD+1 of a URL or bare host.
//
// Args:
//
//	raw: URL as stored on a record, with or without a scheme.
//
// Returns:
//
//	string: lowercase ASCII registrable domain, such as github.com.
//	error: InvalidInput when no host can be found or publicsuffix rejects it.
func Domain(raw string) (string, error) {
	host, err := hostOf(raw)
	if err != nil {
		return "", err
	}
	return registrable(host)
}

// SameSite reports whether two URLs share a registrable domain.
func SameSite(a, b string) bool {
	da, err := Domain(a)
	if err != nil {
		return false
	}
	db, err := Domain(b)
	if err != nil {
		return false
	}
	return da == db
}

// Inspect resolves the domain of raw and collects warnings.
//
// Behavior:
//  1. URLs without a scheme are treated as https.
//  2. Plain http, punycode labels and hosts mixing scripts are flagged.
//  3. Hosts without a registrable domain, such as IP addresses, are flagged.
func Inspect(raw string) (Verdict, error) {
	u, err := parse(raw)
	if err != nil {
		return Verdict{}, err
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	v := Verdict{Host: host}

	if !strings.EqualFold(u.Scheme, "https") {
		v.Warnings = append(v.Warnings, WarnInsecure)
	}
	ascii := host
	if converted, err := idna.Lookup.ToASCII(host); err == nil && converted != "" {
		ascii = converted
	}
	unicodeHost := host
	if converted, err := idna.Lookup.ToUnicode(host); err == nil && converted != "" {
		unicodeHost = converted
	}
	if strings.Contains(ascii, "xn--") {
		v.Warnings = append(v.Warnings, WarnPunycode)
	}
	if mixedScript(unicodeHost) {
		v.Warnings = append(v.Warnings, WarnMixedScript)
	}

	if d, err := registrable(ascii); err == nil {
		v.Domain = d
	} else {
		v.Warnings = append(v.Warnings, WarnNoDomain)
	}
	return v, nil
}

func parse(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, pmerr.Wrap(pmerr.KindInvalidInput, "parse url", fmt.Errorf("url is empty"))
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, pmerr.Wrap(pmerr.KindInvalidInput, "parse url", err)
	}
	if u.Hostname() == "" {
		return nil, pmerr.Wrap(pmerr.KindInvalidInput, "parse url", fmt.Errorf("%q has no host", raw))
	}
	return u, nil
}

func hostOf(raw string) (string, error) {
	u, err := parse(raw)
	if err != nil {
		return "", err
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if ascii, err := idna.Lookup.ToASCII(host); err == nil && ascii != "" {
		host = ascii
	}
	return host, nil
}

func registrable(host string) (string, error) {
	if net.ParseIP(host) != nil {
		return "", pmerr.Wrap(pmerr.KindInvalidInput, "resolve domain", fmt.Errorf("%s is an IP address", host))
	}
	d, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return "", pmerr.Wrap(pmerr.KindInvalidInput, "resolve domain", err)
	}
	return strings.ToLower(d), nil
}

func mixedScript(host string) bool {
	var seen *unicode.RangeTable
	for _, r := range host {
		t := script(r)
		if t == nil {
			continue
		}
		if seen != nil && seen != t {
			return true
		}
		seen = t
	}
	return false
}

var scripts = []*unicode.RangeTable{
	unicode.Latin, unicode.Cyrillic, unicode.Greek,
	unicode.Hiragana, unicode.Katakana, unicode.Han,
}

func script(r rune) *unicode.RangeTable {
	for _, t := range scripts {
		if unicode.Is(t, r) {
			return t
		}
	}
	return nil
}
