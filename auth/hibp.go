package auth

import (
	"bufio"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultHIBPURL is the Pwned Passwords range endpoint.
const DefaultHIBPURL = "https://api.pwnedpasswords.com/range/"

// HIBPResult reports how often a password appears in known breaches.
type HIBPResult struct {
	Found bool
	Count int
}

// HIBPClient queries a Pwned Passwords range endpoint. Only the first five
// hex digits of the password's SHA-1 are sent.
type HIBPClient struct {
	BaseURL string
	HTTP    *http.Client
}

// DefaultHIBPClient targets the public API with a short timeout.
func DefaultHIBPClient() *HIBPClient {
	return &HIBPClient{
		BaseURL: DefaultHIBPURL,
		HTTP:    &http.Client{Timeout: 4 * time.Second},
	}
}

// Check looks pw up in the breach corpus. Transport failures are returned to
// the caller, which decides whether to fail open or closed.
func (c *HIBPClient) Check(ctx context.Context, pw string) (HIBPResult, error) {
	prefix, suffix := hashRange(pw)

	body, err := c.fetch(ctx, prefix)
	if err != nil {
		return HIBPResult{}, err
	}
	defer body.Close()

	count, err := scanRange(body, suffix)
	if err != nil {
		return HIBPResult{}, err
	}
	return HIBPResult{Found: count > 0, Count: count}, nil
}

func hashRange(pw string) (prefix, suffix string) {
	sum := sha1.Sum([]byte(pw))
	h := strings.ToUpper(hex.EncodeToString(sum[:]))
	return h[:5], h[5:]
}

func (c *HIBPClient) fetch(ctx context.Context, prefix string) (io.ReadCloser, error) {
	base := c.BaseURL
	if base == "" {
		base = DefaultHIBPURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+prefix, nil)
	if err != nil {
		return nil, fmt.Errorf("build breach query: %w", err)
	}
	req.Header.Set("User-Agent", "passman")
	req.Header.Set("Add-Padding", "true")

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("breach query: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("breach query: %s", resp.Status)
	}
	return resp.Body, nil
}

// scanRange finds suffix in a "SUFFIX:COUNT" listing. Padding rows carry a
// zero count and never match a real hash.
func scanRange(r io.Reader, suffix string) (int, error) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		hash, count, ok := strings.Cut(strings.TrimSpace(sc.Text()), ":")
		if !ok || !strings.EqualFold(hash, suffix) {
			continue
		}
		n, err := strconv.Atoi(count)
		if err != nil {
			return 0, fmt.Errorf("breach query: bad count %q", count)
		}
		return n, nil
	}
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("read breach listing: %w", err)
	}
	return 0, nil
}
