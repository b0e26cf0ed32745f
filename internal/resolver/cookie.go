package resolver

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// CookieSource produces a fresh Cookie header value for the resolver
type CookieSource interface {
	Cookie(ctx context.Context) (string, error)
}

// StaticCookie always returns the configured header value
type StaticCookie string

// Cookie implements CookieSource
func (s StaticCookie) Cookie(context.Context) (string, error) {
	return string(s), nil
}

// CommandCookie runs an external program whose stdout is the Cookie header,
// e.g. a headless browser script.
type CommandCookie struct {
	Path string
	Args []string
}

// Cookie implements CookieSource
func (c CommandCookie) Cookie(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("cookie command failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(string(out)), nil
}

// FileCookie reads a Netscape cookies.txt file and joins it into a header
type FileCookie string

// Cookie implements CookieSource
func (f FileCookie) Cookie(context.Context) (string, error) {
	file, err := os.Open(string(f))
	if err != nil {
		return "", fmt.Errorf("open cookie file: %w", err)
	}
	defer file.Close()

	var pairs []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// domain flag path secure expiration name value
		parts := strings.Split(line, "\t")
		if len(parts) < 7 {
			continue
		}
		pairs = append(pairs, parts[5]+"="+parts[6])
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read cookie file: %w", err)
	}
	return strings.Join(pairs, "; "), nil
}

// CookieCache holds the current session cookie. Concurrent callers that saw
// the same stale value trigger a single refresh.
type CookieCache struct {
	mu     sync.Mutex
	value  string
	source CookieSource
}

// NewCookieCache creates a cache seeded with initial
func NewCookieCache(initial string, source CookieSource) *CookieCache {
	return &CookieCache{value: initial, source: source}
}

// Current returns the cached cookie
func (c *CookieCache) Current() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Refresh replaces stale with a fresh cookie. If another caller already
// refreshed it, the newer value is returned without calling the source.
func (c *CookieCache) Refresh(ctx context.Context, stale string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.value != stale && c.value != "" {
		return c.value, nil
	}
	if c.source == nil {
		return c.value, nil
	}

	fresh, err := c.source.Cookie(ctx)
	if err != nil {
		return "", err
	}
	c.value = fresh
	return fresh, nil
}
