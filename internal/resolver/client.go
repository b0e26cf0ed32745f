// Package resolver talks to the media resolver service that turns a post
// URL into a catalog of downloadable streams.
package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kataras/golog"

	"github.com/ytget/social-downloader/internal/model"
)

const (
	// DefaultEndpoint is the public resolver proxy
	DefaultEndpoint = "https://fsmvid.com/api/proxy"

	// DefaultTimeout bounds a single resolver call
	DefaultTimeout = 15 * time.Second

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/142.0.0.0 Safari/537.36"
)

// Client calls the resolver endpoint
type Client struct {
	endpoint string
	origin   string
	http     *http.Client
	cookies  *CookieCache
	log      *golog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient overrides the HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithCookies sets the cookie cache used for requests and 403 refreshes
func WithCookies(cache *CookieCache) Option {
	return func(c *Client) { c.cookies = cache }
}

// WithOrigin sets the Origin/Referer headers
func WithOrigin(origin string) Option {
	return func(c *Client) { c.origin = origin }
}

// NewClient creates a resolver client for endpoint
func NewClient(endpoint string, log *golog.Logger, opts ...Option) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if log == nil {
		log = golog.Default
	}
	c := &Client{
		endpoint: endpoint,
		origin:   "https://fsmvid.com",
		http:     &http.Client{Timeout: DefaultTimeout},
		cookies:  NewCookieCache("", nil),
		log:      log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Resolve returns the media catalog for url. A 403 answer refreshes the
// session cookie once and retries.
func (c *Client) Resolve(ctx context.Context, platform model.Platform, url string) (*model.ResolvedMedia, error) {
	body, err := json.Marshal(map[string]string{"platform": string(platform), "url": url})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	cookie := c.cookies.Current()
	resp, err := c.post(ctx, body, cookie)

	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusForbidden {
		c.log.Debugf("403 for %s, refreshing cookie", url)
		fresh, rerr := c.cookies.Refresh(ctx, cookie)
		if rerr != nil {
			return nil, fmt.Errorf("refresh cookie: %w", rerr)
		}
		resp, err = c.post(ctx, body, fresh)
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusForbidden {
			return nil, fmt.Errorf("%w: %v", ErrForbidden, err)
		}
	}
	if err != nil {
		return nil, err
	}

	media := resp.toModel()
	if !media.Succeeded() {
		return media, fmt.Errorf("%w: status=%q", ErrUnsuccessful, media.Status)
	}
	return media, nil
}

func (c *Client) post(ctx context.Context, body []byte, cookie string) (*wireResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", c.origin)
	req.Header.Set("Referer", c.origin+"/")
	req.Header.Set("User-Agent", userAgent)
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("resolver request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	var out wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode resolver response: %w", err)
	}
	return &out, nil
}
