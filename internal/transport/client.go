// Package transport fetches calendar feeds over HTTP with optional
// authentication.
package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/syncals/syncals/pkg/constants"
	"github.com/syncals/syncals/pkg/errors"
)

// DefaultHTTPTimeout is the default timeout for HTTP requests.
var DefaultHTTPTimeout = constants.DefaultHTTPTimeout

// UserAgent is sent with every request.
const UserAgent = "syncals"

// Client provides HTTP client functionality with authentication.
type Client struct {
	http   *http.Client
	auth   Authenticator
	secret string
}

// Option configures a Client.
type Option func(*Client)

// WithAuth applies auth with secret to every request.
func WithAuth(auth Authenticator, secret string) Option {
	return func(cl *Client) {
		cl.auth = auth
		cl.secret = secret
	}
}

// New creates a new transport client.
func New(opts ...Option) *Client {
	c := &Client{
		http: &http.Client{Timeout: DefaultHTTPTimeout},
		auth: &NoAuth{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FeedURL rewrites webcal:// to https://.
func FeedURL(url string) string {
	if rest, ok := strings.CutPrefix(url, "webcal://"); ok {
		return "https://" + rest
	}
	return url
}

// Get fetches url and returns the body. Any status other than 200 is an
// error.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	url = FeedURL(url)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.WrapResource("create", "request", "GET "+url, err)
	}
	if c.secret != "" {
		c.auth.Apply(req, c.secret)
	}
	req.Header.Set("Accept", "text/calendar, */*;q=0.5")
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.WrapResource("fetch", "calendar", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.WrapResource("fetch", "calendar", url, fmt.Errorf("status %s", resp.Status))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WrapIO("read", url, err)
	}
	return body, nil
}
