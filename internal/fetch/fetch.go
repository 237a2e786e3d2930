// Package fetch is the outbound HTTP primitive: a GET with a fixed timeout
// and a typed error for non-success status codes.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html/charset"
)

// DefaultUserAgent mimics a desktop browser; the state sites reject bare clients.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// maxBody caps how much of a response is read.
const maxBody = 8 << 20

// StatusError is returned for responses with status >= 400.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

// Temporary reports whether the status is worth retrying.
func (e *StatusError) Temporary() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

// Client performs GET requests with a per-request timeout.
type Client struct {
	UserAgent string
	http      *http.Client
}

// NewClient creates a client. A zero timeout means 15 seconds.
func NewClient(timeout time.Duration, userAgent string) *Client {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Client{
		UserAgent: userAgent,
		http: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// Get fetches rawURL and returns the body as text.
func (c *Client) Get(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept-Language", "es-MX,es;q=0.9,en;q=0.5")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", &StatusError{Code: resp.StatusCode, URL: rawURL}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", fmt.Errorf("reading body: %w", err)
	}
	return decode(body, resp.Header.Get("Content-Type"))
}

// decode converts body to UTF-8. A charset from a BOM or the Content-Type
// header wins; otherwise valid UTF-8 is kept and anything else is decoded
// with the encoding the page declares or the HTML default.
func decode(body []byte, contentType string) (string, error) {
	enc, name, certain := charset.DetermineEncoding(body, contentType)
	if name == "utf-8" || (!certain && utf8.Valid(body)) {
		return string(body), nil
	}
	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return "", fmt.Errorf("decoding %s body: %w", name, err)
	}
	return string(out), nil
}

// ArticleText fetches a page and returns its main text via readability.
// Pages with less than 100 characters of text yield "".
func (c *Client) ArticleText(ctx context.Context, articleURL string) (string, error) {
	body, err := c.Get(ctx, articleURL)
	if err != nil {
		return "", err
	}
	parsedURL, _ := url.Parse(articleURL)
	article, err := readability.FromReader(strings.NewReader(body), parsedURL)
	if err != nil {
		return "", fmt.Errorf("extracting article: %w", err)
	}
	text := strings.TrimSpace(article.TextContent)
	if len(text) > 100 {
		return text, nil
	}
	return "", nil
}
