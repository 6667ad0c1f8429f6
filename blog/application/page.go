package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/net/html/charset"
)

const browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.114 Safari/537.36"

// ErrFetchPage is returned when the source page cannot be retrieved.
var ErrFetchPage = errors.New("failed to fetch page")

// PageSource retrieves the HTML of an article page.
type PageSource interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// HTTPPageSource fetches pages over HTTP presenting a desktop browser
// User-Agent, since some sites refuse unknown clients.
type HTTPPageSource struct {
	client  *http.Client
	timeout time.Duration
}

var _ PageSource = (*HTTPPageSource)(nil)

func NewHTTPPageSource(client *http.Client, timeout time.Duration) *HTTPPageSource {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &HTTPPageSource{client: client, timeout: timeout}
}

// Fetch returns the page body decoded to UTF-8. Network failures and
// non-2xx responses wrap ErrFetchPage.
func (s *HTTPPageSource) Fetch(ctx context.Context, pageURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetchPage, err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetchPage, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: unexpected status %s", ErrFetchPage, resp.Status)
	}

	reader, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", fmt.Errorf("%w: failed to detect charset: %v", ErrFetchPage, err)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read body: %v", ErrFetchPage, err)
	}

	return string(body), nil
}
