package client

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Response struct {
	StatusCode int
	Body       []byte
}

type Interface interface {
	Get(ctx context.Context, path string) (*Response, error)
	PostForm(ctx context.Context, path string, form url.Values) (*Response, error)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	GetFunc    func(ctx context.Context, path string) (*Response, error)
	PostFunc   func(ctx context.Context, path string, form url.Values) (*Response, error)
}

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

func New(opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}

	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}

	return &Client{
		baseURL: opts.BaseURL,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		maxRetries: opts.MaxRetries,
	}
}

// retryBackoff is the base delay between attempts; attempt n waits n times
// this long.
const retryBackoff = 200 * time.Millisecond

func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	if c.GetFunc != nil {
		return c.GetFunc(ctx, path)
	}

	return c.do(ctx, http.MethodGet, c.fullURL(path), "", "")
}

func (c *Client) PostForm(ctx context.Context, path string, form url.Values) (*Response, error) {
	if c.PostFunc != nil {
		return c.PostFunc(ctx, path, form)
	}

	return c.do(ctx, http.MethodPost, c.fullURL(path), "application/x-www-form-urlencoded", form.Encode())
}

func (c *Client) fullURL(path string) string {
	if c.baseURL == "" {
		return path // If no base URL, treat path as full URL
	}
	return c.baseURL + path
}

// do sends the request, retrying transport failures up to maxRetries
// attempts. HTTP error statuses are not retried; callers decide what a 4xx
// or 5xx means.
func (c *Client) do(ctx context.Context, method, fullURL, contentType, body string) (*Response, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * retryBackoff):
			}
		}

		var reader io.Reader
		if body != "" {
			reader = strings.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
		if err != nil {
			return nil, err
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		return &Response{
			StatusCode: resp.StatusCode,
			Body:       respBody,
		}, nil
	}

	return nil, lastErr
}
