// Package apiclient builds authenticated requests against the console REST API.
//
// Mutating requests fetch a CSRF token first, carry it in the X-CSRFToken
// header, and are replayed exactly once when the server answers 403.
// Non-2xx responses are returned as *HTTPError; transport failures are
// returned wrapped but otherwise untouched.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"strings"
)

// Default endpoint paths, relative to the base URL.
const (
	PathCSRF     = "api/csrf/"
	PathLogin    = "auth/login/"
	PathRegister = "auth/register/"
	PathValidate = "auth/validate/"
)

// HeaderCSRF carries the anti-forgery token on mutating requests.
const HeaderCSRF = "X-CSRFToken"

// TokenSource returns the current session token, or "" when signed out.
type TokenSource func() string

// RequestOptions tunes a single call.
type RequestOptions struct {
	// Body is JSON-encoded unless it is a *MultipartBody.
	Body any
	// Headers override the defaults.
	Headers map[string]string
	// SkipCSRF is set for endpoints that precede having a session.
	SkipCSRF bool
}

// Client is the request client shared by every resource helper.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      TokenSource
	csrfPath   string
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default client. Give it a cookie jar if the
// backend ties the CSRF token to a cookie.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTokenSource sets where the Authorization token is read from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.token = ts }
}

// WithCSRFPath overrides PathCSRF.
func WithCSRFPath(path string) Option {
	return func(c *Client) { c.csrfPath = path }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a client for baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("apiclient: base url is required")
	}

	c := &Client{
		baseURL:  baseURL,
		csrfPath: PathCSRF,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		// credentials: include
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		c.httpClient = &http.Client{Jar: jar}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

// URL joins the base URL and a resource path with exactly one slash.
func (c *Client) URL(path string) string {
	return strings.TrimRight(c.baseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get issues a GET and decodes the JSON response into out (which may be nil).
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST.
func (c *Client) Post(ctx context.Context, path string, opts *RequestOptions, out any) error {
	return c.Do(ctx, http.MethodPost, path, opts, out)
}

// Put issues a PUT.
func (c *Client) Put(ctx context.Context, path string, opts *RequestOptions, out any) error {
	return c.Do(ctx, http.MethodPut, path, opts, out)
}

// Patch issues a PATCH.
func (c *Client) Patch(ctx context.Context, path string, opts *RequestOptions, out any) error {
	return c.Do(ctx, http.MethodPatch, path, opts, out)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string, opts *RequestOptions, out any) error {
	return c.Do(ctx, http.MethodDelete, path, opts, out)
}

// Do performs one logical call. The CSRF fetch, when needed, strictly
// precedes the main request.
func (c *Client) Do(ctx context.Context, method, path string, opts *RequestOptions, out any) error {
	if opts == nil {
		opts = &RequestOptions{}
	}

	payload, contentType, err := encodeBody(opts.Body)
	if err != nil {
		return err
	}

	withCSRF := isMutating(method) && !opts.SkipCSRF
	var csrf string
	if withCSRF {
		if csrf, err = c.fetchCSRF(ctx); err != nil {
			return err
		}
	}

	resp, err := c.send(ctx, method, path, payload, contentType, csrf, opts.Headers)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusForbidden && withCSRF {
		drain(resp)
		c.logger.Warn("Request rejected with 403, refreshing csrf token", "method", method, "path", path)

		if csrf, err = c.fetchCSRF(ctx); err != nil {
			return err
		}
		if resp, err = c.send(ctx, method, path, payload, contentType, csrf, opts.Headers); err != nil {
			return err
		}
	}
	defer drain(resp)

	return decodeResponse(resp, out)
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, contentType, csrf string, headers map[string]string) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL(path), body)
	if err != nil {
		return nil, fmt.Errorf("build request %s %s: %w", method, path, err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", contentType)
	if csrf != "" {
		req.Header.Set(HeaderCSRF, csrf)
	}
	if c.token != nil {
		if token := c.token(); token != "" {
			req.Header.Set("Authorization", "Token "+token)
		}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	c.logger.Debug("API request", "method", method, "url", req.URL.String(), "csrf", csrf != "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func (c *Client) fetchCSRF(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(c.csrfPath), nil)
	if err != nil {
		return "", &CSRFError{Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &CSRFError{Err: err}
	}
	defer drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &CSRFError{Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var body struct {
		CSRFToken string `json:"csrfToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", &CSRFError{Err: fmt.Errorf("decode body: %w", err)}
	}
	if body.CSRFToken == "" {
		return "", &CSRFError{Err: ErrCSRFTokenMissing}
	}
	return body.CSRFToken, nil
}

func encodeBody(body any) ([]byte, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "application/json", nil
	case *MultipartBody:
		return b.encode()
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", fmt.Errorf("encode request body: %w", err)
		}
		return data, "application/json", nil
	}
}

func decodeResponse(resp *http.Response, out any) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPError{
			Status:     resp.StatusCode,
			StatusText: statusText(resp),
			Data:       errorData(data),
		}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}

func errorData(data []byte) json.RawMessage {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	if json.Valid(data) {
		return json.RawMessage(data)
	}
	quoted, _ := json.Marshal(string(data))
	return quoted
}

func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		return http.StatusText(resp.StatusCode)
	}
	return text
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
