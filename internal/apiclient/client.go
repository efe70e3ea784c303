package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"mediaconv/internal/logging"
	"mediaconv/internal/services"
)

const (
	defaultUserAgent = "mediaconv/dev"
	maxErrorBody     = 64 << 10
	requestIDHeader  = "X-Request-ID"
)

// TokenSource supplies the bearer credential for the current session.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource holding a fixed credential.
type StaticToken string

// Token returns the fixed credential or services.ErrUnauthenticated when empty.
func (t StaticToken) Token(context.Context) (string, error) {
	if strings.TrimSpace(string(t)) == "" {
		return "", services.ErrUnauthenticated
	}
	return strings.TrimSpace(string(t)), nil
}

// HTTPDoer is the subset of *http.Client the Client needs.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Config describes the client configuration.
type Config struct {
	BaseURL    string
	Tokens     TokenSource
	UserAgent  string
	Timeout    time.Duration
	HTTPClient HTTPDoer
	Logger     *slog.Logger
}

// Client issues authenticated requests against the conversion backend.
type Client struct {
	baseURL   *url.URL
	tokens    TokenSource
	userAgent string
	http      HTTPDoer
	logger    *slog.Logger
}

// New creates a Client from the supplied configuration.
func New(cfg Config) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, errors.New("apiclient: base url is required")
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("apiclient: parse base url: %w", err)
	}
	if baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("apiclient: base url %q must be absolute", base)
	}
	if cfg.Tokens == nil {
		return nil, errors.New("apiclient: token source is required")
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		baseURL:   baseURL,
		tokens:    cfg.Tokens,
		userAgent: userAgent,
		http:      client,
		logger:    logging.NewComponentLogger(cfg.Logger, "apiclient"),
	}, nil
}

// Request describes one authenticated call.
type Request struct {
	// Operation names the call in errors and logs, e.g. "submit text conversion".
	Operation string
	Method    string
	// Target is an absolute URL, a host-relative reference ("/download/x"),
	// or a path joined onto the base URL ("convert/text-to-audio").
	Target string
	// JSON, when set, is encoded as the request body.
	JSON        any
	Body        io.Reader
	ContentType string
	Header      http.Header
	// Fallback is the user-facing message when the server sends no detail.
	Fallback string
}

// Payload is a binary response body.
type Payload struct {
	Data        []byte
	ContentType string
	FileName    string
}

// Resolve turns a request target into an absolute URL.
func (c *Client) Resolve(target string) (*url.URL, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, errors.New("empty target")
	}
	ref, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("parse target %q: %w", target, err)
	}
	if ref.IsAbs() {
		return ref, nil
	}
	if strings.HasPrefix(target, "/") {
		return c.baseURL.ResolveReference(ref), nil
	}
	joined := c.baseURL.JoinPath(ref.Path)
	joined.RawQuery = ref.RawQuery
	return joined, nil
}

// JSON performs the request and decodes a JSON response body into out.
func (c *Client) JSON(ctx context.Context, req Request, out any) error {
	resp, err := c.do(ctx, req, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &RequestError{Operation: req.Operation, Status: resp.StatusCode, Detail: fallback(req), Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// Bytes performs the request and returns the raw response body.
func (c *Client) Bytes(ctx context.Context, req Request) (Payload, error) {
	resp, err := c.do(ctx, req, "*/*")
	if err != nil {
		return Payload{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Payload{}, &RequestError{Operation: req.Operation, Status: resp.StatusCode, Detail: fallback(req), Err: fmt.Errorf("read response: %w", err)}
	}
	return Payload{
		Data:        data,
		ContentType: resp.Header.Get("Content-Type"),
		FileName:    dispositionFileName(resp.Header.Get("Content-Disposition")),
	}, nil
}

// do issues the request and returns a 2xx response whose body the caller must close.
func (c *Client) do(ctx context.Context, req Request, accept string) (*http.Response, error) {
	if c == nil {
		return nil, errors.New("apiclient: client is nil")
	}
	fail := func(status int, err error) *RequestError {
		return &RequestError{Operation: req.Operation, Status: status, Detail: fallback(req), Err: err}
	}

	target, err := c.Resolve(req.Target)
	if err != nil {
		return nil, fail(0, err)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, &RequestError{Operation: req.Operation, Detail: "Not signed in", Err: err}
	}

	body := req.Body
	contentType := req.ContentType
	if req.JSON != nil {
		encoded, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, fail(0, fmt.Errorf("encode request: %w", err))
		}
		body = bytes.NewReader(encoded)
		contentType = "application/json"
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, fail(0, fmt.Errorf("build request: %w", err))
	}
	for key, values := range req.Header {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	requestID, ok := services.RequestIDFromContext(ctx)
	if !ok {
		requestID = uuid.NewString()
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("Accept", accept)
	httpReq.Header.Set(requestIDHeader, requestID)

	logger := logging.WithContext(ctx, c.logger).With(
		logging.String(logging.FieldRequestID, requestID),
		logging.String("operation", req.Operation),
	)
	started := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		logger.Debug("request failed", logging.String("method", method), logging.Error(err))
		return nil, fail(0, err)
	}
	logger.Debug("request completed",
		logging.String("method", method),
		logging.Int("status", resp.StatusCode),
		logging.Duration("elapsed", time.Since(started)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		detail := extractDetail(raw)
		if detail == "" {
			detail = fallback(req)
		}
		return nil, &RequestError{Operation: req.Operation, Status: resp.StatusCode, Detail: detail}
	}
	return resp, nil
}

func fallback(req Request) string {
	if msg := strings.TrimSpace(req.Fallback); msg != "" {
		return msg
	}
	return "Request failed"
}

func dispositionFileName(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return params["filename"]
}
