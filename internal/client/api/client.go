// Package api wraps the REST transport: bearer token injection, structured
// request/response logging, exponential backoff retries for transient
// failures, one refresh-and-resubmit cycle on auth errors, and error
// classification for everything that still fails.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/KreatechIT/mrs-sub000/internal/client/token"
)

const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultBackoffBase = time.Second
)

// TokenProvider supplies bearer tokens for outgoing requests and the
// recovery refresh used when a request comes back 401/403.
type TokenProvider interface {
	ValidAccessToken(ctx context.Context) string
	Refresh(ctx context.Context) (token.AuthTokens, error)
}

// Response is the uniform result of a successful call.
type Response struct {
	Status  int
	Data    json.RawMessage
	Message string
}

// Client is the HTTP client all domain services go through.
type Client struct {
	baseURL     string
	hc          *http.Client
	tokens      TokenProvider
	log         *zap.Logger
	maxRetries  uint64
	backoffBase time.Duration

	listeners listenerRegistry

	mu       sync.Mutex
	attempts map[string]int
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

func WithMaxRetries(n uint64) Option {
	return func(c *Client) { c.maxRetries = n }
}

func WithBackoffBase(d time.Duration) Option {
	return func(c *Client) { c.backoffBase = d }
}

func New(baseURL string, tokens TokenProvider, log *zap.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:     baseURL,
		hc:          &http.Client{Timeout: DefaultTimeout},
		tokens:      tokens,
		log:         log,
		maxRetries:  DefaultMaxRetries,
		backoffBase: DefaultBackoffBase,
		attempts:    map[string]int{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// AddErrorListener registers a synchronous observer for classified errors
// and returns a handle for removal.
func (c *Client) AddErrorListener(fn ErrorListener) int {
	return c.listeners.add(fn)
}

func (c *Client) RemoveErrorListener(id int) {
	c.listeners.remove(id)
}

func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.request(ctx, http.MethodGet, path, nil)
}

func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.request(ctx, http.MethodPost, path, body)
}

func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.request(ctx, http.MethodPut, path, body)
}

func (c *Client) Patch(ctx context.Context, path string, body any) (*Response, error) {
	return c.request(ctx, http.MethodPatch, path, body)
}

func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.request(ctx, http.MethodDelete, path, nil)
}

// UploadFile submits a multipart form. The form is rendered once so retries
// resubmit identical bytes.
func (c *Client) UploadFile(ctx context.Context, method, path string, fields map[string]string, fileField, fileName string, file []byte) (*Response, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("write field %s: %w", k, err)
		}
	}
	if fileField != "" && len(file) > 0 {
		fw, err := mw.CreateFormFile(fileField, fileName)
		if err != nil {
			return nil, err
		}
		if _, err := fw.Write(file); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return c.do(ctx, method, path, mw.FormDataContentType(), buf.Bytes(), false)
}

func (c *Client) request(ctx context.Context, method, path string, body any) (*Response, error) {
	var payload []byte
	contentType := ""
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		payload = b
		contentType = "application/json"
	}
	return c.do(ctx, method, path, contentType, payload, false)
}

// do runs one logical request: transient classified errors are retried with
// exponential backoff, then an auth failure gets a single
// refresh-and-resubmit pass. authRetried guards that pass so a request can
// never loop through recovery twice.
func (c *Client) do(ctx context.Context, method, path, contentType string, payload []byte, authRetried bool) (*Response, error) {
	key := method + "_" + path
	var out *Response

	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.backoffBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, err := c.once(ctx, method, path, contentType, payload)
		if err == nil {
			c.resetAttempts(key)
			out = resp
			return nil
		}
		pe := Classify(err)
		c.report(pe)
		attempt := c.bumpAttempts(key)
		if pe.Retryable && pe.Type != ErrorTypeAuth {
			c.log.Warn("retrying request",
				zap.String("request", key),
				zap.Int("attempt", attempt),
				zap.Int("status", pe.Status))
			return retry.RetryableError(pe)
		}
		return pe
	})
	if err == nil {
		return out, nil
	}

	var pe *ProcessedError
	if errors.As(err, &pe) && pe.RequiresAuth && !authRetried {
		if _, rerr := c.tokens.Refresh(ctx); rerr == nil {
			c.log.Info("auth recovered, resubmitting request", zap.String("request", key))
			return c.do(ctx, method, path, contentType, payload, true)
		}
	}
	return nil, err
}

// once performs a single request/response exchange. A non-2xx response is
// returned as *httpError for classification.
func (c *Client) once(ctx context.Context, method, path, contentType string, payload []byte) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if tok := c.tokens.ValidAccessToken(ctx); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rid, _ := gonanoid.New()
	req.Header.Set("X-Request-ID", rid)

	c.log.Debug("api request",
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", rid))

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, &httpError{Method: method, Path: path, Status: resp.StatusCode, Body: body}
	}

	c.log.Debug("api response",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", rid))
	return &Response{Status: resp.StatusCode, Data: body, Message: bodyMessage(body)}, nil
}

// report logs the classified error at a level proportional to its category
// and fans it out to registered listeners.
func (c *Client) report(pe *ProcessedError) {
	fields := []zap.Field{
		zap.String("type", string(pe.Type)),
		zap.Int("status", pe.Status),
		zap.String("message", pe.Message),
	}
	switch pe.Type {
	case ErrorTypeServer, ErrorTypeUnknown:
		c.log.Error("api call failed", fields...)
	default:
		c.log.Warn("api call failed", fields...)
	}
	c.listeners.notify(c.log, pe)
}

func (c *Client) bumpAttempts(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempts[key]++
	return c.attempts[key]
}

func (c *Client) resetAttempts(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.attempts, key)
}
