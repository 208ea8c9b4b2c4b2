// Package fetch issues JSON requests with a bounded, fixed-spacing retry loop.
//
// Every request is retried until it succeeds, the context is cancelled, the
// server answers 404, or Policy.Attempts is exhausted. Exhaustion surfaces as
// an *UnavailableError, which matches ErrServiceUnavailable.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const maxBody = 4 << 20

// Policy bounds the retry loop. Spacing is constant between attempts.
type Policy struct {
	Attempts int
	Spacing  time.Duration
}

// DefaultPolicy allows 20 attempts spaced 100ms apart.
var DefaultPolicy = Policy{Attempts: 20, Spacing: 100 * time.Millisecond}

// ErrServiceUnavailable is matched by errors returned after every attempt failed.
var ErrServiceUnavailable = errors.New("API error. Please retry again soon.")

type Kind int

const (
	KindUnknown Kind = iota
	KindTransport
	KindDecode
	KindStatus
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindDecode:
		return "decode"
	case KindStatus:
		return "status"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Error describes a single failed attempt. Body holds the raw response body
// for status failures.
type Error struct {
	Kind       Kind
	Method     string
	URL        string
	StatusCode int
	Body       []byte
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: %s (status %d): %v", e.Method, e.URL, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %s: %v", e.Method, e.URL, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// UnavailableError is returned once the retry budget is spent.
type UnavailableError struct {
	URL      string
	Attempts int
	Last     error
}

func (e *UnavailableError) Error() string { return ErrServiceUnavailable.Error() }

func (e *UnavailableError) Is(target error) bool { return target == ErrServiceUnavailable }

func (e *UnavailableError) Unwrap() error { return e.Last }

// KindOf reports the Kind of the last attempt behind err.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// StatusOf returns the HTTP status behind err, or 0.
func StatusOf(err error) int {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.StatusCode
	}
	return 0
}

type Client struct {
	HTTPClient *http.Client
	Policy     Policy
	UserAgent  string
	Log        *zap.Logger

	// BeforeAttempt, when set, runs before every request attempt. A non-nil
	// error aborts the call.
	BeforeAttempt func(ctx context.Context) error

	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures the Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTPClient = hc }
}

func WithPolicy(p Policy) Option {
	return func(c *Client) { c.Policy = p }
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.UserAgent = ua }
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.Log = log }
}

func WithBeforeAttempt(fn func(ctx context.Context) error) Option {
	return func(c *Client) { c.BeforeAttempt = fn }
}

func New(opts ...Option) *Client {
	c := &Client{
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		Policy:     DefaultPolicy,
		UserAgent:  "aninfo/1.0",
		Log:        zap.NewNop(),
		sleep:      sleepCtx,
	}
	for _, o := range opts {
		o(c)
	}
	if c.Policy.Attempts < 1 {
		c.Policy.Attempts = 1
	}
	if c.Policy.Spacing < 0 {
		c.Policy.Spacing = 0
	}
	if c.Log == nil {
		c.Log = zap.NewNop()
	}
	return c
}

// With returns a copy of c with opts applied. c itself is left untouched.
func (c *Client) With(opts ...Option) *Client {
	cp := *c
	for _, o := range opts {
		o(&cp)
	}
	return &cp
}

// Request is a single logical call. Body, when non-nil, is sent as JSON.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   any
}

// Response carries the decoded value and the response metadata.
type Response[T any] struct {
	Value      T
	StatusCode int
	Header     http.Header
}

// GetJSON fetches url and decodes the body into T, retrying per the policy.
func GetJSON[T any](ctx context.Context, c *Client, url string, header http.Header) (T, error) {
	resp, err := Do[T](ctx, c, Request{Method: http.MethodGet, URL: url, Header: header})
	if err != nil {
		var zero T
		return zero, err
	}
	return resp.Value, nil
}

// PostJSON sends body as JSON and decodes the reply into T, retrying per the policy.
func PostJSON[T any](ctx context.Context, c *Client, url string, body any, header http.Header) (T, error) {
	resp, err := Do[T](ctx, c, Request{Method: http.MethodPost, URL: url, Header: header, Body: body})
	if err != nil {
		var zero T
		return zero, err
	}
	return resp.Value, nil
}

// Do runs req through the retry loop.
func Do[T any](ctx context.Context, c *Client, req Request) (*Response[T], error) {
	payload, err := encodeBody(req.Body)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Method: req.Method, URL: req.URL, Err: err}
	}

	attempts := max(c.Policy.Attempts, 1)
	sleep := c.sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	log := c.logger()

	var last error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			log.Debug("retrying request",
				zap.String("url", req.URL), zap.Int("attempt", attempt), zap.Duration("delay", c.Policy.Spacing))
			if err := sleep(ctx, c.Policy.Spacing); err != nil {
				return nil, err
			}
		}
		if err := c.beforeAttempt(ctx); err != nil {
			return nil, err
		}
		resp, err := once[T](ctx, c, req, payload)
		if err == nil {
			return resp, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if KindOf(err) == KindNotFound {
			return nil, err
		}
		last = err
	}

	log.Warn("request failed", zap.String("url", req.URL), zap.Int("attempts", attempts), zap.Error(last))
	return nil, &UnavailableError{URL: req.URL, Attempts: attempts, Last: last}
}

func (c *Client) beforeAttempt(ctx context.Context) error {
	if c.BeforeAttempt == nil {
		return nil
	}
	return c.BeforeAttempt(ctx)
}

func (c *Client) logger() *zap.Logger {
	if c.Log == nil {
		return zap.NewNop()
	}
	return c.Log
}

// Once performs exactly one attempt and returns its *Error on failure.
func Once[T any](ctx context.Context, c *Client, req Request) (*Response[T], error) {
	payload, err := encodeBody(req.Body)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Method: req.Method, URL: req.URL, Err: err}
	}
	if err := c.beforeAttempt(ctx); err != nil {
		return nil, err
	}
	return once[T](ctx, c, req, payload)
}

// OncePostJSON is PostJSON without retries.
func OncePostJSON[T any](ctx context.Context, c *Client, url string, body any, header http.Header) (T, error) {
	resp, err := Once[T](ctx, c, Request{Method: http.MethodPost, URL: url, Header: header, Body: body})
	if err != nil {
		var zero T
		return zero, err
	}
	return resp.Value, nil
}

func encodeBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	return json.Marshal(body)
}

func once[T any](ctx context.Context, c *Client, r Request, payload []byte) (*Response[T], error) {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.URL, body)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Method: method, URL: r.URL, Err: err}
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Method: method, URL: r.URL, Err: err}
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, &Error{Kind: KindTransport, Method: method, URL: r.URL, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, &Error{Kind: KindNotFound, Method: method, URL: r.URL, StatusCode: resp.StatusCode,
			Body: b, Err: fmt.Errorf("body=%q", snippet(b))}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Kind: KindStatus, Method: method, URL: r.URL, StatusCode: resp.StatusCode,
			Body: b, Err: fmt.Errorf("body=%q", snippet(b))}
	}

	out := &Response[T]{StatusCode: resp.StatusCode, Header: resp.Header.Clone()}
	if len(bytes.TrimSpace(b)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(b, &out.Value); err != nil {
		return nil, &Error{Kind: KindDecode, Method: method, URL: r.URL, StatusCode: resp.StatusCode,
			Err: fmt.Errorf("decode error: %w body=%q", err, snippet(b))}
	}
	return out, nil
}

func snippet(b []byte) string {
	return strings.TrimSpace(string(b[:min(len(b), 200)]))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
