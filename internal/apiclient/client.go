// Package apiclient is the single point of HTTP communication with the
// Kandra backend. It attaches the session token, normalizes response field
// names and turns every failure into a user notification plus an *Error.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/blockedby/kandra/internal/logger"
	"github.com/blockedby/kandra/internal/notify"
	"github.com/blockedby/kandra/internal/session"
)

const maxBodySize = 10 << 20

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	RateLimit  float64
	Burst      int
	HTTPClient *http.Client
}

// Client talks to the backend REST API.
type Client struct {
	baseURL    string
	timeout    time.Duration
	http       *http.Client
	limiter    *limiter
	session    *session.Session
	notifier   notify.Notifier
	redirector notify.Redirector
	log        *logger.Logger
}

// New creates a client. A nil session starts signed out with an in-memory
// token; nil notifier or redirector are replaced by no-ops.
func New(opts Options, sess *session.Session, notifier notify.Notifier, redirector notify.Redirector, log *logger.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	if sess == nil {
		sess = session.New(nil)
	}
	if notifier == nil {
		notifier = notify.Multi{}
	}
	if redirector == nil {
		redirector = notify.RedirectorFunc(func(context.Context) {})
	}

	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		timeout:    opts.Timeout,
		http:       httpClient,
		limiter:    newLimiter(opts.RateLimit, opts.Burst),
		session:    sess,
		notifier:   notifier,
		redirector: redirector,
		log:        logger.OrGet(log).Component("apiclient"),
	}
}

// Session returns the session the client reads its token from.
func (c *Client) Session() *session.Session {
	return c.session
}

// ConfigureToken sets the bearer token for every subsequent request. An
// empty token signs out. Requests already sent are unaffected.
func (c *Client) ConfigureToken(ctx context.Context, token string) error {
	return c.session.Configure(ctx, token)
}

// Do issues method on path. body may be nil, a *Multipart or any JSON value.
// A 2xx response is normalized and decoded into out (when non-nil).
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}) error {
	return c.do(ctx, method, path, body, out, true)
}

// doAnonymous issues a request without the Authorization header.
func (c *Client) doAnonymous(ctx context.Context, method, path string, body, out interface{}) error {
	return c.do(ctx, method, path, body, out, false)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}, withToken bool) error {
	reader, contentType, err := encodeBody(body)
	if err != nil {
		return &Error{Kind: KindValidation, Message: err.Error(), Err: err}
	}

	// the wait for a send slot counts against the same bound as the request
	wctx, cancel := context.WithTimeout(ctx, c.timeout)
	err = c.limiter.Wait(wctx)
	cancel()
	if err != nil {
		return c.fail(ctx, method, path, "", transportError(ctx, err))
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Kind: KindValidation, Message: fmt.Sprintf("build request: %v", err), Err: err}
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	// read once: a token change after this point never touches this request
	var token string
	if withToken {
		token = c.session.Token()
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return c.fail(ctx, method, path, token, transportError(ctx, err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return c.fail(ctx, method, path, token, transportError(ctx, err))
	}

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Str("request_id", requestID).
		Dur("took", time.Since(start)).
		Msg("request done")

	if resp.StatusCode == http.StatusTooManyRequests {
		c.limiter.Backoff(retryAfter(resp.Header.Get("Retry-After")), c.timeout)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.fail(ctx, method, path, token, classify(resp.StatusCode, data, token != ""))
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	normalized, err := normalizeBody(data)
	if err == nil {
		err = json.Unmarshal(normalized, out)
	}
	if err != nil {
		return c.fail(ctx, method, path, token, &Error{
			Kind:    KindServer,
			Status:  resp.StatusCode,
			Message: MsgServerError,
			Err:     fmt.Errorf("decode response: %w", err),
		})
	}
	return nil
}

// fail reports e to the user and returns it.
func (c *Client) fail(ctx context.Context, method, path, token string, e *Error) error {
	evt := c.log.Warn()
	if e.Kind == KindServer || e.Kind == KindTransport {
		evt = c.log.Error()
	}
	evt.Err(e.Err).
		Str("method", method).
		Str("path", path).
		Int("status", e.Status).
		Str("kind", string(e.Kind)).
		Msg(e.Message)

	// the caller gave up; nothing to tell the user
	if e.Kind == KindTransport && errors.Is(ctx.Err(), context.Canceled) {
		return e
	}

	// detached so a canceled caller context cannot drop the notification
	nctx := context.WithoutCancel(ctx)

	switch e.Kind {
	case KindTransport:
		c.notify(nctx, notify.LevelError, notify.KindConnectivity, e.Message)
	case KindUnauthorized:
		// only the request that actually clears the token reacts, so a burst
		// of 401s redirects once
		cleared, err := c.session.ClearIf(nctx, token)
		if err != nil {
			c.log.Error().Err(err).Msg("expired token still persisted")
		}
		if cleared {
			c.notify(nctx, notify.LevelWarning, notify.KindSessionExpired, e.Message)
			c.redirector.RedirectToLogin(nctx)
		}
	case KindValidation:
		c.notify(nctx, notify.LevelWarning, notify.KindValidation, e.Message)
	default:
		c.notify(nctx, notify.LevelError, notify.KindServer, e.Message)
	}
	return e
}

func (c *Client) notify(ctx context.Context, level notify.Level, kind notify.Kind, msg string) {
	c.notifier.Notify(ctx, notify.Notification{
		Level:   level,
		Kind:    kind,
		Message: msg,
		At:      time.Now(),
	})
}

func transportError(ctx context.Context, err error) *Error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return &Error{Kind: KindTransport, Message: MsgCanceled, Err: err}
	}
	return &Error{Kind: KindTransport, Message: MsgConnectivity, Err: err}
}

func encodeBody(body interface{}) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case *Multipart:
		buf, ct, err := b.encode()
		if err != nil {
			return nil, "", err
		}
		return buf, ct, nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", fmt.Errorf("encode request body: %w", err)
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

// retryAfter parses a Retry-After header given in seconds.
func retryAfter(v string) time.Duration {
	if secs, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return time.Second
}
