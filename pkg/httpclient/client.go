package httpclient

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/nsouzarj/craweb/pkg/errors"
	"github.com/nsouzarj/craweb/pkg/logger"
	"github.com/nsouzarj/craweb/pkg/tracing"
)

// HeaderRequestID carries a per-call identifier, stable across the retry.
const HeaderRequestID = "X-Request-ID"

const tracerName = "github.com/nsouzarj/craweb/pkg/httpclient"

// Config holds HTTP client configuration
type Config struct {
	Timeout time.Duration
	// MaxRetries is the number of immediate re-sends after a failed attempt.
	MaxRetries int
	// RetryNonIdempotent also retries POST and PATCH. A retried mutation can
	// duplicate a side effect whose response was lost.
	RetryNonIdempotent bool
	MaxConnsPerHost    int
	// NotifyDuration is how long a notification stays on screen.
	NotifyDuration time.Duration
}

// DefaultConfig returns the console defaults: one retry, 8s notifications.
func DefaultConfig() Config {
	return Config{
		Timeout:         30 * time.Second,
		MaxRetries:      1,
		MaxConnsPerHost: 10,
		NotifyDuration:  8 * time.Second,
	}
}

// Doer is anything that can execute a request through the interceptor.
// Both Client and CircuitBreakerClient satisfy it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// SessionExpiredHandler runs when an authenticated request comes back 401.
// bearer is the credential the rejected request carried.
type SessionExpiredHandler func(ctx context.Context, bearer string)

// Client wraps http.Client and intercepts every request: it retries once,
// classifies the final failure, logs it and notifies the user.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     *slog.Logger
	notifier   Notifier
	onExpired  SessionExpiredHandler
	metrics    *Metrics
	tracer     trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for failure diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithNotifier sets where user-facing notifications go.
func WithNotifier(n Notifier) Option {
	return func(c *Client) { c.notifier = n }
}

// WithSessionExpiredHandler sets the hook run on an authenticated 401.
func WithSessionExpiredHandler(h SessionExpiredHandler) Option {
	return func(c *Client) { c.onExpired = h }
}

// WithMetrics records request outcomes into m.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithTransport replaces the underlying round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.httpClient.Transport = rt }
}

// New creates a new intercepting HTTP client.
func New(cfg Config, opts ...Option) *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          cfg.MaxConnsPerHost,
		MaxIdleConnsPerHost:   cfg.MaxConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	c := &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		config:   cfg,
		logger:   logger.Discard(),
		notifier: nopNotifier{},
		tracer:   tracing.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do executes req. On a 2xx it returns the response untouched. Otherwise
// it returns a *errors.AppError wrapping the original cause, after logging
// and notifying. Context cancellation is returned as-is and never notified.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	requestID := req.Header.Get(HeaderRequestID)
	if requestID == "" {
		requestID = uuid.NewString()
		req.Header.Set(HeaderRequestID, requestID)
	}
	ctx = logger.WithRequestID(ctx, requestID)

	ctx, span := c.tracer.Start(ctx, "HTTP "+req.Method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.full", req.URL.String()),
		),
	)
	defer span.End()
	tracing.InjectHTTP(ctx, req.Header)

	attempts := 1
	if c.retryable(req) {
		attempts += c.config.MaxRetries
	}

	var (
		resp *http.Response
		err  error
	)
	for attempt := 0; attempt < attempts; attempt++ {
		r := req.WithContext(ctx)
		if attempt > 0 {
			// The previous answer is kept until the body can be replayed, so
			// a failed replay still reports it.
			if req.GetBody != nil {
				body, gerr := req.GetBody()
				if gerr != nil {
					c.logger.WarnContext(ctx, "cannot replay request body",
						slog.String("url", req.URL.String()),
						slog.String("error", gerr.Error()),
					)
					break
				}
				r.Body = body
			}
			if resp != nil {
				drain(resp)
				resp = nil
			}
			c.metrics.retried(req.Method)
			c.logger.DebugContext(ctx, "retrying request",
				slog.String("method", req.Method),
				slog.String("url", req.URL.String()),
			)
		}

		resp, err = c.httpClient.Do(r)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				span.SetStatus(codes.Error, ctxErr.Error())
				return nil, ctxErr
			}
			continue
		}

		span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			c.metrics.succeeded(req.Method)
			return resp, nil
		}
	}

	var appErr *apperrors.AppError
	if resp != nil {
		appErr = ParseResponseError(resp)
	} else {
		appErr = apperrors.Connectivity(err)
	}
	appErr.URL = req.URL.String()

	span.SetStatus(codes.Error, string(appErr.Kind))
	if err != nil {
		span.RecordError(err)
	}
	c.report(ctx, req, appErr)
	return nil, appErr
}

// report logs a classified failure, updates metrics and either notifies
// the user or, for an authenticated 401, runs the session-expired hook.
func (c *Client) report(ctx context.Context, req *http.Request, appErr *apperrors.AppError) {
	c.metrics.failed(req.Method, appErr.Kind)

	logger.WithContext(ctx, c.logger).ErrorContext(ctx, "http request failed",
		slog.String("kind", string(appErr.Kind)),
		slog.Int("status", appErr.Status),
		slog.String("status_text", appErr.StatusText),
		slog.String("method", req.Method),
		slog.String("url", appErr.URL),
		slog.String("body", appErr.Body),
		slog.String("message", appErr.Message),
	)

	if appErr.Kind == apperrors.KindSessionExpired {
		// A 401 on a credential exchange means bad credentials, not an
		// expired session.
		if bearer := BearerToken(req); c.onExpired != nil && bearer != "" {
			c.onExpired(ctx, bearer)
		}
		return
	}

	c.notifier.Notify(ctx, Notification{
		Kind:     appErr.Kind,
		Message:  appErr.Message,
		Duration: c.config.NotifyDuration,
	})
}

// BearerToken returns the credential of req's Authorization header, or "".
func BearerToken(req *http.Request) string {
	h := req.Header.Get("Authorization")
	if len(h) > len("Bearer ") && strings.EqualFold(h[:len("Bearer ")], "Bearer ") {
		return strings.TrimSpace(h[len("Bearer "):])
	}
	return ""
}

// retryable reports whether req may be re-sent after a failure.
func (c *Client) retryable(req *http.Request) bool {
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		return false
	}
	if c.config.RetryNonIdempotent {
		return true
	}
	switch req.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace,
		http.MethodPut, http.MethodDelete:
		return true
	default:
		return false
	}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	_ = resp.Body.Close()
}
