// Package httpclient provides the HTTP transport used by the gateway. It builds
// requests against a configured server, decorates them with the bearer token and a
// request id, applies a client-side rate limit and retries idempotent reads on
// transport failures. Non-success status codes are not errors at this layer: the
// raw status and body are returned so the caller can classify them. Only transport
// failures are returned as errors, classified into the apperrors taxonomy.
package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/pubsync/pubsync/internal/common/apperrors"
	"github.com/pubsync/pubsync/internal/common/logtrace"
	"github.com/pubsync/pubsync/internal/common/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Configurator provides the server location and the current credentials.
// The token is read on every request so that login and logout take effect
// without rebuilding the client.
type Configurator interface {
	GetServerURL() string
	GetToken() string
}

var (
	ErrInvalidServerURL = apperrors.ErrClientValidation.New("invalid server URL")
	ErrRequestCanceled  = apperrors.ErrUnknown.New("request canceled")
)

// Response is the raw outcome of a request that reached the server.
type Response struct {
	StatusCode int
	Body       []byte
	Location   string
}

// HTTPClient makes requests to the content API.
type HTTPClient struct {
	config        Configurator
	httpClient    *http.Client
	limiter       *rate.Limiter
	retryAttempts uint
	retryDelay    time.Duration
}

// ClientOptions contains options for configuring the HTTP client.
type ClientOptions struct {
	Timeout       time.Duration // per request, 0 means no client timeout
	RateLimit     float64       // requests per second, 0 disables limiting
	RateBurst     int           // burst size for the limiter, defaults to 1
	RetryAttempts uint          // total attempts for GET requests, defaults to 1
	RetryDelay    time.Duration // base delay between GET attempts
	Transport     http.RoundTripper
}

// NewClient creates a new HTTP client using the provided configuration.
func NewClient(config Configurator, opts ...ClientOptions) *HTTPClient {
	clientOpts := ClientOptions{}
	if len(opts) > 0 {
		clientOpts = opts[0]
	}
	return NewClientWithOptions(config, clientOpts)
}

// NewClientWithOptions creates a new HTTP client using the provided configuration and options.
func NewClientWithOptions(config Configurator, opts ClientOptions) *HTTPClient {
	httpClient := &http.Client{Timeout: opts.Timeout}
	if opts.Transport != nil {
		httpClient.Transport = opts.Transport
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	attempts := opts.RetryAttempts
	if attempts == 0 {
		attempts = 1
	}
	delay := opts.RetryDelay
	if delay == 0 {
		delay = 100 * time.Millisecond
	}

	return &HTTPClient{
		config:        config,
		httpClient:    httpClient,
		limiter:       limiter,
		retryAttempts: attempts,
		retryDelay:    delay,
	}
}

// RequestOptions contains options for making HTTP requests.
type RequestOptions struct {
	Method      string            // HTTP method (GET, POST, PUT, DELETE)
	Path        string            // API endpoint path, relative to the server URL
	QueryParams map[string]string // Optional query parameters
	Body        []byte            // Optional JSON request body
}

// DoRequest makes an HTTP request with the given options. A nil error means the
// server answered; the status code may still be a failure. GET requests are retried
// on transport failures up to the configured number of attempts.
func (c *HTTPClient) DoRequest(ctx context.Context, opts RequestOptions) (*Response, error) {
	u, err := c.buildURL(opts)
	if err != nil {
		return nil, err
	}

	requestID := uuid.NewRequestID()
	ctx = logtrace.WithRequestID(ctx, requestID)

	if opts.Method != http.MethodGet || c.retryAttempts <= 1 {
		return c.do(ctx, opts, u)
	}

	var resp *Response
	err = retry.Do(
		func() error {
			r, err := c.do(ctx, opts, u)
			if err != nil {
				return err
			}
			resp = r
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.retryAttempts),
		retry.Delay(c.retryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			k := apperrors.KindOf(err)
			return k == apperrors.KindNetworkIO || k == apperrors.KindNetworkTimeout
		}),
		retry.OnRetry(func(n uint, err error) {
			log.Debug().Str("request_id", requestID).Uint("attempt", n+1).Err(err).Msg("retrying request")
		}),
	)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	return resp, nil
}

func (c *HTTPClient) buildURL(opts RequestOptions) (string, error) {
	u, err := url.Parse(c.config.GetServerURL())
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", ErrInvalidServerURL.Msg(fmt.Sprintf("invalid server URL %q", c.config.GetServerURL()))
	}
	u.Path = path.Join("/", u.Path, opts.Path)

	q := u.Query()
	for k, v := range opts.QueryParams {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *HTTPClient) do(ctx context.Context, opts RequestOptions, u string) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, classifyTransportError(err)
		}
	}

	var bodyReader io.Reader
	if len(opts.Body) > 0 {
		bodyReader = bytes.NewReader(opts.Body)
	}
	req, err := http.NewRequestWithContext(ctx, opts.Method, u, bodyReader)
	if err != nil {
		return nil, apperrors.ErrClientValidation.MsgErr("failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	requestID := logtrace.RequestIDFromContext(ctx)
	if requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}
	if token := c.config.GetToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug().Str("request_id", requestID).Str("method", opts.Method).Str("path", opts.Path).Err(err).Msg("request failed")
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(err)
	}

	log.Debug().
		Str("request_id", requestID).
		Str("method", opts.Method).
		Str("path", opts.Path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("request completed")

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       body,
		Location:   resp.Header.Get("Location"),
	}, nil
}

// classifyTransportError maps errors from net/http and context into the apperrors taxonomy.
func classifyTransportError(err error) error {
	if err == nil {
		return nil
	}
	var ae apperrors.Error
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return ErrRequestCanceled.Err(err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.ErrNetworkTimeout.Err(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperrors.ErrNetworkTimeout.Err(err)
	}
	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return apperrors.ErrNetworkIO.Err(err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return apperrors.ErrNetworkIO.Err(err)
	}
	return apperrors.ErrUnknown.Err(err)
}
