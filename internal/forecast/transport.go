package forecast

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// maxResponseBytes bounds how much of an upstream body is read.
const maxResponseBytes = 32 << 20

// Transport performs a single HTTP GET and returns the response body of a 2xx answer.
// A non-2xx answer is returned as *StatusError.
type Transport interface {
	Name() string
	Get(ctx context.Context, rawURL string) ([]byte, error)
}

// StatusError is returned when the upstream answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream returned %d", e.StatusCode)
	}

	return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, e.Body)
}

// readBody reads a bounded body and converts non-2xx statuses into *StatusError.
func readBody(statusCode int, body io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if statusCode < 200 || statusCode >= 300 {
		const maxErrBody = 256

		snippet := string(data)
		if len(snippet) > maxErrBody {
			snippet = snippet[:maxErrBody]
		}

		return nil, &StatusError{StatusCode: statusCode, Body: snippet}
	}

	return data, nil
}

// PooledTransport is the primary transport: a keep-alive net/http client owned by one
// ForecastClient.
type PooledTransport struct {
	client    *http.Client
	userAgent string
}

// NewPooledTransport builds a pooled transport with the given overall request timeout.
func NewPooledTransport(timeout time.Duration, userAgent string) *PooledTransport {
	const (
		maxIdleConns        = 32
		maxIdleConnsPerHost = 8
		idleConnTimeout     = 90 * time.Second
		dialTimeout         = 10 * time.Second
		keepAlive           = 30 * time.Second
	)

	rt := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   dialTimeout,
			KeepAlive: keepAlive,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          maxIdleConns,
		MaxIdleConnsPerHost:   maxIdleConnsPerHost,
		IdleConnTimeout:       idleConnTimeout,
		TLSHandshakeTimeout:   dialTimeout,
		ExpectContinueTimeout: time.Second,
	}

	return &PooledTransport{
		client:    &http.Client{Transport: rt, Timeout: timeout},
		userAgent: userAgent,
	}
}

// NewPooledTransportWithClient wraps an existing client (tests, shared pools).
func NewPooledTransportWithClient(client *http.Client, userAgent string) *PooledTransport {
	return &PooledTransport{client: client, userAgent: userAgent}
}

// Name implements Transport.
func (t *PooledTransport) Name() string { return "pooled" }

// Get implements Transport.
func (t *PooledTransport) Get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}

	defer func() { _ = resp.Body.Close() }()

	return readBody(resp.StatusCode, resp.Body)
}
