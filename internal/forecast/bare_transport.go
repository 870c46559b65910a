package forecast

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"
)

// BareTransport is the secondary transport. It opens a fresh socket per request, writes a
// single HTTP/1.1 GET with "Connection: close", and parses the answer. It shares no pooling,
// redirect or proxy state with the primary client.
type BareTransport struct {
	timeout   time.Duration
	userAgent string
	tlsConfig *tls.Config
	dialer    *net.Dialer
}

// NewBareTransport creates a bare socket transport. timeout bounds the whole exchange.
func NewBareTransport(timeout time.Duration, userAgent string) *BareTransport {
	return &BareTransport{
		timeout:   timeout,
		userAgent: userAgent,
		dialer:    &net.Dialer{Timeout: timeout},
	}
}

// WithTLSConfig sets the TLS configuration used for https URLs (tests use the httptest pool).
func (t *BareTransport) WithTLSConfig(cfg *tls.Config) *BareTransport {
	t.tlsConfig = cfg

	return t
}

// Name implements Transport.
func (t *BareTransport) Name() string { return "bare" }

// Get implements Transport.
func (t *BareTransport) Get(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}

	host := u.Hostname()
	port := u.Port()

	switch u.Scheme {
	case "http":
		if port == "" {
			port = "80"
		}
	case "https":
		if port == "" {
			port = "443"
		}
	default:
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	conn, err := t.dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, port))
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	defer func() { _ = conn.Close() }()

	// Unblock reads and writes as soon as the caller gives up.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if u.Scheme == "https" {
		cfg := &tls.Config{MinVersion: tls.VersionTLS12}
		if t.tlsConfig != nil {
			cfg = t.tlsConfig.Clone()
		}

		if cfg.ServerName == "" {
			cfg.ServerName = host
		}

		tlsConn := tls.Client(conn, cfg)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			return nil, t.contextErr(ctx, fmt.Errorf("tls handshake: %w", err))
		}

		conn = tlsConn
	}

	path := u.RequestURI()
	req := "GET " + path + " HTTP/1.1\r\n" +
		"Host: " + u.Host + "\r\n" +
		"Accept: application/json\r\n" +
		"Connection: close\r\n"

	if t.userAgent != "" {
		req += "User-Agent: " + t.userAgent + "\r\n"
	}

	req += "\r\n"

	if _, err := conn.Write([]byte(req)); err != nil {
		return nil, t.contextErr(ctx, fmt.Errorf("write request: %w", err))
	}

	resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
	if err != nil {
		return nil, t.contextErr(ctx, fmt.Errorf("read response: %w", err))
	}

	defer func() { _ = resp.Body.Close() }()

	body, err := readBody(resp.StatusCode, resp.Body)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			return nil, err
		}

		return nil, t.contextErr(ctx, err)
	}

	return body, nil
}

// contextErr prefers the context error when the socket was closed because ctx ended, so the
// failure is classified as a timeout or cancellation instead of a closed-connection error.
func (t *BareTransport) contextErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", ctxErr, err)
	}

	return err
}
