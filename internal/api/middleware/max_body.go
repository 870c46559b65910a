package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/surfreport/hub/internal/api/response"
)

// RequestBodyTooLargeRecorder records rejected oversized bodies. Nil when metrics are disabled.
type RequestBodyTooLargeRecorder interface {
	RecordRequestBodyTooLarge(ctx context.Context)
}

// MaxBody limits request bodies to maxBytes and answers 413 when a handler hits the limit.
// Only POST, PUT and PATCH responses are buffered; other methods stream. maxBytes <= 0 disables it.
func MaxBody(maxBytes int64, recorder RequestBodyTooLargeRecorder) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body := &limitedBody{ReadCloser: http.MaxBytesReader(w, r.Body, maxBytes)}
			r.Body = body

			if !mayHaveBody(r.Method) {
				next.ServeHTTP(w, r)

				return
			}

			buf := &responseBuffer{ResponseWriter: w}
			next.ServeHTTP(buf, r)

			if body.exceeded {
				if recorder != nil {
					recorder.RecordRequestBodyTooLarge(r.Context())
				}

				response.RespondError(w, http.StatusRequestEntityTooLarge,
					"Request Entity Too Large", "request body exceeds maximum allowed size")

				return
			}

			buf.flush()
		})
	}
}

func mayHaveBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	default:
		return false
	}
}

type limitedBody struct {
	io.ReadCloser

	exceeded bool
}

func (b *limitedBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		b.exceeded = true
	}

	return n, err //nolint:wrapcheck // io.EOF must reach the decoder unwrapped
}

// responseBuffer holds the handler's response until we know the body stayed within the limit.
type responseBuffer struct {
	http.ResponseWriter

	status int
	buf    bytes.Buffer
}

func (b *responseBuffer) WriteHeader(code int) {
	b.status = code
}

func (b *responseBuffer) Write(p []byte) (int, error) {
	return b.buf.Write(p) //nolint:wrapcheck // in-memory buffer
}

func (b *responseBuffer) flush() {
	if b.status != 0 {
		b.ResponseWriter.WriteHeader(b.status)
	}

	_, _ = b.buf.WriteTo(b.ResponseWriter)
}
