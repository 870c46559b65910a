// Package middleware provides the HTTP middleware chain: request IDs, access logging, metrics
// and body limits.
package middleware

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"github.com/surfreport/hub/internal/observability"
)

const requestIDHeader = "X-Request-ID"

// Client-supplied IDs outside this shape are replaced so they cannot pollute logs.
var validRequestID = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// RequestID runs first in the chain: it puts an X-Request-ID into the context and the response
// header, propagating a well-formed client value or generating a UUIDv7.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if !validRequestID.MatchString(id) {
			id = uuid.Must(uuid.NewV7()).String()
		}

		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(observability.WithRequestID(r.Context(), id)))
	})
}
