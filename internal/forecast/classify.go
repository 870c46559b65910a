package forecast

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/url"
	"syscall"

	"github.com/sony/gobreaker/v2"

	"github.com/surfreport/hub/internal/huberrors"
)

// DecodeError wraps a response that could not be converted into a RawSeries.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return "decode forecast response: " + e.Err.Error() }

func (e *DecodeError) Unwrap() error { return e.Err }

// Classify maps a transport or decode error to an error class and, for HTTP answers, the status code.
func Classify(err error) (huberrors.ErrorClass, int) {
	if err == nil {
		return "", 0
	}

	// Context errors first: a deadline that fired mid-dial shows up wrapped in other net errors,
	// and a retry loop aborted by the caller wraps the last upstream status.
	if errors.Is(err, context.DeadlineExceeded) {
		return huberrors.ClassTimeout, 0
	}

	if errors.Is(err, context.Canceled) {
		return huberrors.ClassCanceled, 0
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode >= 500:
			return huberrors.ClassHTTP5xx, statusErr.StatusCode
		case statusErr.StatusCode >= 400:
			return huberrors.ClassHTTP4xx, statusErr.StatusCode
		default:
			return huberrors.ClassUnknown, statusErr.StatusCode
		}
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return huberrors.ClassCircuitOpen, 0
	}

	var decodeErr *DecodeError
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError

	if errors.As(err, &decodeErr) || errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return huberrors.ClassDecode, 0
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return huberrors.ClassTimeout, 0
		}

		return huberrors.ClassDNS, 0
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return huberrors.ClassConnectionRefused, 0
	}

	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return huberrors.ClassConnectionReset, 0
	}

	if isTLSError(err) {
		return huberrors.ClassTLS, 0
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return huberrors.ClassTimeout, 0
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return huberrors.ClassTimeout, 0
	}

	return huberrors.ClassUnknown, 0
}

func isTLSError(err error) bool {
	var (
		recordErr   tls.RecordHeaderError
		verifyErr   *tls.CertificateVerificationError
		authorityEr x509.UnknownAuthorityError
		hostnameErr x509.HostnameError
		invalidErr  x509.CertificateInvalidError
		alertErr    tls.AlertError
	)

	return errors.As(err, &recordErr) ||
		errors.As(err, &verifyErr) ||
		errors.As(err, &authorityEr) ||
		errors.As(err, &hostnameErr) ||
		errors.As(err, &invalidErr) ||
		errors.As(err, &alertErr)
}

// retryable reports whether another attempt on the same transport can help.
func retryable(class huberrors.ErrorClass) bool {
	switch class {
	case huberrors.ClassHTTP4xx, huberrors.ClassCanceled, huberrors.ClassCircuitOpen:
		return false
	default:
		return true
	}
}
