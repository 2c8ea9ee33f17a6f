package apperror

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/url"
	"os"
	"syscall"
)

// ClassifyTransport maps a failed outbound round trip onto the error
// taxonomy: timeouts to 504, connection trouble to 503, TLS trouble to
// 502, the rest of the network layer to 502. Anything unclassifiable is
// a plain system error.
func ClassifyTransport(err error) *AppError {
	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return Timeout(err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Timeout(err)
	}

	var tlsRecordErr tls.RecordHeaderError
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &tlsRecordErr) || errors.As(err, &certErr) {
		return TLSFailure(err)
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EHOSTUNREACH) {
		return ConnectionFailure(err)
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ConnectionFailure(err)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return NetworkFailure(err)
	}
	return SystemError(err)
}
