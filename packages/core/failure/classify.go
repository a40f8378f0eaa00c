package failure

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"net/url"
	"strings"
	"syscall"
)

// Classify maps an error returned while talking to host onto a kind. Errors
// that are already classified pass through untouched. Anything unrecognized
// coming out of the transport counts as a failed connection.
func Classify(err error, host string) *Error {
	if err == nil {
		return nil
	}

	var ferr *Error
	if errors.As(err, &ferr) {
		return ferr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(Timeout, host, err, "%s: Request timed out", host)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return Wrap(Timeout, host, err, "%s: Request timed out", host)
	}

	if isVersionError(err) {
		return Wrap(UnsupportedHTTPVersion, host, err, "%s: %s", host, protocolReason(err))
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		reason := dnsErr.Err
		if reason == "" {
			reason = "could not resolve host"
		}
		return Wrap(FailedConnection, host, err, "%s: %s", host, Reason(errors.New(reason)))
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Timeout() {
			return Wrap(Timeout, host, err, "%s: Request timed out", host)
		}
		return Wrap(FailedConnection, host, err, "%s: %s", host, Reason(opErr))
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		return Wrap(FailedConnection, host, err, "%s: %s", host, Reason(errno))
	}

	if isTLSError(err) {
		return Wrap(FailedConnection, host, err, "%s: TLS handshake failed: %s", host, err.Error())
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Wrap(Timeout, host, err, "%s: Request timed out", host)
	}

	return Wrap(FailedConnection, host, err, "%s: %s", host, Reason(err))
}

func isVersionError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "malformed HTTP version") ||
		strings.Contains(msg, "malformed HTTP response")
}

func protocolReason(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, "malformed HTTP"); i >= 0 {
		return Reason(errors.New(msg[i:]))
	}
	return Reason(err)
}

func isTLSError(err error) bool {
	var recordErr tls.RecordHeaderError
	if errors.As(err, &recordErr) {
		return true
	}
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return true
	}
	var unknownAuthority x509.UnknownAuthorityError
	if errors.As(err, &unknownAuthority) {
		return true
	}
	var hostnameErr x509.HostnameError
	if errors.As(err, &hostnameErr) {
		return true
	}
	var invalidErr x509.CertificateInvalidError
	return errors.As(err, &invalidErr)
}
