package client

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"

	"github.com/Belphemur/StreamScraper/internal/apperrors"
)

// classifyError maps a transport failure to the application error taxonomy.
// Redirect loops, DNS-over-HTTPS failures and caller cancellation pass through unchanged.
func classifyError(rawURL string, err error) error {
	var loop *apperrors.RedirectLoopError
	if errors.As(err, &loop) {
		return loop
	}
	var dnsErr *apperrors.DNSResolutionError
	if errors.As(err, &dnsErr) {
		return dnsErr
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	kind := apperrors.FetchNetwork
	var netDNS *net.DNSError
	var netErr net.Error
	switch {
	case IsTLSError(err):
		kind = apperrors.FetchTLS
	case errors.As(err, &netDNS):
		kind = apperrors.FetchDNS
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		kind = apperrors.FetchTimeout
	}
	return apperrors.NewFetchError(rawURL, kind, err)
}

// IsTLSError reports whether err was caused by a TLS handshake or certificate failure.
func IsTLSError(err error) bool {
	if err == nil {
		return false
	}
	var fe *apperrors.FetchError
	if errors.As(err, &fe) && fe.Kind == apperrors.FetchTLS {
		return true
	}
	var verifyErr *tls.CertificateVerificationError
	var unknownAuthority x509.UnknownAuthorityError
	var hostname x509.HostnameError
	var invalid x509.CertificateInvalidError
	var header tls.RecordHeaderError
	var alert tls.AlertError
	return errors.As(err, &verifyErr) ||
		errors.As(err, &unknownAuthority) ||
		errors.As(err, &hostname) ||
		errors.As(err, &invalid) ||
		errors.As(err, &header) ||
		errors.As(err, &alert)
}
