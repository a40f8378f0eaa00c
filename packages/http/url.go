package http

import (
	"errors"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"

	"github.com/abdul-hamid-achik/rede/packages/core/failure"
)

var hostProfile = idna.New(
	idna.MapForLookup(),
	idna.Transitional(false),
	idna.StrictDomainName(false),
)

// ValidateURL checks rawURL before anything is sent. A missing or malformed
// scheme means the request cannot be built at all (RequestBuildFailure); a
// well-formed URL whose host cannot name anything is an InvalidURL.
func ValidateURL(rawURL string) (*url.URL, error) {
	idx := strings.Index(rawURL, "://")
	if idx <= 0 {
		return nil, failure.New(failure.RequestBuildFailure, rawURL,
			"%s: missing or malformed scheme, expected http:// or https://", rawURL)
	}
	scheme := strings.ToLower(rawURL[:idx])
	if scheme != "http" && scheme != "https" {
		return nil, failure.New(failure.RequestBuildFailure, rawURL,
			"%s: unsupported scheme %q, expected http or https", rawURL, scheme)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		reason := err.Error()
		var uerr *url.Error
		if errors.As(err, &uerr) {
			reason = uerr.Err.Error()
		}
		return nil, failure.Wrap(failure.InvalidURL, rawURL, err, "%s: %s", rawURL, reason)
	}

	host := u.Hostname()
	if host == "" {
		return nil, failure.New(failure.InvalidURL, rawURL, "%s: missing host", rawURL)
	}
	if err := validateHost(host); err != nil {
		return nil, failure.Wrap(failure.InvalidURL, rawURL, err, "%s: %s", rawURL, err.Error())
	}
	return u, nil
}

// ValidateProxy parses a proxy address. It must name a scheme understood by
// net/http and a host.
func ValidateProxy(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, failure.Wrap(failure.RequestBuildFailure, rawURL, err,
			"%s: invalid proxy url", rawURL)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "socks5", "socks5h":
	default:
		return nil, failure.New(failure.RequestBuildFailure, rawURL,
			"%s: invalid proxy url, expected http, https or socks5 scheme", rawURL)
	}
	if u.Hostname() == "" {
		return nil, failure.New(failure.RequestBuildFailure, rawURL,
			"%s: invalid proxy url, missing host", rawURL)
	}
	return u, nil
}

type hostError struct {
	host   string
	reason string
}

func (e *hostError) Error() string {
	return "invalid host " + e.host + ": " + e.reason
}

func validateHost(host string) error {
	if strings.Contains(host, ":") {
		if net.ParseIP(host) == nil {
			return &hostError{host, "not a valid IPv6 address"}
		}
		return nil
	}

	name := strings.TrimSuffix(host, ".")
	labels := strings.Split(name, ".")
	if isNumeric(labels[len(labels)-1]) {
		if ip := net.ParseIP(name); ip == nil || ip.To4() == nil {
			return &hostError{host, "not a valid IPv4 address"}
		}
		return nil
	}

	for _, label := range labels {
		if label == "" {
			return &hostError{host, "empty label"}
		}
		if len(label) > 63 {
			return &hostError{host, "label longer than 63 characters"}
		}
	}
	if _, err := hostProfile.ToASCII(name); err != nil {
		return &hostError{host, err.Error()}
	}
	return nil
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
