package http

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/abdul-hamid-achik/rede/packages/core/failure"
	"github.com/abdul-hamid-achik/rede/packages/core/logging"
)

// State is a step of a single exchange.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateSending
	StateAwaitingResponse
	StateRedirecting
	StateComplete
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateSending:
		return "sending"
	case StateAwaitingResponse:
		return "awaiting_response"
	case StateRedirecting:
		return "redirecting"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Client executes built requests. It holds no per-request state, so one
// client may run requests from several goroutines.
type Client struct {
	options    Options
	log        logrus.FieldLogger
	transports *transports
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		options: DefaultOptions(),
		log:     logging.Discard(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.transports = newTransports(c.options)
	return c
}

func (c *Client) Options() Options {
	return c.options
}

// Close releases idle connections held by the transports.
func (c *Client) Close() {
	c.transports.close()
}

// Do performs req and follows redirects according to the client options.
// The timeout is a single budget for the whole exchange including every
// redirect hop; a zero timeout fails before anything is sent.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.options.Timeout)
	defer cancel()

	start := time.Now()
	cur := newHop(req)
	redirects := 0

	for {
		log := c.log.WithFields(logrus.Fields{
			"method":  cur.method,
			"url":     cur.url.String(),
			"version": req.Version,
			"hop":     redirects,
		})

		resp, err := c.exchange(ctx, log, req.Version, cur)
		if err != nil {
			log.WithField("state", StateFailed).WithError(err).Debug("exchange failed")
			return nil, err
		}

		if c.options.FollowRedirects && isRedirect(resp.StatusCode) && resp.Header.Get("Location") != "" {
			if redirects >= c.options.MaxRedirects {
				err := failure.New(failure.RedirectLoop, cur.url.String(),
					"%s: stopped after %d redirects", req.URL.String(), redirects)
				log.WithField("state", StateFailed).Debug("too many redirects")
				return nil, err
			}
			next, err := cur.follow(resp.StatusCode, resp.Header.Get("Location"))
			if err != nil {
				return nil, err
			}
			log.WithFields(logrus.Fields{
				"state":    StateRedirecting,
				"status":   resp.StatusCode,
				"location": next.url.String(),
			}).Debug("following redirect")
			cur = next
			redirects++
			continue
		}

		resp.URL = cur.url
		resp.Redirects = redirects
		resp.Request = req
		resp.Duration = time.Since(start)
		log.WithFields(logrus.Fields{
			"state":    StateComplete,
			"status":   resp.StatusCode,
			"proto":    resp.Proto,
			"duration": resp.Duration,
		}).Debug("exchange complete")
		return resp, nil
	}
}

// exchange sends one hop and reads the whole response body.
func (c *Client) exchange(ctx context.Context, log logrus.FieldLogger, version string, h *hop) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, c.contextError(ctx, h, err)
	}

	log.WithField("state", StateConnecting).Debug("connecting")
	trace := &httptrace.ClientTrace{
		GotConn: func(httptrace.GotConnInfo) {
			log.WithField("state", StateSending).Trace("connected")
		},
		WroteRequest: func(httptrace.WroteRequestInfo) {
			log.WithField("state", StateAwaitingResponse).Trace("request sent")
		},
	}
	httpReq, err := h.httpRequest(httptrace.WithClientTrace(ctx, trace))
	if err != nil {
		return nil, err
	}

	rt := c.transports.forVersion(version, h.url)
	httpResp, err := rt.RoundTrip(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, c.contextError(ctx, h, err)
		}
		return nil, classifyTransportError(err, h, version)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, c.contextError(ctx, h, err)
		}
		return nil, failure.Classify(err, h.url.Hostname())
	}

	if httpResp.ProtoMajor != 1 && httpResp.ProtoMajor != 2 {
		return nil, failure.New(failure.UnsupportedHTTPVersion, h.url.Hostname(),
			"%s: Unsupported protocol %s", h.url.Hostname(), httpResp.Proto)
	}

	return newResponse(httpResp, body), nil
}

// contextError reports a hop cut short by ctx. Only a passed deadline is a
// timeout; a cancelled caller gets a plain error wrapping context.Canceled.
func (c *Client) contextError(ctx context.Context, h *hop, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return failure.Wrap(failure.Timeout, h.url.String(), err,
			"%s: Request timed out after %s", h.url.String(), c.options.Timeout)
	}
	return fmt.Errorf("%s: request cancelled: %w", h.url.String(), ctx.Err())
}

// classifyTransportError treats protocol errors on an HTTP/2 exchange as a
// version mismatch once a connection has been established.
func classifyTransportError(err error, h *hop, version string) error {
	host := h.url.Hostname()
	if version == HTTP2 && !isDialError(err) {
		return failure.Wrap(failure.UnsupportedHTTPVersion, host, err,
			"%s: Server did not speak HTTP/2: %s", host, err.Error())
	}
	return failure.Classify(err, host)
}

func isDialError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var certErr *tls.CertificateVerificationError
	return errors.As(err, &certErr)
}

func isRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

var (
	bodyHeaders      = []string{"Content-Type", "Content-Length", "Content-Encoding", "Transfer-Encoding"}
	sensitiveHeaders = []string{"Authorization", "Cookie", "Proxy-Authorization", "Host"}
)

// follow computes the next hop for a redirect response. 303 turns anything
// but HEAD into a body-less GET, 301 and 302 do the same for POST, and 307
// and 308 replay the request unchanged.
func (h *hop) follow(status int, location string) (*hop, error) {
	target, err := h.url.Parse(location)
	if err != nil {
		return nil, failure.Wrap(failure.InvalidURL, location, err,
			"%s: redirect to invalid location", location)
	}
	if _, err := ValidateURL(target.String()); err != nil {
		return nil, err
	}

	next := &hop{
		method:  h.method,
		url:     target,
		headers: append([]Header(nil), h.headers...),
		body:    h.body,
	}

	switch {
	case status == http.StatusSeeOther && h.method != http.MethodHead,
		(status == http.StatusMovedPermanently || status == http.StatusFound) && h.method == http.MethodPost:
		next.method = http.MethodGet
		next.body = nil
		next.headers = withoutHeaders(next.headers, bodyHeaders)
	}

	if !strings.EqualFold(target.Host, h.url.Host) {
		next.headers = withoutHeaders(next.headers, sensitiveHeaders)
	}
	return next, nil
}

func withoutHeaders(headers []Header, names []string) []Header {
	kept := make([]Header, 0, len(headers))
outer:
	for _, h := range headers {
		for _, name := range names {
			if strings.EqualFold(h.Name, name) {
				continue outer
			}
		}
		kept = append(kept, h)
	}
	return kept
}
