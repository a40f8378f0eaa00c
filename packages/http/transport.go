package http

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"sort"
	"strconv"

	"golang.org/x/net/http2"
)

var defaultPorts = map[string]string{
	"http": "80", "https": "443",
}

// transports holds one round tripper per supported protocol version. They
// are created once per client and never reconfigured.
type transports struct {
	h1  *http.Transport
	h2  *http2.Transport
	h2c *http2.Transport
	h10 *http10Transport
}

func newTransports(opts Options) *transports {
	tlsConfig := &tls.Config{InsecureSkipVerify: opts.Insecure}
	dialer := &net.Dialer{KeepAlive: DefaultIdleConnTimeout}

	h1 := &http.Transport{
		DialContext:        dialer.DialContext,
		TLSClientConfig:    tlsConfig.Clone(),
		IdleConnTimeout:    DefaultIdleConnTimeout,
		DisableCompression: true,
		ForceAttemptHTTP2:  false,
		// A non-nil empty map keeps the transport on HTTP/1.1 after ALPN.
		TLSNextProto: map[string]func(string, *tls.Conn) http.RoundTripper{},
	}
	h1.Proxy = http.ProxyFromEnvironment
	if opts.Proxy != "" {
		// Options are validated before a client is built; a bad address here
		// leaves the environment proxy in place.
		if proxyURL, err := ValidateProxy(opts.Proxy); err == nil {
			h1.Proxy = http.ProxyURL(proxyURL)
		}
	}

	h2 := &http2.Transport{
		TLSClientConfig:    tlsConfig.Clone(),
		DisableCompression: true,
	}

	// h2c speaks HTTP/2 over plain TCP with prior knowledge.
	h2c := &http2.Transport{
		AllowHTTP:          true,
		DisableCompression: true,
		DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
			return dialer.DialContext(ctx, network, addr)
		},
	}

	return &transports{
		h1:  h1,
		h2:  h2,
		h2c: h2c,
		h10: &http10Transport{dialer: dialer, tlsConfig: tlsConfig.Clone()},
	}
}

func (t *transports) forVersion(version string, u *url.URL) http.RoundTripper {
	switch version {
	case HTTP10:
		return t.h10
	case HTTP2:
		if u.Scheme == "http" {
			return t.h2c
		}
		return t.h2
	default:
		return t.h1
	}
}

func (t *transports) close() {
	t.h1.CloseIdleConnections()
	t.h2.CloseIdleConnections()
	t.h2c.CloseIdleConnections()
}

// http10Transport writes HTTP/1.0 requests by hand. net/http only emits
// HTTP/1.1 request lines. Every request uses a fresh connection that is
// closed once the response body has been read.
type http10Transport struct {
	dialer    *net.Dialer
	tlsConfig *tls.Config
}

func (t *http10Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	trace := httptrace.ContextClientTrace(ctx)

	conn, err := t.dial(ctx, req.URL)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()

	if trace != nil && trace.GotConn != nil {
		trace.GotConn(httptrace.GotConnInfo{Conn: conn})
	}

	if err := writeHTTP10(conn, req); err != nil {
		return nil, err
	}
	if trace != nil && trace.WroteRequest != nil {
		trace.WroteRequest(httptrace.WroteRequestInfo{})
	}

	resp, err := http.ReadResponse(bufio.NewReader(conn), req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, nil
}

func (t *http10Transport) dial(ctx context.Context, u *url.URL) (net.Conn, error) {
	port := u.Port()
	if port == "" {
		port = defaultPorts[u.Scheme]
	}
	addr := net.JoinHostPort(u.Hostname(), port)

	conn, err := t.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "https" {
		return conn, nil
	}

	config := t.tlsConfig.Clone()
	config.ServerName = u.Hostname()
	tlsConn := tls.Client(conn, config)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return tlsConn, nil
}

// writeHTTP10 writes the request line, headers and body, e.g.:
//
//	GET /path?q=1 HTTP/1.0\r\n
//	Host: example.com\r\n
//	\r\n
func writeHTTP10(w io.Writer, req *http.Request) error {
	bw := bufio.NewWriter(w)

	bw.WriteString(req.Method)
	bw.WriteByte(' ')
	bw.WriteString(req.URL.RequestURI())
	bw.WriteString(" HTTP/1.0\r\n")

	host := req.Host
	if host == "" {
		host = req.URL.Host
	}
	bw.WriteString("Host: " + host + "\r\n")

	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return err
		}
	}
	if len(body) > 0 {
		bw.WriteString("Content-Length: " + strconv.Itoa(len(body)) + "\r\n")
	}

	keys := make([]string, 0, len(req.Header))
	for k := range req.Header {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range req.Header[k] {
			bw.WriteString(k + ": " + v + "\r\n")
		}
	}
	bw.WriteString("\r\n")
	bw.Write(body)
	return bw.Flush()
}
