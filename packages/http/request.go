package http

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/abdul-hamid-achik/rede/packages/core/failure"
	"github.com/abdul-hamid-achik/rede/packages/core/parser"
)

const (
	HTTP10 = "HTTP/1.0"
	HTTP11 = "HTTP/1.1"
	HTTP2  = "HTTP/2"
)

// Header is a single header line. Names keep the case they were written in.
type Header struct {
	Name  string
	Value string
}

// QueryParam is one query pair. When Raw is set it is sent verbatim;
// otherwise Name and Value are escaped.
type QueryParam struct {
	Name  string
	Value string
	Raw   string
}

// Request is a fully built request, ready to go on the wire.
type Request struct {
	Method      string
	URL         *url.URL
	Version     string
	Headers     []Header
	QueryParams []QueryParam
	Body        []byte
	BodyKind    parser.BodyKind
	ContentType string
}

// Build turns a definition and its resolved body into a Request. It performs
// no I/O. Headers are assembled in a fixed order: the body's content type,
// the definition headers, runtime headers, the content-type override and
// finally a default User-Agent. Exactly one content-type header survives.
func Build(def *parser.Request, body *Body, opts Options) (*Request, error) {
	u, err := ValidateURL(def.URL)
	if err != nil {
		return nil, err
	}

	version, err := normalizeVersion(def.Version)
	if err != nil {
		return nil, err
	}

	method := strings.ToUpper(def.Method)
	if method == "" {
		method = http.MethodGet
	}

	req := &Request{
		Method:   method,
		URL:      u,
		Version:  version,
		BodyKind: parser.BodyNone,
	}

	if body != nil {
		req.Body = body.Bytes
		req.BodyKind = body.Kind
		if body.ContentType != "" {
			req.setHeader("Content-Type", body.ContentType)
		}
	}

	for _, h := range def.Headers {
		req.addHeader(h.Key, h.Value)
	}
	for _, h := range opts.Headers {
		req.addHeader(h.Name, h.Value)
	}
	if opts.ContentType != "" {
		req.setHeader("Content-Type", opts.ContentType)
	}
	if opts.UserAgent != "" && !req.HasHeader("User-Agent") {
		req.Headers = append(req.Headers, Header{Name: "User-Agent", Value: opts.UserAgent})
	}
	req.ContentType = req.HeaderValue("Content-Type")

	req.QueryParams = splitRawQuery(u.RawQuery)
	for _, q := range def.QueryParams {
		req.QueryParams = append(req.QueryParams, QueryParam{Name: q.Key, Value: q.Value, Raw: q.Raw})
	}
	u.RawQuery = encodeQuery(req.QueryParams)

	return req, nil
}

func normalizeVersion(v string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "", HTTP11:
		return HTTP11, nil
	case HTTP10:
		return HTTP10, nil
	case HTTP2, "HTTP/2.0":
		return HTTP2, nil
	}
	return "", failure.New(failure.UnsupportedHTTPVersion, v,
		"%s is not supported, use HTTP/1.0, HTTP/1.1 or HTTP/2", v)
}

// addHeader appends a header. A content type replaces whatever content type
// is already present; every other name may repeat.
func (r *Request) addHeader(name, value string) {
	if strings.EqualFold(name, "Content-Type") {
		r.setHeader(name, value)
		return
	}
	r.Headers = append(r.Headers, Header{Name: name, Value: value})
}

func (r *Request) setHeader(name, value string) {
	kept := r.Headers[:0]
	for _, h := range r.Headers {
		if !strings.EqualFold(h.Name, name) {
			kept = append(kept, h)
		}
	}
	r.Headers = append(kept, Header{Name: name, Value: value})
}

func (r *Request) HasHeader(name string) bool {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, name) {
			return true
		}
	}
	return false
}

// HeaderValue returns the last value of the named header.
func (r *Request) HeaderValue(name string) string {
	value := ""
	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, name) {
			value = h.Value
		}
	}
	return value
}

func splitRawQuery(raw string) []QueryParam {
	if raw == "" {
		return nil
	}
	var params []QueryParam
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		if k, err := url.QueryUnescape(key); err == nil {
			key = k
		}
		if v, err := url.QueryUnescape(value); err == nil {
			value = v
		}
		params = append(params, QueryParam{Name: key, Value: value, Raw: pair})
	}
	return params
}

// encodeQuery keeps declaration order, unlike url.Values.Encode. Pairs taken
// from the URL keep their original text.
func encodeQuery(params []QueryParam) string {
	var b strings.Builder
	for i, p := range params {
		if i > 0 {
			b.WriteByte('&')
		}
		if p.Raw != "" {
			b.WriteString(p.Raw)
			continue
		}
		b.WriteString(url.QueryEscape(p.Name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}

// hop is the mutable part of a request as it moves through redirects.
type hop struct {
	method  string
	url     *url.URL
	headers []Header
	body    []byte
}

func newHop(r *Request) *hop {
	u := *r.URL
	return &hop{
		method:  r.Method,
		url:     &u,
		headers: append([]Header(nil), r.Headers...),
		body:    r.Body,
	}
}

func (h *hop) httpRequest(ctx context.Context) (*http.Request, error) {
	var body io.Reader
	if len(h.body) > 0 {
		body = bytes.NewReader(h.body)
	}
	req, err := http.NewRequestWithContext(ctx, h.method, h.url.String(), body)
	if err != nil {
		return nil, failure.Wrap(failure.RequestBuildFailure, h.url.String(), err,
			"%s: %s", h.url.String(), failure.Reason(err))
	}
	for _, header := range h.headers {
		switch {
		case strings.EqualFold(header.Name, "Host"):
			req.Host = header.Value
		case strings.EqualFold(header.Name, "Content-Length"):
			// computed from the body
		default:
			req.Header.Add(header.Name, header.Value)
		}
	}
	return req, nil
}
