package http

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Response is the final response of an exchange, after any redirects.
type Response struct {
	Proto      string
	ProtoMajor int
	ProtoMinor int
	StatusCode int
	StatusText string
	Header     http.Header
	Body       []byte
	// URL is where the final response came from.
	URL       *url.URL
	Redirects int
	// Request is the request as built, before any redirect rewrote it.
	Request  *Request
	Duration time.Duration
}

func newResponse(resp *http.Response, body []byte) *Response {
	header := resp.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	if len(resp.TransferEncoding) > 0 && header.Get("Transfer-Encoding") == "" {
		header["Transfer-Encoding"] = append([]string(nil), resp.TransferEncoding...)
	}
	return &Response{
		Proto:      protoString(resp.ProtoMajor, resp.ProtoMinor),
		ProtoMajor: resp.ProtoMajor,
		ProtoMinor: resp.ProtoMinor,
		StatusCode: resp.StatusCode,
		StatusText: statusText(resp),
		Header:     header,
		Body:       body,
	}
}

func protoString(major, minor int) string {
	if major == 2 {
		return HTTP2
	}
	return fmt.Sprintf("HTTP/%d.%d", major, minor)
}

func statusText(resp *http.Response) string {
	code := strconv.Itoa(resp.StatusCode)
	if text := strings.TrimSpace(strings.TrimPrefix(resp.Status, code)); text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}

func (r *Response) BodyString() string {
	return string(r.Body)
}

func (r *Response) HeaderValue(key string) string {
	return r.Header.Get(key)
}

func (r *Response) ContentType() string {
	return r.Header.Get("Content-Type")
}

// NumHeaders counts header lines, so a repeated name counts once per value.
func (r *Response) NumHeaders() int {
	n := 0
	for _, values := range r.Header {
		n += len(values)
	}
	return n
}

func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r *Response) IsRedirect() bool {
	return r.StatusCode >= 300 && r.StatusCode < 400
}

func (r *Response) DurationMs() int64 {
	return r.Duration.Milliseconds()
}
