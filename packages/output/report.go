package output

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	redehttp "github.com/abdul-hamid-achik/rede/packages/http"
)

// Report is the JSON document written for a completed exchange.
type Report struct {
	HTTPVersion string          `json:"http_version"`
	Status      int             `json:"status"`
	StatusText  string          `json:"status_text"`
	URL         string          `json:"url"`
	Redirects   int             `json:"redirects"`
	Headers     map[string]any  `json:"headers"`
	NumHeaders  int             `json:"num_headers"`
	Body        json.RawMessage `json:"body"`
	Request     *RequestReport  `json:"request"`
}

// RequestReport describes the request as it was built, before redirects.
type RequestReport struct {
	Method         string          `json:"method"`
	URL            string          `json:"url"`
	Headers        map[string]any  `json:"headers"`
	NumHeaders     int             `json:"num_headers"`
	QueryParams    map[string]any  `json:"query_params"`
	NumQueryParams int             `json:"num_query_params"`
	Body           json.RawMessage `json:"body"`
}

// BinaryBody stands in for bodies that are not shown as text.
type BinaryBody struct {
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
}

type Reporter struct {
	writer     io.Writer
	pretty     bool
	selectPath string
}

type ReporterOption func(*Reporter)

func NewReporter(opts ...ReporterOption) *Reporter {
	r := &Reporter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func WithReportWriter(w io.Writer) ReporterOption {
	return func(r *Reporter) {
		r.writer = w
	}
}

// WithPretty indents the report.
func WithPretty(pretty bool) ReporterOption {
	return func(r *Reporter) {
		r.pretty = pretty
	}
}

// WithSelect narrows the response body to a gjson path. A path that matches
// nothing reports null.
func WithSelect(path string) ReporterOption {
	return func(r *Reporter) {
		r.selectPath = path
	}
}

func (r *Reporter) Write(resp *redehttp.Response) error {
	report := r.Build(resp)

	enc := json.NewEncoder(r.writer)
	enc.SetEscapeHTML(false)
	if r.pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(report)
}

func (r *Reporter) Build(resp *redehttp.Response) *Report {
	headers, numHeaders := responseHeaders(resp.Header)
	report := &Report{
		HTTPVersion: resp.Proto,
		Status:      resp.StatusCode,
		StatusText:  resp.StatusText,
		Redirects:   resp.Redirects,
		Headers:     headers,
		NumHeaders:  numHeaders,
		Body:        EncodeBody(resp.Body, resp.ContentType()),
	}
	if resp.URL != nil {
		report.URL = resp.URL.String()
	}
	if r.selectPath != "" {
		report.Body = selectJSON(report.Body, r.selectPath)
	}
	if resp.Request != nil {
		report.Request = requestReport(resp.Request)
	}
	return report
}

func requestReport(req *redehttp.Request) *RequestReport {
	rr := &RequestReport{
		Method:         req.Method,
		Headers:        map[string]any{},
		NumHeaders:     len(req.Headers),
		QueryParams:    map[string]any{},
		NumQueryParams: len(req.QueryParams),
		Body:           EncodeBody(req.Body, req.ContentType),
	}
	if req.URL != nil {
		rr.URL = req.URL.String()
	}

	// Names are grouped case-insensitively under their first spelling.
	spelling := map[string]string{}
	for _, h := range req.Headers {
		key, ok := spelling[strings.ToLower(h.Name)]
		if !ok {
			key = h.Name
			spelling[strings.ToLower(h.Name)] = key
		}
		rr.Headers[key] = appendValue(rr.Headers[key], h.Value)
	}
	for _, q := range req.QueryParams {
		rr.QueryParams[q.Name] = appendValue(rr.QueryParams[q.Name], q.Value)
	}
	return rr
}

func responseHeaders(header http.Header) (map[string]any, int) {
	out := map[string]any{}
	count := 0
	for name, values := range header {
		key := strings.ToLower(name)
		for _, v := range values {
			out[key] = appendValue(out[key], v)
			count++
		}
	}
	return out, count
}

// appendValue turns a repeated value into an array.
func appendValue(existing any, value string) any {
	switch v := existing.(type) {
	case nil:
		return value
	case string:
		return []string{v, value}
	case []string:
		return append(v, value)
	}
	return value
}

var null = json.RawMessage("null")

// EncodeBody renders a body for a report. Textual bodies become a string,
// or embedded JSON when they parse; anything else is described by its
// content type and size.
func EncodeBody(data []byte, contentType string) json.RawMessage {
	if len(data) == 0 {
		return null
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	}

	if isTextual(mediaType) && utf8.Valid(data) {
		if gjson.ValidBytes(data) {
			var buf bytes.Buffer
			if err := json.Compact(&buf, data); err == nil {
				return buf.Bytes()
			}
		}
		return marshal(string(data))
	}
	return marshal(BinaryBody{ContentType: contentType, Size: len(data)})
}

func isTextual(mediaType string) bool {
	return strings.HasPrefix(mediaType, "text/") ||
		strings.Contains(mediaType, "json") ||
		strings.Contains(mediaType, "xml") ||
		strings.Contains(mediaType, "javascript") ||
		mediaType == redehttp.ContentTypeForm
}

func selectJSON(body json.RawMessage, path string) json.RawMessage {
	if !gjson.ValidBytes(body) {
		return null
	}
	result := gjson.GetBytes(body, path)
	if !result.Exists() {
		return null
	}
	return json.RawMessage(result.Raw)
}

func marshal(v any) json.RawMessage {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return null
	}
	return bytes.TrimRight(buf.Bytes(), "\n")
}
