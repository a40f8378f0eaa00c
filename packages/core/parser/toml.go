package parser

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pelletier/go-toml/v2/unstable"
)

type tomlDocument struct {
	HTTP        tomlHTTP       `toml:"http"`
	Metadata    tomlMetadata   `toml:"metadata"`
	Variables   map[string]any `toml:"variables"`
	Headers     map[string]any `toml:"headers"`
	QueryParams map[string]any `toml:"query_params"`
	Body        *tomlBody      `toml:"body"`
}

type tomlHTTP struct {
	Method  string `toml:"method"`
	URL     string `toml:"url"`
	Version string `toml:"version"`
}

type tomlMetadata struct {
	Name         string `toml:"name"`
	Description  string `toml:"description"`
	Timeout      string `toml:"timeout"`
	MaxRedirects *int   `toml:"max_redirects"`
	NoRedirect   bool   `toml:"no_redirect"`
}

type tomlBody struct {
	Raw         *string        `toml:"raw"`
	Binary      *string        `toml:"binary"`
	Form        map[string]any `toml:"x-www-form-urlencoded"`
	Multipart   map[string]any `toml:"multipart-form-data"`
	ContentType string         `toml:"content_type"`
}

// ParseTOML reads the TOML flavour of a request definition. Headers, query
// parameters, form fields and variables keep the order they are written in;
// repeated values given as arrays keep their order too.
func ParseTOML(content []byte, filename string) (*File, error) {
	var doc tomlDocument
	dec := toml.NewDecoder(bytes.NewReader(content))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, tomlError(err, filename)
	}

	order, err := tomlKeyOrder(content)
	if err != nil {
		return nil, tomlError(err, filename)
	}

	perr := func(format string, args ...any) error {
		return &ParseError{File: filename, Line: 1, Column: 1, Message: fmt.Sprintf(format, args...)}
	}

	method := strings.ToUpper(strings.TrimSpace(doc.HTTP.Method))
	if method == "" {
		method = "GET"
	}
	if !isHTTPMethod(method) {
		return nil, perr("unknown HTTP method %q", doc.HTTP.Method)
	}
	if strings.TrimSpace(doc.HTTP.URL) == "" {
		return nil, perr("missing [http] url")
	}

	base, params := SplitURLQuery(strings.TrimSpace(doc.HTTP.URL), 1)
	req := &Request{
		Name:        doc.Metadata.Name,
		Description: doc.Metadata.Description,
		Method:      method,
		URL:         base,
		QueryParams: params,
		Metadata:    &RequestMetadata{NoRedirect: doc.Metadata.NoRedirect},
		Line:        1,
	}

	if doc.HTTP.Version != "" {
		version, ok := normalizeVersion(doc.HTTP.Version)
		if !ok {
			return nil, perr("malformed HTTP version %q", doc.HTTP.Version)
		}
		req.Version = version
	}
	if doc.Metadata.Timeout != "" {
		d, err := parseTimeout(doc.Metadata.Timeout)
		if err != nil {
			return nil, perr("invalid metadata timeout %q", doc.Metadata.Timeout)
		}
		req.Metadata.Timeout = &d
	}
	if n := doc.Metadata.MaxRedirects; n != nil {
		if *n < 0 {
			return nil, perr("invalid metadata max_redirects %d", *n)
		}
		req.Metadata.MaxRedirects = n
	}

	for _, key := range orderedKeys(doc.Headers, order["headers"]) {
		if !validHeaderName(key) {
			return nil, perr("invalid header name %q", key)
		}
		for _, v := range tomlValues(doc.Headers[key]) {
			req.Headers = append(req.Headers, &Header{Key: key, Value: v, Line: 1})
		}
	}
	for _, key := range orderedKeys(doc.QueryParams, order["query_params"]) {
		for _, v := range tomlValues(doc.QueryParams[key]) {
			req.QueryParams = append(req.QueryParams, &QueryParam{Key: key, Value: v, Line: 1})
		}
	}

	body, err := doc.Body.toBody(order)
	if err != nil {
		return nil, perr("%s", err.Error())
	}
	req.Body = body

	file := &File{Path: filename, Requests: []*Request{req}}
	for _, key := range orderedKeys(doc.Variables, order["variables"]) {
		file.Variables = append(file.Variables, &Variable{
			Name:  key,
			Value: strings.Join(tomlValues(doc.Variables[key]), ","),
			Line:  1,
		})
	}
	return file, nil
}

func (b *tomlBody) toBody(order map[string][]string) (*Body, error) {
	if b == nil {
		return nil, nil
	}

	var kinds []string
	body := &Body{ContentType: b.ContentType, Line: 1}
	if b.Raw != nil {
		kinds = append(kinds, "raw")
		body.Kind = BodyRaw
		body.Raw = *b.Raw
	}
	if b.Binary != nil {
		kinds = append(kinds, "binary")
		body.Kind = BodyBinary
		body.Path = *b.Binary
	}
	if b.Form != nil {
		kinds = append(kinds, "x-www-form-urlencoded")
		body.Kind = BodyForm
		for _, key := range orderedKeys(b.Form, order["body.x-www-form-urlencoded"]) {
			for _, v := range tomlValues(b.Form[key]) {
				body.Form = append(body.Form, &FormField{Key: key, Value: v, Line: 1})
			}
		}
	}
	if b.Multipart != nil {
		kinds = append(kinds, "multipart-form-data")
		body.Kind = BodyMultipart
		for _, key := range orderedKeys(b.Multipart, order["body.multipart-form-data"]) {
			for _, v := range tomlValues(b.Multipart[key]) {
				field := &MultipartField{Name: key, Line: 1}
				if path, ok := strings.CutPrefix(v, "@"); ok {
					field.Type = MultipartFieldFile
					field.Path = path
				} else {
					field.Value = v
				}
				body.Multipart = append(body.Multipart, field)
			}
		}
	}

	switch len(kinds) {
	case 0:
		return nil, nil
	case 1:
		return body, nil
	default:
		return nil, fmt.Errorf("[body] declares more than one kind: %s", strings.Join(kinds, ", "))
	}
}

func tomlError(err error, filename string) error {
	var derr *toml.DecodeError
	if errors.As(err, &derr) {
		row, col := derr.Position()
		return &ParseError{File: filename, Line: row, Column: col, Message: derr.Error(), Snippet: derr.String()}
	}
	var serr *toml.StrictMissingError
	if errors.As(err, &serr) && len(serr.Errors) > 0 {
		first := serr.Errors[0]
		row, col := first.Position()
		return &ParseError{File: filename, Line: row, Column: col, Message: "unknown key " + strings.Join(first.Key(), ".")}
	}
	return &ParseError{File: filename, Line: 1, Column: 1, Message: err.Error()}
}

// tomlKeyOrder walks the document and records, for every table path such as
// "headers" or "body.x-www-form-urlencoded", its keys in document order.
func tomlKeyOrder(content []byte) (map[string][]string, error) {
	order := map[string][]string{}
	seen := map[string]bool{}
	record := func(table []string, key string) {
		path := strings.Join(table, ".")
		if seen[path+"\x00"+key] {
			return
		}
		seen[path+"\x00"+key] = true
		order[path] = append(order[path], key)
	}

	var walk func(table []string, kv *unstable.Node)
	walk = func(table []string, kv *unstable.Node) {
		key := append(append([]string(nil), table...), keyParts(kv.Key())...)
		record(key[:len(key)-1], key[len(key)-1])
		if value := kv.Value(); value.Kind == unstable.InlineTable {
			it := value.Children()
			for it.Next() {
				walk(key, it.Node())
			}
		}
	}

	var p unstable.Parser
	p.Reset(content)
	var table []string
	for p.NextExpression() {
		expr := p.Expression()
		switch expr.Kind {
		case unstable.Table, unstable.ArrayTable:
			table = keyParts(expr.Key())
		case unstable.KeyValue:
			walk(table, expr)
		}
	}
	return order, p.Error()
}

func keyParts(it unstable.Iterator) []string {
	var parts []string
	for it.Next() {
		parts = append(parts, string(it.Node().Data))
	}
	return parts
}

// orderedKeys returns the keys of m in the given order. Keys missing from
// order, which should not happen, follow sorted.
func orderedKeys(m map[string]any, order []string) []string {
	keys := make([]string, 0, len(m))
	used := make(map[string]bool, len(m))
	for _, k := range order {
		if _, ok := m[k]; ok && !used[k] {
			keys = append(keys, k)
			used[k] = true
		}
	}
	var rest []string
	for k := range m {
		if !used[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

// tomlValues flattens a scalar or an array into strings.
func tomlValues(v any) []string {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, tomlValues(item)...)
		}
		return out
	case string:
		return []string{t}
	case int64:
		return []string{strconv.FormatInt(t, 10)}
	case float64:
		return []string{strconv.FormatFloat(t, 'f', -1, 64)}
	case bool:
		return []string{strconv.FormatBool(t)}
	case nil:
		return []string{""}
	default:
		return []string{fmt.Sprint(t)}
	}
}
