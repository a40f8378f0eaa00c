package parser

import (
	"net/url"
	"strings"
)

// SplitURLQuery separates the query string embedded in a URL template from the
// rest of it. Parameters keep their declaration order and are marked FromURL;
// Raw keeps each pair byte for byte so it reaches the wire unchanged. A
// fragment, if any, stays attached to the returned base.
func SplitURLQuery(raw string, line int) (string, []*QueryParam) {
	base, fragment := raw, ""
	if idx := strings.IndexByte(base, '#'); idx >= 0 {
		base, fragment = base[:idx], base[idx:]
	}

	idx := strings.IndexByte(base, '?')
	if idx < 0 {
		return raw, nil
	}
	query := base[idx+1:]
	base = base[:idx]

	var params []*QueryParam
	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		params = append(params, &QueryParam{
			Key:     unescapeQuery(key),
			Value:   unescapeQuery(value),
			Raw:     pair,
			FromURL: true,
			Line:    line,
		})
	}
	return base + fragment, params
}

func unescapeQuery(s string) string {
	if v, err := url.QueryUnescape(s); err == nil {
		return v
	}
	return s
}
