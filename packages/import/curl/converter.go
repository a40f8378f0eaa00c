// Package curl converts curl command lines into rede request files.
package curl

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/rede/packages/core/parser"
)

// Converter converts curl commands to the .http request format.
type Converter struct {
	comments bool
}

// Option is a functional option for Converter.
type Option func(*Converter)

// WithComments adds a comment line with the original command above each
// converted request.
func WithComments(enabled bool) Option {
	return func(c *Converter) {
		c.comments = enabled
	}
}

// NewConverter creates a new curl converter.
func NewConverter(opts ...Option) *Converter {
	c := &Converter{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ParsedCurl is the part of a curl command that a request file can express.
type ParsedCurl struct {
	Method  string
	URL     string
	Version string
	// Headers keeps command order and repeated names.
	Headers         []parser.Header
	Data            []string
	DataFile        string
	Form            []FormPart
	GetData         bool
	FollowRedirects bool
	MaxRedirects    *int
	Timeout         *time.Duration
	Name            string
	Command         string
}

// FormPart is one -F argument.
type FormPart struct {
	Name  string
	Value string
	File  bool
}

// ConvertCommand converts a single curl command.
func (c *Converter) ConvertCommand(curlCmd string) (string, error) {
	parsed, err := c.Parse(curlCmd)
	if err != nil {
		return "", err
	}
	return c.ToRequestFile(parsed), nil
}

// ConvertReader converts every curl command read from r. Lines ending in a
// backslash continue on the next line; blank lines and # comments are skipped.
func (c *Converter) ConvertReader(r io.Reader) (string, error) {
	var commands []string
	var currentCmd strings.Builder
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasSuffix(line, "\\") {
			currentCmd.WriteString(strings.TrimSuffix(line, "\\"))
			currentCmd.WriteString(" ")
			continue
		}

		currentCmd.WriteString(line)
		commands = append(commands, currentCmd.String())
		currentCmd.Reset()
	}

	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read commands: %w", err)
	}

	if currentCmd.Len() > 0 {
		commands = append(commands, currentCmd.String())
	}

	if len(commands) == 0 {
		return "", fmt.Errorf("no curl commands found")
	}

	var sb strings.Builder
	for i, cmd := range commands {
		converted, err := c.ConvertCommand(cmd)
		if err != nil {
			return "", fmt.Errorf("failed to convert command %d: %w", i+1, err)
		}
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(converted)
	}

	return sb.String(), nil
}

// Parse parses a curl command string into a ParsedCurl.
func (c *Converter) Parse(curlCmd string) (*ParsedCurl, error) {
	parsed := &ParsedCurl{
		Command: strings.TrimSpace(curlCmd),
	}

	tokens := tokenize(parsed.Command)
	if len(tokens) > 0 && tokens[0] == "curl" {
		tokens = tokens[1:]
	}

	value := func(i int) (string, error) {
		if i+1 >= len(tokens) {
			return "", fmt.Errorf("missing value for %s", tokens[i])
		}
		return tokens[i+1], nil
	}

	for i := 0; i < len(tokens); i++ {
		token := tokens[i]

		switch token {
		case "-X", "--request":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			parsed.Method = strings.ToUpper(v)
			i++

		case "-H", "--header":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			name, hv, ok := strings.Cut(v, ":")
			if !ok || strings.TrimSpace(name) == "" {
				return nil, fmt.Errorf("invalid header %q", v)
			}
			parsed.addHeader(strings.TrimSpace(name), strings.TrimSpace(hv))
			i++

		case "-d", "--data", "--data-raw", "--data-ascii", "--data-binary", "--data-urlencode":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			if strings.HasPrefix(v, "@") && token != "--data-raw" {
				parsed.DataFile = strings.TrimPrefix(v, "@")
			} else {
				parsed.Data = append(parsed.Data, v)
			}
			i++

		case "-F", "--form":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			name, fv, ok := strings.Cut(v, "=")
			if !ok || name == "" {
				return nil, fmt.Errorf("invalid form field %q", v)
			}
			part := FormPart{Name: name, Value: fv}
			if strings.HasPrefix(fv, "@") {
				part.File = true
				part.Value = strings.TrimPrefix(fv, "@")
			}
			parsed.Form = append(parsed.Form, part)
			i++

		case "-G", "--get":
			parsed.GetData = true

		case "-u", "--user":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			parsed.addHeader("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(v)))
			i++

		case "-A", "--user-agent":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			parsed.addHeader("User-Agent", v)
			i++

		case "-e", "--referer":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			parsed.addHeader("Referer", v)
			i++

		case "-b", "--cookie":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			parsed.addHeader("Cookie", v)
			i++

		case "-L", "--location":
			parsed.FollowRedirects = true

		case "--max-redirs":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("invalid --max-redirs value %q", v)
			}
			parsed.MaxRedirects = &n
			i++

		case "-m", "--max-time":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			secs, err := strconv.ParseFloat(v, 64)
			if err != nil || secs < 0 {
				return nil, fmt.Errorf("invalid --max-time value %q", v)
			}
			d := time.Duration(secs * float64(time.Second))
			parsed.Timeout = &d
			i++

		case "-0", "--http1.0":
			parsed.Version = "HTTP/1.0"
		case "--http1.1":
			parsed.Version = "HTTP/1.1"
		case "--http2", "--http2-prior-knowledge":
			parsed.Version = "HTTP/2"

		case "--url":
			v, err := value(i)
			if err != nil {
				return nil, err
			}
			parsed.URL = v
			i++

		default:
			if strings.HasPrefix(token, "-") {
				// Unknown flag, skip its value when it clearly has one.
				if i+1 < len(tokens) && !strings.HasPrefix(tokens[i+1], "-") && !isURL(tokens[i+1]) {
					i++
				}
				continue
			}
			if parsed.URL == "" {
				parsed.URL = token
			}
		}
	}

	if parsed.URL == "" {
		return nil, fmt.Errorf("no URL found in curl command")
	}
	if !strings.Contains(parsed.URL, "://") && !strings.HasPrefix(parsed.URL, "{{") {
		parsed.URL = "http://" + parsed.URL
	}

	if parsed.GetData && len(parsed.Data) > 0 {
		sep := "?"
		if strings.Contains(parsed.URL, "?") {
			sep = "&"
		}
		parsed.URL += sep + strings.Join(parsed.Data, "&")
		parsed.Data = nil
	}

	if parsed.Method == "" {
		switch {
		case parsed.GetData:
			parsed.Method = "GET"
		case len(parsed.Data) > 0 || parsed.DataFile != "" || len(parsed.Form) > 0:
			parsed.Method = "POST"
		default:
			parsed.Method = "GET"
		}
	}

	parsed.Name = generateName(parsed.URL, parsed.Method)

	return parsed, nil
}

func (p *ParsedCurl) addHeader(name, value string) {
	p.Headers = append(p.Headers, parser.Header{Key: name, Value: value})
}

func (p *ParsedCurl) hasHeader(name string) bool {
	for _, h := range p.Headers {
		if strings.EqualFold(h.Key, name) {
			return true
		}
	}
	return false
}

// ToRequestFile renders a ParsedCurl as a .http request. curl does not
// follow redirects unless -L is given, so the output says so explicitly.
func (c *Converter) ToRequestFile(parsed *ParsedCurl) string {
	var sb strings.Builder

	sb.WriteString("### ")
	sb.WriteString(parsed.Name)
	sb.WriteString("\n")

	if c.comments && parsed.Command != "" {
		sb.WriteString("# ")
		sb.WriteString(strings.Join(strings.Fields(parsed.Command), " "))
		sb.WriteString("\n")
	}

	if parsed.Timeout != nil {
		fmt.Fprintf(&sb, "# @timeout %s\n", parsed.Timeout)
	}
	if !parsed.FollowRedirects {
		sb.WriteString("# @no-redirect\n")
	} else if parsed.MaxRedirects != nil {
		fmt.Fprintf(&sb, "# @max-redirects %d\n", *parsed.MaxRedirects)
	}

	sb.WriteString(parsed.Method)
	sb.WriteString(" ")
	sb.WriteString(parsed.URL)
	if parsed.Version != "" {
		sb.WriteString(" ")
		sb.WriteString(parsed.Version)
	}
	sb.WriteString("\n")

	for _, h := range parsed.Headers {
		sb.WriteString(h.Key)
		sb.WriteString(": ")
		sb.WriteString(h.Value)
		sb.WriteString("\n")
	}

	switch {
	case len(parsed.Form) > 0:
		sb.WriteString("\n>>>multipart\n")
		for _, part := range parsed.Form {
			kind := "field"
			if part.File {
				kind = "file"
			}
			fmt.Fprintf(&sb, "%s %s = %s\n", kind, part.Name, part.Value)
		}
		sb.WriteString("<<<\n")

	case parsed.DataFile != "":
		sb.WriteString("\n< ")
		sb.WriteString(parsed.DataFile)
		sb.WriteString("\n")

	case len(parsed.Data) > 0:
		body := strings.Join(parsed.Data, "&")
		if !parsed.hasHeader("Content-Type") && isFormEncoded(body) {
			sb.WriteString("\n")
			for _, pair := range strings.Split(body, "&") {
				k, v, _ := strings.Cut(pair, "=")
				fmt.Fprintf(&sb, "& %s = %s\n", unescape(k), unescape(v))
			}
			break
		}
		sb.WriteString("\n")
		sb.WriteString(body)
		sb.WriteString("\n")
	}

	return sb.String()
}

var formPair = regexp.MustCompile(`^[A-Za-z0-9_.\-~%+\[\]]+=[^&\n]*(&[A-Za-z0-9_.\-~%+\[\]]+=[^&\n]*)*$`)

// isFormEncoded reports whether data looks like a=1&b=2, the way curl sends
// -d without a content type.
func isFormEncoded(data string) bool {
	return formPair.MatchString(data)
}

func unescape(s string) string {
	if v, err := url.QueryUnescape(s); err == nil {
		return v
	}
	return s
}

// tokenize splits a curl command into tokens, respecting quotes.
func tokenize(cmd string) []string {
	var tokens []string
	var current strings.Builder
	inSingleQuote := false
	inDoubleQuote := false
	escaped := false
	started := false

	for _, r := range cmd {
		if escaped {
			current.WriteRune(r)
			escaped = false
			continue
		}

		switch r {
		case '\\':
			if inSingleQuote {
				current.WriteRune(r)
			} else {
				escaped = true
			}
		case '\'':
			if !inDoubleQuote {
				inSingleQuote = !inSingleQuote
				started = true
			} else {
				current.WriteRune(r)
			}
		case '"':
			if !inSingleQuote {
				inDoubleQuote = !inDoubleQuote
				started = true
			} else {
				current.WriteRune(r)
			}
		case ' ', '\t', '\n':
			if inSingleQuote || inDoubleQuote {
				current.WriteRune(r)
			} else if current.Len() > 0 || started {
				tokens = append(tokens, current.String())
				current.Reset()
				started = false
			}
		default:
			current.WriteRune(r)
		}
	}

	if current.Len() > 0 || started {
		tokens = append(tokens, current.String())
	}

	return tokens
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "{{")
}

var urlPath = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]*://[^/?#]*(/[^?#]*)?`)
var nonWord = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// generateName derives a request name such as "get_users_1" from the method
// and URL path.
func generateName(rawURL, method string) string {
	path := "/"
	if matches := urlPath.FindStringSubmatch(rawURL); len(matches) > 1 && matches[1] != "" {
		path = matches[1]
	}

	name := strings.Trim(nonWord.ReplaceAllString(path, "_"), "_")
	if name == "" {
		name = "root"
	}

	return strings.ToLower(method) + "_" + strings.ToLower(name)
}
