package parser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/rede/packages/core/failure"
)

type Parser struct {
	lexer        *Lexer
	curToken     Token
	file         string
	declaredType string
}

func NewParser(input string) *Parser {
	p := &Parser{
		lexer: NewLexer(input),
	}
	p.nextToken()
	return p
}

// ParseFile reads and parses the definition at path. Errors are classified:
// an unreadable file is an InvalidRequestFile, a grammar error a ParseError.
func ParseFile(path string) (*File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, failure.Wrap(failure.InvalidRequestFile, path, err, "%s: %s", path, failure.Reason(err))
	}

	var file *File
	if IsTOMLFile(path) {
		file, err = ParseTOML(content, path)
	} else {
		file, err = Parse(string(content), path)
	}
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			return nil, failure.Wrap(failure.ParseError, path, perr, "%s", perr.Error())
		}
		return nil, failure.Wrap(failure.ParseError, path, err, "%s: %s", path, err.Error())
	}
	return file, nil
}

func IsTOMLFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// IsRequestFile reports whether path has one of the extensions rede reads.
func IsRequestFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".http", ".rede", ".toml":
		return true
	}
	return false
}

func Parse(input, filename string) (*File, error) {
	p := NewParser(input)
	p.file = filename
	return p.ParseFile()
}

func (p *Parser) nextToken() {
	p.curToken = p.lexer.NextToken()
	for p.curToken.Type == TokenComment {
		p.curToken = p.lexer.NextToken()
	}
}

func (p *Parser) nextTokenRaw() {
	p.curToken = p.lexer.NextToken()
}

func (p *Parser) skipBlanks() {
	for p.curToken.Type == TokenBlank {
		p.nextToken()
	}
}

// skipBlanksRaw is skipBlanks for body context, where comment lines are
// content.
func (p *Parser) skipBlanksRaw() {
	for p.curToken.Type == TokenBlank {
		p.nextTokenRaw()
	}
}

func (p *Parser) errorf(tok Token, format string, args ...any) *ParseError {
	return &ParseError{
		File:    p.file,
		Line:    tok.Line,
		Column:  tok.Column,
		Message: fmt.Sprintf(format, args...),
		Snippet: tok.Raw,
	}
}

func (p *Parser) ParseFile() (*File, error) {
	file := &File{Path: p.file}

	for p.curToken.Type != TokenEOF {
		switch p.curToken.Type {
		case TokenBlank:
			p.nextToken()
		case TokenVariable:
			file.Variables = append(file.Variables, p.parseVariable())
			p.nextToken()
		case TokenSeparator, TokenAnnotation, TokenText:
			req, err := p.parseRequest(file)
			if err != nil {
				return nil, err
			}
			if req != nil {
				file.Requests = append(file.Requests, req)
			}
		default:
			return nil, p.errorf(p.curToken, "unexpected %s before request line", p.curToken.Type)
		}
	}

	if len(file.Requests) == 0 {
		return nil, p.errorf(p.curToken, "no request found")
	}
	return file, nil
}

func (p *Parser) parseVariable() *Variable {
	return &Variable{
		Name:  p.curToken.Value,
		Value: p.curToken.Literal,
		Line:  p.curToken.Line,
	}
}

func (p *Parser) parseRequest(file *File) (*Request, error) {
	req := &Request{
		Metadata: &RequestMetadata{},
		Line:     p.curToken.Line,
	}
	p.declaredType = ""

	if p.curToken.Type == TokenSeparator {
		req.Name = p.curToken.Value
		p.nextToken()
	}

	for {
		switch p.curToken.Type {
		case TokenBlank:
			p.nextToken()
			continue
		case TokenVariable:
			file.Variables = append(file.Variables, p.parseVariable())
			p.nextToken()
			continue
		case TokenAnnotation:
			if err := p.parseAnnotation(req); err != nil {
				return nil, err
			}
			p.nextToken()
			continue
		}
		break
	}

	// A separator with nothing under it.
	if p.curToken.Type == TokenSeparator || p.curToken.Type == TokenEOF {
		return nil, nil
	}

	if p.curToken.Type != TokenText {
		return nil, p.errorf(p.curToken, "expected request line, got %s", p.curToken.Type)
	}
	req.Line = p.curToken.Line
	if err := p.parseRequestLine(req); err != nil {
		return nil, err
	}
	p.nextToken()

	if err := p.parseHead(req); err != nil {
		return nil, err
	}

	body, err := p.parseBody()
	if err != nil {
		return nil, err
	}
	if body != nil && body.ContentType == "" {
		body.ContentType = p.declaredType
	}
	req.Body = body

	return req, nil
}

func (p *Parser) parseAnnotation(req *Request) error {
	tok := p.curToken
	name := strings.ToLower(tok.Value)
	value := tok.Literal

	switch name {
	case "name":
		req.Name = value
	case "description":
		req.Description = value
	case "timeout":
		d, err := parseTimeout(value)
		if err != nil {
			return p.errorf(tok, "invalid @timeout value %q", value)
		}
		req.Metadata.Timeout = &d
	case "max-redirects", "maxredirects":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return p.errorf(tok, "invalid @max-redirects value %q", value)
		}
		req.Metadata.MaxRedirects = &n
	case "no-redirect", "noredirect":
		req.Metadata.NoRedirect = true
	case "content-type", "contenttype":
		if value == "" {
			return p.errorf(tok, "@content-type needs a value")
		}
		p.declaredType = value
	}

	return nil
}

// parseTimeout accepts Go durations ("5s", "250ms") and bare integers, which
// are read as milliseconds.
func parseTimeout(value string) (time.Duration, error) {
	if n, err := strconv.Atoi(value); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative timeout %d", n)
		}
		return time.Duration(n) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative timeout %s", value)
	}
	return d, nil
}

func (p *Parser) parseRequestLine(req *Request) error {
	tok := p.curToken
	fields := strings.Fields(tok.Value)

	method := strings.ToUpper(fields[0])
	if !isHTTPMethod(method) {
		return p.errorf(tok, "unknown HTTP method %q", fields[0])
	}
	req.Method = method

	if len(fields) < 2 {
		return p.errorf(tok, "missing URL after %s", method)
	}

	base, params := SplitURLQuery(fields[1], tok.Line)
	req.URL = base
	req.QueryParams = append(req.QueryParams, params...)

	if len(fields) >= 3 {
		version, ok := normalizeVersion(fields[2])
		if !ok {
			tok.Column = columnOf(tok.Raw, fields[2])
			return p.errorf(tok, "malformed HTTP version %q", fields[2])
		}
		req.Version = version
	}
	if len(fields) > 3 {
		tok.Column = columnOf(tok.Raw, fields[3])
		return p.errorf(tok, "unexpected %q after HTTP version", fields[3])
	}
	return nil
}

// normalizeVersion checks for the HTTP/<major>[.<minor>] shape. It does not
// decide whether the version is supported.
func normalizeVersion(s string) (string, bool) {
	rest, ok := strings.CutPrefix(strings.ToUpper(s), "HTTP/")
	if !ok || rest == "" {
		return "", false
	}
	major, minor, hasMinor := strings.Cut(rest, ".")
	if len(major) != 1 || !isDigit(major[0]) {
		return "", false
	}
	if !hasMinor {
		return "HTTP/" + major, true
	}
	if len(minor) != 1 || !isDigit(minor[0]) {
		return "", false
	}
	if major == "2" && minor == "0" {
		return "HTTP/2", true
	}
	return "HTTP/" + major + "." + minor, true
}

func columnOf(raw, field string) int {
	if idx := strings.Index(raw, field); idx >= 0 {
		return idx + 1
	}
	return 1
}

func (p *Parser) parseHead(req *Request) error {
	for {
		switch p.curToken.Type {
		case TokenQueryParam, TokenAmpersand:
			qp, err := p.parseQueryParam()
			if err != nil {
				return err
			}
			req.QueryParams = append(req.QueryParams, qp)
		case TokenText:
			header, err := p.parseHeader()
			if err != nil {
				return err
			}
			req.Headers = append(req.Headers, header)
		case TokenAnnotation, TokenVariable:
			return p.errorf(p.curToken, "unexpected %s in request headers", p.curToken.Type)
		default:
			return nil
		}
		p.nextToken()
	}
}

func (p *Parser) parseQueryParam() (*QueryParam, error) {
	tok := p.curToken
	if tok.Value == "" {
		return nil, p.errorf(tok, "missing query parameter name")
	}
	return &QueryParam{
		Key:   tok.Value,
		Value: tok.Literal,
		Line:  tok.Line,
	}, nil
}

func (p *Parser) parseHeader() (*Header, error) {
	tok := p.curToken
	idx := strings.IndexByte(tok.Value, ':')
	if idx < 0 {
		return nil, p.errorf(tok, "expected header \"Name: value\", got %q", tok.Value)
	}
	key := strings.TrimSpace(tok.Value[:idx])
	if !validHeaderName(key) {
		return nil, p.errorf(tok, "invalid header name %q", key)
	}
	return &Header{
		Key:   key,
		Value: strings.TrimSpace(tok.Value[idx+1:]),
		Line:  tok.Line,
	}, nil
}

func validHeaderName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if isLetter(c) || isDigit(c) {
			continue
		}
		if !strings.ContainsRune("!#$%&'*+-.^`|~", rune(c)) {
			return false
		}
	}
	return true
}

func (p *Parser) parseBody() (*Body, error) {
	p.skipBlanksRaw()

	switch p.curToken.Type {
	case TokenSeparator, TokenEOF:
		return nil, nil
	case TokenFileRef:
		body := &Body{
			Kind: BodyBinary,
			Path: p.curToken.Value,
			Line: p.curToken.Line,
		}
		p.nextToken()
		return body, p.expectEndOfRequest("file reference")
	case TokenBlockStart:
		if !strings.EqualFold(p.curToken.Value, "multipart") {
			return nil, p.errorf(p.curToken, "unknown block %q", p.curToken.Value)
		}
		body, err := p.parseMultipartBody()
		if err != nil {
			return nil, err
		}
		return body, p.expectEndOfRequest("multipart block")
	case TokenAmpersand:
		return p.parseFormBody()
	}

	return p.parseRawBody(), nil
}

func (p *Parser) expectEndOfRequest(after string) error {
	p.skipBlanks()
	if p.curToken.Type != TokenSeparator && p.curToken.Type != TokenEOF {
		return p.errorf(p.curToken, "unexpected %s after %s", p.curToken.Type, after)
	}
	return nil
}

// parseRawBody takes every line up to the next separator verbatim, comment
// lines included.
func (p *Parser) parseRawBody() *Body {
	line := p.curToken.Line
	var lines []string
	for p.curToken.Type != TokenSeparator && p.curToken.Type != TokenEOF {
		lines = append(lines, p.curToken.Raw)
		p.nextTokenRaw()
	}

	raw := strings.TrimRight(strings.Join(lines, "\n"), " \t\n")
	if raw == "" {
		return nil
	}
	return &Body{
		Kind: BodyRaw,
		Raw:  raw,
		Line: line,
	}
}

func (p *Parser) parseFormBody() (*Body, error) {
	body := &Body{
		Kind: BodyForm,
		Line: p.curToken.Line,
	}

	for p.curToken.Type != TokenSeparator && p.curToken.Type != TokenEOF {
		switch p.curToken.Type {
		case TokenBlank:
		case TokenAmpersand:
			if p.curToken.Value == "" {
				return nil, p.errorf(p.curToken, "missing form field name")
			}
			body.Form = append(body.Form, &FormField{
				Key:   p.curToken.Value,
				Value: p.curToken.Literal,
				Line:  p.curToken.Line,
			})
		default:
			return nil, p.errorf(p.curToken, "expected form field \"& name = value\", got %s", p.curToken.Type)
		}
		p.nextToken()
	}

	return body, nil
}

func (p *Parser) parseMultipartBody() (*Body, error) {
	start := p.curToken
	body := &Body{
		Kind: BodyMultipart,
		Line: start.Line,
	}
	p.nextToken()

	for p.curToken.Type != TokenBlockEnd {
		switch p.curToken.Type {
		case TokenEOF, TokenSeparator:
			return nil, p.errorf(start, "unterminated multipart block, expected <<<")
		case TokenBlank:
		case TokenText:
			field, err := p.parseMultipartField()
			if err != nil {
				return nil, err
			}
			body.Multipart = append(body.Multipart, field)
		default:
			return nil, p.errorf(p.curToken, "unexpected %s in multipart block", p.curToken.Type)
		}
		p.nextToken()
	}
	p.nextToken()

	return body, nil
}

func (p *Parser) parseMultipartField() (*MultipartField, error) {
	tok := p.curToken
	kind, rest, _ := strings.Cut(tok.Value, " ")
	name, value := splitPair(rest, '=')
	if name == "" {
		return nil, p.errorf(tok, "multipart %s needs a name", kind)
	}

	field := &MultipartField{Name: name, Line: tok.Line}
	switch strings.ToLower(kind) {
	case "field":
		field.Type = MultipartFieldValue
		field.Value = value
	case "file":
		if value == "" {
			return nil, p.errorf(tok, "multipart file %q needs a path", name)
		}
		field.Type = MultipartFieldFile
		field.Path = value
	default:
		return nil, p.errorf(tok, "expected \"field\" or \"file\" in multipart block, got %q", kind)
	}
	return field, nil
}
