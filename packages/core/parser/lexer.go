package parser

import (
	"strings"
)

type TokenType int

const (
	TokenEOF TokenType = iota
	TokenBlank
	TokenComment
	TokenSeparator
	TokenAnnotation
	TokenVariable
	TokenQueryParam
	TokenAmpersand
	TokenFileRef
	TokenBlockStart
	TokenBlockEnd
	TokenText
)

func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "end of file"
	case TokenBlank:
		return "blank line"
	case TokenComment:
		return "comment"
	case TokenSeparator:
		return "request separator"
	case TokenAnnotation:
		return "annotation"
	case TokenVariable:
		return "variable"
	case TokenQueryParam:
		return "query parameter"
	case TokenAmpersand:
		return "'&' field"
	case TokenFileRef:
		return "file reference"
	case TokenBlockStart:
		return "block start"
	case TokenBlockEnd:
		return "block end"
	default:
		return "text"
	}
}

// Token is one line of input. Value carries the main payload (a name, key,
// path or the trimmed line) and Literal the value part of key/value lines.
type Token struct {
	Type    TokenType
	Value   string
	Literal string
	Raw     string
	Line    int
	Column  int
}

type Lexer struct {
	input   string
	pos     int
	readPos int
	ch      byte
	line    int
}

func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
	}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
}

func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) NextToken() Token {
	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Line: l.line, Column: 1}
	}

	line := l.line
	raw := l.readToEndOfLine()
	l.readNewline()

	tok := classifyLine(raw)
	tok.Raw = raw
	tok.Line = line
	tok.Column = 1 + len(raw) - len(strings.TrimLeft(raw, " \t"))
	return tok
}

func (l *Lexer) readToEndOfLine() string {
	start := l.pos
	for l.pos < len(l.input) && l.ch != '\n' && l.ch != '\r' {
		l.readChar()
	}
	return l.input[start:l.pos]
}

func (l *Lexer) readNewline() {
	switch l.ch {
	case '\r':
		if l.peekChar() == '\n' {
			l.readChar()
		}
		l.readChar()
		l.line++
	case '\n':
		l.readChar()
		l.line++
	}
}

func classifyLine(raw string) Token {
	s := strings.TrimSpace(raw)

	switch {
	case s == "":
		return Token{Type: TokenBlank}
	case strings.HasPrefix(s, "###"):
		return Token{Type: TokenSeparator, Value: strings.TrimSpace(s[3:])}
	case strings.HasPrefix(s, "#"):
		return readComment(s[1:])
	case strings.HasPrefix(s, "//"):
		return readComment(s[2:])
	case strings.HasPrefix(s, "@"):
		if tok, ok := readAnnotationOrVariable(s[1:]); ok {
			return tok
		}
	case strings.HasPrefix(s, ">>>"):
		return Token{Type: TokenBlockStart, Value: strings.TrimSpace(s[3:])}
	case strings.HasPrefix(s, "<<<"):
		return Token{Type: TokenBlockEnd, Value: "<<<"}
	case len(s) > 1 && s[0] == '<' && isSpace(s[1]):
		return Token{Type: TokenFileRef, Value: strings.TrimSpace(s[1:])}
	case s[0] == '?':
		key, value := splitPair(s[1:], '=')
		return Token{Type: TokenQueryParam, Value: key, Literal: value}
	case s[0] == '&':
		key, value := splitPair(s[1:], '=')
		return Token{Type: TokenAmpersand, Value: key, Literal: value}
	}

	return Token{Type: TokenText, Value: s}
}

func readComment(rest string) Token {
	trimmed := strings.TrimSpace(rest)
	if strings.HasPrefix(trimmed, "@") {
		if tok, ok := readAnnotationOrVariable(trimmed[1:]); ok && tok.Type == TokenAnnotation {
			return tok
		}
	}
	return Token{Type: TokenComment, Value: trimmed}
}

// readAnnotationOrVariable reads what follows an '@': "name = value" is a
// variable, "name value" an annotation.
func readAnnotationOrVariable(rest string) (Token, bool) {
	name := readIdentifier(rest)
	if name == "" {
		return Token{}, false
	}
	tail := strings.TrimSpace(rest[len(name):])
	if strings.HasPrefix(tail, "=") {
		return Token{
			Type:    TokenVariable,
			Value:   name,
			Literal: strings.TrimSpace(tail[1:]),
		}, true
	}
	if tail != "" && !isSpace(rest[len(name)]) {
		return Token{}, false
	}
	return Token{
		Type:    TokenAnnotation,
		Value:   name,
		Literal: tail,
	}, true
}

func readIdentifier(s string) string {
	i := 0
	for i < len(s) && (isLetter(s[i]) || isDigit(s[i]) || s[i] == '-' || s[i] == '.') {
		i++
	}
	return s[:i]
}

func splitPair(s string, sep byte) (string, string) {
	idx := strings.IndexByte(s, sep)
	if idx < 0 {
		return strings.TrimSpace(s), ""
	}
	return strings.TrimSpace(s[:idx]), strings.TrimSpace(s[idx+1:])
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t'
}

func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isHTTPMethod(s string) bool {
	switch s {
	case "GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS", "TRACE", "CONNECT":
		return true
	}
	return false
}
