package failure

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Error is a classified failure. Token holds the offending identifier, such
// as a file path, URL or host, when there is one.
type Error struct {
	Kind   Kind
	Detail string
	Token  string
	Err    error
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Kind.Prefix()
	}
	return e.Kind.Prefix() + ": " + e.Detail
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a bare error of the same kind, so callers can
// write errors.Is(err, failure.ErrTimeout).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Detail == "" && t.Err == nil
}

var (
	ErrInvalidRequestFile     = &Error{Kind: InvalidRequestFile}
	ErrParse                  = &Error{Kind: ParseError}
	ErrInvalidFile            = &Error{Kind: InvalidFile}
	ErrInvalidURL             = &Error{Kind: InvalidURL}
	ErrRequestBuild           = &Error{Kind: RequestBuildFailure}
	ErrFailedConnection       = &Error{Kind: FailedConnection}
	ErrTimeout                = &Error{Kind: Timeout}
	ErrUnsupportedHTTPVersion = &Error{Kind: UnsupportedHTTPVersion}
	ErrRedirectLoop           = &Error{Kind: RedirectLoop}
)

func New(kind Kind, token, format string, args ...any) *Error {
	return &Error{
		Kind:   kind,
		Detail: fmt.Sprintf(format, args...),
		Token:  token,
	}
}

func Wrap(kind Kind, token string, err error, format string, args ...any) *Error {
	return &Error{
		Kind:   kind,
		Detail: fmt.Sprintf(format, args...),
		Token:  token,
		Err:    err,
	}
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var ferr *Error
	if errors.As(err, &ferr) {
		return ferr.Kind
	}
	return Unknown
}

// Reason renders an operating system error the way it appears in user
// messages: the innermost cause with its first letter capitalized, e.g.
// "No such file or directory".
func Reason(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			break
		}
		err = next
	}
	msg := strings.TrimSpace(err.Error())
	r, size := utf8.DecodeRuneInString(msg)
	if r == utf8.RuneError {
		return msg
	}
	return string(unicode.ToUpper(r)) + msg[size:]
}
