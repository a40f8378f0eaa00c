package parser

import (
	"strconv"
	"strings"
	"time"
)

type File struct {
	Path      string
	Variables []*Variable
	Requests  []*Request
}

type Variable struct {
	Name  string
	Value string
	Line  int
}

type Request struct {
	Name        string
	Description string
	Method      string
	URL         string
	Version     string
	Headers     []*Header
	QueryParams []*QueryParam
	Body        *Body
	Metadata    *RequestMetadata
	Line        int
}

// RequestMetadata holds per-request runtime defaults set through annotations.
// Nil pointers mean "not set".
type RequestMetadata struct {
	Timeout      *time.Duration
	MaxRedirects *int
	NoRedirect   bool
}

type Header struct {
	Key   string
	Value string
	Line  int
}

// QueryParam is a query parameter. Pairs taken from the URL also keep their
// text as written in Raw.
type QueryParam struct {
	Key     string
	Value   string
	Raw     string
	FromURL bool
	Line    int
}

type Body struct {
	Kind        BodyKind
	Raw         string
	Path        string
	ContentType string
	Form        []*FormField
	Multipart   []*MultipartField
	Line        int
}

type BodyKind int

const (
	BodyNone BodyKind = iota
	BodyRaw
	BodyBinary
	BodyForm
	BodyMultipart
)

func (k BodyKind) String() string {
	switch k {
	case BodyRaw:
		return "raw"
	case BodyBinary:
		return "binary"
	case BodyForm:
		return "form"
	case BodyMultipart:
		return "multipart"
	default:
		return "none"
	}
}

type FormField struct {
	Key   string
	Value string
	Line  int
}

type MultipartField struct {
	Type  MultipartFieldType
	Name  string
	Value string
	Path  string
	Line  int
}

type MultipartFieldType int

const (
	MultipartFieldValue MultipartFieldType = iota
	MultipartFieldFile
)

// Find returns the request with the given name, or the first request when
// name is empty.
func (f *File) Find(name string) (*Request, bool) {
	if len(f.Requests) == 0 {
		return nil, false
	}
	if name == "" {
		return f.Requests[0], true
	}
	for _, req := range f.Requests {
		if req.Name == name {
			return req, true
		}
	}
	return nil, false
}

// HeaderValues returns every value declared for key, compared case-insensitively.
func (r *Request) HeaderValues(key string) []string {
	var values []string
	for _, h := range r.Headers {
		if strings.EqualFold(h.Key, key) {
			values = append(values, h.Value)
		}
	}
	return values
}

type ParseError struct {
	File    string
	Line    int
	Column  int
	Message string
	Snippet string
}

func (e *ParseError) Error() string {
	if e.File != "" {
		return e.File + ":" + strconv.Itoa(e.Line) + ":" + strconv.Itoa(e.Column) + ": " + e.Message
	}
	return "line " + strconv.Itoa(e.Line) + ": " + e.Message
}
