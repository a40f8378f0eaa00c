package http

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"mime/multipart"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/abdul-hamid-achik/rede/packages/core/failure"
	"github.com/abdul-hamid-achik/rede/packages/core/parser"
)

const (
	ContentTypeJSON      = "application/json"
	ContentTypeXML       = "application/xml"
	ContentTypeText      = "text/plain"
	ContentTypeForm      = "application/x-www-form-urlencoded"
	ContentTypeOctet     = "application/octet-stream"
	ContentTypeMultipart = "multipart/form-data"
)

// Body is a resolved request body. An empty ContentType means no header is
// emitted for it.
type Body struct {
	Kind        parser.BodyKind
	Bytes       []byte
	ContentType string
}

// ResolveBody produces the final bytes and effective content type of spec.
// The only I/O it performs is reading files referenced by binary and
// multipart bodies. opts.ContentType, when set, wins over everything.
func ResolveBody(spec *parser.Body, opts Options) (*Body, error) {
	body := &Body{Kind: parser.BodyNone}
	if spec != nil {
		var err error
		switch spec.Kind {
		case parser.BodyRaw:
			body.Kind = parser.BodyRaw
			body.Bytes = []byte(spec.Raw)
			body.ContentType = firstNonEmpty(spec.ContentType, InferContentType(spec.Raw))
		case parser.BodyBinary:
			body.Kind = parser.BodyBinary
			body.Bytes, err = readBodyFile(spec.Path, opts.BaseDir)
			body.ContentType = firstNonEmpty(spec.ContentType, ContentTypeOctet)
		case parser.BodyForm:
			body.Kind = parser.BodyForm
			body.Bytes = encodeForm(spec.Form)
			body.ContentType = firstNonEmpty(spec.ContentType, ContentTypeForm)
		case parser.BodyMultipart:
			body.Kind = parser.BodyMultipart
			body.Bytes, body.ContentType, err = BuildMultipartBody(spec.Multipart, opts.BaseDir)
		}
		if err != nil {
			return nil, err
		}
	}

	if opts.ContentType != "" {
		body.ContentType = opts.ContentType
	}
	return body, nil
}

// InferContentType guesses the type of a raw body from its content.
func InferContentType(raw string) string {
	trimmed := strings.TrimSpace(raw)
	switch {
	case (strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")) && gjson.Valid(trimmed):
		return ContentTypeJSON
	case strings.HasPrefix(trimmed, "<?xml") || (strings.HasPrefix(trimmed, "<") && strings.HasSuffix(trimmed, ">")):
		return ContentTypeXML
	default:
		return ContentTypeText
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func resolvePath(path, baseDir string) string {
	if !filepath.IsAbs(path) && baseDir != "" {
		path = filepath.Join(baseDir, path)
	}
	return filepath.Clean(path)
}

func readBodyFile(path, baseDir string) ([]byte, error) {
	full := resolvePath(path, baseDir)
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, failure.Wrap(failure.InvalidFile, path, err, "%s: %s", full, failure.Reason(err))
	}
	return data, nil
}

// encodeForm keeps declaration order, unlike url.Values.Encode.
func encodeForm(fields []*parser.FormField) []byte {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, url.QueryEscape(f.Key)+"="+url.QueryEscape(f.Value))
	}
	return []byte(strings.Join(parts, "&"))
}

// BuildMultipartBody creates a multipart form data body from multipart fields.
// The boundary is derived from the content so identical inputs give
// identical bytes.
func BuildMultipartBody(fields []*parser.MultipartField, baseDir string) ([]byte, string, error) {
	type part struct {
		field *parser.MultipartField
		data  []byte
	}

	parts := make([]part, 0, len(fields))
	hash := sha256.New()
	for _, field := range fields {
		p := part{field: field}
		if field.Type == parser.MultipartFieldFile {
			data, err := readBodyFile(field.Path, baseDir)
			if err != nil {
				return nil, "", err
			}
			p.data = data
		} else {
			p.data = []byte(field.Value)
		}
		hash.Write([]byte(field.Name))
		hash.Write([]byte{0})
		hash.Write(p.data)
		hash.Write([]byte{0})
		parts = append(parts, p)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.SetBoundary("rede-" + hex.EncodeToString(hash.Sum(nil))[:32]); err != nil {
		return nil, "", err
	}

	for _, p := range parts {
		if p.field.Type == parser.MultipartFieldFile {
			w, err := writer.CreateFormFile(p.field.Name, filepath.Base(p.field.Path))
			if err != nil {
				return nil, "", err
			}
			if _, err := w.Write(p.data); err != nil {
				return nil, "", err
			}
			continue
		}
		if err := writer.WriteField(p.field.Name, p.field.Value); err != nil {
			return nil, "", err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body.Bytes(), writer.FormDataContentType(), nil
}
