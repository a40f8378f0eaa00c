package runner

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/abdul-hamid-achik/rede/packages/core/config"
	"github.com/abdul-hamid-achik/rede/packages/core/failure"
	"github.com/abdul-hamid-achik/rede/packages/core/parser"
	"github.com/abdul-hamid-achik/rede/packages/http"
	"github.com/abdul-hamid-achik/rede/packages/mock"
	"github.com/abdul-hamid-achik/rede/packages/output"
)

func echoServer(t *testing.T) string {
	t.Helper()
	server := httptest.NewServer(mock.NewServer().Handler())
	t.Cleanup(server.Close)
	return server.URL
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(t *testing.T, cfg *Config, path string) (*Result, error) {
	t.Helper()
	return NewRunner(cfg).RunFile(context.Background(), path)
}

func TestNewRunner(t *testing.T) {
	r := NewRunner(nil)
	require.NotNil(t, r)
	assert.NotNil(t, r.config.Settings)
	assert.NotNil(t, r.log)
}

func TestRunner_Get(t *testing.T) {
	base := echoServer(t)
	path := writeFile(t, t.TempDir(), "get.http", "GET "+base+"/get\n")

	result, err := run(t, &Config{}, path)

	require.NoError(t, err)
	assert.Equal(t, 200, result.Response.StatusCode)
	assert.Equal(t, `{"hello":"world"}`, strings.TrimSpace(result.Response.BodyString()))
}

func TestRunner_Bodies(t *testing.T) {
	base := echoServer(t)
	dir := t.TempDir()
	writeFile(t, dir, "payload.bin", "12345678")

	tests := []struct {
		name     string
		content  string
		cfg      *Config
		path     string
		expected string
	}{
		{
			name:     "json body",
			content:  "POST " + base + "/echo\n\n{\"hello\": \"world\"}\n",
			path:     "headers.content-type",
			expected: "application/json",
		},
		{
			name:     "text body",
			content:  "POST " + base + "/echo\n\nrede,request\n",
			path:     "body",
			expected: "rede,request",
		},
		{
			name:     "binary body",
			content:  "POST " + base + "/echo\n\n< payload.bin\n",
			path:     "body.size",
			expected: "8",
		},
		{
			name:     "form body",
			content:  "POST " + base + "/echo\n\n& name = Robert\n& city = Paris\n",
			path:     "body",
			expected: "name=Robert&city=Paris",
		},
		{
			name:     "content type override",
			content:  "POST " + base + "/echo\n\n{\"a\": 1}\n",
			cfg:      &Config{ContentType: "text/plain"},
			path:     "headers.content-type",
			expected: "text/plain",
		},
		{
			name:     "http 1.0",
			content:  "GET " + base + "/echo HTTP/1.0\n",
			path:     "http_version",
			expected: "HTTP/1.0",
		},
		{
			name:     "http 2",
			content:  "GET " + base + "/echo HTTP/2\n",
			path:     "http_version",
			expected: "HTTP/2",
		},
		{
			name:     "repeated query params",
			content:  "GET " + base + "/echo?name=Robert\n? name = Edward\n? page = 1\n",
			path:     "num_query_params",
			expected: "3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			if cfg == nil {
				cfg = &Config{}
			}
			path := writeFile(t, dir, "request.http", tt.content)

			result, err := run(t, cfg, path)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, gjson.GetBytes(result.Response.Body, tt.path).String())
		})
	}
}

func TestRunner_Variables(t *testing.T) {
	base := echoServer(t)
	dir := t.TempDir()
	writeFile(t, dir, ".env", "TOKEN=from-dotenv\n")
	content := `@host = ` + base + `
@who = file

GET {{host}}/echo?who={{who}}
Authorization: Bearer {{$dotenv TOKEN}}
X-Id: {{$uuid()}}
`
	path := writeFile(t, dir, "vars.http", content)

	t.Run("file values", func(t *testing.T) {
		result, err := run(t, &Config{}, path)
		require.NoError(t, err)

		body := result.Response.Body
		assert.Equal(t, "file", gjson.GetBytes(body, "query_params.who").String())
		assert.Equal(t, "Bearer from-dotenv", gjson.GetBytes(body, "headers.authorization").String())
		assert.Len(t, gjson.GetBytes(body, "headers.x-id").String(), 36)
	})

	t.Run("cli values are pinned", func(t *testing.T) {
		result, err := run(t, &Config{Variables: map[string]any{"who": "cli"}}, path)
		require.NoError(t, err)
		assert.Equal(t, "cli", gjson.GetBytes(result.Response.Body, "query_params.who").String())
	})

	t.Run("env file overrides dotenv", func(t *testing.T) {
		envFile := writeFile(t, t.TempDir(), "ci.env", "TOKEN=from-ci\n")
		result, err := run(t, &Config{EnvFile: envFile}, path)
		require.NoError(t, err)
		assert.Equal(t, "Bearer from-ci", gjson.GetBytes(result.Response.Body, "headers.authorization").String())
	})

	t.Run("missing env file", func(t *testing.T) {
		_, err := run(t, &Config{EnvFile: filepath.Join(dir, "nope.env")}, path)
		assert.Equal(t, failure.InvalidFile, failure.KindOf(err))
	})
}

func TestRunner_SelectsRequestByName(t *testing.T) {
	base := echoServer(t)
	content := `### first
GET ` + base + `/echo?n=1

### second
GET ` + base + `/echo?n=2
`
	path := writeFile(t, t.TempDir(), "multi.http", content)

	result, err := run(t, &Config{Name: "second"}, path)
	require.NoError(t, err)
	assert.Equal(t, "2", gjson.GetBytes(result.Response.Body, "query_params.n").String())

	result, err = run(t, &Config{}, path)
	require.NoError(t, err)
	assert.Equal(t, "1", gjson.GetBytes(result.Response.Body, "query_params.n").String())

	_, err = run(t, &Config{Name: "third"}, path)
	assert.Equal(t, failure.InvalidRequestFile, failure.KindOf(err))
}

func TestRunner_Failures(t *testing.T) {
	base := echoServer(t)
	dir := t.TempDir()
	zero := time.Duration(0)
	five := 5

	tests := []struct {
		name     string
		content  string
		cfg      *Config
		kind     failure.Kind
		contains []string
	}{
		{
			name:     "missing body file",
			content:  "POST " + base + "/echo\n\n< no_exists.zip\n",
			kind:     failure.InvalidFile,
			contains: []string{"invalid file", "no_exists.zip"},
		},
		{
			name:     "invalid ip",
			content:  "GET http://128.0.0.256\n",
			kind:     failure.InvalidURL,
			contains: []string{"invalid url", "http://128.0.0.256"},
		},
		{
			name:     "malformed scheme",
			content:  "GET htt:/www.url.com\n",
			kind:     failure.RequestBuildFailure,
			contains: []string{"failed request building", "htt:/www.url.com"},
		},
		{
			name:     "zero timeout",
			content:  "GET " + base + "/get\n",
			cfg:      &Config{Timeout: &zero},
			kind:     failure.Timeout,
			contains: []string{"timeout"},
		},
		{
			name:     "annotation timeout",
			content:  "# @timeout 20ms\nGET " + base + "/delay/500\n",
			kind:     failure.Timeout,
			contains: []string{"timeout"},
		},
		{
			name:     "unsupported request version",
			content:  "GET " + base + "/get HTTP/3\n",
			kind:     failure.UnsupportedHTTPVersion,
			contains: []string{"wrong http version"},
		},
		{
			name:     "unparseable response version",
			content:  "GET " + base + "/bad-version\n",
			kind:     failure.UnsupportedHTTPVersion,
			contains: []string{"wrong http version"},
		},
		{
			name:     "redirect loop",
			content:  "GET " + base + "/loop\n",
			cfg:      &Config{MaxRedirects: &five},
			kind:     failure.RedirectLoop,
			contains: []string{"redirect"},
		},
		{
			name:     "parse error",
			content:  "FETCH " + base + "\n",
			kind:     failure.ParseError,
			contains: []string{"parsing error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			if cfg == nil {
				cfg = &Config{}
			}
			path := writeFile(t, dir, "failing.http", tt.content)

			result, err := run(t, cfg, path)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.Equal(t, tt.kind, failure.KindOf(err))
			for _, s := range tt.contains {
				assert.Contains(t, err.Error(), s)
			}
		})
	}
}

func TestRunner_MissingRequestFile(t *testing.T) {
	_, err := run(t, &Config{}, filepath.Join(t.TempDir(), "missing.http"))

	require.Error(t, err)
	assert.Equal(t, failure.InvalidRequestFile, failure.KindOf(err))
	assert.Contains(t, err.Error(), "invalid [REQUEST]")
	assert.Contains(t, err.Error(), "No such file or directory")
}

func TestRunner_Redirects(t *testing.T) {
	base := echoServer(t)
	dir := t.TempDir()

	t.Run("followed by default", func(t *testing.T) {
		path := writeFile(t, dir, "r.http", "GET "+base+"/redirect/3\n")
		result, err := run(t, &Config{}, path)
		require.NoError(t, err)
		assert.Equal(t, 3, result.Response.Redirects)
		assert.Equal(t, "/get", result.Response.URL.Path)
	})

	t.Run("annotation disables", func(t *testing.T) {
		path := writeFile(t, dir, "r.http", "# @no-redirect\nGET "+base+"/redirect/3\n")
		result, err := run(t, &Config{}, path)
		require.NoError(t, err)
		assert.Equal(t, 302, result.Response.StatusCode)
	})

	t.Run("flag beats annotation", func(t *testing.T) {
		follow := true
		path := writeFile(t, dir, "r.http", "# @no-redirect\nGET "+base+"/redirect/2\n")
		result, err := run(t, &Config{FollowRedirects: &follow}, path)
		require.NoError(t, err)
		assert.Equal(t, 200, result.Response.StatusCode)
	})
}

func TestRunner_Options(t *testing.T) {
	flagTimeout := 2 * time.Second
	annotated := 3 * time.Second
	annotatedRedirects := 4

	settings := &config.Config{
		Timeout:      "5s",
		MaxRedirects: config.IntPtr(7),
		Insecure:     config.BoolPtr(true),
		Proxy:        "http://proxy.local:3128",
		Headers:      map[string]string{"Accept": "application/json", "X-Team": "core"},
	}
	def := &parser.Request{
		Method:  "GET",
		URL:     "http://example.com",
		Headers: []*parser.Header{{Key: "accept", Value: "text/plain"}},
		Metadata: &parser.RequestMetadata{
			Timeout:      &annotated,
			MaxRedirects: &annotatedRedirects,
		},
	}

	t.Run("annotation beats config", func(t *testing.T) {
		r := NewRunner(&Config{Settings: settings})
		opts, err := r.Options(def, "/base")
		require.NoError(t, err)

		assert.Equal(t, annotated, opts.Timeout)
		assert.Equal(t, 4, opts.MaxRedirects)
		assert.True(t, opts.FollowRedirects)
		assert.True(t, opts.Insecure)
		assert.Equal(t, "http://proxy.local:3128", opts.Proxy)
		assert.Equal(t, "/base", opts.BaseDir)
		assert.Equal(t, []http.Header{{Name: "X-Team", Value: "core"}}, opts.Headers)
	})

	t.Run("flag beats annotation", func(t *testing.T) {
		r := NewRunner(&Config{
			Settings: settings,
			Timeout:  &flagTimeout,
			Headers:  []http.Header{{Name: "x-team", Value: "cli"}},
		})
		opts, err := r.Options(def, "")
		require.NoError(t, err)

		assert.Equal(t, flagTimeout, opts.Timeout)
		assert.Equal(t, []http.Header{{Name: "x-team", Value: "cli"}}, opts.Headers)
	})

	t.Run("config beats defaults", func(t *testing.T) {
		r := NewRunner(&Config{Settings: settings})
		opts, err := r.Options(&parser.Request{Method: "GET", URL: "http://example.com"}, "")
		require.NoError(t, err)

		assert.Equal(t, 5*time.Second, opts.Timeout)
		assert.Equal(t, 7, opts.MaxRedirects)
	})

	t.Run("defaults", func(t *testing.T) {
		opts, err := NewRunner(nil).Options(&parser.Request{Method: "GET", URL: "http://example.com"}, "")
		require.NoError(t, err)

		assert.Equal(t, http.DefaultTimeout, opts.Timeout)
		assert.Equal(t, http.DefaultMaxRedirects, opts.MaxRedirects)
		assert.False(t, opts.Insecure)
		assert.Empty(t, opts.Headers)
	})

	t.Run("invalid proxy", func(t *testing.T) {
		for _, proxy := range []string{"://bad", "http://[::1", "localhost:3128", "http://"} {
			_, err := NewRunner(&Config{Proxy: proxy}).Options(&parser.Request{Method: "GET", URL: "http://example.com"}, "")
			require.Error(t, err, proxy)
			assert.Equal(t, failure.RequestBuildFailure, failure.KindOf(err), proxy)
			assert.Contains(t, err.Error(), proxy)
		}

		_, err := NewRunner(&Config{Settings: &config.Config{Proxy: "ftp://proxy.local"}}).
			Options(&parser.Request{Method: "GET", URL: "http://example.com"}, "")
		assert.Equal(t, failure.RequestBuildFailure, failure.KindOf(err))
	})
}

func TestRunner_TOMLMatchesHTTP(t *testing.T) {
	base := echoServer(t)
	dir := t.TempDir()

	httpFile := writeFile(t, dir, "req.http", `POST `+base+`/echo?page=1
Accept: application/json
X-Trace: abc

{"hello": "world"}
`)
	tomlFile := writeFile(t, dir, "req.toml", `[http]
method = "POST"
url = "`+base+`/echo?page=1"

[headers]
Accept = "application/json"
X-Trace = "abc"

[body]
raw = '{"hello": "world"}'
`)

	report := func(path string) string {
		result, err := run(t, &Config{}, path)
		require.NoError(t, err)
		var buf bytes.Buffer
		require.NoError(t, output.NewReporter(output.WithReportWriter(&buf)).Write(result.Response))
		return buf.String()
	}

	// The echo server reports its own Date header, which may differ.
	strip := func(s string) string {
		return gjson.Get(s, "request").Raw + gjson.Get(s, "body").Raw
	}
	assert.Equal(t, strip(report(httpFile)), strip(report(tomlFile)))
}
