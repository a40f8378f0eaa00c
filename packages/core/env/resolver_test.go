package env

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/rede/packages/core/parser"
)

func TestResolver_Resolve(t *testing.T) {
	t.Setenv("REDE_TEST_HOME", "/home/rede")

	r := NewResolver()
	r.SetVariables(map[string]any{"host": "localhost:8080", "port": 8080})
	r.SetDotEnv(map[string]string{"API_KEY": "secret", "host": "ignored"})

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain text", "hello world", "hello world"},
		{"variable", "http://{{host}}/users", "http://localhost:8080/users"},
		{"spaces inside braces", "{{ host }}", "localhost:8080"},
		{"non string variable", "{{port}}", "8080"},
		{"process env", "{{$REDE_TEST_HOME}}", "/home/rede"},
		{"process env with prefix", "{{$env.REDE_TEST_HOME}}", "/home/rede"},
		{"dotenv", "Bearer {{$dotenv API_KEY}}", "Bearer secret"},
		{"dotenv as variable", "{{API_KEY}}", "secret"},
		{"function", "{{base64(user:pass)}}", "dXNlcjpwYXNz"},
		{"function with dollar", `{{$urlEncode("a b")}}`, "a+b"},
		{"unresolved kept", "{{missing}}", "{{missing}}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, r.Resolve(tt.input))
		})
	}
}

func TestResolver_Warnings(t *testing.T) {
	r := NewResolver()
	var warnings []string
	r.SetWarnFunc(func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	})

	r.Resolve("{{a}} {{b}}")
	assert.Equal(t, []string{"unresolved template: {{a}}", "unresolved template: {{b}}"}, warnings)
	assert.Equal(t, []string{"{{a}}", "{{b}}"}, r.Unresolved("{{b}} {{a}} {{a}}"))

	r.SetVariable("a", 1)
	assert.Equal(t, []string{"{{b}}"}, r.Unresolved("{{b}} {{a}}"))
	assert.True(t, r.HasVariable("a"))
}

func TestResolver_UUID(t *testing.T) {
	r := NewResolver()
	first := r.Resolve("{{$uuid()}}")
	second := r.Resolve("{{uuid()}}")
	assert.Len(t, first, 36)
	assert.NotEqual(t, first, second)
}

func TestParseAssignments(t *testing.T) {
	vars, err := ParseAssignments([]string{"host=localhost", "query=a=b", "empty="})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"host": "localhost", "query": "a=b", "empty": ""}, vars)

	_, err = ParseAssignments([]string{"novalue"})
	assert.Error(t, err)
}

func TestApplyFileVariables(t *testing.T) {
	file, err := parser.Parse("@host = localhost\n@base = http://{{host}}\n@env = dev\nGET {{base}}/{{env}}", "vars.http")
	require.NoError(t, err)

	r := NewResolver()
	pinned := map[string]any{"env": "prod"}
	r.SetVariables(pinned)
	ApplyFileVariables(file, r, pinned)

	resolved := r.ResolveRequest(file.Requests[0])
	assert.Equal(t, "http://localhost/prod", resolved.URL)
	assert.Equal(t, "{{base}}/{{env}}", file.Requests[0].URL)
}

func TestResolver_ResolveRequest(t *testing.T) {
	input := `POST http://{{host}}/upload?tag={{tag}}
X-Token: {{token}}

>>>multipart
field title = {{title}}
file data = {{dir}}/a.bin
<<<`

	file, err := parser.Parse(input, "req.http")
	require.NoError(t, err)

	r := NewResolver()
	r.SetVariables(map[string]any{
		"host":  "localhost",
		"tag":   "x",
		"token": "t0k",
		"title": "report",
		"dir":   "fixtures",
	})

	req := r.ResolveRequest(file.Requests[0])
	assert.Equal(t, "http://localhost/upload", req.URL)
	assert.Equal(t, "x", req.QueryParams[0].Value)
	assert.Equal(t, "tag=x", req.QueryParams[0].Raw)
	assert.Equal(t, "t0k", req.Headers[0].Value)
	require.Len(t, req.Body.Multipart, 2)
	assert.Equal(t, "report", req.Body.Multipart[0].Value)
	assert.Equal(t, "fixtures/a.bin", req.Body.Multipart[1].Path)

	assert.Equal(t, "{{title}}", file.Requests[0].Body.Multipart[0].Value)
}

func TestResolver_ResolveQuery(t *testing.T) {
	r := NewResolver()
	r.SetVariables(map[string]any{"term": "a b&c", "page": 2})

	tests := []struct {
		input string
		want  string
	}{
		{"q={{term}}", "q=a+b%26c"},
		{"page={{ page }}&raw=%zz", "page=2&raw=%zz"},
		{"flag", "flag"},
		{"", ""},
		{"x={{missing}}", "x={{missing}}"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, r.ResolveQuery(tt.input), tt.input)
	}
}
