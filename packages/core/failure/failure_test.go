package failure

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_Prefix(t *testing.T) {
	tests := []struct {
		kind   Kind
		prefix string
		stage  Stage
	}{
		{InvalidRequestFile, "invalid [REQUEST]", StageInput},
		{ParseError, "parsing error", StageInput},
		{InvalidFile, "invalid file", StageInput},
		{InvalidURL, "invalid url", StageBuild},
		{RequestBuildFailure, "failed request building", StageBuild},
		{FailedConnection, "failed connection", StageExecution},
		{Timeout, "timeout", StageExecution},
		{UnsupportedHTTPVersion, "wrong http version", StageExecution},
		{RedirectLoop, "redirect loop", StageExecution},
	}

	require.Len(t, Kinds(), len(tests))
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.prefix, tt.kind.Prefix())
			assert.Equal(t, tt.stage, tt.kind.Stage())
		})
	}
}

func TestError_Format(t *testing.T) {
	err := New(InvalidURL, "http://128.0.0.256", "%s", "http://128.0.0.256")
	assert.Equal(t, "invalid url: http://128.0.0.256", err.Error())
	assert.Equal(t, "http://128.0.0.256", err.Token)

	bare := &Error{Kind: Timeout}
	assert.Equal(t, "timeout", bare.Error())
}

func TestError_IsAndAs(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("running: %w", Wrap(FailedConnection, "example.com", cause, "example.com: boom"))

	assert.True(t, errors.Is(err, ErrFailedConnection))
	assert.False(t, errors.Is(err, ErrTimeout))
	assert.True(t, errors.Is(err, cause))

	var ferr *Error
	require.True(t, errors.As(err, &ferr))
	assert.Equal(t, "example.com", ferr.Token)
	assert.Equal(t, FailedConnection, KindOf(err))
	assert.Equal(t, Unknown, KindOf(cause))
}

func TestReason(t *testing.T) {
	_, err := os.ReadFile("does/not/exist.http")
	require.Error(t, err)
	assert.Equal(t, "No such file or directory", Reason(err))
	assert.Equal(t, "Connection refused", Reason(syscall.ECONNREFUSED))
}

func TestClassify(t *testing.T) {
	refused := &url.Error{
		Op:  "Get",
		URL: "http://localhost:1",
		Err: &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)},
	}
	dns := &url.Error{
		Op:  "Get",
		URL: "http://completelymadeupurl",
		Err: &net.OpError{Op: "dial", Net: "tcp", Err: &net.DNSError{Err: "no such host", Name: "completelymadeupurl", IsNotFound: true}},
	}

	tests := []struct {
		name   string
		err    error
		host   string
		kind   Kind
		detail string
	}{
		{"connection refused", refused, "localhost:1", FailedConnection, "localhost:1: Connection refused"},
		{"unknown host", dns, "completelymadeupurl", FailedConnection, "completelymadeupurl: No such host"},
		{"deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), "example.com", Timeout, "example.com: Request timed out"},
		{"bad version", errors.New(`net/http: HTTP/1.x transport connection broken: malformed HTTP version "HTTP/x"`), "example.com", UnsupportedHTTPVersion, `example.com: Malformed HTTP version "HTTP/x"`},
		{"fallback", errors.New("unexpected EOF"), "example.com", FailedConnection, "example.com: Unexpected EOF"},
		{"already classified", New(RedirectLoop, "", "stopped after 5 redirects"), "example.com", RedirectLoop, "stopped after 5 redirects"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err, tt.host)
			require.NotNil(t, got)
			assert.Equal(t, tt.kind, got.Kind)
			assert.Equal(t, tt.detail, got.Detail)
		})
	}

	assert.Nil(t, Classify(nil, "example.com"))
}
