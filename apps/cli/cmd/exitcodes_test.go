package cmd

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/abdul-hamid-achik/rede/packages/core/failure"
)

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain error", errors.New("boom"), ExitFailure},
		{"invalid request file", failure.New(failure.InvalidRequestFile, "", "no request named %q", "x"), ExitParseError},
		{"parse error", failure.New(failure.ParseError, "", "line 1"), ExitParseError},
		{"invalid file", failure.New(failure.InvalidFile, "body.bin", "body.bin: not found"), ExitRequestError},
		{"invalid url", failure.New(failure.InvalidURL, "", "bad"), ExitRequestError},
		{"request build", failure.New(failure.RequestBuildFailure, "", "bad"), ExitRequestError},
		{"connection", failure.New(failure.FailedConnection, "", "refused"), ExitNetworkError},
		{"timeout", failure.New(failure.Timeout, "", "late"), ExitTimeout},
		{"version", failure.New(failure.UnsupportedHTTPVersion, "", "HTTP/3"), ExitProtocolError},
		{"redirect loop", failure.New(failure.RedirectLoop, "", "loop"), ExitProtocolError},
		{"wrapped kind", fmt.Errorf("run: %w", failure.New(failure.Timeout, "", "late")), ExitTimeout},
		{"usage", &usageError{err: errors.New("bad flag")}, ExitUsageError},
		{"config", &configError{err: errors.New("bad yaml")}, ExitConfigError},
		{"reported", &exitError{code: 42}, 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCodeFor(tt.err))
		})
	}
}
