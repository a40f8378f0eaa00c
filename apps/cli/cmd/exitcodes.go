package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/rede/packages/core/failure"
)

// Exit codes for rede CLI
const (
	// ExitSuccess indicates the request completed
	ExitSuccess = 0

	// ExitFailure is used for errors that carry no kind
	ExitFailure = 1

	// ExitParseError indicates the request file is missing or malformed
	ExitParseError = 2

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitNetworkError indicates a network/connection error
	ExitNetworkError = 4

	// ExitTimeout indicates the request ran out of time
	ExitTimeout = 5

	// ExitRequestError indicates the request could not be built
	ExitRequestError = 6

	// ExitProtocolError indicates a protocol violation such as an unusable
	// HTTP version or a redirect loop
	ExitProtocolError = 7

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

// exitError carries an exit code for an error that was already reported.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return "exit status"
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

type usageError struct {
	err error
}

func (e *usageError) Error() string {
	return e.err.Error()
}

func (e *usageError) Unwrap() error {
	return e.err
}

// usageArgs marks argument count errors as usage errors.
func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return &usageError{err: err}
		}
		return nil
	}
}

type configError struct {
	err error
}

func (e *configError) Error() string {
	return e.err.Error()
}

func (e *configError) Unwrap() error {
	return e.err
}

// ExitCodeFor maps an error to the process exit code.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var reported *exitError
	if errors.As(err, &reported) {
		return reported.code
	}
	var usage *usageError
	if errors.As(err, &usage) {
		return ExitUsageError
	}
	var cfg *configError
	if errors.As(err, &cfg) {
		return ExitConfigError
	}

	switch failure.KindOf(err) {
	case failure.InvalidRequestFile, failure.ParseError:
		return ExitParseError
	case failure.InvalidFile, failure.InvalidURL, failure.RequestBuildFailure:
		return ExitRequestError
	case failure.FailedConnection:
		return ExitNetworkError
	case failure.Timeout:
		return ExitTimeout
	case failure.UnsupportedHTTPVersion, failure.RedirectLoop:
		return ExitProtocolError
	}
	return ExitFailure
}
