// Package runner executes one request definition end to end.
//
// A run parses the file, picks a request, expands its templates, resolves
// the body, builds the request and executes it. The first failure stops the
// run and is returned as a classified error.
package runner
