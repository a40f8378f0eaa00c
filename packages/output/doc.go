// Package output renders the outcome of a request.
//
// The Reporter writes the response as a single deterministic JSON document
// on stdout. The ConsoleFormatter writes human oriented lines, such as the
// classified error line and validation results, to stderr.
package output
