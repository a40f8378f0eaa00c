// Package failure classifies everything that can go wrong while running a
// request definition.
//
// Every failure carries one Kind out of a fixed set. Each kind renders with a
// stable lowercase prefix so scripts can grep for it:
//
//	invalid [REQUEST]: missing.http: No such file or directory
//	invalid url: http://128.0.0.256
//	timeout: request exceeded 0s
//
// Kinds are grouped by pipeline stage: input, build and execution.
package failure
