// Package http turns parsed request definitions into network exchanges.
//
// It covers three steps of the pipeline:
//   - body resolution: raw text, binary files, url-encoded forms and
//     multipart bodies, with their effective content type
//   - request building: URL validation, header assembly and query encoding
//   - execution: a single deadline spanning every redirect hop, manual
//     redirect handling and HTTP/1.0, HTTP/1.1 or HTTP/2 transports
//
// Every error returned by this package is a *failure.Error.
package http
