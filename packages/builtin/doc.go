// Package builtin provides the functions callable from request templates.
//
// Available functions:
//   - uuid(): random UUID v4
//   - now(), isodate(), date(layout): current time, formatted
//   - timestamp(), timestampMs(): Unix time
//   - random(min, max), randomString(length): random values
//   - base64(value), base64Decode(value), sha256(value)
//   - urlEncode(value), urlDecode(value)
//   - env(name): process environment lookup
//
// Functions are invoked as {{uuid()}} or {{$uuid()}}.
package builtin
