// Package parser turns request definition files into structured requests.
//
// Two formats are understood:
//   - .http (also .rede): a line oriented grammar with ### separators,
//     @annotations, ? query blocks, headers and a body section
//   - .toml: the same model expressed as TOML tables
//
// The .http grammar is tokenized line by line by Lexer and assembled by a
// recursive-descent Parser, so every ParseError points at a precise line and
// column. The parser never touches files referenced by a body; those are read
// later when the body is resolved.
package parser
