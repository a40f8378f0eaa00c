// Package env resolves {{...}} templates inside request definitions.
//
// A template may name:
//   - a variable: {{host}}, taken from --var flags, file variables, the
//     config file and .env files, in that order of precedence
//   - a process environment variable: {{$HOME}} or {{$env.HOME}}
//   - a .env entry: {{$dotenv API_KEY}}
//   - a built-in function: {{$uuid()}}, {{timestamp()}}, {{base64("a:b")}}
//
// Unresolved templates are left in place and reported through WarnFunc.
package env
