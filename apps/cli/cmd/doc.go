// Package cmd implements the rede CLI commands using Cobra.
//
// Available commands:
//   - run: Execute one request from a request file and print the response
//   - validate: Check request file syntax without sending anything
//   - list: Show the requests defined in files
//   - echo: Serve a local echo API for trying requests out
//   - import curl: Convert curl commands into request files
//   - version: Show rede version information
package cmd
