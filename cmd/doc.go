// Package cmd implements the command-line interface for smartmail.
//
// This package provides the following commands:
//   - serve: Start the HTTP gateway (default)
//   - purge: Clear the AI backend's vector database
//   - version: Display version information
//
// Every flag can also be set through an environment variable, and a .env
// file is loaded on start. Flags set on the command line win.
package cmd
