// Package cmd implements the command-line interface of dRPC. It provides commands
// for running an echo server and for calling and benchmarking servers as a client.
//
// The package is organized into several subpackages:
//
//   - serve: Starts a dRPC server with the built-in echo service
//   - call: Client commands (invoke a single method, perf benchmarks)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See drpc -help for a list of all commands.
package cmd
