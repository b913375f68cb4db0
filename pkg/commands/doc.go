// Package commands exposes workbench operations as named commands with a
// CanExecute/Execute pair, the surface shared by the CLI, the HTTP server
// and the MCP server.
//
// Parameters are loosely typed maps decoded with mapstructure, so values
// arriving as JSON numbers or query strings decode the same way.
//
// The workbench is single-threaded. Owner runs every command on one
// goroutine; only CancelRun skips the queue.
package commands
