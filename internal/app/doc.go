// Package app bootstraps and runs the promptd daemon.
//
// The bootstrap follows a two-phase pattern:
//
//  1. Bootstrap phase: initialize logging, load configuration, wire the
//     OAuth flow engine, authorization decision engine, tool gateway, and
//     HTTP server together.
//  2. Execution phase: start the config watcher and HTTP server, block
//     until the context is canceled, then shut everything down.
//
// Configuration reloads are handled by a file watcher; the HTTP server
// reads the current configuration snapshot on every request.
package app
