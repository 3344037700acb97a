// Package cli provides the interactive flagkeeper player client.
//
// It wires configuration and the HTTP API client into a REPL. Typical flow:
// prompt for credentials, start a background connectivity watcher, and
// execute user commands until the user exits.
//
// Key features:
//   - Register / Login / Logout
//   - Browse the challenge board and read challenge details
//   - Submit flags and download attachments
//   - Create, join and leave teams
//   - View the scoreboard
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
