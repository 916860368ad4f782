// Package app wires application dependencies for the CLI.
//
// It builds the concrete stores, protocol clients, and directory cache from
// Config, exposing them via the Wire struct for commands to compose into a
// session.
package app
