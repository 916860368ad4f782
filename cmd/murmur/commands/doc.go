// Package commands defines the murmur CLI and wires dependencies for
// subcommands.
//
// Commands
//
//   - login        Authenticate, register keys, and verify the session
//   - fingerprint  Print the local identity fingerprint
//   - peers        List other registered users
//   - send         Encrypt and send a message
//   - recv         Fetch and decrypt queued messages
//
// # Implementation
//
// The root command builds the dependency graph (key store, backend clients,
// directory cache) before any subcommand runs. Commands that talk to the
// backend open a full session via newSession and log out when they return,
// wiping key material from memory.
package commands
