// Package server hosts the backend: the credential issuer, the key
// directory, and the message relay behind one HTTP listener. Each surface
// accepts only its own token audience; the route table is the wire contract
// the clients in internal/issuer, internal/directory, and internal/transport
// speak.
package server
