// Package session sequences the client-side lifecycle: local auth, scoped
// credential issuance, transport connection, key registration, and finally
// message exchange. The Orchestrator owns the in-memory identity and tokens
// and refreshes them transparently as they age out.
package session
