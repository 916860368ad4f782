// Package transport carries signed ciphertext envelopes between clients via
// a store-and-forward relay. It offers the redis-backed server queue, a JSON
// HTTP client, and an in-process implementation with identical token policy
// for tests. Payloads stay opaque end to end.
package transport
