// Package directory maps identities to their current public keys.
//
// The server-side Service owns the canonical record: registered once,
// replaced in place on rotation, last full write wins. The Client and
// CachingResolver form the client side: JSON over HTTP with a
// directory-scoped bearer token, fronted by a TTL snapshot cache with
// coalesced lookups.
package directory
