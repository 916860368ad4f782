// Package issuer implements credential issuance on both sides of the wire:
// the server-side Service that validates local sessions and mints
// audience-scoped, short-lived JWTs, and the HTTP Client the orchestrator
// uses against that surface.
//
// Least privilege is structural here. A token names exactly one audience,
// the subject claim is always derived from the stored session, and the
// relay/directory handlers reject cross-audience tokens before touching any
// state.
package issuer
