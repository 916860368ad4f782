// Package crypto exposes the minimal primitives used by murmur.
//
// Contents
//
//   - Long-term key pair generation with X25519 clamping (GenerateKeyPair)
//   - Authenticated sealing between box key pairs (Seal, Open)
//   - Ed25519 signing and verification (Sign, Verify)
//   - Best-effort memory wiping for sensitive byte slices (Wipe, WipeKeyPair)
//   - Short public-key fingerprints for display (Fingerprint)
//
// # Notes
//
// All functions operate on the fixed-size key types defined in
// internal/domain to avoid accidental reallocations. Callers should treat
// returned secrets as sensitive and rely on Wipe when practical to reduce
// lifetime in memory.
package crypto
