// Package pipeline implements the encryption pipeline: plaintext in, signed
// ciphertext envelope out, and the fail-closed reverse direction. It owns no
// keys and performs no I/O; callers pass key material per call and must not
// retain copies beyond it.
package pipeline
