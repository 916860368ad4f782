// Package main runs murmurd, the backend that hosts the credential issuer,
// the key directory, and the message relay behind one HTTP listener.
//
// HTTP API
//
//	POST /authenticate { "user": ID }
//	    Open a local auth session; returns the session token and expiry.
//
//	POST /transport-credentials          (bearer: session token)
//	    Mint a transport-scoped token and provision the relay user record.
//
//	POST /directory-credentials          (bearer: session token)
//	    Mint a directory-scoped token.
//
//	GET /users                           (bearer: session token)
//	    List every registered user id.
//
//	POST /keys                           (bearer: directory token)
//	    Publish the caller's public key set. Re-posting changed keys is a
//	    rotation and replaces the record.
//
//	GET /keys/{id}                       (bearer: directory token)
//	    Return the current public key set for {id}.
//
//	POST /connect                        (bearer: transport token)
//	    Validate the token against the relay.
//
//	POST /msg                            (bearer: transport token)
//	    Enqueue an Envelope. The sender claim must match the token subject.
//
//	GET /msg?limit=N                     (bearer: transport token)
//	    Return up to N queued Envelopes for the token subject.
//
//	POST /msg/ack { "count": N }         (bearer: transport token)
//	    Drop the first N queued envelopes for the token subject.
//
// Behaviour
//
//   - Sessions, key records, and queues live in redis; replicas share state.
//   - The relay never sees plaintext or private keys, only ciphertext and
//     published public keys.
//   - /metrics exposes prometheus collectors; /healthz is a liveness probe.
//   - Configuration comes from a YAML file (-config) or, minimally, from
//     MURMURD_TOKEN_SECRET. The default listen address is :8080.
package main
