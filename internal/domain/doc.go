// Package domain defines core data models and contracts shared across the
// app: identities and key material, scoped credentials, the envelope wire
// format, and the failure taxonomy every component maps into. It contains
// plain types and interfaces only.
package domain
