package domain

import (
	"errors"
	"net/http"
)

// Failure taxonomy shared by every component. Callers match with errors.Is;
// remote clients map HTTP statuses into these and never leak raw status
// codes past the domain boundary.
var (
	// ErrUnauthenticated means the local session is invalid or expired.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrProvisioning means the issuer could not provision a downstream account.
	ErrProvisioning = errors.New("provisioning failed")
	// ErrForbidden means the operation is not permitted for this subject or audience.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound means no public key is registered for the identity.
	ErrNotFound = errors.New("identity not found")
	// ErrKeyInvalid means malformed key material was supplied to the pipeline.
	ErrKeyInvalid = errors.New("invalid key material")
	// ErrVerificationFailed means a signature mismatch on decrypt. Always
	// fail-closed; no partial plaintext accompanies it.
	ErrVerificationFailed = errors.New("message verification failed")
	// ErrTimeout means a dependency call exceeded its deadline.
	ErrTimeout = errors.New("dependency timed out")
	// ErrUnavailable means the transport or directory is unreachable.
	ErrUnavailable = errors.New("dependency unavailable")
)

// FromStatusCode maps an HTTP response status from the issuer, directory, or
// relay into the taxonomy. 2xx maps to nil.
func FromStatusCode(status int) error {
	switch {
	case status/100 == 2:
		return nil
	case status == http.StatusUnauthorized:
		return ErrUnauthenticated
	case status == http.StatusForbidden:
		return ErrForbidden
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		return ErrTimeout
	case status == http.StatusTooManyRequests, status == http.StatusServiceUnavailable:
		return ErrUnavailable
	case status/100 == 5:
		return ErrProvisioning
	default:
		return ErrProvisioning
	}
}

// Retryable reports whether the orchestrator may retry the failed call with
// the same inputs. Only transient transport-level failures qualify.
func Retryable(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrUnavailable)
}
