package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"murmur/internal/domain"
)

// Every status emitted for a taxonomy error must map back to the same error
// on the client side, so retry decisions survive the HTTP hop.
func TestStatusRoundTripsThroughTaxonomy(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{domain.ErrUnauthenticated, http.StatusUnauthorized},
		{domain.ErrForbidden, http.StatusForbidden},
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrTimeout, http.StatusGatewayTimeout},
		{domain.ErrUnavailable, http.StatusServiceUnavailable},
		{domain.ErrProvisioning, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		status := statusFromErr(fmt.Errorf("wrapped: %w", tc.err))
		if status != tc.status {
			t.Errorf("statusFromErr(%v) = %d, want %d", tc.err, status, tc.status)
		}
		if got := domain.FromStatusCode(status); !errors.Is(got, tc.err) {
			t.Errorf("FromStatusCode(%d) = %v, want %v", status, got, tc.err)
		}
	}
}

func TestRetryableSplitsTransientFromPermanent(t *testing.T) {
	if !domain.Retryable(domain.FromStatusCode(http.StatusServiceUnavailable)) {
		t.Fatal("503 should be retryable")
	}
	if domain.Retryable(domain.FromStatusCode(http.StatusInternalServerError)) {
		t.Fatal("500 should not be retryable")
	}
}
