package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"murmur/internal/domain"
)

type contextKey string

const subjectKey contextKey = "subject"

// subjectFrom returns the verified token subject placed by scoped auth
// middleware. Handlers behind that middleware can rely on it being set.
func subjectFrom(ctx context.Context) domain.UserID {
	s, _ := ctx.Value(subjectKey).(domain.UserID)
	return s
}

// bearerToken extracts the Authorization bearer value, empty when absent.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

// route wraps a handler with metrics and per-subject rate limiting. The
// limiter keys on the bearer when present so an unauthenticated flood cannot
// starve authenticated clients sharing an address.
func (s *Server) route(name string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := bearerToken(r)
		if key == "" {
			key = r.RemoteAddr
		}
		if !s.limiter.Allow(key, time.Now()) {
			s.metrics.rejected.WithLabelValues(name, "rate_limited").Inc()
			s.metrics.requests.WithLabelValues(name, "429").Inc()
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		s.metrics.duration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		s.metrics.requests.WithLabelValues(name, strconv.Itoa(rec.status)).Inc()
	}
}

// scoped wraps a handler with scoped-token verification for one audience.
// The verified subject rides the request context; the raw token does not.
func (s *Server) scoped(name string, audience domain.Audience, h http.HandlerFunc) http.HandlerFunc {
	return s.route(name, func(w http.ResponseWriter, r *http.Request) {
		subject, err := s.issuer.VerifyScoped(bearerToken(r), audience)
		if err != nil {
			reason := "unauthenticated"
			if errors.Is(err, domain.ErrForbidden) {
				reason = "wrong_audience"
			}
			s.metrics.rejected.WithLabelValues(name, reason).Inc()
			s.writeError(w, r, err)
			return
		}
		h(w, r.WithContext(context.WithValue(r.Context(), subjectKey, subject)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func statusFromErr(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrKeyInvalid):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrProvisioning):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFromErr(err)
	if status >= 500 {
		s.log.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	http.Error(w, http.StatusText(status), status)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("encode response", slog.String("error", err.Error()))
	}
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
