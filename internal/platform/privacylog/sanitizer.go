package privacylog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
)

const redactedValue = "[REDACTED]"

var sensitiveKeyParts = []string{
	"token", "secret", "passphrase", "password", "authorization",
	"private", "priv", "plaintext",
}

// SanitizingHandler rewrites log attributes so key material, credentials,
// and plaintext never reach a sink. Identity-like values pass through; the
// sensitive ones are redacted or fingerprinted by key name.
type SanitizingHandler struct {
	next slog.Handler
}

// WrapHandler wraps next with sanitization.
func WrapHandler(next slog.Handler) slog.Handler {
	if next == nil {
		return nil
	}
	return &SanitizingHandler{next: next}
}

// Enabled delegates to the wrapped handler.
func (h *SanitizingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle sanitizes every attribute before passing the record on.
func (h *SanitizingHandler) Handle(ctx context.Context, rec slog.Record) error {
	out := slog.NewRecord(rec.Time, rec.Level, rec.Message, rec.PC)
	rec.Attrs(func(attr slog.Attr) bool {
		out.AddAttrs(SanitizeAttr(attr))
		return true
	})
	return h.next.Handle(ctx, out)
}

// WithAttrs sanitizes the pre-bound attributes.
func (h *SanitizingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		out = append(out, SanitizeAttr(attr))
	}
	return &SanitizingHandler{next: h.next.WithAttrs(out)}
}

// WithGroup delegates to the wrapped handler.
func (h *SanitizingHandler) WithGroup(name string) slog.Handler {
	return &SanitizingHandler{next: h.next.WithGroup(name)}
}

// SanitizeAttr redacts values whose key names sensitive material.
func SanitizeAttr(attr slog.Attr) slog.Attr {
	key := strings.TrimSpace(attr.Key)
	if isSensitiveKey(strings.ToLower(key)) {
		return slog.String(key, redactedValue)
	}
	if attr.Value.Kind() == slog.KindGroup {
		group := attr.Value.Group()
		out := make([]any, 0, len(group))
		for _, g := range group {
			out = append(out, SanitizeAttr(g))
		}
		return slog.Group(key, out...)
	}
	return attr
}

// FingerprintValue returns a short stable digest for correlating a value in
// logs without revealing it.
func FingerprintValue(v string) string {
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:6])
}

func isSensitiveKey(lowerKey string) bool {
	for _, part := range sensitiveKeyParts {
		if strings.Contains(lowerKey, part) {
			return true
		}
	}
	return false
}

var _ slog.Handler = (*SanitizingHandler)(nil)

// Redacted formats any value as the redaction marker; useful when a call
// site must mention that a secret exists without logging it.
func Redacted(any) string { return redactedValue }

// Describe builds a safe one-line description of a byte length, the only
// property of ciphertext or key material worth logging.
func Describe(b []byte) string { return fmt.Sprintf("%d bytes", len(b)) }
