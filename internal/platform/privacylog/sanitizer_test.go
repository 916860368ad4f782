package privacylog_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"murmur/internal/platform/privacylog"
)

func TestSanitizingHandler_RedactsSensitiveKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(privacylog.WrapHandler(slog.NewJSONHandler(&buf, nil)))

	logger.Info("issued",
		slog.String("subject", "alice"),
		slog.String("token", "very-secret-jwt"),
		slog.String("passphrase", "hunter2"),
	)

	out := buf.String()
	if strings.Contains(out, "very-secret-jwt") || strings.Contains(out, "hunter2") {
		t.Fatalf("secret leaked into log output: %s", out)
	}
	if !strings.Contains(out, "alice") {
		t.Fatalf("non-sensitive attribute lost: %s", out)
	}
	if !strings.Contains(out, "[REDACTED]") {
		t.Fatalf("redaction marker missing: %s", out)
	}
}

func TestSanitizingHandler_RedactsGroupedAndBoundAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(privacylog.WrapHandler(slog.NewJSONHandler(&buf, nil))).
		With(slog.String("auth_token", "bound-secret"))

	logger.Info("send",
		slog.Group("envelope",
			slog.String("sender", "alice"),
			slog.String("plaintext", "hi bob"),
		),
	)

	out := buf.String()
	if strings.Contains(out, "bound-secret") || strings.Contains(out, "hi bob") {
		t.Fatalf("secret leaked into log output: %s", out)
	}
}

func TestRedacted_NeverEchoesValue(t *testing.T) {
	if got := privacylog.Redacted("super-secret"); got != "[REDACTED]" {
		t.Fatalf("Redacted = %q", got)
	}
	if got := privacylog.Redacted([]byte("key material")); got != "[REDACTED]" {
		t.Fatalf("Redacted = %q", got)
	}
}

func TestDescribe_ReportsOnlyLength(t *testing.T) {
	if got := privacylog.Describe([]byte("abc")); got != "3 bytes" {
		t.Fatalf("Describe = %q", got)
	}
	if got := privacylog.Describe(nil); got != "0 bytes" {
		t.Fatalf("Describe(nil) = %q", got)
	}
}

func TestFingerprintValue_Stable(t *testing.T) {
	a := privacylog.FingerprintValue("alice")
	if a != privacylog.FingerprintValue("alice") {
		t.Fatal("fingerprint not stable")
	}
	if a == privacylog.FingerprintValue("bob") {
		t.Fatal("distinct values collide")
	}
	if len(a) != 12 {
		t.Fatalf("unexpected fingerprint length %d", len(a))
	}
}
