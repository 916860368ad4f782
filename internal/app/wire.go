package app

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"murmur/internal/directory"
	"murmur/internal/domain"
	"murmur/internal/issuer"
	"murmur/internal/pipeline"
	"murmur/internal/session"
	"murmur/internal/store"
	"murmur/internal/transport"
)

// Wire bundles the stores and clients the CLI composes into a session.
type Wire struct {
	Keys      domain.KeyStore
	Issuer    domain.Issuer
	Directory *directory.CachingResolver
	Transport domain.Transport
	Pipeline  domain.Pipeline
	HTTP      *http.Client
}

// NewWire constructs the dependency graph from cfg.
func NewWire(cfg Config) (*Wire, error) {
	if cfg.ServerURL == "" {
		return nil, errors.New("app: server URL required")
	}

	httpClient := cfg.HTTP
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	return &Wire{
		Keys:      store.NewFileStore(cfg.Home),
		Issuer:    issuer.NewClient(cfg.ServerURL, httpClient),
		Directory: directory.NewCachingResolver(directory.NewClient(cfg.ServerURL, httpClient), cfg.CacheTTL),
		Transport: transport.NewClient(cfg.ServerURL, httpClient),
		Pipeline:  pipeline.New(),
		HTTP:      httpClient,
	}, nil
}

// Orchestrator builds a session orchestrator over the wired dependencies.
func (w *Wire) Orchestrator(log *slog.Logger) (*session.Orchestrator, error) {
	return session.New(session.Config{
		Issuer:    w.Issuer,
		Directory: w.Directory,
		Transport: w.Transport,
		Keys:      w.Keys,
		Pipeline:  w.Pipeline,
		Logger:    log,
	})
}

// Close releases background resources held by the wire.
func (w *Wire) Close() {
	w.Directory.Stop()
}
