package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"murmur/internal/directory"
	"murmur/internal/domain"
	"murmur/internal/issuer"
	"murmur/internal/platform/ratelimiter"
	"murmur/internal/transport"
)

// Server hosts the three backend surfaces murmurd exposes: the credential
// issuer, the key directory, and the message relay. They share one redis and
// one listener but remain separately scoped: a token for one surface does
// not open the others.
type Server struct {
	cfg     Config
	log     *slog.Logger
	issuer  *issuer.Service
	dir     *directory.Service
	queue   *transport.QueueService
	limiter *ratelimiter.MapLimiter
	metrics *metrics

	http *http.Server
}

// New wires a Server from cfg over rdb. The prometheus registry is injected
// so tests can isolate collectors.
func New(cfg Config, rdb redis.Cmdable, log *slog.Logger, reg prometheus.Registerer) (*Server, error) {
	if log == nil {
		log = slog.Default()
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	iss, err := issuer.NewService(issuer.Config{
		TokenSecret: []byte(cfg.Auth.TokenSecret),
		APIKey:      cfg.Auth.APIKey,
		Issuer:      cfg.Auth.Issuer,
		TokenTTL:    cfg.Auth.TokenTTL.Std(),
		SessionTTL:  cfg.Auth.SessionTTL.Std(),
	}, rdb)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:     cfg,
		log:     log,
		issuer:  iss,
		dir:     directory.NewService(rdb),
		queue:   transport.NewQueueService(rdb),
		limiter: ratelimiter.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst, 10*time.Minute),
		metrics: newMetrics(reg),
	}
	s.http = &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s, nil
}

// Handler returns the full route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /authenticate", s.route("authenticate", s.handleAuthenticate))
	mux.HandleFunc("POST /transport-credentials", s.route("transport_credentials", s.handleTransportCredentials))
	mux.HandleFunc("POST /directory-credentials", s.route("directory_credentials", s.handleDirectoryCredentials))
	mux.HandleFunc("GET /users", s.route("users", s.handleListUsers))

	mux.HandleFunc("POST /keys", s.scoped("register_keys", domain.AudienceDirectory, s.handleRegisterKeys))
	mux.HandleFunc("GET /keys/{id}", s.scoped("resolve_keys", domain.AudienceDirectory, s.handleResolveKeys))

	mux.HandleFunc("POST /connect", s.scoped("connect", domain.AudienceTransport, s.handleConnect))
	mux.HandleFunc("POST /msg", s.scoped("send", domain.AudienceTransport, s.handleSend))
	mux.HandleFunc("GET /msg", s.scoped("fetch", domain.AudienceTransport, s.handleFetch))
	mux.HandleFunc("POST /msg/ack", s.scoped("ack", domain.AudienceTransport, s.handleAck))

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return mux
}

// Run serves until ctx is cancelled, then drains connections.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", slog.String("addr", s.cfg.Listen))
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return err
		}
		err := <-errCh
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
