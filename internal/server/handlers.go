package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"murmur/internal/domain"
)

// Response bodies mirror what the clients decode; field names are part of
// the wire contract.

type authenticateRequest struct {
	User string `json:"user"`
}

type authenticateResponse struct {
	AuthToken string    `json:"authToken"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type transportCredentialsResponse struct {
	Token     string              `json:"token"`
	APIKey    string              `json:"apiKey"`
	ExpiresAt time.Time           `json:"expiresAt"`
	User      transportUserRecord `json:"user"`
}

type transportUserRecord struct {
	ID    string `json:"id"`
	Role  string `json:"role"`
	Image string `json:"image"`
}

type directoryCredentialsResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type usersResponse struct {
	Users []userRecord `json:"users"`
}

type userRecord struct {
	ID string `json:"id"`
}

func (s *Server) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	var in authenticateRequest
	if err := decodeJSON(r, &in); err != nil {
		http.Error(w, "malformed request", http.StatusBadRequest)
		return
	}
	session, err := s.issuer.Authenticate(r.Context(), domain.UserID(in.User))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, authenticateResponse{
		AuthToken: session.LocalToken,
		ExpiresAt: session.NotAfter,
	})
}

func (s *Server) handleTransportCredentials(w http.ResponseWriter, r *http.Request) {
	creds, err := s.issuer.IssueTransport(r.Context(), bearerToken(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, transportCredentialsResponse{
		Token:     creds.Token.Token,
		APIKey:    creds.APIKey,
		ExpiresAt: creds.Token.NotAfter,
		User: transportUserRecord{
			ID:    creds.Profile.ID.String(),
			Role:  creds.Profile.Role,
			Image: creds.Profile.Image,
		},
	})
}

func (s *Server) handleDirectoryCredentials(w http.ResponseWriter, r *http.Request) {
	tok, err := s.issuer.IssueDirectory(r.Context(), bearerToken(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, directoryCredentialsResponse{
		Token:     tok.Token,
		ExpiresAt: tok.NotAfter,
	})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	ids, err := s.issuer.ListUsers(r.Context(), bearerToken(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := usersResponse{Users: make([]userRecord, 0, len(ids))}
	for _, id := range ids {
		out.Users = append(out.Users, userRecord{ID: id.String()})
	}
	s.writeJSON(w, http.StatusOK, out)
}

type registerKeysRequest struct {
	UserID domain.UserID       `json:"user_id"`
	Keys   domain.PublicKeySet `json:"keys"`
}

type resolveKeysResponse struct {
	UserID domain.UserID       `json:"user_id"`
	Keys   domain.PublicKeySet `json:"keys"`
}

func (s *Server) handleRegisterKeys(w http.ResponseWriter, r *http.Request) {
	var in registerKeysRequest
	if err := decodeJSON(r, &in); err != nil {
		http.Error(w, "malformed request", http.StatusBadRequest)
		return
	}
	if err := s.dir.Register(r.Context(), subjectFrom(r.Context()), in.UserID, in.Keys); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleResolveKeys(w http.ResponseWriter, r *http.Request) {
	user := domain.UserID(r.PathValue("id"))
	keys, err := s.dir.Resolve(r.Context(), user)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resolveKeysResponse{UserID: user, Keys: keys})
}

type connectRequest struct {
	User string `json:"user"`
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var in connectRequest
	if err := decodeJSON(r, &in); err != nil {
		http.Error(w, "malformed request", http.StatusBadRequest)
		return
	}
	subject := subjectFrom(r.Context())
	if domain.UserID(in.User) != subject {
		s.writeError(w, r, fmt.Errorf("connect as %s: %w", in.User, domain.ErrForbidden))
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var env domain.Envelope
	if err := decodeJSON(r, &env); err != nil {
		http.Error(w, "malformed request", http.StatusBadRequest)
		return
	}
	if err := s.queue.Enqueue(r.Context(), subjectFrom(r.Context()), env); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.metrics.enqueued.Inc()
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "malformed limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	envs, err := s.queue.Pending(r.Context(), subjectFrom(r.Context()), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, envs)
}

type ackRequest struct {
	Count int `json:"count"`
}

func (s *Server) handleAck(w http.ResponseWriter, r *http.Request) {
	var in ackRequest
	if err := decodeJSON(r, &in); err != nil {
		http.Error(w, "malformed request", http.StatusBadRequest)
		return
	}
	if err := s.queue.Ack(r.Context(), subjectFrom(r.Context()), in.Count); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
