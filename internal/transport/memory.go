package transport

import (
	"context"
	"sync"
	"time"

	"murmur/internal/domain"
)

// Memory is an in-process Transport for tests and loopback use. It enforces
// the same token policy as the relay: transport audience only, unexpired,
// sender claim matching the token subject.
type Memory struct {
	mu     sync.Mutex
	queues map[domain.UserID][]domain.Envelope
	now    func() time.Time
}

// NewMemory returns an empty in-process transport.
func NewMemory() *Memory {
	return &Memory{
		queues: make(map[domain.UserID][]domain.Envelope),
		now:    time.Now,
	}
}

func (m *Memory) check(token domain.ScopedToken) error {
	if token.Audience != domain.AudienceTransport {
		return domain.ErrForbidden
	}
	if token.Token == "" || token.SubjectID == "" {
		return domain.ErrUnauthenticated
	}
	if !m.now().Before(token.NotAfter) {
		return domain.ErrUnauthenticated
	}
	return nil
}

// Connect validates the token.
func (m *Memory) Connect(_ context.Context, token domain.ScopedToken, user domain.UserID) error {
	if err := m.check(token); err != nil {
		return err
	}
	if token.SubjectID != user {
		return domain.ErrForbidden
	}
	return nil
}

// Send queues env for its recipient.
func (m *Memory) Send(_ context.Context, token domain.ScopedToken, env domain.Envelope) error {
	if err := m.check(token); err != nil {
		return err
	}
	if env.SenderID != token.SubjectID {
		return domain.ErrForbidden
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queues[env.RecipientID] = append(m.queues[env.RecipientID], env)
	return nil
}

// Fetch returns up to limit queued envelopes for user without removing them.
func (m *Memory) Fetch(
	_ context.Context,
	token domain.ScopedToken,
	user domain.UserID,
	limit int,
) ([]domain.Envelope, error) {
	if err := m.check(token); err != nil {
		return nil, err
	}
	if token.SubjectID != user {
		return nil, domain.ErrForbidden
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.queues[user]
	if limit > 0 && limit < len(q) {
		q = q[:limit]
	}
	out := make([]domain.Envelope, len(q))
	copy(out, q)
	return out, nil
}

// Ack removes the first count envelopes from user's queue.
func (m *Memory) Ack(
	_ context.Context,
	token domain.ScopedToken,
	user domain.UserID,
	count int,
) error {
	if err := m.check(token); err != nil {
		return err
	}
	if token.SubjectID != user {
		return domain.ErrForbidden
	}
	if count <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.queues[user]
	if count >= len(q) {
		delete(m.queues, user)
		return nil
	}
	m.queues[user] = q[count:]
	return nil
}

// Compile-time assertion that Memory implements domain.Transport.
var _ domain.Transport = (*Memory)(nil)
