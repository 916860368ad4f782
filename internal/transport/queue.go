package transport

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"murmur/internal/domain"
)

const queueKeyPrefix = "relay:queue:"

// QueueService is the server side of the relay: one redis list of queued
// envelopes per recipient. The relay never inspects ciphertext; the only
// policy it enforces is that a sender cannot claim someone else's id.
type QueueService struct {
	rdb redis.Cmdable
}

// NewQueueService returns a queue service backed by rdb.
func NewQueueService(rdb redis.Cmdable) *QueueService {
	return &QueueService{rdb: rdb}
}

// Enqueue appends env to its recipient's queue. subject is the verified
// token subject of the caller and must match the envelope's sender claim.
func (s *QueueService) Enqueue(ctx context.Context, subject domain.UserID, env domain.Envelope) error {
	if env.SenderID != subject {
		return fmt.Errorf("send as %s from %s: %w", env.SenderID, subject, domain.ErrForbidden)
	}
	if env.RecipientID == "" {
		return fmt.Errorf("envelope without recipient: %w", domain.ErrNotFound)
	}
	blob, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	if err := s.rdb.RPush(ctx, queueKeyPrefix+env.RecipientID.String(), blob).Err(); err != nil {
		return fmt.Errorf("queue envelope: %w", domain.ErrUnavailable)
	}
	return nil
}

// Pending returns up to limit queued envelopes for subject without removing
// them. limit <= 0 means all.
func (s *QueueService) Pending(ctx context.Context, subject domain.UserID, limit int) ([]domain.Envelope, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	blobs, err := s.rdb.LRange(ctx, queueKeyPrefix+subject.String(), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("read queue: %w", domain.ErrUnavailable)
	}
	out := make([]domain.Envelope, 0, len(blobs))
	for _, blob := range blobs {
		var env domain.Envelope
		if err := json.Unmarshal([]byte(blob), &env); err != nil {
			return nil, fmt.Errorf("decode queued envelope: %w", err)
		}
		out = append(out, env)
	}
	return out, nil
}

// Ack removes the first count envelopes from subject's queue.
func (s *QueueService) Ack(ctx context.Context, subject domain.UserID, count int) error {
	if count <= 0 {
		return nil
	}
	if err := s.rdb.LTrim(ctx, queueKeyPrefix+subject.String(), int64(count), -1).Err(); err != nil {
		return fmt.Errorf("trim queue: %w", domain.ErrUnavailable)
	}
	return nil
}
