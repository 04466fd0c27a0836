package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"timed-quiz-service/internal/domain"
)

// TransferStore is the read-once hand-off between views, backed by GETDEL.
type TransferStore struct {
	client *redis.Client
	prefix string
}

func NewTransferStore(client *redis.Client) *TransferStore {
	return &TransferStore{client: client, prefix: "quiz:transfer:"}
}

func (s *TransferStore) Put(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefix+key, payload, ttl).Err()
}

func (s *TransferStore) Take(ctx context.Context, key string) ([]byte, error) {
	payload, err := s.client.GetDel(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrTransferNotFound
	}
	if err != nil {
		return nil, err
	}
	return payload, nil
}
