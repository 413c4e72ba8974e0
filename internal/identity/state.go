package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// StateTTL bounds how long a login may sit on the consent page.
const StateTTL = 10 * time.Minute

// ErrInvalidState is returned for unknown, expired or replayed states.
var ErrInvalidState = errors.New("invalid or expired oauth state")

// StateStore issues single-use OAuth state values kept in Redis.
type StateStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStateStore(rdb *redis.Client) *StateStore {
	return &StateStore{rdb: rdb, ttl: StateTTL}
}

func stateKey(state string) string {
	return "oauth_state:" + state
}

// Issue creates and records a fresh state.
func (s *StateStore) Issue(ctx context.Context) (string, error) {
	if s.rdb == nil {
		return "", errors.New("oauth state store requires redis")
	}
	state := uuid.NewString()
	if err := s.rdb.Set(ctx, stateKey(state), "1", s.ttl).Err(); err != nil {
		return "", err
	}
	return state, nil
}

// Consume validates state and deletes it so it cannot be replayed.
func (s *StateStore) Consume(ctx context.Context, state string) error {
	if state == "" {
		return ErrInvalidState
	}
	if s.rdb == nil {
		return errors.New("oauth state store requires redis")
	}
	_, err := s.rdb.GetDel(ctx, stateKey(state)).Result()
	if errors.Is(err, redis.Nil) {
		return ErrInvalidState
	}
	return err
}
