package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	redisclient "github.com/roomezes/roomezes-backend/pkg/redis"
)

type kvStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type cartKeyer interface {
	CartKey(userID string) string
}

// Store persists one cart per user as JSON in Redis.
type Store struct {
	kv    kvStore
	keyer cartKeyer
	ttl   time.Duration
}

// NewStore builds a Redis-backed cart store. Carts expire ttl after their last change.
func NewStore(client *redisclient.Client, ttl time.Duration) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return newStore(client, client, ttl), nil
}

func newStore(kv kvStore, keyer cartKeyer, ttl time.Duration) *Store {
	return &Store{kv: kv, keyer: keyer, ttl: ttl}
}

// Load returns the user's cart, or an empty cart when none is stored.
func (s *Store) Load(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	raw, err := s.kv.Get(ctx, s.keyer.CartKey(userID.String()))
	if err != nil {
		if errors.Is(err, redisclient.Nil) {
			return &Cart{}, nil
		}
		return nil, err
	}
	c := &Cart{}
	if err := json.Unmarshal([]byte(raw), c); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return c, nil
}

// Save writes the cart. An empty cart deletes the key.
func (s *Store) Save(ctx context.Context, userID uuid.UUID, c *Cart) error {
	key := s.keyer.CartKey(userID.String())
	if c == nil || c.IsEmpty() {
		return s.kv.Del(ctx, key)
	}
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	return s.kv.Set(ctx, key, string(payload), s.ttl)
}

func (s *Store) Delete(ctx context.Context, userID uuid.UUID) error {
	return s.kv.Del(ctx, s.keyer.CartKey(userID.String()))
}
