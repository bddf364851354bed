package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/roomezes/roomezes-backend/pkg/config"
	"github.com/roomezes/roomezes-backend/pkg/logger"
	redisclient "github.com/roomezes/roomezes-backend/pkg/redis"
)

// ErrRevoked is returned when a token's access id was signed out.
var ErrRevoked = errors.New("session revoked")

// EventKind enumerates session lifecycle transitions.
type EventKind string

const (
	EventSignedIn  EventKind = "signed_in"
	EventRefreshed EventKind = "refreshed"
	EventSignedOut EventKind = "signed_out"
)

// Event is delivered to every subscriber.
type Event struct {
	Kind    EventKind
	Session Context
	At      time.Time
}

// Listener reacts to session events. It runs on the caller's goroutine and must not block.
type Listener func(ctx context.Context, evt Event)

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type sessionKeyer interface {
	CurrentSessionKey(userID string) string
	RevokedSessionKey(accessID string) string
}

// Manager is the single place that observes sign-in, refresh and sign-out. Tokens are minted by
// the auth provider; the manager only tracks which access id is current per user and which
// were revoked.
type Manager struct {
	store sessionStore
	keyer sessionKeyer
	ttl   time.Duration
	logg  *logger.Logger
	now   func() time.Time

	mu        sync.RWMutex
	nextID    int
	listeners map[int]Listener
}

// AccessSessionChecker exposes the read-only surface needed by middleware.
type AccessSessionChecker interface {
	Observe(ctx context.Context, sc Context) error
}

// NewManager constructs a session manager backed by Redis.
func NewManager(client *redisclient.Client, cfg config.AuthConfig, logg *logger.Logger) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if cfg.TokenTTL <= 0 {
		return nil, fmt.Errorf("token ttl must be positive")
	}
	return newManager(client, client, cfg.TokenTTL, logg), nil
}

func newManager(store sessionStore, keyer sessionKeyer, ttl time.Duration, logg *logger.Logger) *Manager {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Manager{
		store:     store,
		keyer:     keyer,
		ttl:       ttl,
		logg:      logg,
		now:       time.Now,
		listeners: make(map[int]Listener),
	}
}

// Subscribe registers a listener and returns a function that removes it.
func (m *Manager) Subscribe(l Listener) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = l
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// Observe records that sc presented a valid token. The first access id seen for a user emits
// SignedIn, a different one emits Refreshed. Revoked access ids are rejected with ErrRevoked.
func (m *Manager) Observe(ctx context.Context, sc Context) error {
	if sc.IsZero() || strings.TrimSpace(sc.AccessID) == "" {
		return fmt.Errorf("user id and access id are required")
	}

	revoked, err := m.isRevoked(ctx, sc.AccessID)
	if err != nil {
		return err
	}
	if revoked {
		return ErrRevoked
	}

	key := m.keyer.CurrentSessionKey(sc.UserID.String())
	current, err := m.store.Get(ctx, key)
	if err != nil && !errors.Is(err, redislib.Nil) {
		return fmt.Errorf("reading current session: %w", err)
	}
	if current == sc.AccessID {
		return nil
	}

	if err := m.store.Set(ctx, key, sc.AccessID, m.ttl); err != nil {
		return fmt.Errorf("storing current session: %w", err)
	}

	kind := EventRefreshed
	if current == "" {
		kind = EventSignedIn
	}
	m.emit(ctx, Event{Kind: kind, Session: sc, At: m.now()})
	return nil
}

// SignOut revokes the access id and notifies subscribers.
func (m *Manager) SignOut(ctx context.Context, sc Context) error {
	if sc.IsZero() || strings.TrimSpace(sc.AccessID) == "" {
		return fmt.Errorf("user id and access id are required")
	}
	if err := m.store.Set(ctx, m.keyer.RevokedSessionKey(sc.AccessID), "1", m.ttl); err != nil {
		return fmt.Errorf("revoking session: %w", err)
	}
	if err := m.store.Del(ctx, m.keyer.CurrentSessionKey(sc.UserID.String())); err != nil {
		m.logg.WarnErr(ctx, "failed to clear current session", err)
	}
	m.emit(ctx, Event{Kind: EventSignedOut, Session: sc, At: m.now()})
	return nil
}

func (m *Manager) isRevoked(ctx context.Context, accessID string) (bool, error) {
	if _, err := m.store.Get(ctx, m.keyer.RevokedSessionKey(accessID)); err != nil {
		if errors.Is(err, redislib.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("reading revocation: %w", err)
	}
	return true, nil
}

func (m *Manager) emit(ctx context.Context, evt Event) {
	m.mu.RLock()
	listeners := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	m.mu.RUnlock()

	for _, l := range listeners {
		m.deliver(ctx, l, evt)
	}
}

func (m *Manager) deliver(ctx context.Context, l Listener, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			m.logg.Error(ctx, "session listener panicked", fmt.Errorf("panic: %v", r))
		}
	}()
	l(ctx, evt)
}
