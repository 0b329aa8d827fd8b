package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-mayorista/internal/cart"
	"github.com/noah-isme/backend-mayorista/internal/catalog"
)

// ErrNotFound indicates the session does not exist or has expired.
var ErrNotFound = errors.New("session not found")

// State is the persisted form of a Session. Only identifiers are stored; the
// catalog snapshot supplies products, clients and price lists on restore.
type State struct {
	ID        string       `json:"id"`
	ClientID  string       `json:"clientId,omitempty"`
	Lines     []cart.Entry `json:"lines"`
	CreatedAt time.Time    `json:"createdAt"`
	// SubmittingSince marks a claimed submission whose commit has not
	// finished yet.
	SubmittingSince *time.Time `json:"submittingSince,omitempty"`
}

// State flattens the session for persistence.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := State{ID: s.id, Lines: s.cart.Entries(), CreatedAt: s.createdAt}
	if s.client != nil {
		st.ClientID = s.client.ID
	}
	return st
}

// Restore rebuilds a session from st against the catalog.
func Restore(st State, store *catalog.Store, opts Options) (*Session, error) {
	s := New(st.ID, store.PriceLists(), opts)
	if !st.CreatedAt.IsZero() {
		s.createdAt = st.CreatedAt
	}
	if st.ClientID != "" {
		c, err := store.Client(st.ClientID)
		if err != nil {
			return nil, fmt.Errorf("restore session %s: %w", st.ID, err)
		}
		s.client = &c
		s.priceList = store.PriceListFor(&c)
	}
	restored, err := cart.Restore(st.Lines, store.Product)
	if err != nil {
		return nil, fmt.Errorf("restore session %s: %w", st.ID, err)
	}
	s.cart = restored
	return s, nil
}

// Store persists session state.
type Store interface {
	Load(ctx context.Context, id string) (State, error)
	Save(ctx context.Context, st State) error
	Delete(ctx context.Context, id string) error
}

// RedisStore keeps each session as a JSON document with a sliding TTL.
type RedisStore struct {
	R      redis.Cmdable
	Prefix string
	TTL    time.Duration
}

func (r RedisStore) key(id string) string {
	prefix := r.Prefix
	if prefix == "" {
		prefix = "mayorista"
	}
	return prefix + ":session:" + id
}

func (r RedisStore) ttl() time.Duration {
	if r.TTL <= 0 {
		return 24 * time.Hour
	}
	return r.TTL
}

// Load fetches the state for id.
func (r RedisStore) Load(ctx context.Context, id string) (State, error) {
	if r.R == nil {
		return State{}, errors.New("session: redis client not configured")
	}
	raw, err := r.R.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return State{}, ErrNotFound
		}
		return State{}, fmt.Errorf("load session %s: %w", id, err)
	}
	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return State{}, fmt.Errorf("decode session %s: %w", id, err)
	}
	return st, nil
}

// Save writes st and refreshes its TTL.
func (r RedisStore) Save(ctx context.Context, st State) error {
	if r.R == nil {
		return errors.New("session: redis client not configured")
	}
	if st.ID == "" {
		return errors.New("session: id is required")
	}
	if st.Lines == nil {
		st.Lines = []cart.Entry{}
	}
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", st.ID, err)
	}
	if err := r.R.Set(ctx, r.key(st.ID), raw, r.ttl()).Err(); err != nil {
		return fmt.Errorf("save session %s: %w", st.ID, err)
	}
	return nil
}

// Delete removes the state for id.
func (r RedisStore) Delete(ctx context.Context, id string) error {
	if r.R == nil {
		return errors.New("session: redis client not configured")
	}
	return r.R.Del(ctx, r.key(id)).Err()
}
