package webpush

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"
)

// Store persists subscriptions.
type Store interface {
	// ListFor returns the subscriptions owned by one user.
	ListFor(ctx context.Context, userID string) ([]Subscription, error)

	// ListAll returns every subscription.
	ListAll(ctx context.Context) ([]Subscription, error)

	// Save inserts or updates a subscription keyed by (UserID, Endpoint).
	Save(ctx context.Context, sub Subscription) error

	// Delete removes the subscription with the given endpoint.
	// Deleting an unknown endpoint is not an error.
	Delete(ctx context.Context, endpoint string) error
}

type subscriptionKey struct {
	userID   string
	endpoint string
}

// MemoryStore is an in-memory Store.
// Suitable for development and testing.
type MemoryStore struct {
	subs map[subscriptionKey]Subscription
	mu   sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		subs: make(map[subscriptionKey]Subscription),
	}
}

func (s *MemoryStore) ListFor(ctx context.Context, userID string) ([]Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Subscription, 0)
	for k, sub := range s.subs {
		if k.userID == userID {
			out = append(out, sub)
		}
	}
	sortSubscriptions(out)
	return out, nil
}

func (s *MemoryStore) ListAll(ctx context.Context) ([]Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		out = append(out, sub)
	}
	sortSubscriptions(out)
	return out, nil
}

func (s *MemoryStore) Save(ctx context.Context, sub Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	key := subscriptionKey{userID: sub.UserID, endpoint: sub.Endpoint}
	if existing, ok := s.subs[key]; ok {
		sub.CreatedAt = existing.CreatedAt
	} else if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now

	s.subs[key] = sub
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, endpoint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k := range s.subs {
		if k.endpoint == endpoint {
			delete(s.subs, k)
		}
	}
	return nil
}

// Len returns the number of stored subscriptions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

func sortSubscriptions(subs []Subscription) {
	slices.SortFunc(subs, func(a, b Subscription) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Or(cmp.Compare(a.UserID, b.UserID), cmp.Compare(a.Endpoint, b.Endpoint))
	})
}
