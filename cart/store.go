package cart

import (
	"context"
	"sync"

	"bnpl-checkout/logger"
)

// Persister stores the item list of a cart.
type Persister interface {
	Load(ctx context.Context, cartID string) ([]Item, error)
	Save(ctx context.Context, cartID string, items []Item) error
}

// Notification is a transient, user-visible message about a cart change.
type Notification struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Notifier delivers cart notifications.
type Notifier interface {
	Notify(ctx context.Context, cartID string, n Notification)
}

// Store holds carts by id. Every accepted transition is persisted and
// announced; persistence failures are logged and otherwise ignored.
type Store struct {
	mu        sync.Mutex
	carts     map[string]State
	persister Persister
	notifier  Notifier
}

func NewStore(p Persister, n Notifier) *Store {
	return &Store{
		carts:     make(map[string]State),
		persister: p,
		notifier:  n,
	}
}

// Get returns the cart, loading it on first use. A load failure yields an
// empty cart.
func (s *Store) Get(ctx context.Context, cartID string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx, cartID)
}

func (s *Store) load(ctx context.Context, cartID string) State {
	if st, ok := s.carts[cartID]; ok {
		return st
	}
	st := NewState(nil)
	if s.persister != nil {
		items, err := s.persister.Load(ctx, cartID)
		if err != nil {
			logger.FromContext(ctx).Warn("Failed to load cart, starting empty", "cartID", cartID, "error", err)
		} else {
			st = NewState(items)
		}
	}
	s.carts[cartID] = st
	return st
}

func (s *Store) apply(ctx context.Context, cartID string, fn func(State) State, n *Notification) State {
	s.mu.Lock()
	st := fn(s.load(ctx, cartID))
	s.carts[cartID] = st
	if s.persister != nil {
		if err := s.persister.Save(ctx, cartID, st.Items); err != nil {
			logger.FromContext(ctx).Warn("Failed to persist cart", "cartID", cartID, "error", err)
		}
	}
	s.mu.Unlock()

	if n != nil && s.notifier != nil {
		s.notifier.Notify(ctx, cartID, *n)
	}
	return st
}

func (s *Store) Add(ctx context.Context, cartID string, p Product) State {
	return s.apply(ctx, cartID, func(st State) State { return Add(st, p) }, &Notification{
		Title:       "Added to cart",
		Description: p.Name + " has been added to your cart.",
	})
}

func (s *Store) Remove(ctx context.Context, cartID, id string) State {
	return s.apply(ctx, cartID, func(st State) State { return Remove(st, id) }, &Notification{
		Title:       "Removed from cart",
		Description: "Item has been removed from your cart.",
	})
}

func (s *Store) SetQuantity(ctx context.Context, cartID, id string, n int) State {
	return s.apply(ctx, cartID, func(st State) State { return SetQuantity(st, id, n) }, &Notification{
		Title:       "Cart updated",
		Description: "Item quantity has been updated.",
	})
}

func (s *Store) Clear(ctx context.Context, cartID string) State {
	return s.apply(ctx, cartID, Clear, &Notification{
		Title:       "Cart cleared",
		Description: "All items have been removed from your cart.",
	})
}
