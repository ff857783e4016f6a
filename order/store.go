package order

import (
	"errors"

	"github.com/patrickmn/go-cache"
)

var (
	ErrOrderExists   = errors.New("an order is already recorded for this session")
	ErrOrderNotFound = errors.New("order not found")
)

// Store keeps the most recent completed order per session until it is
// cleared. An order is written once.
type Store struct {
	orders *cache.Cache
}

func NewStore() *Store {
	return &Store{orders: cache.New(cache.NoExpiration, 0)}
}

func (s *Store) Set(sessionID string, o Summary) error {
	if err := s.orders.Add(sessionID, o, cache.NoExpiration); err != nil {
		return ErrOrderExists
	}
	return nil
}

func (s *Store) Get(sessionID string) (Summary, error) {
	v, ok := s.orders.Get(sessionID)
	if !ok {
		return Summary{}, ErrOrderNotFound
	}
	return v.(Summary), nil
}

func (s *Store) Clear(sessionID string) {
	s.orders.Delete(sessionID)
}
