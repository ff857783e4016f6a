package cart

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// Feed is a Notifier that keeps notifications per cart for a short time so
// the storefront can pick them up with its next request.
type Feed struct {
	mu    sync.Mutex
	cache *cache.Cache
	ttl   time.Duration
}

func NewFeed(ttl time.Duration) *Feed {
	return &Feed{cache: cache.New(ttl, 2*ttl), ttl: ttl}
}

func (f *Feed) Notify(_ context.Context, cartID string, n Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var list []Notification
	if v, ok := f.cache.Get(cartID); ok {
		list = v.([]Notification)
	}
	f.cache.Set(cartID, append(list, n), f.ttl)
}

// Drain returns and forgets the pending notifications for a cart.
func (f *Feed) Drain(cartID string) []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.cache.Get(cartID)
	if !ok {
		return nil
	}
	f.cache.Delete(cartID)
	return v.([]Notification)
}
