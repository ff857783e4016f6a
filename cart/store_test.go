package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPersister struct {
	mock.Mock
}

func (m *mockPersister) Load(ctx context.Context, cartID string) ([]Item, error) {
	args := m.Called(ctx, cartID)
	items, _ := args.Get(0).([]Item)
	return items, args.Error(1)
}

func (m *mockPersister) Save(ctx context.Context, cartID string, items []Item) error {
	args := m.Called(ctx, cartID, items)
	return args.Error(0)
}

func TestStore_PersistsEveryTransition(t *testing.T) {
	ctx := context.Background()
	p := &mockPersister{}
	p.On("Load", ctx, "cart-1").Return(nil, nil).Once()
	p.On("Save", ctx, "cart-1", mock.Anything).Return(nil).Times(3)

	s := NewStore(p, nil)
	s.Add(ctx, "cart-1", headphones(t))
	s.SetQuantity(ctx, "cart-1", "1", 3)
	st := s.Remove(ctx, "cart-1", "1")

	assert.Empty(t, st.Items)
	p.AssertExpectations(t)
}

func TestStore_LoadFailureFallsBackToEmpty(t *testing.T) {
	ctx := context.Background()
	p := &mockPersister{}
	p.On("Load", ctx, "cart-1").Return(nil, errors.New("corrupt snapshot"))

	st := NewStore(p, nil).Get(ctx, "cart-1")
	assert.Empty(t, st.Items)
	assert.True(t, st.Total.IsZero())
}

func TestStore_RehydratesFromPersister(t *testing.T) {
	ctx := context.Background()
	p := &mockPersister{}
	p.On("Load", ctx, "cart-1").Return([]Item{{Product: headphones(t), Quantity: 2}}, nil).Once()

	s := NewStore(p, nil)
	assert.Equal(t, 2, s.Get(ctx, "cart-1").ItemCount)
	assert.Equal(t, 2, s.Get(ctx, "cart-1").ItemCount)
	p.AssertExpectations(t)
}

func TestStore_SaveFailureIsIgnored(t *testing.T) {
	ctx := context.Background()
	p := &mockPersister{}
	p.On("Load", ctx, "cart-1").Return(nil, nil)
	p.On("Save", ctx, "cart-1", mock.Anything).Return(errors.New("disk full"))

	st := NewStore(p, nil).Add(ctx, "cart-1", headphones(t))
	assert.Equal(t, 1, st.ItemCount)
}

func TestStore_NotifiesThroughFeed(t *testing.T) {
	ctx := context.Background()
	feed := NewFeed(time.Minute)
	s := NewStore(nil, feed)

	s.Add(ctx, "cart-1", headphones(t))
	s.Clear(ctx, "cart-1")

	notes := feed.Drain("cart-1")
	require.Len(t, notes, 2)
	assert.Equal(t, "Added to cart", notes[0].Title)
	assert.Equal(t, "Premium Wireless Headphones has been added to your cart.", notes[0].Description)
	assert.Equal(t, "Cart cleared", notes[1].Title)
	assert.Empty(t, feed.Drain("cart-1"))
}
