package service

import (
	"github.com/google/uuid"

	"github.com/rl1809/gomarket-cart/internal/core/domain"
)

// Subscription delivers published carts. C holds at most one pending cart: a newer
// cart replaces an undelivered one, so a slow reader always ends up with the latest
// state and never blocks the store. C is closed by Close or when the store closes.
type Subscription struct {
	ID uuid.UUID
	C  <-chan []domain.CartItem

	ch    chan []domain.CartItem
	store *CartStore
}

// Subscribe registers a subscriber and delivers the current cart to it right away.
func (s *CartStore) Subscribe() (*Subscription, error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	ch := make(chan []domain.CartItem, 1)
	sub := &Subscription{
		ID:    uuid.New(),
		C:     ch,
		ch:    ch,
		store: s,
	}
	s.subscribers[sub.ID] = sub
	offerLatest(ch, s.products.Clone())
	return sub, nil
}

func (sub *Subscription) Close() {
	s := sub.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subscribers[sub.ID]; !ok {
		return
	}
	delete(s.subscribers, sub.ID)
	close(sub.ch)
}

func (s *CartStore) publishLocked(cart domain.Cart) {
	for _, sub := range s.subscribers {
		offerLatest(sub.ch, cart.Clone())
	}
}

// offerLatest requires the caller to be the only sender on ch.
func offerLatest(ch chan []domain.CartItem, cart []domain.CartItem) {
	select {
	case ch <- cart:
		return
	default:
	}

	select {
	case <-ch:
	default:
	}
	ch <- cart
}
