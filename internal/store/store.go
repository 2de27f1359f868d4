// Package store holds the entities a node knows about: its own needs, offers
// and orders plus the copies received from peers. Purely in-memory; durable
// records belong to the surrounding system.
package store

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/akenel/helixnet-sub001/internal/domain"
)

type Store struct {
	mu     sync.RWMutex
	needs  map[uuid.UUID]domain.Need
	offers map[uuid.UUID]domain.Offer
	orders map[uuid.UUID]domain.Order
}

func New() *Store {
	return &Store{
		needs:  make(map[uuid.UUID]domain.Need),
		offers: make(map[uuid.UUID]domain.Offer),
		orders: make(map[uuid.UUID]domain.Order),
	}
}

func (s *Store) PutNeed(n domain.Need) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.needs[n.ID] = n
}

func (s *Store) GetNeed(id uuid.UUID) (domain.Need, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.needs[id]
	if !ok {
		return domain.Need{}, fmt.Errorf("%w: need[%s]", domain.ErrNotFound, id)
	}
	return n, nil
}

// TransitionNeed applies next to the stored need under the store lock.
// changed=false with a nil error means the transition was already applied.
func (s *Store) TransitionNeed(id uuid.UUID, next domain.NeedStatus) (domain.Need, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.needs[id]
	if !ok {
		return domain.Need{}, false, fmt.Errorf("%w: need[%s]", domain.ErrNotFound, id)
	}

	changed, err := n.Transition(next)
	if err != nil {
		return domain.Need{}, false, err
	}

	s.needs[id] = n
	return n, changed, nil
}

func (s *Store) PutOffer(o domain.Offer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offers[o.ID] = o
}

func (s *Store) GetOffer(id uuid.UUID) (domain.Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.offers[id]
	if !ok {
		return domain.Offer{}, fmt.Errorf("%w: offer[%s]", domain.ErrNotFound, id)
	}
	return o, nil
}

func (s *Store) TransitionOffer(id uuid.UUID, next domain.OfferStatus) (domain.Offer, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.offers[id]
	if !ok {
		return domain.Offer{}, false, fmt.Errorf("%w: offer[%s]", domain.ErrNotFound, id)
	}

	changed, err := o.Transition(next)
	if err != nil {
		return domain.Offer{}, false, err
	}

	s.offers[id] = o
	return o, changed, nil
}

func (s *Store) PutOrder(o domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = o
}

func (s *Store) GetOrder(id uuid.UUID) (domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return domain.Order{}, fmt.Errorf("%w: order[%s]", domain.ErrNotFound, id)
	}
	return o, nil
}

func (s *Store) TransitionOrder(id uuid.UUID, next domain.OrderStatus) (domain.Order, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return domain.Order{}, false, fmt.Errorf("%w: order[%s]", domain.ErrNotFound, id)
	}

	changed, err := o.Transition(next)
	if err != nil {
		return domain.Order{}, false, err
	}

	s.orders[id] = o
	return o, changed, nil
}

// OpenNeeds returns all locally held needs still open.
func (s *Store) OpenNeeds() []domain.Need {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return lo.Filter(lo.Values(s.needs), func(n domain.Need, _ int) bool {
		return n.Status == domain.NeedStatusOpen
	})
}

// PendingOffers returns all locally held offers still pending.
func (s *Store) PendingOffers() []domain.Offer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return lo.Filter(lo.Values(s.offers), func(o domain.Offer, _ int) bool {
		return o.Status == domain.OfferStatusPending
	})
}

// OffersForNeed returns the offers referencing needID, any status.
func (s *Store) OffersForNeed(needID uuid.UUID) []domain.Offer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return lo.Filter(lo.Values(s.offers), func(o domain.Offer, _ int) bool {
		return o.NeedID == needID
	})
}
