package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is the binding commitment formed from one Need and one accepted
// Offer. Neither party holds exclusive write authority: status advances only
// through messages from the party responsible for that transition.
type Order struct {
	ID      uuid.UUID
	NeedID  uuid.UUID
	OfferID uuid.UUID

	BuyerID    string
	BuyerName  string
	SellerID   string
	SellerName string

	ProductSKU  string
	ProductName string
	Quantity    decimal.Decimal
	Unit        string

	PricePerUnit Money
	TotalPrice   Money

	CreatedAt time.Time
	Status    OrderStatus
}

// NewOrder forms an order from the requester's need and its chosen offer.
// The quantity check against AvailableQuantity is best-effort: it runs on the
// requester's last-seen copy of the offer, the network is eventually
// consistent.
func NewOrder(need Need, offer Offer, quantity decimal.Decimal) (Order, error) {
	if need.Status != NeedStatusOpen {
		return Order{}, fmt.Errorf("%w: need is %s, not open", ErrValidation, need.Status)
	}
	if offer.Status != OfferStatusPending {
		return Order{}, fmt.Errorf("%w: offer is %s, not pending", ErrValidation, offer.Status)
	}
	if offer.NeedID != need.ID {
		return Order{}, fmt.Errorf("%w: offer[%s] does not reference need[%s]", ErrValidation, offer.ID, need.ID)
	}
	if !quantity.IsPositive() {
		return Order{}, fmt.Errorf("%w: quantity[%s] is not positive", ErrValidation, quantity)
	}
	if quantity.GreaterThan(offer.AvailableQuantity) {
		return Order{}, fmt.Errorf("%w: quantity[%s] exceeds available[%s]", ErrValidation, quantity, offer.AvailableQuantity)
	}

	return Order{
		ID:           uuid.New(),
		NeedID:       need.ID,
		OfferID:      offer.ID,
		BuyerID:      need.RequesterID,
		BuyerName:    need.RequesterName,
		SellerID:     offer.OffererID,
		SellerName:   offer.OffererName,
		ProductSKU:   offer.ProductSKU,
		ProductName:  offer.ProductName,
		Quantity:     quantity,
		Unit:         need.Unit,
		PricePerUnit: offer.PricePerUnit,
		TotalPrice:   offer.PricePerUnit.Mul(quantity),
		CreatedAt:    time.Now().UTC(),
		Status:       OrderStatusPlaced,
	}, nil
}

// Transition moves the order to next; re-applying the current status is a no-op.
func (o *Order) Transition(next OrderStatus) (bool, error) {
	if o.Status == next {
		return false, nil
	}

	if _, ok := orderTransitions[o.Status][next]; !ok {
		return false, fmt.Errorf("%w: order %s -> %s", ErrInvalidTransition, o.Status, next)
	}

	o.Status = next
	return true, nil
}

// CounterpartyID returns the other party of the order from nodeID's view.
func (o Order) CounterpartyID(nodeID string) string {
	if o.BuyerID == nodeID {
		return o.SellerID
	}
	return o.BuyerID
}
