package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Offer is a directed counter-proposal against a specific Need, owned by the
// offering node. NeedID is a weak reference: the need itself lives on the
// requester and may already be closed there.
type Offer struct {
	ID          uuid.UUID
	NeedID      uuid.UUID
	OffererID   string
	OffererName string

	ProductSKU        string
	ProductName       string
	PricePerUnit      Money
	AvailableQuantity decimal.Decimal
	LeadTime          string
	Notes             string

	CreatedAt time.Time
	Status    OfferStatus
}

func NewOffer(needID uuid.UUID, offererID, offererName, sku, name string, pricePerUnit Money, availableQuantity decimal.Decimal, leadTime, notes string) (Offer, error) {
	offer := Offer{
		ID:                uuid.New(),
		NeedID:            needID,
		OffererID:         offererID,
		OffererName:       offererName,
		ProductSKU:        sku,
		ProductName:       name,
		PricePerUnit:      pricePerUnit,
		AvailableQuantity: availableQuantity,
		LeadTime:          leadTime,
		Notes:             notes,
		CreatedAt:         time.Now().UTC(),
		Status:            OfferStatusPending,
	}

	if err := offer.Validate(); err != nil {
		return Offer{}, err
	}

	return offer, nil
}

func (o Offer) Validate() error {
	if o.NeedID == uuid.Nil {
		return fmt.Errorf("%w: needID is empty", ErrValidation)
	}
	if o.OffererID == "" {
		return fmt.Errorf("%w: offererID is empty", ErrValidation)
	}
	if o.ProductSKU == "" {
		return fmt.Errorf("%w: productSKU is empty", ErrValidation)
	}
	if !o.PricePerUnit.Amount.IsPositive() {
		return fmt.Errorf("%w: pricePerUnit[%s] is not positive", ErrValidation, o.PricePerUnit.Amount)
	}
	if !o.AvailableQuantity.IsPositive() {
		return fmt.Errorf("%w: availableQuantity[%s] is not positive", ErrValidation, o.AvailableQuantity)
	}

	return nil
}

// Transition moves the offer to next; re-applying the current status is a no-op.
func (o *Offer) Transition(next OfferStatus) (bool, error) {
	if o.Status == next {
		return false, nil
	}

	if _, ok := offerTransitions[o.Status][next]; !ok {
		return false, fmt.Errorf("%w: offer %s -> %s", ErrInvalidTransition, o.Status, next)
	}

	o.Status = next
	return true, nil
}

// ExpiresBefore reports whether a still-pending offer is stale at now.
// Offers carry no explicit expiry, so the default TTL always applies.
func (o Offer) ExpiresBefore(now time.Time, defaultTTL time.Duration) bool {
	if defaultTTL <= 0 {
		return false
	}
	return o.CreatedAt.Add(defaultTTL).Before(now)
}
