package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Need is a broadcast request for a product or quantity. It is owned by the
// requesting node; only Status and ExpiresAt change after creation.
type Need struct {
	ID            uuid.UUID
	RequesterID   string
	RequesterName string
	Query         string
	Quantity      decimal.Decimal
	Unit          string
	Urgency       Urgency
	Notes         string

	CreatedAt time.Time
	ExpiresAt *time.Time
	Status    NeedStatus
}

func NewNeed(requesterID, requesterName, query string, quantity decimal.Decimal, unit string, urgency Urgency, notes string) (Need, error) {
	need := Need{
		ID:            uuid.New(),
		RequesterID:   requesterID,
		RequesterName: requesterName,
		Query:         query,
		Quantity:      quantity,
		Unit:          unit,
		Urgency:       urgency,
		Notes:         notes,
		CreatedAt:     time.Now().UTC(),
		Status:        NeedStatusOpen,
	}

	if err := need.Validate(); err != nil {
		return Need{}, err
	}

	return need, nil
}

func (n Need) Validate() error {
	if n.RequesterID == "" {
		return fmt.Errorf("%w: requesterID is empty", ErrValidation)
	}
	if n.Query == "" {
		return fmt.Errorf("%w: query is empty", ErrValidation)
	}
	if !n.Quantity.IsPositive() {
		return fmt.Errorf("%w: quantity[%s] is not positive", ErrValidation, n.Quantity)
	}
	if n.Unit == "" {
		return fmt.Errorf("%w: unit is empty", ErrValidation)
	}
	if _, ok := validUrgencies[n.Urgency]; !ok {
		return fmt.Errorf("%w: urgency[%s] is not valid", ErrValidation, n.Urgency)
	}

	return nil
}

// Transition moves the need to next. Re-applying the current status is a
// no-op and reports changed=false, which keeps redelivered messages harmless.
func (n *Need) Transition(next NeedStatus) (bool, error) {
	if n.Status == next {
		return false, nil
	}

	if _, ok := needTransitions[n.Status][next]; !ok {
		return false, fmt.Errorf("%w: need %s -> %s", ErrInvalidTransition, n.Status, next)
	}

	n.Status = next
	return true, nil
}

// ExpiresBefore reports whether the need should be considered stale at now,
// falling back to CreatedAt+defaultTTL when no explicit expiry is set.
func (n Need) ExpiresBefore(now time.Time, defaultTTL time.Duration) bool {
	if n.ExpiresAt != nil {
		return n.ExpiresAt.Before(now)
	}
	if defaultTTL <= 0 {
		return false
	}
	return n.CreatedAt.Add(defaultTTL).Before(now)
}
