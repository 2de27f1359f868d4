package domain

import "fmt"

type OfferStatus string

// remember to add new statuses to the offerTransitions map
const (
	OfferStatusPending  OfferStatus = "pending"
	OfferStatusAccepted OfferStatus = "accepted"
	OfferStatusRejected OfferStatus = "rejected"
	OfferStatusExpired  OfferStatus = "expired"
)

// offerTransitions lists the allowed next statuses per current status.
// Accepted, rejected and expired are terminal.
var offerTransitions = map[OfferStatus]map[OfferStatus]struct{}{
	OfferStatusPending: {
		OfferStatusAccepted: {},
		OfferStatusRejected: {},
		OfferStatusExpired:  {},
	},
}

func ToOfferStatus(s string) (OfferStatus, error) {
	status := OfferStatus(s)

	if _, ok := offerTransitions[status]; ok {
		return status, nil
	}
	for _, nexts := range offerTransitions {
		if _, ok := nexts[status]; ok {
			return status, nil
		}
	}

	return "", fmt.Errorf("%w: offer status[%s] is not valid", ErrValidation, s)
}
