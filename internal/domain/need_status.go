package domain

import "fmt"

type NeedStatus string

// remember to add new statuses to the needTransitions map
const (
	NeedStatusOpen      NeedStatus = "open"
	NeedStatusFulfilled NeedStatus = "fulfilled"
	NeedStatusExpired   NeedStatus = "expired"
	NeedStatusCancelled NeedStatus = "cancelled"
)

// needTransitions lists the allowed next statuses per current status.
// Fulfilled, expired and cancelled are terminal.
var needTransitions = map[NeedStatus]map[NeedStatus]struct{}{
	NeedStatusOpen: {
		NeedStatusFulfilled: {},
		NeedStatusExpired:   {},
		NeedStatusCancelled: {},
	},
}

func ToNeedStatus(s string) (NeedStatus, error) {
	status := NeedStatus(s)

	if _, ok := needTransitions[status]; ok {
		return status, nil
	}
	for _, nexts := range needTransitions {
		if _, ok := nexts[status]; ok {
			return status, nil
		}
	}

	return "", fmt.Errorf("%w: need status[%s] is not valid", ErrValidation, s)
}
