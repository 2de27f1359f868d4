package domain

import "fmt"

type Urgency string

// remember to add new urgencies to the validUrgencies map
const (
	UrgencyNormal Urgency = "normal"
	UrgencyUrgent Urgency = "urgent"
	UrgencyASAP   Urgency = "asap"
)

var validUrgencies = map[Urgency]struct{}{
	UrgencyNormal: {},
	UrgencyUrgent: {},
	UrgencyASAP:   {},
}

func ToUrgency(s string) (Urgency, error) {
	urgency := Urgency(s)
	if _, ok := validUrgencies[urgency]; ok {
		return urgency, nil
	}

	return "", fmt.Errorf("%w: urgency[%s] is not valid", ErrValidation, s)
}
