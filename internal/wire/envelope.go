// Package wire defines the JSON message envelope exchanged between nodes and
// the duplicate-suppression window applied on consumption.
package wire

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/akenel/helixnet-sub001/internal/domain"
)

// SchemaVersion is stamped on every outbound envelope. Consumers drop
// envelopes with a higher version than they understand.
const SchemaVersion = 1

type Kind string

const (
	KindRequest Kind = "request"
	KindOffer   Kind = "offer"
	KindOrder   Kind = "order"
)

var validKinds = map[Kind]struct{}{
	KindRequest: {},
	KindOffer:   {},
	KindOrder:   {},
}

// Envelope wraps every published entity with a unique message id, an emission
// timestamp and the schema version.
type Envelope struct {
	MessageID     uuid.UUID       `json:"message_id"`
	EmittedAt     time.Time       `json:"emitted_at"`
	SchemaVersion int             `json:"schema_version"`
	Kind          Kind            `json:"kind"`
	Entity        json.RawMessage `json:"entity"`
}

func NewEnvelope(kind Kind, entity any) (Envelope, error) {
	if _, ok := validKinds[kind]; !ok {
		return Envelope{}, fmt.Errorf("%w: kind[%s] is not valid", domain.ErrValidation, kind)
	}

	body, err := json.Marshal(entity)
	if err != nil {
		return Envelope{}, fmt.Errorf("json.Marshal: %w", err)
	}

	return Envelope{
		MessageID:     uuid.New(),
		EmittedAt:     time.Now().UTC(),
		SchemaVersion: SchemaVersion,
		Kind:          kind,
		Entity:        body,
	}, nil
}

func (e Envelope) Encode() ([]byte, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("json.Marshal: %w", err)
	}
	return body, nil
}

// DecodeEnvelope parses an inbound message body. Parse failures and
// incompatible schema versions are both malformed: callers drop the message
// instead of retrying it.
func DecodeEnvelope(body []byte) (Envelope, error) {
	var e Envelope

	if err := json.Unmarshal(body, &e); err != nil {
		return Envelope{}, fmt.Errorf("%w: json.Unmarshal: %v", domain.ErrMalformedMessage, err)
	}

	if e.MessageID == uuid.Nil {
		return Envelope{}, fmt.Errorf("%w: message_id is empty", domain.ErrMalformedMessage)
	}
	if _, ok := validKinds[e.Kind]; !ok {
		return Envelope{}, fmt.Errorf("%w: kind[%s] is not valid", domain.ErrMalformedMessage, e.Kind)
	}
	if e.SchemaVersion < 1 || e.SchemaVersion > SchemaVersion {
		return Envelope{}, fmt.Errorf("%w: schema_version[%d] is not supported", domain.ErrMalformedMessage, e.SchemaVersion)
	}

	return e, nil
}

func (e Envelope) DecodeNeed() (domain.Need, error) {
	var p NeedPayload
	if err := json.Unmarshal(e.Entity, &p); err != nil {
		return domain.Need{}, fmt.Errorf("%w: json.Unmarshal: %v", domain.ErrMalformedMessage, err)
	}

	need, err := p.ToDomain()
	if err != nil {
		return domain.Need{}, fmt.Errorf("%w: %v", domain.ErrMalformedMessage, err)
	}
	return need, nil
}

func (e Envelope) DecodeOffer() (domain.Offer, error) {
	var p OfferPayload
	if err := json.Unmarshal(e.Entity, &p); err != nil {
		return domain.Offer{}, fmt.Errorf("%w: json.Unmarshal: %v", domain.ErrMalformedMessage, err)
	}

	offer, err := p.ToDomain()
	if err != nil {
		return domain.Offer{}, fmt.Errorf("%w: %v", domain.ErrMalformedMessage, err)
	}
	return offer, nil
}

func (e Envelope) DecodeOrder() (domain.Order, error) {
	var p OrderPayload
	if err := json.Unmarshal(e.Entity, &p); err != nil {
		return domain.Order{}, fmt.Errorf("%w: json.Unmarshal: %v", domain.ErrMalformedMessage, err)
	}

	order, err := p.ToDomain()
	if err != nil {
		return domain.Order{}, fmt.Errorf("%w: %v", domain.ErrMalformedMessage, err)
	}
	return order, nil
}
