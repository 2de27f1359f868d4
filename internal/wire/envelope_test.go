package wire_test

import (
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/currency"

	"github.com/akenel/helixnet-sub001/internal/domain"
	"github.com/akenel/helixnet-sub001/internal/wire"
)

func TestEnvelopeRoundTripNeed(t *testing.T) {
	need := randomNeed()

	env, err := wire.NewEnvelope(wire.KindRequest, wire.FromNeed(need))
	require.NoError(t, err)

	body, err := env.Encode()
	require.NoError(t, err)

	decoded, err := wire.DecodeEnvelope(body)
	require.NoError(t, err)

	assert.Equal(t, env.MessageID, decoded.MessageID)
	assert.Equal(t, wire.SchemaVersion, decoded.SchemaVersion)
	assert.Equal(t, wire.KindRequest, decoded.Kind)

	actual, err := decoded.DecodeNeed()
	require.NoError(t, err)

	assertEntity(t, need, actual)
}

func TestEnvelopeRoundTripOffer(t *testing.T) {
	offer := randomOffer()

	env, err := wire.NewEnvelope(wire.KindOffer, wire.FromOffer(offer))
	require.NoError(t, err)

	body, err := env.Encode()
	require.NoError(t, err)

	decoded, err := wire.DecodeEnvelope(body)
	require.NoError(t, err)

	actual, err := decoded.DecodeOffer()
	require.NoError(t, err)

	assertEntity(t, offer, actual)
}

func TestEnvelopeRoundTripOrder(t *testing.T) {
	need := randomNeed()
	offer := randomOffer()
	offer.NeedID = need.ID

	order, err := domain.NewOrder(need, offer, decimal.NewFromInt(1))
	require.NoError(t, err)

	env, err := wire.NewEnvelope(wire.KindOrder, wire.FromOrder(order))
	require.NoError(t, err)

	body, err := env.Encode()
	require.NoError(t, err)

	decoded, err := wire.DecodeEnvelope(body)
	require.NoError(t, err)

	actual, err := decoded.DecodeOrder()
	require.NoError(t, err)

	assertEntity(t, order, actual)
}

func TestNewEnvelopeInvalidKind(t *testing.T) {
	_, err := wire.NewEnvelope(wire.Kind("gossip"), struct{}{})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestDecodeEnvelopeMalformed(t *testing.T) {
	valid, err := wire.NewEnvelope(wire.KindRequest, wire.FromNeed(randomNeed()))
	require.NoError(t, err)

	tests := []struct {
		name     string
		bodyFunc func() []byte
	}{
		{
			name:     "not json",
			bodyFunc: func() []byte { return []byte("not json at all") },
		},
		{
			name:     "empty body",
			bodyFunc: func() []byte { return nil },
		},
		{
			name: "missing message id",
			bodyFunc: func() []byte {
				e := valid
				e.MessageID = uuid.Nil
				body, err := e.Encode()
				require.NoError(t, err)
				return body
			},
		},
		{
			name: "unknown kind",
			bodyFunc: func() []byte {
				e := valid
				e.Kind = wire.Kind("gossip")
				body, err := e.Encode()
				require.NoError(t, err)
				return body
			},
		},
		{
			name: "schema version from the future",
			bodyFunc: func() []byte {
				e := valid
				e.SchemaVersion = wire.SchemaVersion + 1
				body, err := e.Encode()
				require.NoError(t, err)
				return body
			},
		},
		{
			name: "schema version zero",
			bodyFunc: func() []byte {
				e := valid
				e.SchemaVersion = 0
				body, err := e.Encode()
				require.NoError(t, err)
				return body
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := wire.DecodeEnvelope(tt.bodyFunc())
			require.ErrorIs(t, err, domain.ErrMalformedMessage)
		})
	}
}

func TestDecodeOfferBadCurrency(t *testing.T) {
	payload := wire.FromOffer(randomOffer())
	payload.Currency = "BTC"

	env, err := wire.NewEnvelope(wire.KindOffer, payload)
	require.NoError(t, err)

	body, err := env.Encode()
	require.NoError(t, err)

	decoded, err := wire.DecodeEnvelope(body)
	require.NoError(t, err)

	_, err = decoded.DecodeOffer()
	require.ErrorIs(t, err, domain.ErrMalformedMessage)
	assert.ErrorContains(t, err, "currency[BTC] is not valid")
}

func randomNeed() domain.Need {
	return domain.Need{
		ID:            uuid.MustParse(gofakeit.UUID()),
		RequesterID:   gofakeit.UUID(),
		RequesterName: gofakeit.Company(),
		Query:         gofakeit.ProductName(),
		Quantity:      decimal.NewFromInt(int64(gofakeit.Number(1, 50))),
		Unit:          "kg",
		Urgency:       domain.UrgencyUrgent,
		Notes:         gofakeit.Sentence(4),
		CreatedAt:     time.Now().UTC().Truncate(time.Millisecond),
		ExpiresAt:     lo.ToPtr(time.Now().UTC().Add(time.Hour).Truncate(time.Millisecond)),
		Status:        domain.NeedStatusOpen,
	}
}

func randomOffer() domain.Offer {
	return domain.Offer{
		ID:          uuid.MustParse(gofakeit.UUID()),
		NeedID:      uuid.MustParse(gofakeit.UUID()),
		OffererID:   gofakeit.UUID(),
		OffererName: gofakeit.Company(),
		ProductSKU:  "SKU-4421",
		ProductName: gofakeit.ProductName(),
		PricePerUnit: domain.Money{
			Amount:   decimal.RequireFromString("45.00"),
			Currency: currency.MustParseISO("CHF"),
		},
		AvailableQuantity: decimal.NewFromInt(20),
		LeadTime:          "3 days",
		CreatedAt:         time.Now().UTC().Truncate(time.Millisecond),
		Status:            domain.OfferStatusPending,
	}
}

// assertEntity diffs two entities value-for-value. Currency units compare by
// ISO code; decimals and timestamps via their own Equal methods.
func assertEntity(t *testing.T, expected, actual any) {
	t.Helper()

	comparer := cmp.Comparer(func(x, y currency.Unit) bool {
		return x.String() == y.String()
	})

	diff := cmp.Diff(expected, actual, comparer)
	assert.Empty(t, diff)
}
