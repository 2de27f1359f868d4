package store_test

import (
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/currency"

	"github.com/akenel/helixnet-sub001/internal/domain"
	"github.com/akenel/helixnet-sub001/internal/store"
)

func fakeNeed() domain.Need {
	return domain.Need{
		ID:          uuid.New(),
		RequesterID: gofakeit.UUID(),
		Query:       gofakeit.ProductName(),
		Quantity:    decimal.NewFromInt(5),
		Unit:        "kg",
		Urgency:     domain.UrgencyNormal,
		Status:      domain.NeedStatusOpen,
	}
}

func fakeOffer(needID uuid.UUID) domain.Offer {
	return domain.Offer{
		ID:        uuid.New(),
		NeedID:    needID,
		OffererID: gofakeit.UUID(),
		PricePerUnit: domain.Money{
			Amount:   decimal.RequireFromString("45.00"),
			Currency: currency.MustParseISO("CHF"),
		},
		AvailableQuantity: decimal.NewFromInt(20),
		ProductSKU:        "SKU-4421",
		Status:            domain.OfferStatusPending,
	}
}

func TestStoreNeedLifecycle(t *testing.T) {
	st := store.New()
	need := fakeNeed()

	_, err := st.GetNeed(need.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	st.PutNeed(need)

	got, err := st.GetNeed(need.ID)
	require.NoError(t, err)
	assert.Equal(t, need.ID, got.ID)

	updated, changed, err := st.TransitionNeed(need.ID, domain.NeedStatusCancelled)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, domain.NeedStatusCancelled, updated.Status)

	// re-apply: no-op
	_, changed, err = st.TransitionNeed(need.ID, domain.NeedStatusCancelled)
	require.NoError(t, err)
	assert.False(t, changed)

	// terminal: invalid
	_, _, err = st.TransitionNeed(need.ID, domain.NeedStatusFulfilled)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestStoreTransitionUnknownIDs(t *testing.T) {
	st := store.New()

	_, _, err := st.TransitionNeed(uuid.New(), domain.NeedStatusExpired)
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, _, err = st.TransitionOffer(uuid.New(), domain.OfferStatusExpired)
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, _, err = st.TransitionOrder(uuid.New(), domain.OrderStatusConfirmed)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStoreOpenNeeds(t *testing.T) {
	st := store.New()

	open := fakeNeed()
	closed := fakeNeed()
	closed.Status = domain.NeedStatusCancelled

	st.PutNeed(open)
	st.PutNeed(closed)

	openNeeds := st.OpenNeeds()
	require.Len(t, openNeeds, 1)
	assert.Equal(t, open.ID, openNeeds[0].ID)
}

func TestStorePendingOffersAndOffersForNeed(t *testing.T) {
	st := store.New()

	needID := uuid.New()

	pending := fakeOffer(needID)
	rejected := fakeOffer(needID)
	rejected.Status = domain.OfferStatusRejected
	other := fakeOffer(uuid.New())

	st.PutOffer(pending)
	st.PutOffer(rejected)
	st.PutOffer(other)

	pendingOffers := st.PendingOffers()
	require.Len(t, pendingOffers, 2)

	forNeed := st.OffersForNeed(needID)
	require.Len(t, forNeed, 2)
	for _, o := range forNeed {
		assert.Equal(t, needID, o.NeedID)
	}
}
