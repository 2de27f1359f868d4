package integration_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcrabbitmq "github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"go.uber.org/goleak"
	"golang.org/x/text/currency"

	"github.com/akenel/helixnet-sub001/internal/broker"
	"github.com/akenel/helixnet-sub001/internal/domain"
	"github.com/akenel/helixnet-sub001/internal/node"
	"github.com/akenel/helixnet-sub001/internal/store"
	"github.com/akenel/helixnet-sub001/internal/wire"
)

type protocolSuite struct {
	suite.Suite

	container *tcrabbitmq.RabbitMQContainer
	amqpURL   string

	cancels []context.CancelFunc
	nodes   []*node.Node
}

// entry point to run the tests in the suite
func TestProtocolSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping broker integration suite in short mode")
	}

	// Verifies no leaks after all tests in the suite run.
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	suite.Run(t, new(protocolSuite))
}

// before all tests in the suite
func (suite *protocolSuite) SetupSuite() {
	ctx := suite.T().Context()

	var err error
	suite.container, err = tcrabbitmq.Run(ctx, "rabbitmq:4.0-alpine")
	suite.NoError(err)

	suite.amqpURL, err = suite.container.AmqpURL(ctx)
	suite.NoError(err)
}

// after all tests in the suite
func (suite *protocolSuite) TearDownSuite() {
	for _, cancel := range suite.cancels {
		cancel()
	}
	for _, n := range suite.nodes {
		suite.NoError(n.Close())
	}

	if suite.container != nil {
		suite.NoError(testcontainers.TerminateContainer(suite.container))
	}
}

func (suite *protocolSuite) startNode(ctx context.Context, id, name string) (*node.Node, *store.Store) {
	t := suite.T()
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	conn := broker.New(broker.Config{
		URL:              suite.amqpURL,
		Exchange:         "helixnet.trade.test",
		PublishTimeout:   5 * time.Second,
		RetryInitial:     100 * time.Millisecond,
		RetryMaxInterval: time.Second,
		RetryMaxAttempts: 5,
	}, log)

	st := store.New()
	dedup := wire.NewDedup(10*time.Minute, 1000)

	n, err := node.New(node.Config{ID: id, Name: name, DefaultTTL: time.Hour, Workers: 2}, conn, st, dedup, log)
	require.NoError(t, err)

	require.NoError(t, conn.EnsureConnected(ctx))
	require.NoError(t, n.Start(ctx, conn))

	suite.nodes = append(suite.nodes, n)
	return n, st
}

// Two nodes trade across a real broker: broadcast, directed offer, directed
// order, then the seller-side status progression.
func (suite *protocolSuite) TestTradeAcrossBroker() {
	t := suite.T()

	ctx, cancel := context.WithCancel(context.Background())
	suite.cancels = append(suite.cancels, cancel)

	blowup, blowupStore := suite.startNode(ctx, "blowup", "Blowup AG")
	fourtwenty, fourtwentyStore := suite.startNode(ctx, "fourtwenty", "Fourtwenty GmbH")

	need, err := blowup.BroadcastNeed(ctx, "Purple Power base", decimal.NewFromInt(5), "kg", domain.UrgencyNormal, "")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, err := fourtwentyStore.GetNeed(need.ID)
		return err == nil
	}, 15*time.Second, 100*time.Millisecond, "need did not reach the peer")

	price := domain.Money{
		Amount:   decimal.RequireFromString("45.00"),
		Currency: currency.MustParseISO("CHF"),
	}

	offer, err := fourtwenty.RespondToNeed(ctx, need.ID, "SKU-4421", "Purple Power base", price, decimal.NewFromInt(20), "2 days", "")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, err := blowupStore.GetOffer(offer.ID)
		return err == nil
	}, 15*time.Second, 100*time.Millisecond, "offer did not reach the requester")

	order, err := blowup.PlaceOrder(ctx, need.ID, offer.ID, decimal.NewFromInt(5))
	require.NoError(t, err)
	require.True(t, order.TotalPrice.Amount.Equal(decimal.RequireFromString("225.00")))

	require.Eventually(t, func() bool {
		got, err := fourtwentyStore.GetOrder(order.ID)
		return err == nil && got.Status == domain.OrderStatusPlaced
	}, 15*time.Second, 100*time.Millisecond, "order did not reach the seller")

	// seller's copies converged
	sellerOffer, err := fourtwentyStore.GetOffer(offer.ID)
	require.NoError(t, err)
	require.Equal(t, domain.OfferStatusAccepted, sellerOffer.Status)

	_, err = fourtwenty.ConfirmOrder(ctx, order.ID)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, err := blowupStore.GetOrder(order.ID)
		return err == nil && got.Status == domain.OrderStatusConfirmed
	}, 15*time.Second, 100*time.Millisecond, "confirmation did not reach the buyer")
}

// The routing scheme must keep directed traffic away from third parties: an
// offer addressed to blowup never shows up at a bystander node.
func (suite *protocolSuite) TestDirectedDeliveryIsolation() {
	t := suite.T()

	ctx, cancel := context.WithCancel(context.Background())
	suite.cancels = append(suite.cancels, cancel)

	blowup, blowupStore := suite.startNode(ctx, "blowup-iso", "Blowup AG")
	fourtwenty, _ := suite.startNode(ctx, "fourtwenty-iso", "Fourtwenty GmbH")
	_, bystanderStore := suite.startNode(ctx, "bystander-iso", "Bystander AG")

	need, err := blowup.BroadcastNeed(ctx, "Hemp rope", decimal.NewFromInt(100), "m", domain.UrgencyUrgent, "")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		// broadcast reaches everyone
		_, errA := bystanderStore.GetNeed(need.ID)
		return errA == nil
	}, 15*time.Second, 100*time.Millisecond)

	price := domain.Money{
		Amount:   decimal.RequireFromString("1.20"),
		Currency: currency.MustParseISO("CHF"),
	}

	offer, err := fourtwenty.RespondToNeed(ctx, need.ID, "SKU-ROPE", "Hemp rope", price, decimal.NewFromInt(500), "1 day", "")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, err := blowupStore.GetOffer(offer.ID)
		return err == nil
	}, 15*time.Second, 100*time.Millisecond)

	// the bystander never sees the directed offer
	time.Sleep(500 * time.Millisecond)
	_, err = bystanderStore.GetOffer(offer.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}
