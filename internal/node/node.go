// Package node implements the trade-coordination facade of a single shop
// node: broadcasting needs, responding with offers, committing orders and
// handling the inbound message stream.
package node

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/akenel/helixnet-sub001/internal/broker"
	"github.com/akenel/helixnet-sub001/internal/domain"
	"github.com/akenel/helixnet-sub001/internal/port"
	"github.com/akenel/helixnet-sub001/internal/store"
	"github.com/akenel/helixnet-sub001/internal/wire"
)

// Config identifies the node and tunes its local behavior. The node's own
// identity travels as requester/offerer on every entity it creates.
type Config struct {
	ID   string
	Name string

	// DefaultTTL stamps ExpiresAt on broadcast needs and bounds offer age.
	DefaultTTL time.Duration
	// Workers sizes the handler pool draining the consume loops.
	Workers int
}

// Callbacks are invoked from handler workers when remote entities arrive.
// Optional; used by the API layer to push updates outward.
type Callbacks struct {
	OnNeed  func(domain.Need)
	OnOffer func(domain.Offer)
	OnOrder func(domain.Order)
}

type Node struct {
	cfg   Config
	pub   port.Publisher
	store *store.Store
	dedup *wire.Dedup
	log   *slog.Logger

	// Callbacks must be set before Start.
	Callbacks Callbacks

	jobs      chan func()
	workerWG  sync.WaitGroup
	consumeWG sync.WaitGroup
	cancel    context.CancelFunc
}

func New(cfg Config, pub port.Publisher, st *store.Store, dedup *wire.Dedup, log *slog.Logger) (*Node, error) {
	if cfg.ID == "" {
		return nil, fmt.Errorf("%w: node ID is empty", domain.ErrValidation)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}

	return &Node{
		cfg:   cfg,
		pub:   pub,
		store: st,
		dedup: dedup,
		log:   log.With("component", "node", "node_id", cfg.ID),
		jobs:  make(chan func(), cfg.Workers*16),
	}, nil
}

// Store exposes the locally held entities to the surrounding system.
func (n *Node) Store() *store.Store { return n.store }

// BroadcastNeed publishes a need announcement to every node on the exchange.
// The need is stored locally only after the broker confirms the publish.
func (n *Node) BroadcastNeed(ctx context.Context, query string, quantity decimal.Decimal, unit string, urgency domain.Urgency, notes string) (domain.Need, error) {
	need, err := domain.NewNeed(n.cfg.ID, n.cfg.Name, query, quantity, unit, urgency, notes)
	if err != nil {
		return domain.Need{}, fmt.Errorf("domain.NewNeed: %w", err)
	}

	if n.cfg.DefaultTTL > 0 {
		expiresAt := need.CreatedAt.Add(n.cfg.DefaultTTL)
		need.ExpiresAt = &expiresAt
	}

	if err := n.publish(ctx, wire.KindRequest, wire.FromNeed(need), broker.RouteNeed(n.cfg.ID)); err != nil {
		return domain.Need{}, err
	}

	n.store.PutNeed(need)
	n.log.Info("need broadcast", "need_id", need.ID, "query", need.Query, "quantity", need.Quantity)

	return need, nil
}

// RespondToNeed publishes an offer directed at the requester of needID.
// The need must be known locally and still open from this node's view.
func (n *Node) RespondToNeed(ctx context.Context, needID uuid.UUID, sku, name string, pricePerUnit domain.Money, availableQuantity decimal.Decimal, leadTime, notes string) (domain.Offer, error) {
	need, err := n.store.GetNeed(needID)
	if err != nil {
		return domain.Offer{}, fmt.Errorf("store.GetNeed: %w", err)
	}
	if need.Status != domain.NeedStatusOpen {
		return domain.Offer{}, fmt.Errorf("%w: need is %s, not open", domain.ErrValidation, need.Status)
	}

	offer, err := domain.NewOffer(needID, n.cfg.ID, n.cfg.Name, sku, name, pricePerUnit, availableQuantity, leadTime, notes)
	if err != nil {
		return domain.Offer{}, fmt.Errorf("domain.NewOffer: %w", err)
	}

	if err := n.publish(ctx, wire.KindOffer, wire.FromOffer(offer), broker.RouteOffer(need.RequesterID)); err != nil {
		return domain.Offer{}, err
	}

	n.store.PutOffer(offer)
	n.log.Info("offer sent", "offer_id", offer.ID, "need_id", needID, "requester_id", need.RequesterID)

	return offer, nil
}

// PlaceOrder commits to one of the offers received for an own need. On a
// confirmed publish the offer becomes accepted and the need fulfilled; other
// offers for the need stay pending until they expire.
func (n *Node) PlaceOrder(ctx context.Context, needID, offerID uuid.UUID, quantity decimal.Decimal) (domain.Order, error) {
	need, err := n.store.GetNeed(needID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("store.GetNeed: %w", err)
	}
	if need.RequesterID != n.cfg.ID {
		return domain.Order{}, fmt.Errorf("%w: need[%s] belongs to %s", domain.ErrValidation, needID, need.RequesterID)
	}

	offer, err := n.store.GetOffer(offerID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("store.GetOffer: %w", err)
	}

	order, err := domain.NewOrder(need, offer, quantity)
	if err != nil {
		return domain.Order{}, fmt.Errorf("domain.NewOrder: %w", err)
	}

	if err := n.publish(ctx, wire.KindOrder, wire.FromOrder(order), broker.RouteOrder(order.SellerID)); err != nil {
		return domain.Order{}, err
	}

	n.store.PutOrder(order)
	if _, _, err := n.store.TransitionOffer(offerID, domain.OfferStatusAccepted); err != nil {
		n.log.Warn("offer accept failed", "offer_id", offerID, "error", err)
	}
	if _, _, err := n.store.TransitionNeed(needID, domain.NeedStatusFulfilled); err != nil {
		n.log.Warn("need fulfil failed", "need_id", needID, "error", err)
	}

	n.log.Info("order placed", "order_id", order.ID, "seller_id", order.SellerID, "total", order.TotalPrice)
	return order, nil
}

// CancelNeed closes an own need locally. Peers holding stale copies converge
// through their own expiry sweepers; no retraction is broadcast.
func (n *Node) CancelNeed(needID uuid.UUID) (domain.Need, error) {
	need, err := n.store.GetNeed(needID)
	if err != nil {
		return domain.Need{}, fmt.Errorf("store.GetNeed: %w", err)
	}
	if need.RequesterID != n.cfg.ID {
		return domain.Need{}, fmt.Errorf("%w: need[%s] belongs to %s", domain.ErrValidation, needID, need.RequesterID)
	}

	need, _, err = n.store.TransitionNeed(needID, domain.NeedStatusCancelled)
	if err != nil {
		return domain.Need{}, err
	}

	n.log.Info("need cancelled", "need_id", needID)
	return need, nil
}

// ConfirmOrder is the seller acknowledging a placed order.
func (n *Node) ConfirmOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	return n.advanceOrder(ctx, orderID, domain.OrderStatusConfirmed, roleSeller)
}

// ShipOrder is the seller reporting the goods underway.
func (n *Node) ShipOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	return n.advanceOrder(ctx, orderID, domain.OrderStatusShipped, roleSeller)
}

// DeliverOrder is the buyer acknowledging receipt.
func (n *Node) DeliverOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	return n.advanceOrder(ctx, orderID, domain.OrderStatusDelivered, roleBuyer)
}

// CancelOrder may be called by either party before delivery.
func (n *Node) CancelOrder(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	return n.advanceOrder(ctx, orderID, domain.OrderStatusCancelled, roleAny)
}

type role int

const (
	roleAny role = iota
	roleBuyer
	roleSeller
)

// advanceOrder publishes the status change to the counterparty first and
// applies it locally only once the broker confirmed it.
func (n *Node) advanceOrder(ctx context.Context, orderID uuid.UUID, next domain.OrderStatus, who role) (domain.Order, error) {
	order, err := n.store.GetOrder(orderID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("store.GetOrder: %w", err)
	}

	switch who {
	case roleSeller:
		if order.SellerID != n.cfg.ID {
			return domain.Order{}, fmt.Errorf("%w: only seller[%s] may set %s", domain.ErrValidation, order.SellerID, next)
		}
	case roleBuyer:
		if order.BuyerID != n.cfg.ID {
			return domain.Order{}, fmt.Errorf("%w: only buyer[%s] may set %s", domain.ErrValidation, order.BuyerID, next)
		}
	default:
		if order.BuyerID != n.cfg.ID && order.SellerID != n.cfg.ID {
			return domain.Order{}, fmt.Errorf("%w: node is not a party of order[%s]", domain.ErrValidation, orderID)
		}
	}

	// Dry-run on a copy so an invalid transition never reaches the wire.
	probe := order
	if _, err := probe.Transition(next); err != nil {
		return domain.Order{}, err
	}

	if err := n.publish(ctx, wire.KindOrder, wire.FromOrder(probe), broker.RouteOrder(order.CounterpartyID(n.cfg.ID))); err != nil {
		return domain.Order{}, err
	}

	order, _, err = n.store.TransitionOrder(orderID, next)
	if err != nil {
		return domain.Order{}, err
	}

	n.log.Info("order advanced", "order_id", orderID, "status", next)
	return order, nil
}

// Close stops consumption and releases the broker resources.
func (n *Node) Close() error {
	if n.cancel != nil {
		n.cancel()
	}
	return n.pub.Close()
}

func (n *Node) publish(ctx context.Context, kind wire.Kind, entity any, routingKey string) error {
	env, err := wire.NewEnvelope(kind, entity)
	if err != nil {
		return fmt.Errorf("wire.NewEnvelope: %w", err)
	}

	body, err := env.Encode()
	if err != nil {
		return fmt.Errorf("env.Encode: %w", err)
	}

	if err := n.pub.Publish(ctx, routingKey, body); err != nil {
		return fmt.Errorf("pub.Publish[%s]: %w", routingKey, err)
	}

	return nil
}
