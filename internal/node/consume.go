package node

import (
	"context"
	"errors"
	"fmt"

	"github.com/akenel/helixnet-sub001/internal/broker"
	"github.com/akenel/helixnet-sub001/internal/domain"
	"github.com/akenel/helixnet-sub001/internal/wire"
)

// Start begins consuming this node's queues. One goroutine per bound queue
// feeds a shared worker pool; deliveries are acked after dispatch, so a crash
// between dispatch and handler completion redelivers (at-least-once).
func (n *Node) Start(ctx context.Context, conn *broker.Connection) error {
	ctx, n.cancel = context.WithCancel(ctx)

	n.startWorkers(ctx)

	for _, b := range conn.BindingsFor(n.cfg.ID) {
		deliveries, err := conn.Consume(ctx, b)
		if err != nil {
			return fmt.Errorf("conn.Consume[%s]: %w", b.Queue, err)
		}

		n.consumeWG.Add(1)
		go func() {
			defer n.consumeWG.Done()

			for d := range deliveries {
				body := d.Body
				n.jobs <- func() {
					if err := n.HandleMessage(ctx, body); err != nil {
						n.log.Warn("message handling failed", "error", err)
					}
				}
				if err := d.Ack(false); err != nil {
					n.log.Warn("ack failed", "error", err)
				}
			}
		}()
	}

	return nil
}

func (n *Node) startWorkers(ctx context.Context) {
	for i := 0; i < n.cfg.Workers; i++ {
		n.workerWG.Add(1)
		go func() {
			defer n.workerWG.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case job := <-n.jobs:
					job()
				}
			}
		}()
	}
}

// HandleMessage processes one inbound message body: envelope decode, dedup,
// then the kind-specific handler. Malformed messages are dead-lettered and
// dropped, duplicates dropped silently; both are acked upstream either way.
func (n *Node) HandleMessage(ctx context.Context, body []byte) error {
	env, err := wire.DecodeEnvelope(body)
	if err != nil {
		n.log.Warn("poison message", "error", err)
		if dlErr := n.pub.DeadLetter(ctx, body); dlErr != nil {
			n.log.Warn("dead-letter failed", "error", dlErr)
		}
		return err
	}

	if n.dedup.Seen(env.MessageID) {
		n.log.Debug("duplicate message dropped", "message_id", env.MessageID)
		return nil
	}

	switch env.Kind {
	case wire.KindRequest:
		return n.handleNeed(env)
	case wire.KindOffer:
		return n.handleOffer(env)
	case wire.KindOrder:
		return n.handleOrder(env)
	}

	return fmt.Errorf("%w: kind[%s] is not valid", domain.ErrMalformedMessage, env.Kind)
}

// handleNeed stores a peer's broadcast need. Own announcements echo back on
// the broadcast binding and are skipped; a need already held is left alone,
// its local status may have advanced past the sender's copy.
func (n *Node) handleNeed(env wire.Envelope) error {
	need, err := env.DecodeNeed()
	if err != nil {
		return err
	}

	if need.RequesterID == n.cfg.ID {
		return nil
	}

	if _, err := n.store.GetNeed(need.ID); err == nil {
		return nil
	}

	n.store.PutNeed(need)
	n.log.Info("need received", "need_id", need.ID, "requester_id", need.RequesterID, "query", need.Query)

	if n.Callbacks.OnNeed != nil {
		n.Callbacks.OnNeed(need)
	}
	return nil
}

// handleOffer stores an offer directed at this node. An offer against a need
// that is unknown or no longer open is rejected locally; the need itself
// never transitions on behalf of an offerer.
func (n *Node) handleOffer(env wire.Envelope) error {
	offer, err := env.DecodeOffer()
	if err != nil {
		return err
	}

	if _, err := n.store.GetOffer(offer.ID); err == nil {
		return nil
	}

	need, err := n.store.GetNeed(offer.NeedID)
	if err != nil || need.Status != domain.NeedStatusOpen {
		if _, trErr := offer.Transition(domain.OfferStatusRejected); trErr != nil {
			return trErr
		}
		n.store.PutOffer(offer)
		n.log.Info("offer rejected", "offer_id", offer.ID, "need_id", offer.NeedID, "reason", "need no longer open")
		return nil
	}

	n.store.PutOffer(offer)
	n.log.Info("offer received", "offer_id", offer.ID, "need_id", offer.NeedID, "offerer_id", offer.OffererID)

	if n.Callbacks.OnOffer != nil {
		n.Callbacks.OnOffer(offer)
	}
	return nil
}

// handleOrder either records a fresh order placed against one of our offers
// or applies a status update from the counterparty. Redelivered transitions
// are no-ops.
func (n *Node) handleOrder(env wire.Envelope) error {
	order, err := env.DecodeOrder()
	if err != nil {
		return err
	}

	if order.BuyerID != n.cfg.ID && order.SellerID != n.cfg.ID {
		n.log.Warn("order for another party dropped", "order_id", order.ID)
		return nil
	}

	if _, err := n.store.GetOrder(order.ID); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		n.storeNewOrder(order)
		return nil
	}

	if _, _, err := n.store.TransitionOrder(order.ID, order.Status); err != nil {
		return fmt.Errorf("store.TransitionOrder: %w", err)
	}

	n.log.Info("order updated", "order_id", order.ID, "status", order.Status)
	if n.Callbacks.OnOrder != nil {
		n.Callbacks.OnOrder(order)
	}
	return nil
}

// storeNewOrder records an order placed by the buyer. On the seller side the
// referenced offer becomes accepted and the local copy of the need fulfilled,
// closing it against further offers here.
func (n *Node) storeNewOrder(order domain.Order) {
	n.store.PutOrder(order)

	if order.SellerID == n.cfg.ID {
		if _, _, err := n.store.TransitionOffer(order.OfferID, domain.OfferStatusAccepted); err != nil {
			n.log.Warn("offer accept failed", "offer_id", order.OfferID, "error", err)
		}
		if _, _, err := n.store.TransitionNeed(order.NeedID, domain.NeedStatusFulfilled); err != nil && !errors.Is(err, domain.ErrNotFound) {
			n.log.Debug("need fulfil skipped", "need_id", order.NeedID, "error", err)
		}
	}

	n.log.Info("order received", "order_id", order.ID, "buyer_id", order.BuyerID, "total", order.TotalPrice)
	if n.Callbacks.OnOrder != nil {
		n.Callbacks.OnOrder(order)
	}
}
