// Package broker owns the RabbitMQ connection lifecycle, topology
// declaration and the routing-key scheme of the trade protocol.
package broker

import (
	"fmt"

	"github.com/akenel/helixnet-sub001/internal/domain"
	"github.com/akenel/helixnet-sub001/internal/wire"
)

// Routing key grammar: need.<kind>.<node_id>.
//
// Need announcements are broadcast: every node binds to need.request.#.
// Offer and order messages are directed: a node binds only to its own id, so
// they reach the intended counterparty and nobody else.
const entityClass = "need"

func RouteNeed(requesterID string) string {
	return entityClass + ".request." + requesterID
}

func RouteOffer(destinationID string) string {
	return entityClass + ".offer." + destinationID
}

func RouteOrder(destinationID string) string {
	return entityClass + ".order." + destinationID
}

// Resolve maps a message kind and destination node to its routing key.
// For broadcast kinds the destination is the sender itself.
func Resolve(kind wire.Kind, destinationID string) (string, error) {
	if destinationID == "" {
		return "", fmt.Errorf("%w: destinationID is empty", domain.ErrValidation)
	}

	switch kind {
	case wire.KindRequest:
		return RouteNeed(destinationID), nil
	case wire.KindOffer:
		return RouteOffer(destinationID), nil
	case wire.KindOrder:
		return RouteOrder(destinationID), nil
	}

	return "", fmt.Errorf("%w: kind[%s] is not valid", domain.ErrValidation, kind)
}

// QueueBinding declares one queue and the routing patterns bound to it.
type QueueBinding struct {
	Queue    string
	Patterns []string
}

// BindingsFor returns the two queues a node consumes from: a broadcast queue
// receiving every need announcement, and a directed queue receiving only
// offers and orders addressed to this node.
func BindingsFor(exchange, nodeID string) []QueueBinding {
	return []QueueBinding{
		{
			Queue:    exchange + "." + nodeID + ".broadcast",
			Patterns: []string{entityClass + ".request.#"},
		},
		{
			Queue:    exchange + "." + nodeID + ".direct",
			Patterns: []string{RouteOffer(nodeID), RouteOrder(nodeID)},
		},
	}
}
