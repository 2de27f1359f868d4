package domain

import "fmt"

type OrderStatus string

// remember to add new statuses to the orderTransitions map
const (
	OrderStatusPlaced    OrderStatus = "placed"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// orderTransitions lists the allowed next statuses per current status.
// The happy path is placed -> confirmed -> shipped -> delivered; any
// non-terminal status may move to cancelled.
var orderTransitions = map[OrderStatus]map[OrderStatus]struct{}{
	OrderStatusPlaced: {
		OrderStatusConfirmed: {},
		OrderStatusCancelled: {},
	},
	OrderStatusConfirmed: {
		OrderStatusShipped:   {},
		OrderStatusCancelled: {},
	},
	OrderStatusShipped: {
		OrderStatusDelivered: {},
		OrderStatusCancelled: {},
	},
}

func ToOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(s)

	if _, ok := orderTransitions[status]; ok {
		return status, nil
	}
	for _, nexts := range orderTransitions {
		if _, ok := nexts[status]; ok {
			return status, nil
		}
	}

	return "", fmt.Errorf("%w: order status[%s] is not valid", ErrValidation, s)
}
