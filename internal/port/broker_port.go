package port

import "context"

// Publisher is the outbound side of the broker as the protocol facade sees
// it. Publish blocks until the broker confirms receipt or the retry policy
// gives up with domain.ErrBrokerUnavailable.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
	DeadLetter(ctx context.Context, body []byte) error
	Close() error
}
