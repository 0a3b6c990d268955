package queue

import "context"

// Consumer ingests booking domain events from the broker until ctx is
// cancelled. Start blocks; it returns the reason the loop ended.
type Consumer interface {
	Start(ctx context.Context) error
}

// Publisher hands one dispatch job to the external email/SMS senders.
// The routing key selects the sender (dispatch.email, dispatch.sms).
type Publisher interface {
	Publish(ctx context.Context, payload []byte, routingKey string) error
}
