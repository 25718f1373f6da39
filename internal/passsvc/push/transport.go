package push

import (
	"context"
)

// EmptyPayload is sent for every pass update. It carries no data; devices
// react by asking the service which passes changed.
var EmptyPayload = []byte("{}")

// Delivery is one notification to one device.
type Delivery struct {
	Token   string
	Topic   string // pass type identifier
	Payload []byte
}

// Transport delivers notifications. Callers Open it once before use and
// Close it when done; Deliver must be safe for concurrent use.
type Transport interface {
	Open(ctx context.Context) error
	Deliver(ctx context.Context, d Delivery) error
	Close() error
}
