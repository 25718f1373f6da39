package push

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// LogTransport only records deliveries. Used in development.
type LogTransport struct{}

func (LogTransport) Open(ctx context.Context) error { return nil }

func (LogTransport) Deliver(ctx context.Context, d Delivery) error {
	log.WithFields(log.Fields{
		"push_token": d.Token,
		"topic":      d.Topic,
	}).Infof("push delivery (log transport): %s", d.Payload)
	return nil
}

func (LogTransport) Close() error { return nil }
