package push

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"sync"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/certificate"
)

// APNSTransport talks to Apple Push Notification service with the pass type
// certificate.
type APNSTransport struct {
	certPath   string
	password   string
	production bool

	mu     sync.RWMutex
	client *apns2.Client
}

func NewAPNSTransport(certPath, password string, production bool) *APNSTransport {
	return &APNSTransport{certPath: certPath, password: password, production: production}
}

func (t *APNSTransport) newClient(cert tls.Certificate) *apns2.Client {
	c := apns2.NewClient(cert)
	if t.production {
		return c.Production()
	}
	return c.Development()
}

func (t *APNSTransport) Open(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.client != nil {
		return nil
	}
	cert, err := certificate.FromP12File(t.certPath, t.password)
	if err != nil {
		return fmt.Errorf("load apns certificate: %w", err)
	}
	t.client = t.newClient(cert)
	return nil
}

func (t *APNSTransport) Deliver(ctx context.Context, d Delivery) error {
	t.mu.RLock()
	client := t.client
	t.mu.RUnlock()
	if client == nil {
		return errors.New("apns transport is not open")
	}

	res, err := client.PushWithContext(ctx, &apns2.Notification{
		DeviceToken: d.Token,
		Topic:       d.Topic,
		Payload:     d.Payload,
	})
	if err != nil {
		return err
	}
	if !res.Sent() {
		return fmt.Errorf("apns rejected notification: %d %s", res.StatusCode, res.Reason)
	}
	return nil
}

func (t *APNSTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.client != nil && t.client.HTTPClient != nil {
		t.client.HTTPClient.CloseIdleConnections()
	}
	t.client = nil
	return nil
}
