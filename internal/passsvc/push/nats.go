package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/avvvet/pass-services/internal/comm"
	"github.com/nats-io/nats.go"
)

const DeliverSubject = "push.deliver"

// NATSTransport hands deliveries to the push service over NATS request/reply,
// so a rejected token comes back as an error.
type NATSTransport struct {
	conn    *nats.Conn
	subject string
}

func NewNATSTransport(conn *nats.Conn) *NATSTransport {
	return &NATSTransport{conn: conn, subject: DeliverSubject}
}

func (t *NATSTransport) Open(ctx context.Context) error {
	if t.conn == nil || !t.conn.IsConnected() {
		return errors.New("nats connection is not established")
	}
	return nil
}

func (t *NATSTransport) Deliver(ctx context.Context, d Delivery) error {
	data, err := json.Marshal(comm.PushMessage{
		Token:   d.Token,
		Topic:   d.Topic,
		Payload: json.RawMessage(d.Payload),
	})
	if err != nil {
		return err
	}

	reply, err := t.conn.RequestWithContext(ctx, t.subject, data)
	if err != nil {
		return fmt.Errorf("push request: %w", err)
	}

	var result comm.PushResult
	if err := json.Unmarshal(reply.Data, &result); err != nil {
		return fmt.Errorf("push reply: %w", err)
	}
	if !result.OK {
		return errors.New(result.Error)
	}
	return nil
}

func (t *NATSTransport) Close() error {
	if t.conn == nil || t.conn.IsClosed() {
		return nil
	}
	return t.conn.Flush()
}
