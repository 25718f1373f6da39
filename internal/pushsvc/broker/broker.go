// Package broker consumes push requests from NATS and hands them to APNs.
package broker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/avvvet/pass-services/internal/comm"
	"github.com/avvvet/pass-services/internal/passsvc/push"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

type Broker struct {
	Conn      *nats.Conn
	Transport push.Transport
	Timeout   time.Duration
}

func NewBroker(nc *nats.Conn, transport push.Transport, timeout time.Duration) *Broker {
	return &Broker{Conn: nc, Transport: transport, Timeout: timeout}
}

func (b *Broker) handleMessage(msgNat *nats.Msg) {
	result := b.deliver(msgNat.Data)

	if msgNat.Reply == "" {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		log.Errorf("Error marshal push result %s", err)
		return
	}
	if err := msgNat.Respond(payload); err != nil {
		log.Errorf("Error replying on %s: %s", msgNat.Reply, err)
	}
}

// deliver makes exactly one delivery attempt for the message.
func (b *Broker) deliver(data []byte) comm.PushResult {
	msg := comm.PushMessage{}
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Errorf("Error nats message %s", err)
		return comm.PushResult{Error: "malformed push message"}
	}
	if msg.Token == "" {
		return comm.PushResult{Error: "push token is required"}
	}
	payload := []byte(msg.Payload)
	if len(payload) == 0 {
		payload = push.EmptyPayload
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.Timeout)
	defer cancel()

	err := b.Transport.Deliver(ctx, push.Delivery{Token: msg.Token, Topic: msg.Topic, Payload: payload})
	if err != nil {
		log.WithFields(log.Fields{
			"operation":  "deliver",
			"push_token": msg.Token,
			"topic":      msg.Topic,
		}).Warnf("push delivery failed: %v", err)
		return comm.PushResult{Error: err.Error()}
	}
	return comm.PushResult{OK: true}
}

// consume push requests (Queue), each one handled by a single worker
func (b *Broker) QueueSubscribePush(topic, queueGroup string) (*nats.Subscription, error) {
	sub, err := b.Conn.QueueSubscribe(topic, queueGroup, b.handleMessage)
	if err != nil {
		return nil, err
	}
	log.Infof("subscribed to %s in queue group %s", topic, queueGroup)
	return sub, nil
}
