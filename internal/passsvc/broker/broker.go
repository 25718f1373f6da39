package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avvvet/pass-services/internal/comm"
	"github.com/avvvet/pass-services/internal/passsvc/models"
	"github.com/avvvet/pass-services/internal/passsvc/service"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

const UpdateAccount = "update-account"

type Broker struct {
	Conn           *nats.Conn
	AccountService *service.AccountService
	Timeout        time.Duration
}

func NewBroker(nc *nats.Conn, accountService *service.AccountService) *Broker {
	return &Broker{
		Conn:           nc,
		AccountService: accountService,
		Timeout:        30 * time.Second,
	}
}

// handles account changes published by other services
func (b *Broker) handleMessage(msgNat *nats.Msg) {
	result := b.process(msgNat.Data)

	if msgNat.Reply == "" {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		log.Errorf("Error marshal account update result %s", err)
		return
	}
	if err := msgNat.Respond(payload); err != nil {
		log.Errorf("Error replying on %s: %s", msgNat.Reply, err)
	}
}

func (b *Broker) process(data []byte) comm.AccountUpdateResult {
	msg := comm.Message{}
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Errorf("Error nats message %s", err)
		return comm.AccountUpdateResult{Error: "malformed message"}
	}

	switch msg.Type {
	case UpdateAccount:
		upd := comm.AccountUpdate{}
		if err := json.Unmarshal(msg.Data, &upd); err != nil {
			log.Errorf("Error [update-account] %s", err)
			return comm.AccountUpdateResult{Error: "malformed account update"}
		}

		ctx, cancel := context.WithTimeout(context.Background(), b.Timeout)
		defer cancel()
		reports, err := b.AccountService.UpdateAccount(ctx, upd.AccountID, models.AccountUpdate{
			Email:   upd.Email,
			Name:    upd.Name,
			Balance: upd.Balance,
		})
		if err != nil {
			log.Errorf("Error [AccountService.UpdateAccount] account %d: %s", upd.AccountID, err)
			return comm.AccountUpdateResult{Error: err.Error()}
		}

		result := comm.AccountUpdateResult{PassIDs: []int64{}}
		for _, r := range reports {
			result.PassIDs = append(result.PassIDs, r.PassID)
		}
		log.Infof("account %d updated over NATS, %d passes notified", upd.AccountID, len(result.PassIDs))
		return result
	default:
		log.Warnf("unknown message type %q", msg.Type)
		return comm.AccountUpdateResult{Error: fmt.Sprintf("unknown message type %q", msg.Type)}
	}
}

// subscribe to account service
func (b *Broker) SubscribeAccountService(topic string) (*nats.Subscription, error) {
	sub, err := b.Conn.Subscribe(topic, b.handleMessage)
	if err != nil {
		return nil, err
	}
	log.Infof("subscribed to %s", topic)
	return sub, nil
}
