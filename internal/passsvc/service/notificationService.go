package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avvvet/pass-services/internal/passsvc/push"
	"github.com/avvvet/pass-services/internal/passsvc/store"
	log "github.com/sirupsen/logrus"
)

// NotifyReport summarizes one fan-out.
type NotifyReport struct {
	PassID    int64
	Attempted int
	Delivered int
	Failures  []*DeliveryError
}

type NotificationService struct {
	passes        PassRepository
	registrations *RegistrationService
	transport     push.Transport
	timeout       time.Duration
}

func NewNotificationService(passes PassRepository, registrations *RegistrationService,
	transport push.Transport, timeout time.Duration) *NotificationService {
	return &NotificationService{
		passes:        passes,
		registrations: registrations,
		transport:     transport,
		timeout:       timeout,
	}
}

// Notify sends an empty push to every device registered for the pass. A
// failed delivery is recorded and the fan-out continues; nothing is retried.
func (s *NotificationService) Notify(ctx context.Context, passID int64) (*NotifyReport, error) {
	pass, err := s.passes.GetPassByID(ctx, passID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("pass %d: %w", passID, ErrNotFound)
		}
		return nil, fmt.Errorf("load pass %d: %w", passID, err)
	}

	tokens, err := s.registrations.PushTokensForSerial(ctx, pass.SerialNumber)
	if err != nil {
		return nil, fmt.Errorf("push tokens for %s: %w", pass.SerialNumber, err)
	}

	report := &NotifyReport{PassID: passID, Attempted: len(tokens)}
	for _, token := range tokens {
		if err := s.deliver(ctx, token, pass.PassTypeID); err != nil {
			log.WithFields(log.Fields{
				"operation":     "notify",
				"pass_id":       passID,
				"serial_number": pass.SerialNumber,
				"push_token":    token,
			}).Warnf("push delivery failed: %v", err)
			report.Failures = append(report.Failures, &DeliveryError{Token: token, Err: err})
			continue
		}
		report.Delivered++
	}

	log.Infof("pass %d: notified %d of %d devices", passID, report.Delivered, report.Attempted)
	return report, nil
}

func (s *NotificationService) deliver(ctx context.Context, token, topic string) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.transport.Deliver(ctx, push.Delivery{
		Token:   token,
		Topic:   topic,
		Payload: push.EmptyPayload,
	})
}
