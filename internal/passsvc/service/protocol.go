package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
)

// Updates is the body of a successful "list updatable passes" response.
type Updates struct {
	LastUpdated   string   `json:"lastUpdated"`
	SerialNumbers []string `json:"serialNumbers"`
}

// Engine implements the four device-facing operations of the pass web
// service. It keeps no state between calls.
type Engine struct {
	auth          *AuthService
	registrations *RegistrationService
	updates       *UpdateService
	passes        *PassService
	now           func() time.Time
}

func NewEngine(auth *AuthService, registrations *RegistrationService,
	updates *UpdateService, passes *PassService) *Engine {
	return &Engine{
		auth:          auth,
		registrations: registrations,
		updates:       updates,
		passes:        passes,
		now:           time.Now,
	}
}

func (e *Engine) authorize(ctx context.Context, serialNumber, passTypeID, token string) error {
	ok, err := e.auth.IsAuthorized(ctx, serialNumber, passTypeID, token)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnauthorized
	}
	return nil
}

// RegisterDevice subscribes deviceID to the pass once the token checks out.
func (e *Engine) RegisterDevice(ctx context.Context, deviceID, passTypeID, serialNumber, pushToken, token string) (RegisterResult, error) {
	logger := log.WithFields(log.Fields{
		"operation":     "register",
		"device_id":     deviceID,
		"pass_type_id":  passTypeID,
		"serial_number": serialNumber,
	})

	if err := e.authorize(ctx, serialNumber, passTypeID, token); err != nil {
		logger.Warnf("registration refused: %v", err)
		return 0, err
	}

	result, err := e.registrations.Register(ctx, deviceID, passTypeID, serialNumber, pushToken)
	if err != nil {
		return 0, err
	}
	if result == AlreadyRegistered {
		logger.Info("device already registered")
	} else {
		logger.Info("device registered")
	}
	return result, nil
}

// ListUpdatable returns the passes of passTypeID that changed for the device
// since the given watermark. A nil result with no error means nothing to
// report; ErrNotFound means the device has no registrations at all.
func (e *Engine) ListUpdatable(ctx context.Context, deviceID, passTypeID, since string) (*Updates, error) {
	watermark, err := ParseWatermark(since)
	if err != nil {
		return nil, err
	}

	known, err := e.registrations.HasAnyRegistration(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if !known {
		return nil, fmt.Errorf("device %s: %w", deviceID, ErrNotFound)
	}

	serials, err := e.updates.Resolve(ctx, deviceID, passTypeID, watermark)
	if err != nil {
		return nil, err
	}
	if len(serials) == 0 {
		return nil, nil
	}

	return &Updates{
		LastUpdated:   strconv.FormatInt(e.now().Unix(), 10),
		SerialNumbers: serials,
	}, nil
}

// UnregisterDevice removes the subscription. A missing registration is
// reported as ErrUnauthorized, the same as a bad token.
func (e *Engine) UnregisterDevice(ctx context.Context, deviceID, passTypeID, serialNumber, token string) error {
	logger := log.WithFields(log.Fields{
		"operation":     "unregister",
		"device_id":     deviceID,
		"serial_number": serialNumber,
	})

	if err := e.authorize(ctx, serialNumber, passTypeID, token); err != nil {
		logger.Warnf("unregistration refused: %v", err)
		return err
	}

	deleted, err := e.registrations.Unregister(ctx, deviceID, serialNumber)
	if err != nil {
		return err
	}
	if !deleted {
		logger.Warn("registration does not exist")
		return ErrUnauthorized
	}
	logger.Info("registration deleted")
	return nil
}

// FetchPass returns the signed pass. Nothing is built unless the token matches.
func (e *Engine) FetchPass(ctx context.Context, passTypeID, serialNumber, token string) ([]byte, error) {
	if err := e.authorize(ctx, serialNumber, passTypeID, token); err != nil {
		log.WithFields(log.Fields{
			"operation":     "fetch-pass",
			"serial_number": serialNumber,
		}).Warnf("pass delivery refused: %v", err)
		return nil, err
	}
	return e.passes.Materialize(ctx, serialNumber, passTypeID)
}
