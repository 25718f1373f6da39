package service

import (
	"context"
	"fmt"

	"github.com/avvvet/pass-services/internal/passsvc/models"
)

type RegisterResult int

const (
	Registered RegisterResult = iota + 1
	AlreadyRegistered
)

type RegistrationService struct {
	registrations RegistrationRepository
}

func NewRegistrationService(registrations RegistrationRepository) *RegistrationService {
	return &RegistrationService{registrations: registrations}
}

// Register subscribes a device to a pass. Registering an existing key is a
// successful no-op: the stored push token is kept even if pushToken differs.
func (s *RegistrationService) Register(ctx context.Context, deviceID, passTypeID, serialNumber, pushToken string) (RegisterResult, error) {
	reg, err := models.NewRegistration(deviceID, passTypeID, serialNumber, pushToken)
	if err != nil {
		return 0, keyError(err)
	}

	inserted, err := s.registrations.InsertIfAbsent(ctx, reg)
	if err != nil {
		return 0, fmt.Errorf("insert registration: %w", err)
	}
	if !inserted {
		return AlreadyRegistered, nil
	}
	return Registered, nil
}

// Unregister deletes the registration and reports whether one existed.
func (s *RegistrationService) Unregister(ctx context.Context, deviceID, serialNumber string) (bool, error) {
	key, err := models.NewRegistrationKey(deviceID, serialNumber)
	if err != nil {
		return false, keyError(err)
	}

	deleted, err := s.registrations.Delete(ctx, key)
	if err != nil {
		return false, fmt.Errorf("delete registration: %w", err)
	}
	return deleted, nil
}

func (s *RegistrationService) HasAnyRegistration(ctx context.Context, deviceID string) (bool, error) {
	if deviceID == "" {
		return false, &ValidationError{Field: "device_id", Reason: "required"}
	}
	return s.registrations.ExistsForDevice(ctx, deviceID)
}

func (s *RegistrationService) HasRegistration(ctx context.Context, deviceID, serialNumber string) (bool, error) {
	key, err := models.NewRegistrationKey(deviceID, serialNumber)
	if err != nil {
		return false, keyError(err)
	}
	return s.registrations.Exists(ctx, key)
}

func (s *RegistrationService) SerialNumbersForDevice(ctx context.Context, deviceID, passTypeID string) ([]string, error) {
	return s.registrations.SerialNumbersForDevice(ctx, deviceID, passTypeID)
}

// PushTokensForSerial returns each push token once, in first-seen order.
func (s *RegistrationService) PushTokensForSerial(ctx context.Context, serialNumber string) ([]string, error) {
	tokens, err := s.registrations.PushTokensForSerial(ctx, serialNumber)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(tokens))
	unique := tokens[:0]
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		unique = append(unique, t)
	}
	return unique, nil
}

func (s *RegistrationService) List(ctx context.Context) ([]*models.Registration, error) {
	return s.registrations.ListRegistrations(ctx)
}

func keyError(err error) error {
	return &ValidationError{Field: "registration key", Reason: err.Error()}
}
