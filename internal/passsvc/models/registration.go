package models

import (
	"errors"
	"time"
)

var ErrIncompleteKey = errors.New("registration key requires device_id and serial_number")

// RegistrationKey identifies a device subscription to one pass. It is
// compared field by field, so no separator can make two keys collide.
type RegistrationKey struct {
	DeviceID     string
	SerialNumber string
}

func NewRegistrationKey(deviceID, serialNumber string) (RegistrationKey, error) {
	if deviceID == "" || serialNumber == "" {
		return RegistrationKey{}, ErrIncompleteKey
	}
	return RegistrationKey{DeviceID: deviceID, SerialNumber: serialNumber}, nil
}

type Registration struct {
	DeviceID     string    `json:"device_id"`
	SerialNumber string    `json:"serial_number"`
	PushToken    string    `json:"push_token"`
	PassTypeID   string    `json:"pass_type_id"` // copied from the pass
	CreatedAt    time.Time `json:"created_at"`
}

// NewRegistration builds a registration whose key components are present.
func NewRegistration(deviceID, passTypeID, serialNumber, pushToken string) (*Registration, error) {
	if _, err := NewRegistrationKey(deviceID, serialNumber); err != nil {
		return nil, err
	}
	return &Registration{
		DeviceID:     deviceID,
		SerialNumber: serialNumber,
		PushToken:    pushToken,
		PassTypeID:   passTypeID,
	}, nil
}

func (r *Registration) Key() RegistrationKey {
	return RegistrationKey{DeviceID: r.DeviceID, SerialNumber: r.SerialNumber}
}
