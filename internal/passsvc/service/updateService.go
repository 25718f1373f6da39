package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// UpdateService answers "which of my passes changed since X" for a device.
type UpdateService struct {
	registrations *RegistrationService
	passes        PassRepository
}

func NewUpdateService(registrations *RegistrationService, passes PassRepository) *UpdateService {
	return &UpdateService{registrations: registrations, passes: passes}
}

// ParseWatermark parses a passesUpdatedSince value given in Unix seconds.
// An empty value means no filter and yields nil.
func ParseWatermark(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, &ValidationError{Field: "passesUpdatedSince", Reason: "must be unix epoch seconds"}
	}
	t := time.Unix(secs, 0).UTC()
	return &t, nil
}

// Resolve returns the sorted serial numbers of passes of passTypeID that the
// device is registered for and that changed at or after since.
func (s *UpdateService) Resolve(ctx context.Context, deviceID, passTypeID string, since *time.Time) ([]string, error) {
	registered, err := s.registrations.SerialNumbersForDevice(ctx, deviceID, passTypeID)
	if err != nil {
		return nil, fmt.Errorf("registered serials for %s: %w", deviceID, err)
	}
	if len(registered) == 0 {
		return nil, nil
	}

	updated, err := s.passes.FilterUpdated(ctx, registered, since)
	if err != nil {
		return nil, fmt.Errorf("filter updated passes: %w", err)
	}

	sort.Strings(updated)
	out := make([]string, 0, len(updated))
	for _, sn := range updated {
		if n := len(out); n > 0 && out[n-1] == sn {
			continue
		}
		out = append(out, sn)
	}
	return out, nil
}
