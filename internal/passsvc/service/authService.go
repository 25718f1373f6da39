package service

import (
	"context"
	"fmt"
)

type AuthService struct {
	passes PassRepository
}

func NewAuthService(passes PassRepository) *AuthService {
	return &AuthService{passes: passes}
}

// IsAuthorized reports whether exactly one pass matches serial number, pass
// type and token. Values are compared as-is; an empty token never matches.
func (s *AuthService) IsAuthorized(ctx context.Context, serialNumber, passTypeID, token string) (bool, error) {
	if token == "" || serialNumber == "" || passTypeID == "" {
		return false, nil
	}

	n, err := s.passes.CountByCredentials(ctx, serialNumber, passTypeID, token)
	if err != nil {
		return false, fmt.Errorf("check pass credentials: %w", err)
	}
	return n == 1, nil
}
