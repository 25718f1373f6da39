package models

import (
	"time"
)

// Pass is one issued wallet pass. SerialNumber and AuthenticationToken are
// assigned on creation and never change.
type Pass struct {
	ID                  int64      `json:"id"`
	SerialNumber        string     `json:"serial_number"`
	AuthenticationToken string     `json:"-"`
	PassTypeID          string     `json:"pass_type_id"`
	OwnerID             int64      `json:"owner_id"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           *time.Time `json:"updated_at"` // nil for legacy rows, always treated as updated
}

// UpdatedSince reports whether the pass changed at or after since.
func (p *Pass) UpdatedSince(since time.Time) bool {
	if p.UpdatedAt == nil {
		return true
	}
	return !p.UpdatedAt.Before(since)
}
