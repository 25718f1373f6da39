package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is the owner of a pass; its name and balance are shown on the pass.
type Account struct {
	ID        int64           `json:"id"`
	Email     string          `json:"email"`
	Name      string          `json:"name"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// AccountUpdate carries the fields an administrator may change. Nil fields
// are left as they are.
type AccountUpdate struct {
	Email   *string          `json:"email,omitempty"`
	Name    *string          `json:"name,omitempty"`
	Balance *decimal.Decimal `json:"balance,omitempty"`
}
