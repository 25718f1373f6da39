package comm

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Message is the envelope used on service subjects, e.g. "account.service".
type Message struct {
	Type string          `json:"type"` // e.g. "update-account"
	Data json.RawMessage `json:"data"`
}

// PushMessage asks the push service to deliver one notification.
type PushMessage struct {
	Token   string          `json:"token"`
	Topic   string          `json:"topic"` // pass type identifier
	Payload json.RawMessage `json:"payload"`
}

type PushResult struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// AccountUpdate is published by other services when an account changes.
type AccountUpdate struct {
	AccountID int64            `json:"account_id"`
	Email     *string          `json:"email,omitempty"`
	Name      *string          `json:"name,omitempty"`
	Balance   *decimal.Decimal `json:"balance,omitempty"`
}

type AccountUpdateResult struct {
	PassIDs []int64 `json:"pass_ids"`
	Error   string  `json:"error,omitempty"`
}
