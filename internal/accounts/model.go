package accounts

import (
	"github.com/shopspring/decimal"
)

// Account holds funds in one currency. Amount is the running balance kept in
// sync by the transaction layer; it is never written directly by handlers.
type Account struct {
	ID          int64           `json:"id"`
	OwnerID     int64           `json:"owner_id"`
	CurrencyID  int64           `json:"currency_id"`
	Name        string          `json:"name"`
	Amount      decimal.Decimal `json:"amount"`
	Hidden      bool            `json:"hidden"`
	Description *string         `json:"description,omitempty"`
}

// NewAccount carries the fields for account creation.
type NewAccount struct {
	CurrencyID  int64   `json:"currency_id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}
