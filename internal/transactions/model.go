package transactions

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one ledger line affecting exactly one account's balance by
// Delta.
type Transaction struct {
	ID          int64           `json:"id"`
	OwnerID     int64           `json:"owner_id"`
	CategoryID  int64           `json:"category_id"`
	AccountID   int64           `json:"account_id"`
	CurrencyID  int64           `json:"currency_id"`
	CreatedAt   time.Time       `json:"created_at"`
	Delta       decimal.Decimal `json:"delta"`
	Description *string         `json:"description,omitempty"`
	MetadataID  *int64          `json:"-"`
}

// Row is a transaction joined with its metadata tag, as read queries return
// it.
type Row struct {
	Transaction
	MetadataTag *int16
	MetadataArg *int64
}

// Kind resolves the row's metadata tag to a worker kind.
func (r Row) Kind() MetadataKind {
	return kindFromTag(r.MetadataTag)
}

// InternalTransfer is the cross-link row shared by the two legs of a
// transfer.
type InternalTransfer struct {
	ID                int64
	FromTransactionID int64
	ToTransactionID   int64
}

// NewTransaction describes one plain ledger line to apply.
type NewTransaction struct {
	OwnerID     int64           `json:"-"`
	CategoryID  int64           `json:"category_id"`
	AccountID   int64           `json:"account_id"`
	CurrencyID  int64           `json:"currency_id"`
	CreatedAt   time.Time       `json:"created_at"`
	Delta       decimal.Decimal `json:"delta"`
	Description *string         `json:"description,omitempty"`
}

func (c NewTransaction) validate() error {
	if c.OwnerID <= 0 {
		return errValidation("owner id is required")
	}
	if c.CategoryID <= 0 || c.AccountID <= 0 || c.CurrencyID <= 0 {
		return errValidation("category, account and currency ids are required")
	}
	if c.Delta.IsZero() {
		return errValidation("delta must not be zero")
	}
	return nil
}

// NewInternalTransfer describes a transfer between two accounts of the same
// owner. OutDelta leaves the source account, InDelta enters the target
// account; the two may differ in magnitude when the accounts hold different
// currencies.
type NewInternalTransfer struct {
	OwnerID       int64           `json:"-"`
	CategoryID    int64           `json:"category_id"`
	FromAccountID int64           `json:"from_account_id"`
	ToAccountID   int64           `json:"to_account_id"`
	CreatedAt     time.Time       `json:"created_at"`
	OutDelta      decimal.Decimal `json:"out_delta"`
	InDelta       decimal.Decimal `json:"in_delta"`
	Description   *string         `json:"description,omitempty"`
}

func (c NewInternalTransfer) validate() error {
	if c.OwnerID <= 0 {
		return errValidation("owner id is required")
	}
	if c.CategoryID <= 0 || c.FromAccountID <= 0 || c.ToAccountID <= 0 {
		return errValidation("category and both account ids are required")
	}
	if c.FromAccountID == c.ToAccountID {
		return errValidation("transfer accounts must differ")
	}
	if c.OutDelta.Sign() >= 0 {
		return errValidation("out delta must be negative")
	}
	if c.InDelta.Sign() <= 0 {
		return errValidation("in delta must be positive")
	}
	return nil
}

// NewRecurringTransaction is a plain transaction materialized from a
// recurring rule.
type NewRecurringTransaction struct {
	NewTransaction
	RuleID int64 `json:"rule_id"`
}

func (c NewRecurringTransaction) validate() error {
	if c.RuleID <= 0 {
		return errValidation("rule id is required")
	}
	return c.NewTransaction.validate()
}

// NewAccumulationTransaction is a plain transaction linked to a savings
// goal.
type NewAccumulationTransaction struct {
	NewTransaction
	GoalID int64 `json:"goal_id"`
}

func (c NewAccumulationTransaction) validate() error {
	if c.GoalID <= 0 {
		return errValidation("goal id is required")
	}
	return c.NewTransaction.validate()
}

// EditTransaction carries the replacement fields for an existing kindless
// row. The balance effect moves with the edit: the old delta is reversed on
// the old account and the new delta applied on the new one.
type EditTransaction struct {
	CategoryID  int64           `json:"category_id"`
	AccountID   int64           `json:"account_id"`
	CurrencyID  int64           `json:"currency_id"`
	CreatedAt   time.Time       `json:"created_at"`
	Delta       decimal.Decimal `json:"delta"`
	Description *string         `json:"description,omitempty"`
}

func (c EditTransaction) validate() error {
	if c.CategoryID <= 0 || c.AccountID <= 0 || c.CurrencyID <= 0 {
		return errValidation("category, account and currency ids are required")
	}
	if c.Delta.IsZero() {
		return errValidation("delta must not be zero")
	}
	return nil
}
