package transactions

import (
	"time"

	"github.com/shopspring/decimal"
)

// Entry is the read model handed to the layer above: the core row fields
// plus a decoded kind-specific payload. Entries are produced only by the
// worker matching the row's kind and are never persisted.
type Entry struct {
	TransactionID int64           `json:"transaction_id"`
	OwnerID       int64           `json:"owner_id"`
	CategoryID    int64           `json:"category_id"`
	AccountID     int64           `json:"account_id"`
	CurrencyID    int64           `json:"currency_id"`
	CreatedAt     time.Time       `json:"created_at"`
	Delta         decimal.Decimal `json:"delta"`
	Description   *string         `json:"description,omitempty"`

	Kind    MetadataKind `json:"kind"`
	Payload any          `json:"payload,omitempty"`
}

// InternalTransferPayload exposes the opposite leg of a transfer.
type InternalTransferPayload struct {
	PeerTransactionID int64 `json:"peer_transaction_id"`
	PeerAccountID     int64 `json:"peer_account_id"`
}

// RecurringPayload exposes the originating recurring rule.
type RecurringPayload struct {
	RuleID int64 `json:"rule_id"`
}

// AccumulationPayload exposes the linked savings goal.
type AccumulationPayload struct {
	GoalID int64 `json:"goal_id"`
}

func baseEntry(row Row, kind MetadataKind) Entry {
	return Entry{
		TransactionID: row.ID,
		OwnerID:       row.OwnerID,
		CategoryID:    row.CategoryID,
		AccountID:     row.AccountID,
		CurrencyID:    row.CurrencyID,
		CreatedAt:     row.CreatedAt,
		Delta:         row.Delta,
		Description:   row.Description,
		Kind:          kind,
	}
}
