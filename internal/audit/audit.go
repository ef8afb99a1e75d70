// Package audit records who changed what on the ledger. Entries are written
// after the changing transaction commits and never block the change itself.
package audit

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	EntityTransaction = "transaction"
	EntityTransfer    = "internal_transfer"
	EntityRule        = "recurring_rule"
	EntityGoal        = "accumulation_goal"
	EntityAccount     = "account"
)

type Entry struct {
	UserID     int64
	Action     string
	EntityType string
	EntityID   *int64
	RequestID  *string
	IP         *string
	Metadata   []byte
}

// Write records an audit entry; failures are returned so callers can log and
// move on.
func Write(ctx context.Context, db *pgxpool.Pool, e Entry) error {
	if db == nil {
		return nil
	}

	var metadata any
	if len(e.Metadata) > 0 {
		metadata = json.RawMessage(e.Metadata)
	}

	_, err := db.Exec(ctx, `
INSERT INTO audit_logs (user_id, action, entity_type, entity_id, request_id, ip, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`, e.UserID, e.Action, e.EntityType, e.EntityID, e.RequestID, e.IP, metadata)

	return err
}
