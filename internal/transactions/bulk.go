package transactions

import (
	"encoding/json"
)

// BulkItem is one decoded batch row. Exactly one of the two commands is set.
type BulkItem struct {
	Transaction *NewTransaction
	Transfer    *NewInternalTransfer
}

// BulkBatch is a heterogeneous batch of commands applied in order inside one
// transaction.
type BulkBatch []BulkItem

type bulkRow struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// DecodeBulk parses a JSON batch of the form
// [{"type":"transaction","data":{...}}, {"type":"internal_transfer","data":{...}}].
// The whole payload is decoded before any database work starts, so a
// malformed row never opens a transaction. ownerID overrides whatever the
// payload claims.
func DecodeBulk(data []byte, ownerID int64, maxRows int) (BulkBatch, error) {
	var rows []bulkRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, errValidation("malformed bulk payload: %v", err)
	}
	if len(rows) == 0 {
		return nil, errValidation("bulk payload is empty")
	}
	if maxRows > 0 && len(rows) > maxRows {
		return nil, errValidation("bulk payload exceeds %d rows", maxRows)
	}

	batch := make(BulkBatch, 0, len(rows))
	for i, row := range rows {
		switch row.Type {
		case "transaction":
			var cmd NewTransaction
			if err := json.Unmarshal(row.Data, &cmd); err != nil {
				return nil, &BulkRowError{Index: i, Err: errValidation("malformed transaction: %v", err)}
			}
			cmd.OwnerID = ownerID
			batch = append(batch, BulkItem{Transaction: &cmd})
		case "internal_transfer":
			var cmd NewInternalTransfer
			if err := json.Unmarshal(row.Data, &cmd); err != nil {
				return nil, &BulkRowError{Index: i, Err: errValidation("malformed internal transfer: %v", err)}
			}
			cmd.OwnerID = ownerID
			batch = append(batch, BulkItem{Transfer: &cmd})
		default:
			return nil, &BulkRowError{Index: i, Err: errValidation("unknown bulk row type %q", row.Type)}
		}
	}
	return batch, nil
}
