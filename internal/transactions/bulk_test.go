package transactions

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestDecodeBulk(t *testing.T) {
	payload := []byte(`[
		{"type": "transaction", "data": {"category_id": 7, "account_id": 1, "currency_id": 10, "created_at": "2024-03-01T12:00:00Z", "delta": "-20"}},
		{"type": "internal_transfer", "data": {"category_id": 7, "from_account_id": 1, "to_account_id": 2, "created_at": "2024-03-01T12:00:00Z", "out_delta": "-30", "in_delta": "30"}}
	]`)

	batch, err := DecodeBulk(payload, 5, 100)
	if err != nil {
		t.Fatalf("DecodeBulk: %v", err)
	}
	if len(batch) != 2 {
		t.Fatalf("batch size = %d, want 2", len(batch))
	}

	tx := batch[0].Transaction
	if tx == nil || batch[0].Transfer != nil {
		t.Fatal("first row should decode as a transaction")
	}
	if tx.OwnerID != 5 {
		t.Errorf("owner id = %d, want 5 from the caller", tx.OwnerID)
	}
	if !tx.Delta.Equal(decimal.RequireFromString("-20")) {
		t.Errorf("delta = %s", tx.Delta)
	}

	tr := batch[1].Transfer
	if tr == nil || batch[1].Transaction != nil {
		t.Fatal("second row should decode as a transfer")
	}
	if tr.OwnerID != 5 || tr.FromAccountID != 1 || tr.ToAccountID != 2 {
		t.Errorf("transfer = %+v", tr)
	}
}

func TestDecodeBulkUnknownType(t *testing.T) {
	payload := []byte(`[{"type": "withdrawal", "data": {}}]`)

	_, err := DecodeBulk(payload, 5, 100)
	var bulkErr *BulkRowError
	if !errors.As(err, &bulkErr) {
		t.Fatalf("err = %v, want BulkRowError", err)
	}
	if bulkErr.Index != 0 || !IsValidation(bulkErr.Err) {
		t.Errorf("bulk err = %+v", bulkErr)
	}
}

func TestDecodeBulkMalformed(t *testing.T) {
	if _, err := DecodeBulk([]byte(`{"not": "an array"}`), 5, 100); !IsValidation(err) {
		t.Errorf("err = %v, want validation error", err)
	}
	if _, err := DecodeBulk([]byte(`[]`), 5, 100); !IsValidation(err) {
		t.Errorf("empty batch err = %v, want validation error", err)
	}
}

func TestDecodeBulkRowCap(t *testing.T) {
	payload := []byte(`[
		{"type": "transaction", "data": {}},
		{"type": "transaction", "data": {}},
		{"type": "transaction", "data": {}}
	]`)
	if _, err := DecodeBulk(payload, 5, 2); !IsValidation(err) {
		t.Errorf("err = %v, want validation error for oversized batch", err)
	}
}
