package transactions

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// RuleHooks is implemented by the recurring-rule service. Both hooks run
// inside the caller's transaction, so a hook failure rolls the whole apply
// or cancel back and the rule state never diverges from the ledger.
type RuleHooks interface {
	TransactionApplied(ctx context.Context, tx pgx.Tx, ruleID int64) error
	TransactionCancelled(ctx context.Context, tx pgx.Tx, ruleID int64) error
}

// recurringWorker persists like the default worker but records the
// originating rule in the metadata and notifies the rule service on cancel.
type recurringWorker struct {
	store Store
	rules RuleHooks
}

func (w recurringWorker) apply(ctx context.Context, tx pgx.Tx, cmd NewRecurringTransaction) (int64, error) {
	if err := cmd.validate(); err != nil {
		return 0, err
	}

	metadataID, err := w.store.InsertMetadata(ctx, tx, KindRecurring, cmd.RuleID)
	if err != nil {
		return 0, err
	}

	id, err := w.store.InsertTransaction(ctx, tx, Transaction{
		OwnerID:     cmd.OwnerID,
		CategoryID:  cmd.CategoryID,
		AccountID:   cmd.AccountID,
		CurrencyID:  cmd.CurrencyID,
		CreatedAt:   cmd.CreatedAt,
		Delta:       cmd.Delta,
		Description: cmd.Description,
		MetadataID:  &metadataID,
	})
	if err != nil {
		return 0, err
	}

	if err := w.store.AdjustBalance(ctx, tx, cmd.AccountID, cmd.Delta); err != nil {
		return 0, err
	}
	if err := w.rules.TransactionApplied(ctx, tx, cmd.RuleID); err != nil {
		return 0, err
	}
	return id, nil
}

func (w recurringWorker) cancel(ctx context.Context, tx pgx.Tx, row Row) error {
	if row.MetadataArg == nil {
		return fmt.Errorf("recurring transaction %d has no rule id: %w", row.ID, ErrNoRowsAffected)
	}
	ruleID := *row.MetadataArg

	if err := w.store.DeleteTransaction(ctx, tx, row.ID); err != nil {
		return err
	}
	if row.MetadataID != nil {
		if err := w.store.DeleteMetadata(ctx, tx, *row.MetadataID); err != nil {
			return err
		}
	}
	if err := w.store.AdjustBalance(ctx, tx, row.AccountID, row.Delta.Neg()); err != nil {
		return err
	}

	return w.rules.TransactionCancelled(ctx, tx, ruleID)
}

func (w recurringWorker) prepareEntry(ctx context.Context, row Row) (Entry, error) {
	if row.MetadataArg == nil {
		return Entry{}, fmt.Errorf("recurring transaction %d has no rule id: %w", row.ID, ErrNotFound)
	}
	entry := baseEntry(row, KindRecurring)
	entry.Payload = RecurringPayload{RuleID: *row.MetadataArg}
	return entry, nil
}
