package transactions

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// GoalHooks is implemented by the accumulation-goal service. Both hooks run
// inside the caller's transaction, so a hook failure rolls the whole apply
// or cancel back and the goal aggregate never diverges from the ledger.
type GoalHooks interface {
	TransactionApplied(ctx context.Context, tx pgx.Tx, goalID int64) error
	TransactionCancelled(ctx context.Context, tx pgx.Tx, goalID int64) error
}

// accumulationWorker links each row to a savings goal and notifies the goal
// service when such a row is cancelled.
type accumulationWorker struct {
	store Store
	goals GoalHooks
}

func (w accumulationWorker) apply(ctx context.Context, tx pgx.Tx, cmd NewAccumulationTransaction) (int64, error) {
	if err := cmd.validate(); err != nil {
		return 0, err
	}

	metadataID, err := w.store.InsertMetadata(ctx, tx, KindAccumulation, cmd.GoalID)
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
	if err := w.goals.TransactionApplied(ctx, tx, cmd.GoalID); err != nil {
		return 0, err
	}
	return id, nil
}

func (w accumulationWorker) cancel(ctx context.Context, tx pgx.Tx, row Row) error {
	if row.MetadataArg == nil {
		return fmt.Errorf("accumulation transaction %d has no goal id: %w", row.ID, ErrNoRowsAffected)
	}
	goalID := *row.MetadataArg

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

	return w.goals.TransactionCancelled(ctx, tx, goalID)
}

func (w accumulationWorker) prepareEntry(ctx context.Context, row Row) (Entry, error) {
	if row.MetadataArg == nil {
		return Entry{}, fmt.Errorf("accumulation transaction %d has no goal id: %w", row.ID, ErrNotFound)
	}
	entry := baseEntry(row, KindAccumulation)
	entry.Payload = AccumulationPayload{GoalID: *row.MetadataArg}
	return entry, nil
}
