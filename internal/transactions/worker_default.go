package transactions

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// defaultWorker handles rows without metadata: one row, one balance move.
type defaultWorker struct {
	store Store
}

func (w defaultWorker) apply(ctx context.Context, tx pgx.Tx, cmd NewTransaction) (int64, error) {
	if err := cmd.validate(); err != nil {
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
	})
	if err != nil {
		return 0, err
	}

	if err := w.store.AdjustBalance(ctx, tx, cmd.AccountID, cmd.Delta); err != nil {
		return 0, err
	}
	return id, nil
}

func (w defaultWorker) cancel(ctx context.Context, tx pgx.Tx, row Row) error {
	if err := w.store.DeleteTransaction(ctx, tx, row.ID); err != nil {
		return err
	}
	return w.store.AdjustBalance(ctx, tx, row.AccountID, row.Delta.Neg())
}

func (w defaultWorker) prepareEntry(ctx context.Context, row Row) (Entry, error) {
	return baseEntry(row, KindWithoutMetadata), nil
}
