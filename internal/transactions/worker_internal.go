package transactions

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// internalWorker handles transfers between two accounts of the same owner.
// A transfer always persists as exactly two rows cross-linked by one shared
// metadata row; cancelling either leg removes both.
type internalWorker struct {
	store Store
}

// apply writes both legs, the cross-link and the shared metadata row, then
// moves both balances. Returns the source leg's id.
func (w internalWorker) apply(ctx context.Context, tx pgx.Tx, cmd NewInternalTransfer) (int64, error) {
	if err := cmd.validate(); err != nil {
		return 0, err
	}

	fromCurrency, err := w.store.AccountCurrency(ctx, tx, cmd.FromAccountID)
	if err != nil {
		return 0, err
	}
	toCurrency, err := w.store.AccountCurrency(ctx, tx, cmd.ToAccountID)
	if err != nil {
		return 0, err
	}

	fromID, err := w.store.InsertTransaction(ctx, tx, Transaction{
		OwnerID:     cmd.OwnerID,
		CategoryID:  cmd.CategoryID,
		AccountID:   cmd.FromAccountID,
		CurrencyID:  fromCurrency,
		CreatedAt:   cmd.CreatedAt,
		Delta:       cmd.OutDelta,
		Description: cmd.Description,
	})
	if err != nil {
		return 0, err
	}

	toID, err := w.store.InsertTransaction(ctx, tx, Transaction{
		OwnerID:     cmd.OwnerID,
		CategoryID:  cmd.CategoryID,
		AccountID:   cmd.ToAccountID,
		CurrencyID:  toCurrency,
		CreatedAt:   cmd.CreatedAt,
		Delta:       cmd.InDelta,
		Description: cmd.Description,
	})
	if err != nil {
		return 0, err
	}

	transferID, err := w.store.InsertInternalTransfer(ctx, tx, fromID, toID)
	if err != nil {
		return 0, err
	}
	metadataID, err := w.store.InsertMetadata(ctx, tx, KindInternalTransfer, transferID)
	if err != nil {
		return 0, err
	}
	if err := w.store.AttachMetadata(ctx, tx, fromID, metadataID); err != nil {
		return 0, err
	}
	if err := w.store.AttachMetadata(ctx, tx, toID, metadataID); err != nil {
		return 0, err
	}

	if err := w.store.AdjustBalance(ctx, tx, cmd.FromAccountID, cmd.OutDelta); err != nil {
		return 0, err
	}
	if err := w.store.AdjustBalance(ctx, tx, cmd.ToAccountID, cmd.InDelta); err != nil {
		return 0, err
	}

	return fromID, nil
}

// cancel resolves the paired leg via the shared metadata and removes both
// rows, the cross-link and the metadata, reversing both balances.
func (w internalWorker) cancel(ctx context.Context, tx pgx.Tx, row Row) error {
	if row.MetadataArg == nil {
		return fmt.Errorf("transfer leg %d has no metadata arg: %w", row.ID, ErrNoRowsAffected)
	}

	transfer, err := w.store.GetInternalTransfer(ctx, tx, *row.MetadataArg)
	if err != nil {
		return err
	}

	peerID := transfer.FromTransactionID
	if peerID == row.ID {
		peerID = transfer.ToTransactionID
	}
	peer, err := w.store.GetTransaction(ctx, tx, peerID)
	if err != nil {
		return err
	}

	if err := w.store.DeleteInternalTransfer(ctx, tx, transfer.ID); err != nil {
		return err
	}
	if err := w.store.DeleteTransaction(ctx, tx, row.ID); err != nil {
		return err
	}
	if err := w.store.DeleteTransaction(ctx, tx, peer.ID); err != nil {
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
	return w.store.AdjustBalance(ctx, tx, peer.AccountID, peer.Delta.Neg())
}

func (w internalWorker) prepareEntry(ctx context.Context, row Row) (Entry, error) {
	entry := baseEntry(row, KindInternalTransfer)
	if row.MetadataArg == nil {
		return Entry{}, fmt.Errorf("transfer leg %d has no metadata arg: %w", row.ID, ErrNotFound)
	}

	transfer, err := w.store.GetInternalTransfer(ctx, nil, *row.MetadataArg)
	if err != nil {
		return Entry{}, err
	}

	peerID := transfer.FromTransactionID
	if peerID == row.ID {
		peerID = transfer.ToTransactionID
	}
	peer, err := w.store.GetTransaction(ctx, nil, peerID)
	if err != nil {
		return Entry{}, err
	}

	entry.Payload = InternalTransferPayload{
		PeerTransactionID: peer.ID,
		PeerAccountID:     peer.AccountID,
	}
	return entry, nil
}
