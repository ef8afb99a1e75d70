package transactions

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// TxRunner opens the single transactional unit of work wrapping every
// mutating manager call. Workers only ever participate in that transaction.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// PoolRunner runs each unit of work in one transaction on a pooled
// connection, rolling back on any error from fn.
type PoolRunner struct {
	Pool *pgxpool.Pool
}

func (r PoolRunner) RunInTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Manager owns the public transaction contract. It validates top-level
// shape, opens one transactional context per mutating call and dispatches to
// the worker matching the metadata kind.
type Manager struct {
	runner TxRunner
	store  Store
	log    zerolog.Logger

	defaults     defaultWorker
	internal     internalWorker
	recurring    recurringWorker
	accumulation accumulationWorker
}

func NewManager(runner TxRunner, store Store, rules RuleHooks, goals GoalHooks, log zerolog.Logger) *Manager {
	return &Manager{
		runner:       runner,
		store:        store,
		log:          log,
		defaults:     defaultWorker{store: store},
		internal:     internalWorker{store: store},
		recurring:    recurringWorker{store: store, rules: rules},
		accumulation: accumulationWorker{store: store, goals: goals},
	}
}

// ApplyTransaction applies one plain ledger line and returns its id.
func (m *Manager) ApplyTransaction(ctx context.Context, cmd NewTransaction) (int64, error) {
	var id int64
	err := m.runner.RunInTx(ctx, func(tx pgx.Tx) error {
		var err error
		id, err = m.defaults.apply(ctx, tx, cmd)
		return err
	})
	if err != nil {
		return 0, err
	}

	m.log.Debug().Int64("transaction_id", id).Int64("owner_id", cmd.OwnerID).Msg("transaction applied")
	return id, nil
}

// ApplyInternalTransfer writes both legs and their shared metadata as one
// unit and returns the source leg's id.
func (m *Manager) ApplyInternalTransfer(ctx context.Context, cmd NewInternalTransfer) (int64, error) {
	var id int64
	err := m.runner.RunInTx(ctx, func(tx pgx.Tx) error {
		var err error
		id, err = m.internal.apply(ctx, tx, cmd)
		return err
	})
	if err != nil {
		return 0, err
	}

	m.log.Debug().Int64("transaction_id", id).Int64("owner_id", cmd.OwnerID).Msg("internal transfer applied")
	return id, nil
}

// ApplyRecurringTransaction materializes one occurrence of a recurring rule.
func (m *Manager) ApplyRecurringTransaction(ctx context.Context, cmd NewRecurringTransaction) (int64, error) {
	var id int64
	err := m.runner.RunInTx(ctx, func(tx pgx.Tx) error {
		var err error
		id, err = m.recurring.apply(ctx, tx, cmd)
		return err
	})
	if err != nil {
		return 0, err
	}

	m.log.Debug().Int64("transaction_id", id).Int64("rule_id", cmd.RuleID).Msg("recurring transaction applied")
	return id, nil
}

// ApplyAccumulationTransaction applies a transaction linked to a savings
// goal.
func (m *Manager) ApplyAccumulationTransaction(ctx context.Context, cmd NewAccumulationTransaction) (int64, error) {
	var id int64
	err := m.runner.RunInTx(ctx, func(tx pgx.Tx) error {
		var err error
		id, err = m.accumulation.apply(ctx, tx, cmd)
		return err
	})
	if err != nil {
		return 0, err
	}

	m.log.Debug().Int64("transaction_id", id).Int64("goal_id", cmd.GoalID).Msg("accumulation transaction applied")
	return id, nil
}

// ApplyBulkTransactions applies a decoded heterogeneous batch in submission
// order inside a single transaction. Any row failure aborts the whole batch
// with zero persisted rows.
func (m *Manager) ApplyBulkTransactions(ctx context.Context, batch BulkBatch, ownerID int64) error {
	err := m.runner.RunInTx(ctx, func(tx pgx.Tx) error {
		for i, item := range batch {
			var err error
			switch {
			case item.Transaction != nil:
				cmd := *item.Transaction
				cmd.OwnerID = ownerID
				_, err = m.defaults.apply(ctx, tx, cmd)
			case item.Transfer != nil:
				cmd := *item.Transfer
				cmd.OwnerID = ownerID
				_, err = m.internal.apply(ctx, tx, cmd)
			default:
				err = errValidation("empty bulk row")
			}
			if err != nil {
				return &BulkRowError{Index: i, Err: err}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	m.log.Debug().Int("rows", len(batch)).Int64("owner_id", ownerID).Msg("bulk transactions applied")
	return nil
}

// CancelTransaction hard-deletes the transaction and reverses its balance
// effect, dispatching on the row's own kind tag. Cancelling any leg of a
// compound kind cancels every row belonging to it.
func (m *Manager) CancelTransaction(ctx context.Context, id int64) error {
	err := m.runner.RunInTx(ctx, func(tx pgx.Tx) error {
		row, err := m.store.GetTransaction(ctx, tx, id)
		if err != nil {
			return err
		}

		switch row.Kind() {
		case KindInternalTransfer:
			return m.internal.cancel(ctx, tx, row)
		case KindRecurring:
			return m.recurring.cancel(ctx, tx, row)
		case KindAccumulation:
			return m.accumulation.cancel(ctx, tx, row)
		default:
			return m.defaults.cancel(ctx, tx, row)
		}
	})
	if err != nil {
		return err
	}

	m.log.Debug().Int64("transaction_id", id).Msg("transaction cancelled")
	return nil
}

// EditTransaction replaces the row's fields and moves the balance effect in
// the same unit of work. Rows with a metadata kind must be cancelled and
// re-applied instead.
func (m *Manager) EditTransaction(ctx context.Context, id int64, cmd EditTransaction) error {
	if err := cmd.validate(); err != nil {
		return err
	}

	err := m.runner.RunInTx(ctx, func(tx pgx.Tx) error {
		row, err := m.store.GetTransaction(ctx, tx, id)
		if err != nil {
			return err
		}
		if row.Kind() != KindWithoutMetadata {
			return errValidation("cannot edit %s transaction %d", row.Kind(), id)
		}

		if err := m.store.UpdateTransaction(ctx, tx, Transaction{
			ID:          id,
			OwnerID:     row.OwnerID,
			CategoryID:  cmd.CategoryID,
			AccountID:   cmd.AccountID,
			CurrencyID:  cmd.CurrencyID,
			CreatedAt:   cmd.CreatedAt,
			Delta:       cmd.Delta,
			Description: cmd.Description,
		}); err != nil {
			return err
		}

		if err := m.store.AdjustBalance(ctx, tx, row.AccountID, row.Delta.Neg()); err != nil {
			return err
		}
		return m.store.AdjustBalance(ctx, tx, cmd.AccountID, cmd.Delta)
	})
	if err != nil {
		return err
	}

	m.log.Debug().Int64("transaction_id", id).Msg("transaction edited")
	return nil
}

// GetTransactions lists entries for the owner with filter and pagination
// applied at the query level, decoding each row's payload through the worker
// matching that row's kind.
func (m *Manager) GetTransactions(ctx context.Context, ownerID int64, offset, count int, f Filter) ([]Entry, error) {
	rows, err := m.store.ListTransactions(ctx, ownerID, offset, count, f)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		var (
			entry Entry
			err   error
		)
		switch row.Kind() {
		case KindInternalTransfer:
			entry, err = m.internal.prepareEntry(ctx, row)
		case KindRecurring:
			entry, err = m.recurring.prepareEntry(ctx, row)
		case KindAccumulation:
			entry, err = m.accumulation.prepareEntry(ctx, row)
		default:
			entry, err = m.defaults.prepareEntry(ctx, row)
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// GetTransactionsCount counts the owner's transactions matching the filter.
func (m *Manager) GetTransactionsCount(ctx context.Context, ownerID int64, f Filter) (int64, error) {
	return m.store.CountTransactions(ctx, ownerID, f)
}

// UserOwnsTransaction is the ownership check used by the authorization layer
// above.
func (m *Manager) UserOwnsTransaction(ctx context.Context, ownerID, id int64) (bool, error) {
	return m.store.UserOwnsTransaction(ctx, ownerID, id)
}
