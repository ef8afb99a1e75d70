package transactions

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Store is the persistence layer for transaction rows, their metadata and
// the account balances they move. Mutating methods run on the caller's
// transaction handle and never open their own; read methods accept a nil tx
// and then run against the pool.
type Store interface {
	InsertTransaction(ctx context.Context, tx pgx.Tx, t Transaction) (int64, error)
	UpdateTransaction(ctx context.Context, tx pgx.Tx, t Transaction) error
	DeleteTransaction(ctx context.Context, tx pgx.Tx, id int64) error
	GetTransaction(ctx context.Context, tx pgx.Tx, id int64) (Row, error)

	InsertMetadata(ctx context.Context, tx pgx.Tx, kind MetadataKind, arg int64) (int64, error)
	AttachMetadata(ctx context.Context, tx pgx.Tx, transactionID, metadataID int64) error
	DeleteMetadata(ctx context.Context, tx pgx.Tx, id int64) error

	InsertInternalTransfer(ctx context.Context, tx pgx.Tx, fromID, toID int64) (int64, error)
	GetInternalTransfer(ctx context.Context, tx pgx.Tx, id int64) (InternalTransfer, error)
	DeleteInternalTransfer(ctx context.Context, tx pgx.Tx, id int64) error

	AdjustBalance(ctx context.Context, tx pgx.Tx, accountID int64, delta decimal.Decimal) error
	AccountCurrency(ctx context.Context, tx pgx.Tx, accountID int64) (int64, error)

	ListTransactions(ctx context.Context, ownerID int64, offset, count int, f Filter) ([]Row, error)
	CountTransactions(ctx context.Context, ownerID int64, f Filter) (int64, error)
	UserOwnsTransaction(ctx context.Context, ownerID, id int64) (bool, error)
}

// PgStore is the Postgres implementation of Store.
type PgStore struct {
	Pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{Pool: pool}
}

// querier is the subset of pgx executors shared by pgx.Tx and *pgxpool.Pool.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *PgStore) q(tx pgx.Tx) querier {
	if tx != nil {
		return tx
	}
	return s.Pool
}

func (s *PgStore) InsertTransaction(ctx context.Context, tx pgx.Tx, t Transaction) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx,
		`INSERT INTO transactions (owner_id, category_id, account_id, currency_id, created_at, delta, description, metadata_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		t.OwnerID, t.CategoryID, t.AccountID, t.CurrencyID, t.CreatedAt, t.Delta, t.Description, t.MetadataID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	if id == 0 {
		return 0, fmt.Errorf("insert transaction: %w", ErrNoRowsAffected)
	}
	return id, nil
}

func (s *PgStore) UpdateTransaction(ctx context.Context, tx pgx.Tx, t Transaction) error {
	ct, err := tx.Exec(ctx,
		`UPDATE transactions
		 SET category_id = $1, account_id = $2, currency_id = $3, created_at = $4, delta = $5, description = $6
		 WHERE id = $7`,
		t.CategoryID, t.AccountID, t.CurrencyID, t.CreatedAt, t.Delta, t.Description, t.ID,
	)
	if err != nil {
		return fmt.Errorf("update transaction %d: %w", t.ID, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("update transaction %d: %w", t.ID, ErrNoRowsAffected)
	}
	return nil
}

func (s *PgStore) DeleteTransaction(ctx context.Context, tx pgx.Tx, id int64) error {
	ct, err := tx.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("delete transaction %d: %w", id, ErrNoRowsAffected)
	}
	return nil
}

const rowColumns = `t.id, t.owner_id, t.category_id, t.account_id, t.currency_id, t.created_at, t.delta, t.description, t.metadata_id, m.kind, m.arg`

func (s *PgStore) GetTransaction(ctx context.Context, tx pgx.Tx, id int64) (Row, error) {
	row, err := scanRow(s.q(tx).QueryRow(ctx,
		`SELECT `+rowColumns+`
		 FROM transactions t
		 LEFT JOIN transactions_metadata m ON t.metadata_id = m.id
		 WHERE t.id = $1`,
		id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Row{}, ErrNotFound
	}
	if err != nil {
		return Row{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return row, nil
}

func (s *PgStore) InsertMetadata(ctx context.Context, tx pgx.Tx, kind MetadataKind, arg int64) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx,
		`INSERT INTO transactions_metadata (kind, arg) VALUES ($1, $2) RETURNING id`,
		int16(kind), arg,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert metadata: %w", err)
	}
	return id, nil
}

func (s *PgStore) AttachMetadata(ctx context.Context, tx pgx.Tx, transactionID, metadataID int64) error {
	ct, err := tx.Exec(ctx,
		`UPDATE transactions SET metadata_id = $1 WHERE id = $2`,
		metadataID, transactionID,
	)
	if err != nil {
		return fmt.Errorf("attach metadata to transaction %d: %w", transactionID, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("attach metadata to transaction %d: %w", transactionID, ErrNoRowsAffected)
	}
	return nil
}

func (s *PgStore) DeleteMetadata(ctx context.Context, tx pgx.Tx, id int64) error {
	ct, err := tx.Exec(ctx, `DELETE FROM transactions_metadata WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete metadata %d: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("delete metadata %d: %w", id, ErrNoRowsAffected)
	}
	return nil
}

func (s *PgStore) InsertInternalTransfer(ctx context.Context, tx pgx.Tx, fromID, toID int64) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx,
		`INSERT INTO internal_transfers (from_transaction_id, to_transaction_id)
		 VALUES ($1, $2)
		 RETURNING id`,
		fromID, toID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert internal transfer: %w", err)
	}
	return id, nil
}

func (s *PgStore) GetInternalTransfer(ctx context.Context, tx pgx.Tx, id int64) (InternalTransfer, error) {
	var tr InternalTransfer
	err := s.q(tx).QueryRow(ctx,
		`SELECT id, from_transaction_id, to_transaction_id FROM internal_transfers WHERE id = $1`,
		id,
	).Scan(&tr.ID, &tr.FromTransactionID, &tr.ToTransactionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return InternalTransfer{}, ErrNotFound
	}
	if err != nil {
		return InternalTransfer{}, fmt.Errorf("get internal transfer %d: %w", id, err)
	}
	return tr, nil
}

func (s *PgStore) DeleteInternalTransfer(ctx context.Context, tx pgx.Tx, id int64) error {
	ct, err := tx.Exec(ctx, `DELETE FROM internal_transfers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete internal transfer %d: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("delete internal transfer %d: %w", id, ErrNoRowsAffected)
	}
	return nil
}

// AdjustBalance moves the account balance by delta. The single UPDATE takes
// a row lock, serializing concurrent adjustments of the same account.
func (s *PgStore) AdjustBalance(ctx context.Context, tx pgx.Tx, accountID int64, delta decimal.Decimal) error {
	ct, err := tx.Exec(ctx,
		`UPDATE accounts SET amount = amount + $1 WHERE id = $2`,
		delta, accountID,
	)
	if err != nil {
		return fmt.Errorf("adjust balance of account %d: %w", accountID, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("adjust balance of account %d: %w", accountID, ErrNoRowsAffected)
	}
	return nil
}

func (s *PgStore) AccountCurrency(ctx context.Context, tx pgx.Tx, accountID int64) (int64, error) {
	var currencyID int64
	err := s.q(tx).QueryRow(ctx,
		`SELECT currency_id FROM accounts WHERE id = $1`,
		accountID,
	).Scan(&currencyID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("account %d: %w", accountID, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("currency of account %d: %w", accountID, err)
	}
	return currencyID, nil
}

// ListTransactions applies the filter and pagination at the query level;
// rows are never sliced in memory.
func (s *PgStore) ListTransactions(ctx context.Context, ownerID int64, offset, count int, f Filter) ([]Row, error) {
	where, args := f.conditions(ownerID)
	args = append(args, count, offset)

	sql := fmt.Sprintf(
		`SELECT `+rowColumns+`
		 FROM transactions t
		 LEFT JOIN transactions_metadata m ON t.metadata_id = m.id
		 WHERE %s
		 ORDER BY t.created_at DESC, t.id DESC
		 LIMIT $%d OFFSET $%d`,
		where, len(args)-1, len(args),
	)

	rows, err := s.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := make([]Row, 0, count)
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("list transactions: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PgStore) CountTransactions(ctx context.Context, ownerID int64, f Filter) (int64, error) {
	where, args := f.conditions(ownerID)

	var n int64
	err := s.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM transactions t WHERE `+where,
		args...,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

func (s *PgStore) UserOwnsTransaction(ctx context.Context, ownerID, id int64) (bool, error) {
	var found int64
	err := s.Pool.QueryRow(ctx,
		`SELECT id FROM transactions WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	).Scan(&found)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check transaction ownership: %w", err)
	}
	return true, nil
}

func scanRow(row pgx.Row) (Row, error) {
	var r Row
	err := row.Scan(
		&r.ID, &r.OwnerID, &r.CategoryID, &r.AccountID, &r.CurrencyID,
		&r.CreatedAt, &r.Delta, &r.Description, &r.MetadataID,
		&r.MetadataTag, &r.MetadataArg,
	)
	return r, err
}
