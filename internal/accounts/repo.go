package accounts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("account not found")

type Repository struct {
	Pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{Pool: pool}
}

func (r *Repository) Create(ctx context.Context, ownerID int64, acc NewAccount) (int64, error) {
	var id int64
	err := r.Pool.QueryRow(
		ctx,
		`INSERT INTO accounts (owner_id, currency_id, name, description)
         VALUES ($1, $2, $3, $4)
         RETURNING id`,
		ownerID,
		acc.CurrencyID,
		acc.Name,
		acc.Description,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (Account, error) {
	var acc Account
	err := r.Pool.QueryRow(
		ctx,
		`SELECT id, owner_id, currency_id, name, amount, hidden, description
		 FROM accounts
		 WHERE id = $1`,
		id,
	).Scan(&acc.ID, &acc.OwnerID, &acc.CurrencyID, &acc.Name, &acc.Amount, &acc.Hidden, &acc.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, err
	}
	return acc, nil
}

func (r *Repository) ListByOwner(ctx context.Context, ownerID int64) ([]Account, error) {
	rows, err := r.Pool.Query(
		ctx,
		`SELECT id, owner_id, currency_id, name, amount, hidden, description
		 FROM accounts
		 WHERE owner_id = $1
		 ORDER BY name`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		var acc Account
		if err := rows.Scan(
			&acc.ID,
			&acc.OwnerID,
			&acc.CurrencyID,
			&acc.Name,
			&acc.Amount,
			&acc.Hidden,
			&acc.Description,
		); err != nil {
			return nil, err
		}
		accounts = append(accounts, acc)
	}

	return accounts, rows.Err()
}

// UserOwnsAccount backs the ownership checks handlers run before touching an
// account through the transaction layer.
func (r *Repository) UserOwnsAccount(ctx context.Context, ownerID, id int64) (bool, error) {
	var owns bool
	err := r.Pool.QueryRow(
		ctx,
		`SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1 AND owner_id = $2)`,
		id, ownerID,
	).Scan(&owns)
	if err != nil {
		return false, err
	}
	return owns, nil
}

// SetHidden flips visibility without touching the balance.
func (r *Repository) SetHidden(ctx context.Context, ownerID, id int64, hidden bool) error {
	ct, err := r.Pool.Exec(
		ctx,
		`UPDATE accounts SET hidden = $1 WHERE id = $2 AND owner_id = $3`,
		hidden, id, ownerID,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
