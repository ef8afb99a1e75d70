// Package accumulation tracks savings goals funded by dedicated
// transactions. A goal's current amount is the sum of the deltas of all
// transactions still linked to it.
package accumulation

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/finledger-app/backend/internal/transactions"
)

var ErrNotFound = errors.New("accumulation goal not found")

type Goal struct {
	ID            int64           `json:"id"`
	OwnerID       int64           `json:"owner_id"`
	Name          string          `json:"name"`
	TargetAmount  decimal.Decimal `json:"target_amount"`
	CurrentAmount decimal.Decimal `json:"current_amount"`
}

// TransactionApplier is the slice of the transaction manager this service
// needs.
type TransactionApplier interface {
	ApplyAccumulationTransaction(ctx context.Context, cmd transactions.NewAccumulationTransaction) (int64, error)
}

type Service struct {
	Pool    *pgxpool.Pool
	Applier TransactionApplier
	Log     zerolog.Logger
}

func NewService(pool *pgxpool.Pool, applier TransactionApplier, log zerolog.Logger) *Service {
	return &Service{Pool: pool, Applier: applier, Log: log}
}

func (s *Service) CreateGoal(ctx context.Context, goal Goal) (int64, error) {
	var id int64
	err := s.Pool.QueryRow(
		ctx,
		`INSERT INTO accumulation_goals (owner_id, name, target_amount)
         VALUES ($1, $2, $3)
         RETURNING id`,
		goal.OwnerID,
		goal.Name,
		goal.TargetAmount,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Service) GetGoal(ctx context.Context, ownerID, id int64) (Goal, error) {
	var g Goal
	err := s.Pool.QueryRow(
		ctx,
		`SELECT id, owner_id, name, target_amount, current_amount
		 FROM accumulation_goals
		 WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	).Scan(&g.ID, &g.OwnerID, &g.Name, &g.TargetAmount, &g.CurrentAmount)
	if errors.Is(err, pgx.ErrNoRows) {
		return Goal{}, ErrNotFound
	}
	if err != nil {
		return Goal{}, err
	}
	return g, nil
}

func (s *Service) ListByOwner(ctx context.Context, ownerID int64) ([]Goal, error) {
	rows, err := s.Pool.Query(
		ctx,
		`SELECT id, owner_id, name, target_amount, current_amount
		 FROM accumulation_goals
		 WHERE owner_id = $1
		 ORDER BY name`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var goals []Goal
	for rows.Next() {
		var g Goal
		if err := rows.Scan(&g.ID, &g.OwnerID, &g.Name, &g.TargetAmount, &g.CurrentAmount); err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}

	return goals, rows.Err()
}

// Contribute applies a goal-linked transaction. The goal's running amount is
// recomputed by TransactionApplied inside the same unit of work, so the
// ledger row and the aggregate commit or roll back together.
func (s *Service) Contribute(ctx context.Context, cmd transactions.NewAccumulationTransaction) (int64, error) {
	return s.Applier.ApplyAccumulationTransaction(ctx, cmd)
}

// TransactionApplied runs inside the applying transaction and brings the
// goal's amount up to date with the just-written row.
func (s *Service) TransactionApplied(ctx context.Context, tx pgx.Tx, goalID int64) error {
	return s.recomputeAmount(ctx, tx, goalID)
}

// TransactionCancelled runs inside the cancelling transaction and recomputes
// the goal's amount from the transactions still linked to it.
func (s *Service) TransactionCancelled(ctx context.Context, tx pgx.Tx, goalID int64) error {
	return s.recomputeAmount(ctx, tx, goalID)
}

func (s *Service) recomputeAmount(ctx context.Context, tx pgx.Tx, goalID int64) error {
	ct, err := tx.Exec(
		ctx,
		`UPDATE accumulation_goals g
		 SET current_amount = COALESCE((
		     SELECT SUM(ABS(t.delta))
		     FROM transactions t
		     JOIN transactions_metadata m ON m.id = t.metadata_id
		     WHERE m.kind = 3 AND m.arg = g.id
		 ), 0)
		 WHERE g.id = $1`,
		goalID,
	)
	if err != nil {
		return fmt.Errorf("recompute goal %d: %w", goalID, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("recompute goal %d: %w", goalID, ErrNotFound)
	}
	return nil
}
