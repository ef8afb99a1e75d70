// Package recurring schedules rule-based transactions and materializes them
// through the transaction layer when they fall due.
package recurring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/finledger-app/backend/internal/transactions"
)

var ErrNotFound = errors.New("recurring rule not found")

// Rule repeats a fixed transaction every RepeatDays days starting at
// NextRepeat.
type Rule struct {
	ID            int64           `json:"id"`
	OwnerID       int64           `json:"owner_id"`
	CategoryID    int64           `json:"category_id"`
	AccountID     int64           `json:"account_id"`
	Delta         decimal.Decimal `json:"delta"`
	Description   *string         `json:"description,omitempty"`
	RepeatDays    int             `json:"repeat_days"`
	NextRepeat    time.Time       `json:"next_repeat"`
	LastAppliedAt *time.Time      `json:"last_applied_at,omitempty"`
}

// TransactionApplier is the slice of the transaction manager this service
// needs.
type TransactionApplier interface {
	ApplyRecurringTransaction(ctx context.Context, cmd transactions.NewRecurringTransaction) (int64, error)
}

type Service struct {
	Pool    *pgxpool.Pool
	Applier TransactionApplier
	Log     zerolog.Logger
}

func NewService(pool *pgxpool.Pool, applier TransactionApplier, log zerolog.Logger) *Service {
	return &Service{Pool: pool, Applier: applier, Log: log}
}

func (s *Service) CreateRule(ctx context.Context, rule Rule) (int64, error) {
	var id int64
	err := s.Pool.QueryRow(
		ctx,
		`INSERT INTO recurring_rules (owner_id, category_id, account_id, delta, description, repeat_days, next_repeat)
         VALUES ($1, $2, $3, $4, $5, $6, $7)
         RETURNING id`,
		rule.OwnerID,
		rule.CategoryID,
		rule.AccountID,
		rule.Delta,
		rule.Description,
		rule.RepeatDays,
		rule.NextRepeat,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Service) ListByOwner(ctx context.Context, ownerID int64) ([]Rule, error) {
	rows, err := s.Pool.Query(
		ctx,
		`SELECT id, owner_id, category_id, account_id, delta, description, repeat_days, next_repeat, last_applied_at
		 FROM recurring_rules
		 WHERE owner_id = $1
		 ORDER BY next_repeat`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		var r Rule
		if err := rows.Scan(
			&r.ID,
			&r.OwnerID,
			&r.CategoryID,
			&r.AccountID,
			&r.Delta,
			&r.Description,
			&r.RepeatDays,
			&r.NextRepeat,
			&r.LastAppliedAt,
		); err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}

	return rules, rows.Err()
}

func (s *Service) DeleteRule(ctx context.Context, ownerID, id int64) error {
	ct, err := s.Pool.Exec(
		ctx,
		`DELETE FROM recurring_rules WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ProcessDue materializes every rule whose next_repeat has passed. Each rule
// applies as its own transaction so one bad rule does not block the rest.
// The reschedule happens inside that same transaction via TransactionApplied,
// so a rule is never left due after its occurrence committed and a failed
// reschedule rolls the occurrence back rather than risking a duplicate.
func (s *Service) ProcessDue(ctx context.Context, now time.Time) error {
	rules, err := s.dueRules(ctx, now)
	if err != nil {
		return err
	}

	for _, rule := range rules {
		cmd := transactions.NewRecurringTransaction{
			NewTransaction: transactions.NewTransaction{
				OwnerID:     rule.OwnerID,
				CategoryID:  rule.CategoryID,
				AccountID:   rule.AccountID,
				CurrencyID:  rule.CurrencyID,
				CreatedAt:   rule.NextRepeat,
				Delta:       rule.Delta,
				Description: rule.Description,
			},
			RuleID: rule.ID,
		}

		if _, err := s.Applier.ApplyRecurringTransaction(ctx, cmd); err != nil {
			s.Log.Error().Err(err).Int64("rule_id", rule.ID).Msg("recurring rule failed to apply")
		}
	}

	return nil
}

// TransactionApplied runs inside the applying transaction and advances the
// rule's schedule, so occurrence and reschedule commit or roll back together.
func (s *Service) TransactionApplied(ctx context.Context, tx pgx.Tx, ruleID int64) error {
	ct, err := tx.Exec(
		ctx,
		`UPDATE recurring_rules
		 SET next_repeat = next_repeat + make_interval(days => repeat_days), last_applied_at = now()
		 WHERE id = $1`,
		ruleID,
	)
	if err != nil {
		return fmt.Errorf("reschedule rule %d: %w", ruleID, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("reschedule rule %d: %w", ruleID, ErrNotFound)
	}
	return nil
}

// TransactionCancelled runs inside the cancelling transaction and clears the
// rule's last application so the occurrence is not counted as applied.
func (s *Service) TransactionCancelled(ctx context.Context, tx pgx.Tx, ruleID int64) error {
	_, err := tx.Exec(
		ctx,
		`UPDATE recurring_rules SET last_applied_at = NULL WHERE id = $1`,
		ruleID,
	)
	return err
}

type dueRule struct {
	Rule
	CurrencyID int64
}

func (s *Service) dueRules(ctx context.Context, now time.Time) ([]dueRule, error) {
	rows, err := s.Pool.Query(
		ctx,
		`SELECT r.id, r.owner_id, r.category_id, r.account_id, r.delta, r.description,
		        r.repeat_days, r.next_repeat, a.currency_id
		 FROM recurring_rules r
		 JOIN accounts a ON a.id = r.account_id
		 WHERE r.next_repeat <= $1
		 ORDER BY r.next_repeat`,
		now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []dueRule
	for rows.Next() {
		var r dueRule
		if err := rows.Scan(
			&r.ID,
			&r.OwnerID,
			&r.CategoryID,
			&r.AccountID,
			&r.Delta,
			&r.Description,
			&r.RepeatDays,
			&r.NextRepeat,
			&r.CurrencyID,
		); err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}

	return rules, rows.Err()
}
