package transactions

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// fakeStore is an in-memory Store used by the manager tests. The tx handle
// is ignored; atomicity is simulated by fakeRunner through snapshots.
type fakeStore struct {
	nextTxID       int64
	nextMetaID     int64
	nextTransferID int64

	transactions map[int64]Transaction
	metadata     map[int64]fakeMeta
	transfers    map[int64]InternalTransfer
	balances     map[int64]decimal.Decimal
	currencies   map[int64]int64
}

type fakeMeta struct {
	kind MetadataKind
	arg  int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		transactions: map[int64]Transaction{},
		metadata:     map[int64]fakeMeta{},
		transfers:    map[int64]InternalTransfer{},
		balances:     map[int64]decimal.Decimal{},
		currencies:   map[int64]int64{},
	}
}

func (s *fakeStore) addAccount(id, currencyID int64, balance decimal.Decimal) {
	s.balances[id] = balance
	s.currencies[id] = currencyID
}

func (s *fakeStore) snapshot() *fakeStore {
	snap := newFakeStore()
	snap.nextTxID = s.nextTxID
	snap.nextMetaID = s.nextMetaID
	snap.nextTransferID = s.nextTransferID
	for k, v := range s.transactions {
		snap.transactions[k] = v
	}
	for k, v := range s.metadata {
		snap.metadata[k] = v
	}
	for k, v := range s.transfers {
		snap.transfers[k] = v
	}
	for k, v := range s.balances {
		snap.balances[k] = v
	}
	for k, v := range s.currencies {
		snap.currencies[k] = v
	}
	return snap
}

func (s *fakeStore) restore(snap *fakeStore) {
	s.nextTxID = snap.nextTxID
	s.nextMetaID = snap.nextMetaID
	s.nextTransferID = snap.nextTransferID
	s.transactions = snap.transactions
	s.metadata = snap.metadata
	s.transfers = snap.transfers
	s.balances = snap.balances
	s.currencies = snap.currencies
}

func (s *fakeStore) InsertTransaction(ctx context.Context, tx pgx.Tx, t Transaction) (int64, error) {
	s.nextTxID++
	t.ID = s.nextTxID
	s.transactions[t.ID] = t
	return t.ID, nil
}

func (s *fakeStore) UpdateTransaction(ctx context.Context, tx pgx.Tx, t Transaction) error {
	existing, ok := s.transactions[t.ID]
	if !ok {
		return fmt.Errorf("update transaction %d: %w", t.ID, ErrNoRowsAffected)
	}
	t.MetadataID = existing.MetadataID
	s.transactions[t.ID] = t
	return nil
}

func (s *fakeStore) DeleteTransaction(ctx context.Context, tx pgx.Tx, id int64) error {
	if _, ok := s.transactions[id]; !ok {
		return fmt.Errorf("delete transaction %d: %w", id, ErrNoRowsAffected)
	}
	delete(s.transactions, id)
	return nil
}

func (s *fakeStore) GetTransaction(ctx context.Context, tx pgx.Tx, id int64) (Row, error) {
	t, ok := s.transactions[id]
	if !ok {
		return Row{}, ErrNotFound
	}
	return s.row(t), nil
}

func (s *fakeStore) row(t Transaction) Row {
	r := Row{Transaction: t}
	if t.MetadataID != nil {
		if m, ok := s.metadata[*t.MetadataID]; ok {
			tag := int16(m.kind)
			arg := m.arg
			r.MetadataTag = &tag
			r.MetadataArg = &arg
		}
	}
	return r
}

func (s *fakeStore) InsertMetadata(ctx context.Context, tx pgx.Tx, kind MetadataKind, arg int64) (int64, error) {
	s.nextMetaID++
	s.metadata[s.nextMetaID] = fakeMeta{kind: kind, arg: arg}
	return s.nextMetaID, nil
}

func (s *fakeStore) AttachMetadata(ctx context.Context, tx pgx.Tx, transactionID, metadataID int64) error {
	t, ok := s.transactions[transactionID]
	if !ok {
		return fmt.Errorf("attach metadata to transaction %d: %w", transactionID, ErrNoRowsAffected)
	}
	id := metadataID
	t.MetadataID = &id
	s.transactions[transactionID] = t
	return nil
}

func (s *fakeStore) DeleteMetadata(ctx context.Context, tx pgx.Tx, id int64) error {
	if _, ok := s.metadata[id]; !ok {
		return fmt.Errorf("delete metadata %d: %w", id, ErrNoRowsAffected)
	}
	delete(s.metadata, id)
	return nil
}

func (s *fakeStore) InsertInternalTransfer(ctx context.Context, tx pgx.Tx, fromID, toID int64) (int64, error) {
	s.nextTransferID++
	s.transfers[s.nextTransferID] = InternalTransfer{
		ID:                s.nextTransferID,
		FromTransactionID: fromID,
		ToTransactionID:   toID,
	}
	return s.nextTransferID, nil
}

func (s *fakeStore) GetInternalTransfer(ctx context.Context, tx pgx.Tx, id int64) (InternalTransfer, error) {
	tr, ok := s.transfers[id]
	if !ok {
		return InternalTransfer{}, ErrNotFound
	}
	return tr, nil
}

func (s *fakeStore) DeleteInternalTransfer(ctx context.Context, tx pgx.Tx, id int64) error {
	if _, ok := s.transfers[id]; !ok {
		return fmt.Errorf("delete internal transfer %d: %w", id, ErrNoRowsAffected)
	}
	delete(s.transfers, id)
	return nil
}

func (s *fakeStore) AdjustBalance(ctx context.Context, tx pgx.Tx, accountID int64, delta decimal.Decimal) error {
	balance, ok := s.balances[accountID]
	if !ok {
		return fmt.Errorf("adjust balance of account %d: %w", accountID, ErrNoRowsAffected)
	}
	s.balances[accountID] = balance.Add(delta)
	return nil
}

func (s *fakeStore) AccountCurrency(ctx context.Context, tx pgx.Tx, accountID int64) (int64, error) {
	currencyID, ok := s.currencies[accountID]
	if !ok {
		return 0, fmt.Errorf("account %d: %w", accountID, ErrNotFound)
	}
	return currencyID, nil
}

func (s *fakeStore) ListTransactions(ctx context.Context, ownerID int64, offset, count int, f Filter) ([]Row, error) {
	var rows []Row
	for _, t := range s.transactions {
		if t.OwnerID == ownerID && s.matches(f, t) {
			rows = append(rows, s.row(t))
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].ID > rows[j].ID
	})

	if offset >= len(rows) {
		return nil, nil
	}
	rows = rows[offset:]
	if count < len(rows) {
		rows = rows[:count]
	}
	return rows, nil
}

func (s *fakeStore) CountTransactions(ctx context.Context, ownerID int64, f Filter) (int64, error) {
	var n int64
	for _, t := range s.transactions {
		if t.OwnerID == ownerID && s.matches(f, t) {
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) UserOwnsTransaction(ctx context.Context, ownerID, id int64) (bool, error) {
	t, ok := s.transactions[id]
	return ok && t.OwnerID == ownerID, nil
}

func (s *fakeStore) matches(f Filter, t Transaction) bool {
	inSet := func(ids []int64, id int64) bool {
		if len(ids) == 0 {
			return true
		}
		for _, v := range ids {
			if v == id {
				return true
			}
		}
		return false
	}

	if !inSet(f.CategoryIDs, t.CategoryID) || !inSet(f.AccountIDs, t.AccountID) || !inSet(f.CurrencyIDs, t.CurrencyID) {
		return false
	}
	if f.Description != nil {
		if t.Description == nil || !strings.Contains(strings.ToLower(*t.Description), strings.ToLower(*f.Description)) {
			return false
		}
	}
	if f.FromTime != nil && t.CreatedAt.Before(*f.FromTime) {
		return false
	}
	if f.ToTime != nil && t.CreatedAt.After(*f.ToTime) {
		return false
	}
	return true
}

// fakeRunner simulates transactional rollback by restoring a snapshot when
// the unit of work fails.
type fakeRunner struct {
	store *fakeStore
}

func (r fakeRunner) RunInTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	snap := r.store.snapshot()
	if err := fn(nil); err != nil {
		r.store.restore(snap)
		return err
	}
	return nil
}

// hookRecorder records apply and cancel notifications from the workers.
type hookRecorder struct {
	applied   []int64
	cancelled []int64
	applyErr  error
	cancelErr error
}

func (h *hookRecorder) TransactionApplied(ctx context.Context, tx pgx.Tx, id int64) error {
	if h.applyErr != nil {
		return h.applyErr
	}
	h.applied = append(h.applied, id)
	return nil
}

func (h *hookRecorder) TransactionCancelled(ctx context.Context, tx pgx.Tx, id int64) error {
	if h.cancelErr != nil {
		return h.cancelErr
	}
	h.cancelled = append(h.cancelled, id)
	return nil
}
