// Package store provides an in-memory ledger.Store for tests and dev.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/forecourt/station-ledger/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	accounts     map[int64]ledger.Account
	transactions map[int64][]ledger.Transaction // by account, ordered
	nextAccount  int64
	nextTx       int64
}

func NewMemory() *Memory {
	return &Memory{
		accounts:     make(map[int64]ledger.Account),
		transactions: make(map[int64][]ledger.Transaction),
		nextAccount:  1,
		nextTx:       1,
	}
}

func (m *Memory) SaveAccount(_ context.Context, a ledger.Account) (ledger.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if a.ID == 0 {
		a.ID = m.nextAccount
		m.nextAccount++
	} else if a.ID >= m.nextAccount {
		m.nextAccount = a.ID + 1
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	a.Active = true
	m.accounts[a.ID] = a
	return a, nil
}

func (m *Memory) GetAccount(_ context.Context, id int64) (*ledger.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.accounts[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (m *Memory) ListAccounts(_ context.Context, group ledger.AccountGroup) ([]ledger.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []ledger.Account
	for _, a := range m.accounts {
		if group == "" || a.Group == group {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountNumber < out[j].AccountNumber })
	return out, nil
}

func (m *Memory) DeactivateAccount(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.accounts[id]
	if !ok {
		return &ledger.AccountNotFoundError{AccountID: id}
	}
	a.Active = false
	m.accounts[id] = a
	return nil
}

func (m *Memory) Append(_ context.Context, tx ledger.Transaction) (ledger.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendLocked(tx)
}

func (m *Memory) AppendPair(_ context.Context, debit, credit ledger.Transaction) error {
	if err := ledger.ValidatePair(debit, credit); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.appendLocked(debit); err != nil {
		return err
	}
	_, err := m.appendLocked(credit)
	return err
}

func (m *Memory) appendLocked(tx ledger.Transaction) (ledger.Transaction, error) {
	if tx.Amount.IsNegative() {
		return ledger.Transaction{}, ledger.ErrNegativeAmount
	}
	tx.ID = m.nextTx
	m.nextTx++

	txs := m.transactions[tx.AccountID]

	// Insert keeping (occurred_at, id) order. New rows have the highest id,
	// so they slot after any same-instant rows.
	i := sort.Search(len(txs), func(i int) bool {
		return txs[i].OccurredAt.After(tx.OccurredAt)
	})
	txs = append(txs, ledger.Transaction{})
	copy(txs[i+1:], txs[i:])
	txs[i] = tx
	m.transactions[tx.AccountID] = txs

	return tx, nil
}

func (m *Memory) TransactionsInRange(_ context.Context, accountID int64, r ledger.DateRange) ([]ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []ledger.Transaction
	for _, tx := range m.transactions[accountID] {
		if !tx.OccurredAt.Before(r.Start) && tx.OccurredAt.Before(r.ExclusiveEnd()) {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (m *Memory) TransactionsThrough(_ context.Context, accountID int64, end time.Time) ([]ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cutoff := ledger.Day(end).AddDate(0, 0, 1)
	var out []ledger.Transaction
	for _, tx := range m.transactions[accountID] {
		if tx.OccurredAt.Before(cutoff) {
			out = append(out, tx)
		}
	}
	return out, nil
}

var _ ledger.Store = (*Memory)(nil)
