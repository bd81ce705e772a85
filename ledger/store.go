/*
store.go - Persistence interfaces for accounts and transactions

PURPOSE:
  Defines the interface between the ledger engine and the database.
  The Store keeps the transaction log append-only. Different
  implementations can use SQLite or in-memory storage.

APPEND-ONLY CONTRACT:
  - Append / AppendPair are the only write paths for transactions
  - NO Update() or Delete() methods exist for transactions
  - Amendments are new offsetting rows, never edits

BALANCED PAIRS:
  AppendPair persists both legs of a business event atomically: one Dr
  and one Cr of equal amount against two distinct accounts. Either both
  rows land or neither does.

ORDERING:
  Loads return rows ordered by (occurred_at ASC, id ASC). The id
  tie-break makes replay deterministic for same-instant entries.

IMPLEMENTATIONS:
  - store/sqlite: production SQLite store
  - ledger/store: in-memory store for tests and dev

SEE ALSO:
  - replay.go: Consumes these loads
  - store/sqlite/sqlite.go: Concrete implementation
*/
package ledger

import (
	"context"
	"time"
)

// =============================================================================
// STORE - Accounts and the append-only transaction log
// =============================================================================

// Store handles persistence of accounts and transactions.
// IMPORTANT: transactions are APPEND-ONLY. No Update, No Delete. Ever.
type Store interface {
	// SaveAccount inserts an account (or updates name/group while active).
	// Returns the stored account with its assigned ID.
	SaveAccount(ctx context.Context, a Account) (Account, error)

	// GetAccount returns nil when the account does not exist.
	GetAccount(ctx context.Context, id int64) (*Account, error)

	// ListAccounts returns the chart, optionally filtered by group
	// (empty group = all). Ordered by account number.
	ListAccounts(ctx context.Context, group AccountGroup) ([]Account, error)

	// DeactivateAccount flags an account inactive. Never deletes.
	DeactivateAccount(ctx context.Context, id int64) error

	// Append persists one transaction row. The returned row carries the
	// store-assigned id. Use AppendPair for business events.
	Append(ctx context.Context, tx Transaction) (Transaction, error)

	// AppendPair persists a balanced Dr/Cr pair atomically.
	AppendPair(ctx context.Context, debit, credit Transaction) error

	// TransactionsInRange returns rows for an account inside the range,
	// ordered by (occurred_at, id) ascending.
	TransactionsInRange(ctx context.Context, accountID int64, r DateRange) ([]Transaction, error)

	// TransactionsThrough returns all rows for an account up to and
	// including the given day, same ordering. Used for opening balances
	// and as-of closing balances.
	TransactionsThrough(ctx context.Context, accountID int64, end time.Time) ([]Transaction, error)
}

// ValidatePair checks the double-entry invariant before a pair is written:
// equal non-negative amounts, opposite directions, distinct accounts.
func ValidatePair(debit, credit Transaction) error {
	if debit.Amount.IsNegative() || credit.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	if debit.Direction != Debit || credit.Direction != Credit {
		return ErrUnbalancedEntry
	}
	if !debit.Amount.Equal(credit.Amount) {
		return ErrUnbalancedEntry
	}
	if debit.AccountID == credit.AccountID {
		return ErrUnbalancedEntry
	}
	return nil
}
