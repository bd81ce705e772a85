/*
replay.go - Chronological replay and running balances

PURPOSE:
  The one authoritative implementation of running-balance computation.
  Given an account and a date window, replays every transaction in
  (occurred_at, id) order and records the post-entry balance on each row.
  Every book and statement in the system renders rows produced here; no
  view recomputes balances on its own.

ALGORITHM:
  balance := opening (0 unless supplied)
  for each row in chronological order:
      Dr  -> balance -= amount
      Cr  -> balance += amount
      row.Balance = balance
  totals are the period sums of Dr and Cr amounts.

NUMERIC SEMANTICS:
  All arithmetic is decimal.Decimal. Summing ten thousand rows must land
  on the exact two-decimal result; floating-point accumulation is a bug
  class this package exists to avoid.

CONSISTENCY PROPERTY:
  Replay over [s, e] seeded with the closing balance of (-inf, s) equals
  the tail of a full-history replay through e. Tests hold the engine to
  this.

SEE ALSO:
  - types.go: Direction.Apply (the sign rule)
  - reports/: The views built on top of replay
*/
package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// REPLAY ENGINE
// =============================================================================

// Row is one replayed transaction with its post-entry running balance.
type Row struct {
	Tx      Transaction
	Balance decimal.Decimal
}

// Result is a full replay over a window: every row plus period totals.
type Result struct {
	AccountID      int64
	Range          DateRange
	OpeningBalance decimal.Decimal
	Rows           []Row
	TotalDebit     decimal.Decimal
	TotalCredit    decimal.Decimal
	ClosingBalance decimal.Decimal
}

// Engine replays account histories from a Store.
type Engine struct {
	store Store
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// Option adjusts a single replay call.
type Option func(*replayOptions)

type replayOptions struct {
	opening    decimal.Decimal
	hasOpening bool
}

// WithOpeningBalance seeds the running balance with a carried-forward
// amount instead of replaying from the beginning of history. Used for
// period-over-period statement continuation.
func WithOpeningBalance(opening decimal.Decimal) Option {
	return func(o *replayOptions) {
		o.opening = opening
		o.hasOpening = true
	}
}

// Replay fetches the account's transactions inside r in chronological
// order and computes the running balance per row plus period totals.
// An unknown account fails with AccountNotFound; an empty window is not
// an error and yields zero rows and zero totals.
func (e *Engine) Replay(ctx context.Context, accountID int64, r DateRange, opts ...Option) (*Result, error) {
	var o replayOptions
	for _, opt := range opts {
		opt(&o)
	}

	acct, err := e.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, &AccountNotFoundError{AccountID: accountID}
	}

	txs, err := e.store.TransactionsInRange(ctx, accountID, r)
	if err != nil {
		return nil, err
	}

	return replay(accountID, r, o.opening, txs), nil
}

// BalanceAsOf computes the closing balance over the account's entire
// history through the given day. This is the cross-check anchor: any
// windowed replay seeded correctly must agree with it.
func (e *Engine) BalanceAsOf(ctx context.Context, accountID int64, end time.Time) (decimal.Decimal, error) {
	acct, err := e.store.GetAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	if acct == nil {
		return decimal.Zero, &AccountNotFoundError{AccountID: accountID}
	}

	txs, err := e.store.TransactionsThrough(ctx, accountID, end)
	if err != nil {
		return decimal.Zero, err
	}

	balance := decimal.Zero
	for _, tx := range txs {
		balance = tx.Direction.Apply(balance, tx.Amount)
	}
	return balance, nil
}

// OpeningBalanceFor computes the balance carried into the start of r,
// i.e. the net effect of everything strictly before r.Start.
func (e *Engine) OpeningBalanceFor(ctx context.Context, accountID int64, r DateRange) (decimal.Decimal, error) {
	return e.BalanceAsOf(ctx, accountID, r.Start.AddDate(0, 0, -1))
}

// replay is the pure core, shared by Engine and tests.
func replay(accountID int64, r DateRange, opening decimal.Decimal, txs []Transaction) *Result {
	res := &Result{
		AccountID:      accountID,
		Range:          r,
		OpeningBalance: opening,
		Rows:           make([]Row, 0, len(txs)),
		TotalDebit:     decimal.Zero,
		TotalCredit:    decimal.Zero,
	}

	balance := opening
	for _, tx := range txs {
		balance = tx.Direction.Apply(balance, tx.Amount)
		if tx.Direction == Debit {
			res.TotalDebit = res.TotalDebit.Add(tx.Amount)
		} else {
			res.TotalCredit = res.TotalCredit.Add(tx.Amount)
		}
		res.Rows = append(res.Rows, Row{Tx: tx, Balance: balance})
	}
	res.ClosingBalance = balance
	return res
}

// =============================================================================
// PAGINATION - Window over precomputed rows
// =============================================================================

const (
	DefaultPerPage = 50
	MaxPerPage     = 500
)

// Page is one window of a replay result. Totals and closing balance stay
// period-wide; only Rows is windowed.
type Page struct {
	Rows       []Row
	Page       int
	PerPage    int
	TotalRows  int
	TotalPages int
}

// Paginate windows the result's rows. Page numbers start at 1; out-of-range
// pages yield empty rows rather than an error.
func Paginate(res *Result, page, perPage int) Page {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	if page <= 0 {
		page = 1
	}

	total := len(res.Rows)
	totalPages := (total + perPage - 1) / perPage
	if totalPages == 0 {
		totalPages = 1
	}

	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}

	return Page{
		Rows:       res.Rows[start:end],
		Page:       page,
		PerPage:    perPage,
		TotalRows:  total,
		TotalPages: totalPages,
	}
}
