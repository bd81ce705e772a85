package reports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/forecourt/station-ledger/ledger"
)

// =============================================================================
// BANK / MOBILE-BANK BOOK - One row per account, detail per transaction
// =============================================================================

// BankBookEntry summarizes one account in the book's group.
type BankBookEntry struct {
	Account        ledger.Account
	TotalDebit     decimal.Decimal
	TotalCredit    decimal.Decimal
	ClosingBalance decimal.Decimal
}

// BankBook lists every account of a group with period totals.
type BankBook struct {
	Company CompanyProfile
	Group   ledger.AccountGroup
	Range   ledger.DateRange
	Entries []BankBookEntry
}

// BankBook builds the per-account summary for a group (bank_account or
// mobile_bank). Closing balances are full-history as of the range end,
// so they agree with an independent replay by construction.
func (b *Builder) BankBook(ctx context.Context, group ledger.AccountGroup, r ledger.DateRange) (*BankBook, error) {
	accounts, err := b.accounts.ListAccounts(ctx, group)
	if err != nil {
		return nil, err
	}

	book := &BankBook{Company: b.company, Group: group, Range: r}
	for _, a := range accounts {
		res, err := b.engine.Replay(ctx, a.ID, r)
		if err != nil {
			return nil, err
		}
		closing, err := b.engine.BalanceAsOf(ctx, a.ID, r.End)
		if err != nil {
			return nil, err
		}
		book.Entries = append(book.Entries, BankBookEntry{
			Account:        a,
			TotalDebit:     res.TotalDebit,
			TotalCredit:    res.TotalCredit,
			ClosingBalance: closing,
		})
	}
	return book, nil
}

// BankBookDetail is the per-transaction drill-down for one account: a
// plain paginated replay. The rows carry precomputed balances; nothing
// downstream recomputes them.
func (b *Builder) BankBookDetail(ctx context.Context, accountID int64, r ledger.DateRange, page, perPage int) (*ledger.Result, ledger.Page, error) {
	opening, err := b.engine.OpeningBalanceFor(ctx, accountID, r)
	if err != nil {
		return nil, ledger.Page{}, err
	}
	res, err := b.engine.Replay(ctx, accountID, r, ledger.WithOpeningBalance(opening))
	if err != nil {
		return nil, ledger.Page{}, err
	}
	return res, ledger.Paginate(res, page, perPage), nil
}
