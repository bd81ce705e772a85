package reports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/forecourt/station-ledger/ledger"
)

// =============================================================================
// ACCOUNT STATEMENT - Generic per-account ledger view
// =============================================================================

// Statement is the generic ledger view used for customers, suppliers and
// loans: a windowed replay plus pagination over its rows.
type Statement struct {
	Company CompanyProfile
	Account ledger.Account
	Result  *ledger.Result
	Page    ledger.Page
}

// Statement replays one account over the range. When hasOpening is false
// the opening balance is derived from the account's full prior history,
// so the closing balance always equals an independent full-history
// replay; an explicit opening supports period-over-period continuation
// where the caller carries the prior closing forward.
func (b *Builder) Statement(ctx context.Context, accountID int64, r ledger.DateRange, opening decimal.Decimal, hasOpening bool, page, perPage int) (*Statement, error) {
	acct, err := b.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, &ledger.AccountNotFoundError{AccountID: accountID}
	}

	if !hasOpening {
		opening, err = b.engine.OpeningBalanceFor(ctx, accountID, r)
		if err != nil {
			return nil, err
		}
	}

	res, err := b.engine.Replay(ctx, accountID, r, ledger.WithOpeningBalance(opening))
	if err != nil {
		return nil, err
	}

	return &Statement{
		Company: b.company,
		Account: *acct,
		Result:  res,
		Page:    ledger.Paginate(res, page, perPage),
	}, nil
}
