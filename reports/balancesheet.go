/*
balancesheet.go - Asset/liability buckets and the trading summary

PURPOSE:
  Classifies every account by its group into asset or liability buckets,
  sums closing balances as of the range end, and derives net worth.
  A second, independent computation aggregates purchases, sales and
  stock valuation into a trading summary.

CLASSIFICATION:
  Asset:     cash_in_hand, bank_account, mobile_bank, customer, asset
  Liability: supplier, liability
  other-group accounts (sales income, expense heads) stay off the sheet.

  Under the ledger's sign rule asset accounts run Cr-heavy and liability
  accounts Dr-heavy, so an asset's amount is its balance and a
  liability's amount is the balance negated. That makes
  total_assets - total_liabilities equal the plain sum of balances.

RECONCILIATION:
  Net worth and trading net profit come from disjoint data paths
  (account balances vs. snapshot/voucher aggregates) and are presented
  together WITHOUT asserting they agree. Whether they should is an open
  stakeholder question; do not harden it into an invariant here.
*/
package reports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/forecourt/station-ledger/ledger"
	"github.com/forecourt/station-ledger/shiftclose"
)

// =============================================================================
// BALANCE SHEET
// =============================================================================

// BalanceSheetLine is one account's contribution to its bucket.
type BalanceSheetLine struct {
	Account ledger.Account
	Amount  decimal.Decimal
}

// TradingSummary is the independent profit computation.
type TradingSummary struct {
	TotalSales    decimal.Decimal // cash + bank + credit, fuel + other
	TotalPurchase decimal.Decimal
	OpeningStock  decimal.Decimal
	ClosingStock  decimal.Decimal
	GrossProfit   decimal.Decimal
	AdminExpense  decimal.Decimal
	NetProfit     decimal.Decimal
}

// BalanceSheet is the assembled report.
type BalanceSheet struct {
	Company          CompanyProfile
	Range            ledger.DateRange
	Assets           []BalanceSheetLine
	Liabilities      []BalanceSheetLine
	TotalAssets      decimal.Decimal
	TotalLiabilities decimal.Decimal
	NetWorth         decimal.Decimal
	Trading          TradingSummary
}

// StockValuation carries the operator-entered stock figures for the
// trading summary. The system does not meter tank stock itself.
type StockValuation struct {
	Opening decimal.Decimal
	Closing decimal.Decimal
}

func assetGroup(g ledger.AccountGroup) bool {
	switch g {
	case ledger.GroupCashInHand, ledger.GroupBankAccount, ledger.GroupMobileBank,
		ledger.GroupCustomer, ledger.GroupAsset:
		return true
	}
	return false
}

func liabilityGroup(g ledger.AccountGroup) bool {
	return g == ledger.GroupSupplier || g == ledger.GroupLiability
}

// BalanceSheet classifies all accounts, sums closing balances as of
// r.End, and computes net worth plus the trading summary over r.
func (b *Builder) BalanceSheet(ctx context.Context, r ledger.DateRange, stock StockValuation) (*BalanceSheet, error) {
	accounts, err := b.accounts.ListAccounts(ctx, "")
	if err != nil {
		return nil, err
	}

	sheet := &BalanceSheet{
		Company:          b.company,
		Range:            r,
		TotalAssets:      decimal.Zero,
		TotalLiabilities: decimal.Zero,
	}

	for _, a := range accounts {
		if !assetGroup(a.Group) && !liabilityGroup(a.Group) {
			continue
		}
		balance, err := b.engine.BalanceAsOf(ctx, a.ID, r.End)
		if err != nil {
			return nil, err
		}
		if assetGroup(a.Group) {
			sheet.Assets = append(sheet.Assets, BalanceSheetLine{Account: a, Amount: balance})
			sheet.TotalAssets = sheet.TotalAssets.Add(balance)
		} else {
			amount := balance.Neg()
			sheet.Liabilities = append(sheet.Liabilities, BalanceSheetLine{Account: a, Amount: amount})
			sheet.TotalLiabilities = sheet.TotalLiabilities.Add(amount)
		}
	}
	sheet.NetWorth = sheet.TotalAssets.Sub(sheet.TotalLiabilities)

	trading, err := b.tradingSummary(ctx, r, stock)
	if err != nil {
		return nil, err
	}
	sheet.Trading = trading
	return sheet, nil
}

// tradingSummary aggregates the disjoint data path: snapshot sales,
// purchase vouchers, expense vouchers, and operator stock figures.
func (b *Builder) tradingSummary(ctx context.Context, r ledger.DateRange, stock StockValuation) (TradingSummary, error) {
	t := TradingSummary{
		TotalSales:    decimal.Zero,
		TotalPurchase: decimal.Zero,
		OpeningStock:  stock.Opening,
		ClosingStock:  stock.Closing,
		AdminExpense:  decimal.Zero,
	}

	readings, err := b.shifts.DailyReadingsInRange(ctx, r)
	if err != nil {
		return t, err
	}
	for _, d := range readings {
		t.TotalSales = t.TotalSales.
			Add(d.CashSales).Add(d.CashSalesOther).
			Add(d.BankSales).Add(d.BankSalesOther).
			Add(d.CreditSales).Add(d.CreditSalesOther)
	}

	vouchers, err := b.shifts.VouchersInRange(ctx, r)
	if err != nil {
		return t, err
	}
	for _, v := range vouchers {
		switch {
		case v.Kind == shiftclose.VoucherPayment && v.Purpose == shiftclose.PurposePurchase:
			t.TotalPurchase = t.TotalPurchase.Add(v.Amount)
		case v.Kind == shiftclose.VoucherPayment &&
			(v.Purpose == shiftclose.PurposeExpense || v.Purpose == shiftclose.PurposeOffice):
			t.AdminExpense = t.AdminExpense.Add(v.Amount)
		}
	}

	t.GrossProfit = t.TotalSales.Add(t.ClosingStock).Sub(t.OpeningStock).Sub(t.TotalPurchase)
	t.NetProfit = t.GrossProfit.Sub(t.AdminExpense)
	return t, nil
}
