package reports_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forecourt/station-ledger/ledger"
	"github.com/forecourt/station-ledger/reports"
	"github.com/forecourt/station-ledger/shiftclose"
	"github.com/forecourt/station-ledger/store/sqlite"
)

// =============================================================================
// TEST FIXTURE - One closed shift with the full voucher mix
// =============================================================================

type fixture struct {
	store   *sqlite.Store
	builder *reports.Builder
	engine  *ledger.Engine

	cash     ledger.Account
	bank     ledger.Account
	sales    ledger.Account
	customer ledger.Account
	expense  ledger.Account
	capital  ledger.Account

	morning  shiftclose.Shift
	closeDay time.Time
}

// newClosedDayFixture seeds one shift on 2025-02-01 with:
//
//	gross fuel sales  13000.00  (100 litres at 130.00)
//	credit sale        5200.00
//	bank sale          3000.00
//	cash collection    1500.00
//	cash expense        800.00
//	office payment      200.00
//
// and closes it, leaving cash_sales 4800.00 and total_cash 5300.00.
func newClosedDayFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	f := &fixture{
		store:    store,
		closeDay: time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC),
	}

	save := func(a ledger.Account) ledger.Account {
		out, err := store.SaveAccount(ctx, a)
		require.NoError(t, err)
		return out
	}
	f.cash = save(ledger.Account{Name: "Cash in Hand", AccountNumber: "1001", Group: ledger.GroupCashInHand})
	f.bank = save(ledger.Account{Name: "City Bank", AccountNumber: "1101", Group: ledger.GroupBankAccount})
	f.sales = save(ledger.Account{Name: "Fuel Sales Income", AccountNumber: "4001", Group: ledger.GroupOther})
	f.customer = save(ledger.Account{Name: "City Transport Ltd", AccountNumber: "2001", Group: ledger.GroupCustomer})
	f.expense = save(ledger.Account{Name: "Operating Expenses", AccountNumber: "5001", Group: ledger.GroupOther})
	f.capital = save(ledger.Account{Name: "Owner Capital", AccountNumber: "3001", Group: ledger.GroupLiability})

	f.morning, err = store.SaveShift(ctx, shiftclose.Shift{Name: "Morning"})
	require.NoError(t, err)

	pump, err := store.SaveDispenser(ctx, shiftclose.Dispenser{
		Name: "Pump 1", Product: "Octane", Unit: "litre",
		Rate: ledger.NewAmount("130.00"), Active: true,
	})
	require.NoError(t, err)

	_, err = store.SaveDispenserReading(ctx, shiftclose.DispenserReading{
		DispenserID:  pump.ID,
		ShiftID:      f.morning.ID,
		Date:         f.closeDay,
		ItemRate:     pump.Rate,
		StartReading: ledger.NewAmount("1000"),
		EndReading:   ledger.NewAmount("1100"),
	})
	require.NoError(t, err)

	journal := shiftclose.NewJournal(store)

	_, err = journal.RecordCreditSale(ctx, shiftclose.CreditSale{
		Date:              f.closeDay,
		ShiftID:           f.morning.ID,
		CustomerAccountID: f.customer.ID,
		SalesAccountID:    f.sales.ID,
		Amount:            ledger.NewAmount("5200.00"),
	})
	require.NoError(t, err)

	record := func(v shiftclose.Voucher) {
		v.Date = f.closeDay
		v.ShiftID = f.morning.ID
		_, err := journal.RecordVoucher(ctx, v)
		require.NoError(t, err)
	}
	record(shiftclose.Voucher{
		Kind: shiftclose.VoucherReceipt, Purpose: shiftclose.PurposeSale,
		PaymentType: ledger.PayBank, Scope: shiftclose.ScopeFuel,
		DebitAccountID: f.sales.ID, CreditAccountID: f.bank.ID,
		Amount: ledger.NewAmount("3000.00"),
	})
	record(shiftclose.Voucher{
		Kind: shiftclose.VoucherReceipt, Purpose: shiftclose.PurposeDueCollection,
		PaymentType:    ledger.PayCash,
		DebitAccountID: f.customer.ID, CreditAccountID: f.cash.ID,
		Amount: ledger.NewAmount("1500.00"),
	})
	record(shiftclose.Voucher{
		Kind: shiftclose.VoucherPayment, Purpose: shiftclose.PurposeExpense,
		PaymentType:    ledger.PayCash,
		DebitAccountID: f.cash.ID, CreditAccountID: f.expense.ID,
		Amount: ledger.NewAmount("800.00"),
	})
	record(shiftclose.Voucher{
		Kind: shiftclose.VoucherPayment, Purpose: shiftclose.PurposeOffice,
		PaymentType:    ledger.PayCash,
		DebitAccountID: f.cash.ID, CreditAccountID: f.expense.ID,
		Amount: ledger.NewAmount("200.00"),
	})

	aggregator := shiftclose.NewAggregator(store, shiftclose.PostingAccounts{
		CashAccountID:  f.cash.ID,
		SalesAccountID: f.sales.ID,
	})
	_, _, err = aggregator.CloseShift(ctx, f.closeDay, f.morning.ID)
	require.NoError(t, err)

	f.builder = reports.NewBuilder(store, store, reports.CompanyProfile{
		Name:    "Greenfield Filling Station",
		Address: "12 Ring Road",
		Phone:   "01700-000000",
	})
	f.engine = ledger.NewEngine(store)
	return f
}

func (f *fixture) febRange(t *testing.T) ledger.DateRange {
	t.Helper()
	r, err := ledger.NewDateRange(
		time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return r
}

// =============================================================================
// CASH BOOK
// =============================================================================

func TestCashBook_AgreesWithCashAccountReplay(t *testing.T) {
	// GIVEN: One closed shift where every cash voucher is shift-tagged
	// WHEN: Building the cash book over the period
	// THEN: Its closing balance equals a raw replay of the cash account

	f := newClosedDayFixture(t)
	ctx := context.Background()
	r := f.febRange(t)

	book, err := f.builder.CashBook(ctx, r, decimal.Zero)
	require.NoError(t, err)

	require.Len(t, book.Rows, 1)
	assert.Equal(t, "6300.00", book.Rows[0].CashIn.StringFixed(2))
	assert.Equal(t, "1000.00", book.Rows[0].CashOut.StringFixed(2))
	assert.Equal(t, "6300.00", book.TotalIn.StringFixed(2))
	assert.Equal(t, "1000.00", book.TotalOut.StringFixed(2))
	assert.Equal(t, "5300.00", book.ClosingBalance.StringFixed(2))

	replayed, err := f.engine.BalanceAsOf(ctx, f.cash.ID, r.End)
	require.NoError(t, err)
	assert.True(t, book.ClosingBalance.Equal(replayed),
		"cash book close %s != cash account replay %s", book.ClosingBalance, replayed)
}

func TestCashBook_CarriesOpeningBalance(t *testing.T) {
	f := newClosedDayFixture(t)

	book, err := f.builder.CashBook(context.Background(), f.febRange(t), ledger.NewAmount("2000.00"))
	require.NoError(t, err)
	assert.Equal(t, "2000.00", book.OpeningBalance.StringFixed(2))
	assert.Equal(t, "7300.00", book.ClosingBalance.StringFixed(2))
}

// =============================================================================
// BANK BOOK
// =============================================================================

func TestBankBook_ClosingAgreesWithReplay(t *testing.T) {
	// GIVEN: A bank account with one 3000.00 sale receipt
	// WHEN: Building the bank book
	// THEN: Its closing balance equals BalanceAsOf at the range end

	f := newClosedDayFixture(t)
	ctx := context.Background()
	r := f.febRange(t)

	book, err := f.builder.BankBook(ctx, ledger.GroupBankAccount, r)
	require.NoError(t, err)

	require.Len(t, book.Entries, 1)
	entry := book.Entries[0]
	assert.Equal(t, f.bank.ID, entry.Account.ID)
	assert.Equal(t, "0.00", entry.TotalDebit.StringFixed(2))
	assert.Equal(t, "3000.00", entry.TotalCredit.StringFixed(2))
	assert.Equal(t, "3000.00", entry.ClosingBalance.StringFixed(2))

	replayed, err := f.engine.BalanceAsOf(ctx, f.bank.ID, r.End)
	require.NoError(t, err)
	assert.True(t, entry.ClosingBalance.Equal(replayed))
}

func TestBankBookDetail_PaginatedReplay(t *testing.T) {
	f := newClosedDayFixture(t)

	res, page, err := f.builder.BankBookDetail(context.Background(), f.bank.ID, f.febRange(t), 1, 10)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "3000.00", res.Rows[0].Balance.StringFixed(2))
	assert.Equal(t, 1, page.TotalPages)
}

// =============================================================================
// ACCOUNT STATEMENT
// =============================================================================

func TestStatement_DerivedOpeningContinuesHistory(t *testing.T) {
	// GIVEN: Customer activity on Feb 1 (Cr 5200, Dr 1500)
	// WHEN: Requesting a statement for Feb 2..28 without an explicit opening
	// THEN: The opening carries the prior closing, 3700.00

	f := newClosedDayFixture(t)
	ctx := context.Background()

	later, err := ledger.NewDateRange(
		time.Date(2025, time.February, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	st, err := f.builder.Statement(ctx, f.customer.ID, later, decimal.Zero, false, 1, 50)
	require.NoError(t, err)

	assert.Equal(t, "3700.00", st.Result.OpeningBalance.StringFixed(2))
	assert.Empty(t, st.Result.Rows)
	assert.Equal(t, "3700.00", st.Result.ClosingBalance.StringFixed(2))

	full, err := f.engine.BalanceAsOf(ctx, f.customer.ID, later.End)
	require.NoError(t, err)
	assert.True(t, st.Result.ClosingBalance.Equal(full))
}

func TestStatement_ExplicitOpeningOverrides(t *testing.T) {
	f := newClosedDayFixture(t)

	st, err := f.builder.Statement(context.Background(), f.customer.ID, f.febRange(t),
		ledger.NewAmount("100.00"), true, 1, 50)
	require.NoError(t, err)

	assert.Equal(t, "100.00", st.Result.OpeningBalance.StringFixed(2))
	require.Len(t, st.Result.Rows, 2)
	assert.Equal(t, "3800.00", st.Result.ClosingBalance.StringFixed(2))
}

func TestStatement_UnknownAccount(t *testing.T) {
	f := newClosedDayFixture(t)

	_, err := f.builder.Statement(context.Background(), 999, f.febRange(t), decimal.Zero, false, 1, 50)
	require.Error(t, err)
	assert.True(t, ledger.IsNotFound(err))
}

// =============================================================================
// BALANCE SHEET
// =============================================================================

func TestBalanceSheet_NetWorthIdentity(t *testing.T) {
	// GIVEN: The closed day (cash 5300, bank 3000, customer due 3700)
	// WHEN: Assembling the balance sheet
	// THEN: total_assets - total_liabilities == net_worth, exactly

	f := newClosedDayFixture(t)

	sheet, err := f.builder.BalanceSheet(context.Background(), f.febRange(t), reports.StockValuation{})
	require.NoError(t, err)

	assert.Equal(t, "12000.00", sheet.TotalAssets.StringFixed(2))
	assert.Equal(t, "0.00", sheet.TotalLiabilities.StringFixed(2))
	assert.True(t, sheet.TotalAssets.Sub(sheet.TotalLiabilities).Equal(sheet.NetWorth))

	// Income and expense heads stay off the sheet.
	for _, line := range append(sheet.Assets, sheet.Liabilities...) {
		assert.NotEqual(t, ledger.GroupOther, line.Account.Group)
	}
}

func TestBalanceSheet_BucketsByGroup(t *testing.T) {
	f := newClosedDayFixture(t)

	sheet, err := f.builder.BalanceSheet(context.Background(), f.febRange(t), reports.StockValuation{})
	require.NoError(t, err)

	byNumber := func(lines []reports.BalanceSheetLine) map[string]string {
		out := make(map[string]string, len(lines))
		for _, l := range lines {
			out[l.Account.AccountNumber] = l.Amount.StringFixed(2)
		}
		return out
	}

	assets := byNumber(sheet.Assets)
	assert.Equal(t, "5300.00", assets["1001"])
	assert.Equal(t, "3000.00", assets["1101"])
	assert.Equal(t, "3700.00", assets["2001"])

	liabilities := byNumber(sheet.Liabilities)
	assert.Contains(t, liabilities, "3001")
}

func TestBalanceSheet_TradingSummary(t *testing.T) {
	// GIVEN: Snapshot sales 13000, admin expense 1000, stock 500 -> 700
	// WHEN: Building the trading summary
	// THEN: gross = 13000 + 700 - 500 = 13200, net = 12200

	f := newClosedDayFixture(t)

	sheet, err := f.builder.BalanceSheet(context.Background(), f.febRange(t), reports.StockValuation{
		Opening: ledger.NewAmount("500.00"),
		Closing: ledger.NewAmount("700.00"),
	})
	require.NoError(t, err)

	trading := sheet.Trading
	assert.Equal(t, "13000.00", trading.TotalSales.StringFixed(2))
	assert.Equal(t, "0.00", trading.TotalPurchase.StringFixed(2))
	assert.Equal(t, "1000.00", trading.AdminExpense.StringFixed(2))
	assert.Equal(t, "13200.00", trading.GrossProfit.StringFixed(2))
	assert.Equal(t, "12200.00", trading.NetProfit.StringFixed(2))
}
