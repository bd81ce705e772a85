package shiftclose_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forecourt/station-ledger/ledger"
	"github.com/forecourt/station-ledger/shiftclose"
	"github.com/forecourt/station-ledger/store/sqlite"
)

// =============================================================================
// TEST FIXTURE
// =============================================================================

type fixture struct {
	store      *sqlite.Store
	aggregator *shiftclose.Aggregator
	journal    *shiftclose.Journal
	engine     *ledger.Engine

	cash     ledger.Account
	bank     ledger.Account
	sales    ledger.Account
	customer ledger.Account
	expense  ledger.Account

	morning   shiftclose.Shift
	dispenser shiftclose.Dispenser
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	f := &fixture{store: store}

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

	f.morning, err = store.SaveShift(ctx, shiftclose.Shift{Name: "Morning"})
	require.NoError(t, err)

	f.dispenser, err = store.SaveDispenser(ctx, shiftclose.Dispenser{
		Name:    "Pump 1",
		Product: "Octane",
		Unit:    "litre",
		Rate:    ledger.NewAmount("130.00"),
		Active:  true,
	})
	require.NoError(t, err)

	f.aggregator = shiftclose.NewAggregator(store, shiftclose.PostingAccounts{
		CashAccountID:  f.cash.ID,
		SalesAccountID: f.sales.ID,
	})
	f.journal = shiftclose.NewJournal(store)
	f.engine = ledger.NewEngine(store)
	return f
}

func (f *fixture) submitReading(t *testing.T, date time.Time, start, end, test string) {
	t.Helper()
	_, err := f.store.SaveDispenserReading(context.Background(), shiftclose.DispenserReading{
		DispenserID:  f.dispenser.ID,
		ShiftID:      f.morning.ID,
		Date:         date,
		ItemRate:     f.dispenser.Rate,
		StartReading: ledger.NewAmount(start),
		EndReading:   ledger.NewAmount(end),
		MeterTest:    ledger.NewAmount(test),
	})
	require.NoError(t, err)
}

func feb(d int) time.Time { return time.Date(2025, time.February, d, 0, 0, 0, 0, time.UTC) }

// =============================================================================
// CLOSE SHIFT - Happy path
// =============================================================================

func TestCloseShift_DerivesSnapshotAndPostsCash(t *testing.T) {
	// GIVEN: Pump 1 sold 100 litres at 130.00 (gross 13000.00), with a
	//        5200.00 credit sale and a 3000.00 bank sale in the same shift
	// WHEN: Closing the shift
	// THEN: cash_sales = 13000 - 5200 - 3000 = 4800.00, posted Cr cash

	f := newFixture(t)
	ctx := context.Background()
	day := feb(1)

	f.submitReading(t, day, "1000", "1100", "0")

	_, err := f.journal.RecordCreditSale(ctx, shiftclose.CreditSale{
		Date:              day,
		ShiftID:           f.morning.ID,
		CustomerAccountID: f.customer.ID,
		SalesAccountID:    f.sales.ID,
		Amount:            ledger.NewAmount("5200.00"),
		VehicleNo:         "DH-1234",
	})
	require.NoError(t, err)

	_, err = f.journal.RecordVoucher(ctx, shiftclose.Voucher{
		Kind:            shiftclose.VoucherReceipt,
		Purpose:         shiftclose.PurposeSale,
		PaymentType:     ledger.PayBank,
		Scope:           shiftclose.ScopeFuel,
		Date:            day,
		ShiftID:         f.morning.ID,
		DebitAccountID:  f.sales.ID,
		CreditAccountID: f.bank.ID,
		Amount:          ledger.NewAmount("3000.00"),
	})
	require.NoError(t, err)

	closed, reading, err := f.aggregator.CloseShift(ctx, day, f.morning.ID)
	require.NoError(t, err)
	require.NotNil(t, closed)
	require.NotNil(t, reading)

	assert.Equal(t, "5200.00", reading.CreditSales.StringFixed(2))
	assert.Equal(t, "3000.00", reading.BankSales.StringFixed(2))
	assert.Equal(t, "4800.00", reading.CashSales.StringFixed(2))
	assert.Equal(t, "4800.00", reading.TotalCash.StringFixed(2))
	assert.Equal(t, "5200.00", reading.FinalDueAmount.StringFixed(2))
	assert.Len(t, closed.ReadingIDs, 1)

	// The close posts exactly one pair: Cr cash / Dr sales for the cash take.
	cashBalance, err := f.engine.BalanceAsOf(ctx, f.cash.ID, day)
	require.NoError(t, err)
	assert.Equal(t, "4800.00", cashBalance.StringFixed(2))
}

func TestCloseShift_AggregationIdentity(t *testing.T) {
	// GIVEN: A closed shift
	// THEN: cash_sales + credit_sales + bank_sales == gross fuel sales

	f := newFixture(t)
	ctx := context.Background()
	day := feb(2)

	f.submitReading(t, day, "500", "650.5", "2.5")
	gross := ledger.NewAmount("148").Mul(f.dispenser.Rate) // (650.5-500-2.5) litres

	_, err := f.journal.RecordCreditSale(ctx, shiftclose.CreditSale{
		Date:              day,
		ShiftID:           f.morning.ID,
		CustomerAccountID: f.customer.ID,
		SalesAccountID:    f.sales.ID,
		Amount:            ledger.NewAmount("4000.00"),
	})
	require.NoError(t, err)

	_, reading, err := f.aggregator.CloseShift(ctx, day, f.morning.ID)
	require.NoError(t, err)

	recombined := reading.CashSales.Add(reading.CreditSales).Add(reading.BankSales)
	assert.True(t, recombined.Equal(gross), "recombined %s != gross %s", recombined, gross)
}

func TestCloseShift_OtherProductSales_SplitFromFuelStream(t *testing.T) {
	// GIVEN: Fuel gross 13000.00 plus 4 lubricants at 650.00 (gross other
	//        2600.00), with a 600.00 other-scope credit sale and a 400.00
	//        other-scope bank sale
	// WHEN: Closing the shift
	// THEN: cash_sales_other = 2600 - 600 - 400 = 1600.00, folded into
	//       total_cash and the single cash posting

	f := newFixture(t)
	ctx := context.Background()
	day := feb(10)

	f.submitReading(t, day, "1000", "1100", "0")

	sale, err := f.store.SaveOtherProductSale(ctx, shiftclose.OtherProductSale{
		ShiftID:      f.morning.ID,
		Date:         day,
		Product:      "Lubricant",
		Unit:         "piece",
		ItemRate:     ledger.NewAmount("650.00"),
		SellQuantity: ledger.NewAmount("4"),
	})
	require.NoError(t, err)

	_, err = f.journal.RecordCreditSale(ctx, shiftclose.CreditSale{
		Date:              day,
		ShiftID:           f.morning.ID,
		CustomerAccountID: f.customer.ID,
		SalesAccountID:    f.sales.ID,
		Scope:             shiftclose.ScopeOther,
		Amount:            ledger.NewAmount("600.00"),
	})
	require.NoError(t, err)

	_, err = f.journal.RecordVoucher(ctx, shiftclose.Voucher{
		Kind:            shiftclose.VoucherReceipt,
		Purpose:         shiftclose.PurposeSale,
		PaymentType:     ledger.PayBank,
		Scope:           shiftclose.ScopeOther,
		Date:            day,
		ShiftID:         f.morning.ID,
		DebitAccountID:  f.sales.ID,
		CreditAccountID: f.bank.ID,
		Amount:          ledger.NewAmount("400.00"),
	})
	require.NoError(t, err)

	closed, reading, err := f.aggregator.CloseShift(ctx, day, f.morning.ID)
	require.NoError(t, err)

	assert.Equal(t, "13000.00", reading.CashSales.StringFixed(2))
	assert.Equal(t, "600.00", reading.CreditSalesOther.StringFixed(2))
	assert.Equal(t, "400.00", reading.BankSalesOther.StringFixed(2))
	assert.Equal(t, "1600.00", reading.CashSalesOther.StringFixed(2))
	assert.Equal(t, "14600.00", reading.TotalCash.StringFixed(2))
	assert.Equal(t, "600.00", reading.FinalDueAmount.StringFixed(2))
	assert.Equal(t, []int64{sale.ID}, closed.OtherSaleIDs)

	// The other stream recombines to its own gross, independent of fuel.
	grossOther := reading.CashSalesOther.Add(reading.CreditSalesOther).Add(reading.BankSalesOther)
	assert.Equal(t, "2600.00", grossOther.StringFixed(2))

	// One combined pair covers both streams' cash take.
	cashBalance, err := f.engine.BalanceAsOf(ctx, f.cash.ID, day)
	require.NoError(t, err)
	assert.Equal(t, "14600.00", cashBalance.StringFixed(2))
}

func TestCloseShift_DrawerShortfall_PostsCashOut(t *testing.T) {
	// GIVEN: Credit sales exceed metered sales (a shortfall)
	// WHEN: Closing
	// THEN: The cash account is debited by the shortfall, not credited

	f := newFixture(t)
	ctx := context.Background()
	day := feb(3)

	f.submitReading(t, day, "100", "110", "0") // gross 1300.00

	_, err := f.journal.RecordCreditSale(ctx, shiftclose.CreditSale{
		Date:              day,
		ShiftID:           f.morning.ID,
		CustomerAccountID: f.customer.ID,
		SalesAccountID:    f.sales.ID,
		Amount:            ledger.NewAmount("2000.00"),
	})
	require.NoError(t, err)

	_, reading, err := f.aggregator.CloseShift(ctx, day, f.morning.ID)
	require.NoError(t, err)
	assert.Equal(t, "-700.00", reading.CashSales.StringFixed(2))

	cashBalance, err := f.engine.BalanceAsOf(ctx, f.cash.ID, day)
	require.NoError(t, err)
	assert.Equal(t, "-700.00", cashBalance.StringFixed(2))
}

// =============================================================================
// CLOSE SHIFT - Failure modes
// =============================================================================

func TestCloseShift_Twice_ReportsAlreadyClosed(t *testing.T) {
	// GIVEN: A shift closed for 2025-02-01
	// WHEN: Closing the same (date, shift) again
	// THEN: AlreadyClosed, and still exactly one DailyReading exists

	f := newFixture(t)
	ctx := context.Background()
	day := feb(1)

	f.submitReading(t, day, "0", "10", "0")

	_, _, err := f.aggregator.CloseShift(ctx, day, f.morning.ID)
	require.NoError(t, err)

	_, _, err = f.aggregator.CloseShift(ctx, day, f.morning.ID)
	require.Error(t, err)
	require.ErrorIs(t, err, ledger.ErrAlreadyClosed)

	var closedErr *ledger.AlreadyClosedError
	require.ErrorAs(t, err, &closedErr)
	assert.Equal(t, f.morning.ID, closedErr.ShiftID)
	assert.Equal(t, day, closedErr.Date)

	readings, err := f.store.DailyReadingsInRange(ctx, ledger.SingleDay(day))
	require.NoError(t, err)
	assert.Len(t, readings, 1)
}

func TestCloseShift_MissingReading_ReportsIncompleteData(t *testing.T) {
	// GIVEN: An active dispenser with no reading submitted for the shift
	// WHEN: Closing
	// THEN: IncompleteData naming the missing dispenser; nothing written

	f := newFixture(t)
	ctx := context.Background()
	day := feb(4)

	_, _, err := f.aggregator.CloseShift(ctx, day, f.morning.ID)
	require.Error(t, err)
	require.ErrorIs(t, err, ledger.ErrIncompleteData)

	var incomplete *ledger.IncompleteDataError
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, []int64{f.dispenser.ID}, incomplete.MissingDispenserIDs)

	closed, err := f.store.GetShiftClosed(ctx, day, f.morning.ID)
	require.NoError(t, err)
	assert.Nil(t, closed)

	balance, err := f.engine.BalanceAsOf(ctx, f.cash.ID, day)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestCloseShift_InactiveDispenser_NotRequired(t *testing.T) {
	// GIVEN: A second, retired dispenser with no reading
	// WHEN: Closing with only the active pump read
	// THEN: The close succeeds

	f := newFixture(t)
	ctx := context.Background()
	day := feb(5)

	_, err := f.store.SaveDispenser(ctx, shiftclose.Dispenser{
		Name:    "Pump 9",
		Product: "Diesel",
		Unit:    "litre",
		Rate:    ledger.NewAmount("109.00"),
		Active:  false,
	})
	require.NoError(t, err)

	f.submitReading(t, day, "0", "50", "0")

	_, _, err = f.aggregator.CloseShift(ctx, day, f.morning.ID)
	require.NoError(t, err)
}

func TestCloseShift_UnknownShift_NotFound(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.aggregator.CloseShift(context.Background(), feb(6), 999)
	require.ErrorIs(t, err, ledger.ErrShiftNotFound)
}

// =============================================================================
// FROZEN SHIFT - Entry rejected after close
// =============================================================================

func TestClosedShift_RejectsLateEntries(t *testing.T) {
	// GIVEN: A closed (date, shift)
	// WHEN: Submitting a reading, voucher or credit sale against it
	// THEN: Each entry fails with AlreadyClosed

	f := newFixture(t)
	ctx := context.Background()
	day := feb(7)

	f.submitReading(t, day, "0", "20", "0")
	_, _, err := f.aggregator.CloseShift(ctx, day, f.morning.ID)
	require.NoError(t, err)

	_, err = f.store.SaveDispenserReading(ctx, shiftclose.DispenserReading{
		DispenserID:  f.dispenser.ID,
		ShiftID:      f.morning.ID,
		Date:         day,
		ItemRate:     f.dispenser.Rate,
		StartReading: ledger.NewAmount("20"),
		EndReading:   ledger.NewAmount("30"),
	})
	assert.ErrorIs(t, err, ledger.ErrAlreadyClosed)

	_, err = f.journal.RecordVoucher(ctx, shiftclose.Voucher{
		Kind:            shiftclose.VoucherPayment,
		Purpose:         shiftclose.PurposeExpense,
		PaymentType:     ledger.PayCash,
		Date:            day,
		ShiftID:         f.morning.ID,
		DebitAccountID:  f.cash.ID,
		CreditAccountID: f.expense.ID,
		Amount:          ledger.NewAmount("100.00"),
	})
	assert.ErrorIs(t, err, ledger.ErrAlreadyClosed)

	_, err = f.journal.RecordCreditSale(ctx, shiftclose.CreditSale{
		Date:              day,
		ShiftID:           f.morning.ID,
		CustomerAccountID: f.customer.ID,
		SalesAccountID:    f.sales.ID,
		Amount:            ledger.NewAmount("500.00"),
	})
	assert.ErrorIs(t, err, ledger.ErrAlreadyClosed)
}

func TestClosedShiftIDs_ExcludesOpenShifts(t *testing.T) {
	// GIVEN: Morning closed, Evening still open on the same date
	// WHEN: Asking for the day's closed shift ids
	// THEN: Only Morning's id comes back

	f := newFixture(t)
	ctx := context.Background()
	day := feb(8)

	evening, err := f.store.SaveShift(ctx, shiftclose.Shift{Name: "Evening"})
	require.NoError(t, err)

	f.submitReading(t, day, "0", "10", "0")
	_, _, err = f.aggregator.CloseShift(ctx, day, f.morning.ID)
	require.NoError(t, err)

	ids, err := f.aggregator.ClosedShiftIDs(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, []int64{f.morning.ID}, ids)
	assert.NotContains(t, ids, evening.ID)
}

// =============================================================================
// DERIVED TOTALS - Full voucher mix
// =============================================================================

func TestCloseShift_FullVoucherMix(t *testing.T) {
	// GIVEN: Gross 13000; credit 5200; bank sale 3000; due collection 1500
	//        in cash; expense 800 in cash; office 200
	// WHEN: Closing
	// THEN: total_cash = 4800 + 1500 - 800 - 200 = 5300.00,
	//       final_due  = 5200 - 1500 = 3700.00

	f := newFixture(t)
	ctx := context.Background()
	day := feb(9)

	f.submitReading(t, day, "2000", "2100", "0")

	_, err := f.journal.RecordCreditSale(ctx, shiftclose.CreditSale{
		Date:              day,
		ShiftID:           f.morning.ID,
		CustomerAccountID: f.customer.ID,
		SalesAccountID:    f.sales.ID,
		Amount:            ledger.NewAmount("5200.00"),
	})
	require.NoError(t, err)

	record := func(v shiftclose.Voucher) {
		v.Date = day
		v.ShiftID = f.morning.ID
		_, err := f.journal.RecordVoucher(ctx, v)
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

	_, reading, err := f.aggregator.CloseShift(ctx, day, f.morning.ID)
	require.NoError(t, err)

	assert.Equal(t, "4800.00", reading.CashSales.StringFixed(2))
	assert.Equal(t, "1500.00", reading.CashReceive.StringFixed(2))
	assert.Equal(t, "800.00", reading.CashPayment.StringFixed(2))
	assert.Equal(t, "200.00", reading.OfficePayment.StringFixed(2))
	assert.Equal(t, "5300.00", reading.TotalCash.StringFixed(2))
	assert.Equal(t, "3700.00", reading.FinalDueAmount.StringFixed(2))
}
