/*
aggregator.go - CloseShift and the snapshot derivation rules

PURPOSE:
  The Shift Close Aggregator consumes the four input ports for a
  (date, shift), derives the DailyReading, and commits the snapshot in
  one atomic write. It is the only code that creates DailyReading /
  ShiftClosed rows.

DERIVATIONS:
  gross_fuel        = sum of dispenser total_sale
  gross_other       = sum of other-product total_sales
  cash_sales        = gross_fuel  - credit_sales       - bank_sales
  cash_sales_other  = gross_other - credit_sales_other - bank_sales_other
  total_cash        = cash_sales + cash_sales_other + cash_receive
                      - cash_payment - office_payment
  final_due_amount  = credit_sales + credit_sales_other
                      - cash_receive - bank_receive

POSTING AT CLOSE:
  Credit sales and vouchers post their ledger pairs at entry time, so the
  close posts only what has no earlier entry: the cash taken for sales.
  One pair per close: Cr cash-in-hand / Dr sales income, amount
  cash_sales + cash_sales_other. Everything lands in the same database
  transaction as the snapshot.

FAILURE:
  AlreadyClosed when a snapshot exists for the pair (checked up front and
  again by the store's unique constraint, which settles races).
  IncompleteData when a required dispenser reading is missing.
  StaleSnapshot when an entry lands between the port loads and the
  commit: the store compares the captured ids against its own rows and
  abandons the close, so re-running it picks the entry up. Nothing is
  retried automatically; the operator resolves and resubmits.

SEE ALSO:
  - ports.go: Per-port validation
  - store.go: CommitClose contract
*/
package shiftclose

import (
	"context"
	"fmt"
	"time"

	"github.com/forecourt/station-ledger/ledger"
)

// PostingAccounts names the ledger accounts the close posts against.
// Injected at construction; never read from ambient configuration.
type PostingAccounts struct {
	CashAccountID  int64
	SalesAccountID int64
}

// Aggregator runs shift closes against one store.
type Aggregator struct {
	store    Store
	accounts PostingAccounts
}

func NewAggregator(store Store, accounts PostingAccounts) *Aggregator {
	return &Aggregator{store: store, accounts: accounts}
}

// CloseShift freezes the (date, shift) pair. See the package comment for
// preconditions and failure modes. The returned snapshot includes the
// derived DailyReading.
func (a *Aggregator) CloseShift(ctx context.Context, date time.Time, shiftID int64) (*ShiftClosed, *DailyReading, error) {
	day := ledger.Day(date)

	shift, err := a.store.GetShift(ctx, shiftID)
	if err != nil {
		return nil, nil, err
	}
	if shift == nil {
		return nil, nil, ledger.ErrShiftNotFound
	}

	existing, err := a.store.GetShiftClosed(ctx, day, shiftID)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil {
		return nil, nil, &ledger.AlreadyClosedError{Date: day, ShiftID: shiftID}
	}

	readingsPort, otherPort, creditPort, voucherPort, err := a.loadPorts(ctx, day, shiftID)
	if err != nil {
		return nil, nil, err
	}

	dispensers, err := a.store.ListDispensers(ctx, true)
	if err != nil {
		return nil, nil, err
	}

	// Each port validates independently before anything is written.
	if err := readingsPort.Validate(dispensers); err != nil {
		return nil, nil, err
	}
	if err := otherPort.Validate(); err != nil {
		return nil, nil, err
	}
	if err := creditPort.Validate(); err != nil {
		return nil, nil, err
	}
	if err := voucherPort.Validate(); err != nil {
		return nil, nil, err
	}

	reading := derive(day, shiftID, readingsPort, otherPort, creditPort, voucherPort)

	snap := Snapshot{
		Reading:       reading,
		ReadingIDs:    readingsPort.IDs(),
		OtherSaleIDs:  otherPort.IDs(),
		CreditSaleIDs: creditPort.IDs(),
		VoucherIDs:    voucherPort.IDs(),
		Pairs:         a.closingPairs(reading),
	}

	closed, err := a.store.CommitClose(ctx, snap)
	if err != nil {
		return nil, nil, err
	}
	return closed, &reading, nil
}

// ClosedShiftIDs returns the shift ids already closed on a date, for entry
// forms to exclude from selection.
func (a *Aggregator) ClosedShiftIDs(ctx context.Context, date time.Time) ([]int64, error) {
	return a.store.ClosedShiftIDs(ctx, ledger.Day(date))
}

func (a *Aggregator) loadPorts(ctx context.Context, day time.Time, shiftID int64) (ReadingsPort, OtherSalesPort, CreditSalesPort, VouchersPort, error) {
	var (
		rp = ReadingsPort{Date: day, ShiftID: shiftID}
		op = OtherSalesPort{Date: day, ShiftID: shiftID}
		cp = CreditSalesPort{Date: day, ShiftID: shiftID}
		vp = VouchersPort{Date: day, ShiftID: shiftID}
		err error
	)

	if rp.Readings, err = a.store.ReadingsFor(ctx, day, shiftID); err != nil {
		return rp, op, cp, vp, fmt.Errorf("loading dispenser readings: %w", err)
	}
	if op.Sales, err = a.store.OtherSalesFor(ctx, day, shiftID); err != nil {
		return rp, op, cp, vp, fmt.Errorf("loading other-product sales: %w", err)
	}
	if cp.Sales, err = a.store.CreditSalesFor(ctx, day, shiftID); err != nil {
		return rp, op, cp, vp, fmt.Errorf("loading credit sales: %w", err)
	}
	if vp.Vouchers, err = a.store.VouchersFor(ctx, day, shiftID); err != nil {
		return rp, op, cp, vp, fmt.Errorf("loading vouchers: %w", err)
	}
	return rp, op, cp, vp, nil
}

// derive computes the DailyReading from validated ports. Pure.
func derive(day time.Time, shiftID int64, rp ReadingsPort, op OtherSalesPort, cp CreditSalesPort, vp VouchersPort) DailyReading {
	d := DailyReading{
		Date:    day,
		ShiftID: shiftID,

		CreditSales:      cp.Total(ScopeFuel),
		CreditSalesOther: cp.Total(ScopeOther),
		BankSales:        vp.BankSales(ScopeFuel),
		BankSalesOther:   vp.BankSales(ScopeOther),

		CashReceive:   vp.Receives(true),
		BankReceive:   vp.Receives(false),
		CashPayment:   vp.Payments(true),
		BankPayment:   vp.Payments(false),
		OfficePayment: vp.OfficePayments(),
	}

	d.CashSales = rp.GrossSales().Sub(d.CreditSales).Sub(d.BankSales)
	d.CashSalesOther = op.GrossSales().Sub(d.CreditSalesOther).Sub(d.BankSalesOther)

	d.TotalCash = d.CashSales.Add(d.CashSalesOther).
		Add(d.CashReceive).
		Sub(d.CashPayment).
		Sub(d.OfficePayment)

	d.FinalDueAmount = d.CreditSales.Add(d.CreditSalesOther).
		Sub(d.CashReceive).
		Sub(d.BankReceive)

	return d
}

// closingPairs builds the ledger pairs the close itself must post: the
// cash drawn for fuel and ancillary sales. Zero-amount pairs are omitted.
func (a *Aggregator) closingPairs(d DailyReading) []ledger.Transaction {
	cash := d.CashSales.Add(d.CashSalesOther)
	if cash.IsZero() {
		return nil
	}

	// A drawer shortfall (credit + bank settlements exceeding metered
	// sales) posts as money out of the drawer instead.
	cashIn := true
	if cash.IsNegative() {
		cash = cash.Neg()
		cashIn = false
	}

	ref := ledger.SourceRef{
		Kind: ledger.SourceShiftClose,
		ID:   fmt.Sprintf("%s/%d", d.Date.Format("2006-01-02"), d.ShiftID),
	}
	narration := fmt.Sprintf("Cash sales, shift %d of %s", d.ShiftID, d.Date.Format("2006-01-02"))

	cashLeg := ledger.Transaction{
		AccountID:   a.accounts.CashAccountID,
		Direction:   ledger.Credit,
		Amount:      cash,
		OccurredAt:  d.Date,
		Source:      ref,
		Description: narration,
		PaymentType: ledger.PayCash,
	}
	if !cashIn {
		cashLeg.Direction = ledger.Debit
	}
	other := cashLeg.Pair(a.accounts.SalesAccountID)
	if cashLeg.Direction == ledger.Debit {
		return []ledger.Transaction{cashLeg, other}
	}
	return []ledger.Transaction{other, cashLeg}
}
