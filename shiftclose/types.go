/*
Package shiftclose freezes a day's operational activity into immutable
per-shift financial snapshots.

PURPOSE:
  A shift (Morning/Evening/Night) accumulates dispenser meter readings,
  ancillary product sales, credit sales and vouchers. Closing the shift
  aggregates all of it into one DailyReading + ShiftClosed snapshot,
  written atomically. Once closed, the (date, shift) pair is frozen:
  no new credit sales or vouchers may target it, and the snapshot is
  never edited - corrections are a new close or an explicit reversal.

KEY CONCEPTS IN THIS FILE (types.go):
  - Shift, Dispenser: operating masters
  - DispenserReading: per-dispenser meter cycle for one shift
  - OtherProductSale: ancillary (non-fuel) sale lines
  - CreditSale, Voucher: money events tagged to a shift
  - DailyReading, ShiftClosed: the immutable snapshot pair

UNIQUENESS INVARIANT:
  At most one ShiftClosed per (close_date, shift_id). The store's unique
  constraint is the concurrency guard; a losing concurrent close fails
  with AlreadyClosed instead of corrupting state.

SEE ALSO:
  - ports.go: Named input ports, validated independently
  - aggregator.go: CloseShift and the derivation rules
  - journal.go: Voucher/credit-sale entry and ledger posting
*/
package shiftclose

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/forecourt/station-ledger/ledger"
)

// =============================================================================
// OPERATING MASTERS
// =============================================================================

// Shift is a scheduled operating window within a day.
type Shift struct {
	ID   int64
	Name string // e.g. "Morning", "Evening", "Night"
}

// Dispenser is one fuel dispenser nozzle with its product and current rate.
type Dispenser struct {
	ID      int64
	Name    string
	Product string
	Unit    string // e.g. "litre"
	Rate    decimal.Decimal
	Active  bool
}

// =============================================================================
// OPERATIONAL RECORDS - Raw per-shift activity
// =============================================================================

// DispenserReading is one dispenser's meter cycle for a (date, shift).
// The start reading carries over from the previous cycle's end; the meter
// test is fuel drawn for calibration and returned to the tank.
type DispenserReading struct {
	ID            int64
	DispenserID   int64
	ShiftID       int64
	Date          time.Time
	ItemRate      decimal.Decimal
	StartReading  decimal.Decimal
	EndReading    decimal.Decimal
	MeterTest     decimal.Decimal
	ShiftClosedID int64 // 0 until captured by a close
}

// NetReading is the metered volume sold: end - start - meter test.
func (r DispenserReading) NetReading() decimal.Decimal {
	return r.EndReading.Sub(r.StartReading).Sub(r.MeterTest)
}

// TotalSale is net volume times rate, at fixed two decimals.
func (r DispenserReading) TotalSale() decimal.Decimal {
	return r.NetReading().Mul(r.ItemRate).Round(ledger.Places)
}

// OtherProductSale is an ancillary (lubricant, gas, shop) sale line for a
// (date, shift).
type OtherProductSale struct {
	ID            int64
	ShiftID       int64
	Date          time.Time
	Product       string
	Unit          string
	ItemRate      decimal.Decimal
	SellQuantity  decimal.Decimal
	ShiftClosedID int64 // 0 until captured by a close
}

// TotalSales is quantity times rate, at fixed two decimals.
func (s OtherProductSale) TotalSales() decimal.Decimal {
	return s.SellQuantity.Mul(s.ItemRate).Round(ledger.Places)
}

// SaleScope says whether a money event settles fuel or ancillary sales.
// The DailyReading keeps the two streams in separate columns.
type SaleScope string

const (
	ScopeFuel  SaleScope = "fuel"
	ScopeOther SaleScope = "other"
)

// CreditSale is a sale on account to a customer, tagged to the shift the
// fuel left the dispenser in. Posting: Cr customer / Dr sales income.
type CreditSale struct {
	ID                string // uuid
	Date              time.Time
	ShiftID           int64
	CustomerAccountID int64
	SalesAccountID    int64
	Scope             SaleScope
	Amount            decimal.Decimal
	VehicleNo         string
	Narration         string
	CreatedAt         time.Time
}

// =============================================================================
// VOUCHERS - Money movement tagged to a shift
// =============================================================================

type VoucherKind string

const (
	VoucherReceipt VoucherKind = "receipt"
	VoucherPayment VoucherKind = "payment"
)

type VoucherPurpose string

const (
	// PurposeSale: a bank/mobile-settled sale taken during the shift.
	PurposeSale VoucherPurpose = "sale"
	// PurposeDueCollection: a customer clearing dues (cash_receive/bank_receive).
	PurposeDueCollection VoucherPurpose = "due_collection"
	// PurposeExpense: an operating payment out of the drawer or bank.
	PurposeExpense VoucherPurpose = "expense"
	// PurposePurchase: payment against fuel/product purchase.
	PurposePurchase VoucherPurpose = "purchase"
	// PurposeOffice: office petty payment. Always cash.
	PurposeOffice VoucherPurpose = "office"
)

// Voucher is one receipt or payment entry. The debit and credit accounts
// are both named explicitly; the posted pair is Dr debit / Cr credit of
// the same amount.
type Voucher struct {
	ID              string // uuid
	VoucherNo       string
	Kind            VoucherKind
	Purpose         VoucherPurpose
	PaymentType     ledger.PaymentType
	Scope           SaleScope // meaningful for PurposeSale only
	Date            time.Time
	ShiftID         int64
	DebitAccountID  int64
	CreditAccountID int64
	Amount          decimal.Decimal
	Narration       string
	CreatedAt       time.Time
}

// =============================================================================
// SNAPSHOT - The immutable output of a close
// =============================================================================

// DailyReading is the per-(date, shift) financial snapshot. Created exactly
// once at close time, read-only thereafter. All amounts are two decimals.
type DailyReading struct {
	ID      int64
	Date    time.Time
	ShiftID int64

	CreditSales      decimal.Decimal
	CreditSalesOther decimal.Decimal
	BankSales        decimal.Decimal
	BankSalesOther   decimal.Decimal
	CashSales        decimal.Decimal
	CashSalesOther   decimal.Decimal

	CashReceive   decimal.Decimal
	BankReceive   decimal.Decimal
	CashPayment   decimal.Decimal
	BankPayment   decimal.Decimal
	OfficePayment decimal.Decimal

	TotalCash      decimal.Decimal
	FinalDueAmount decimal.Decimal
}

// ShiftClosed marks a (close_date, shift_id) pair as frozen and links the
// snapshot to the operational records captured at close time.
type ShiftClosed struct {
	ID             int64
	CloseDate      time.Time
	ShiftID        int64
	DailyReadingID int64
	ReadingIDs     []int64
	OtherSaleIDs   []int64
	ClosedAt       time.Time
}

// Snapshot bundles everything a close writes as one atomic unit: the
// DailyReading, the ShiftClosed row, the captured record ids, and the
// ledger pairs for cash sales. Partial writes must never be observable.
//
// The id slices double as the staleness fence: CommitClose compares them
// against the rows present inside its transaction, so an entry that lands
// between derivation and commit fails the close instead of being silently
// left out of the snapshot.
type Snapshot struct {
	Reading       DailyReading
	ReadingIDs    []int64
	OtherSaleIDs  []int64
	CreditSaleIDs []string
	VoucherIDs    []string
	Pairs         []ledger.Transaction // even length: (Dr, Cr) pairs in order
}
