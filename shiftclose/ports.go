/*
ports.go - Named input ports for the close pipeline

PURPOSE:
  A close pulls from four heterogeneous sources: dispenser readings,
  other-product sales, credit sales, and vouchers. Each source is an
  explicit port that validates its own records before the atomic commit,
  instead of ad hoc cross-table reads scattered through handlers. A close
  proceeds only once every port has passed.

VALIDATION SPLIT:
  ReadingsPort   completeness (every active dispenser), meter sanity
  OtherSalesPort non-negative quantities and rates
  CreditSalesPort non-negative amounts, scope set
  VouchersPort   kind/purpose consistency, office entries cash-only

SEE ALSO:
  - aggregator.go: Assembles the ports and derives the DailyReading
*/
package shiftclose

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/forecourt/station-ledger/ledger"
)

// =============================================================================
// READINGS PORT
// =============================================================================

// ReadingsPort holds the dispenser readings submitted for a (date, shift).
type ReadingsPort struct {
	Date     time.Time
	ShiftID  int64
	Readings []DispenserReading
}

// Validate checks completeness against the active dispensers and meter
// sanity per reading. Missing dispensers fail the close with IncompleteData.
func (p ReadingsPort) Validate(dispensers []Dispenser) error {
	byDispenser := make(map[int64]DispenserReading, len(p.Readings))
	for _, r := range p.Readings {
		byDispenser[r.DispenserID] = r
	}

	var missing []int64
	for _, d := range dispensers {
		if !d.Active {
			continue
		}
		if _, ok := byDispenser[d.ID]; !ok {
			missing = append(missing, d.ID)
		}
	}
	if len(missing) > 0 {
		return &ledger.IncompleteDataError{Date: p.Date, ShiftID: p.ShiftID, MissingDispenserIDs: missing}
	}

	for _, r := range p.Readings {
		if r.ItemRate.IsNegative() || r.MeterTest.IsNegative() {
			return fmt.Errorf("dispenser %d: %w", r.DispenserID, ledger.ErrNegativeAmount)
		}
		if r.NetReading().IsNegative() {
			return fmt.Errorf("dispenser %d: net reading is negative (end %s, start %s, meter test %s)",
				r.DispenserID, r.EndReading, r.StartReading, r.MeterTest)
		}
	}
	return nil
}

// GrossSales sums total_sale across all readings.
func (p ReadingsPort) GrossSales() decimal.Decimal {
	total := decimal.Zero
	for _, r := range p.Readings {
		total = total.Add(r.TotalSale())
	}
	return total
}

// IDs returns the reading ids being captured by the close.
func (p ReadingsPort) IDs() []int64 {
	ids := make([]int64, len(p.Readings))
	for i, r := range p.Readings {
		ids[i] = r.ID
	}
	return ids
}

// =============================================================================
// OTHER SALES PORT
// =============================================================================

// OtherSalesPort holds the ancillary product sale lines for a (date, shift).
type OtherSalesPort struct {
	Date    time.Time
	ShiftID int64
	Sales   []OtherProductSale
}

func (p OtherSalesPort) Validate() error {
	for _, s := range p.Sales {
		if s.ItemRate.IsNegative() || s.SellQuantity.IsNegative() {
			return fmt.Errorf("other sale %q: %w", s.Product, ledger.ErrNegativeAmount)
		}
	}
	return nil
}

// GrossSales sums total_sales across all lines.
func (p OtherSalesPort) GrossSales() decimal.Decimal {
	total := decimal.Zero
	for _, s := range p.Sales {
		total = total.Add(s.TotalSales())
	}
	return total
}

func (p OtherSalesPort) IDs() []int64 {
	ids := make([]int64, len(p.Sales))
	for i, s := range p.Sales {
		ids[i] = s.ID
	}
	return ids
}

// =============================================================================
// CREDIT SALES PORT
// =============================================================================

// CreditSalesPort holds the credit sales tagged to the (date, shift).
type CreditSalesPort struct {
	Date    time.Time
	ShiftID int64
	Sales   []CreditSale
}

func (p CreditSalesPort) Validate() error {
	for _, s := range p.Sales {
		if s.Amount.IsNegative() {
			return fmt.Errorf("credit sale %s: %w", s.ID, ledger.ErrNegativeAmount)
		}
		if s.Scope != ScopeFuel && s.Scope != ScopeOther {
			return fmt.Errorf("credit sale %s: unknown scope %q", s.ID, s.Scope)
		}
	}
	return nil
}

// IDs returns the credit sale ids being captured by the close.
func (p CreditSalesPort) IDs() []string {
	ids := make([]string, len(p.Sales))
	for i, s := range p.Sales {
		ids[i] = s.ID
	}
	return ids
}

// Total sums amounts for the given scope.
func (p CreditSalesPort) Total(scope SaleScope) decimal.Decimal {
	total := decimal.Zero
	for _, s := range p.Sales {
		if s.Scope == scope {
			total = total.Add(s.Amount)
		}
	}
	return total
}

// =============================================================================
// VOUCHERS PORT
// =============================================================================

// VouchersPort holds the vouchers tagged to the (date, shift).
type VouchersPort struct {
	Date     time.Time
	ShiftID  int64
	Vouchers []Voucher
}

func (p VouchersPort) Validate() error {
	for _, v := range p.Vouchers {
		if err := ValidateVoucher(v); err != nil {
			return fmt.Errorf("voucher %s: %w", v.ID, err)
		}
	}
	return nil
}

// IDs returns the voucher ids being captured by the close.
func (p VouchersPort) IDs() []string {
	ids := make([]string, len(p.Vouchers))
	for i, v := range p.Vouchers {
		ids[i] = v.ID
	}
	return ids
}

// sum adds amounts of vouchers matching the filter.
func (p VouchersPort) sum(match func(Voucher) bool) decimal.Decimal {
	total := decimal.Zero
	for _, v := range p.Vouchers {
		if match(v) {
			total = total.Add(v.Amount)
		}
	}
	return total
}

// BankSales sums bank/mobile-settled sale receipts for the scope.
func (p VouchersPort) BankSales(scope SaleScope) decimal.Decimal {
	return p.sum(func(v Voucher) bool {
		return v.Kind == VoucherReceipt && v.Purpose == PurposeSale &&
			v.Scope == scope && v.PaymentType != ledger.PayCash
	})
}

// Receives sums due collections by settlement channel. cash=true selects
// cash collections, cash=false selects bank and mobile-bank together.
func (p VouchersPort) Receives(cash bool) decimal.Decimal {
	return p.sum(func(v Voucher) bool {
		return v.Kind == VoucherReceipt && v.Purpose == PurposeDueCollection &&
			(v.PaymentType == ledger.PayCash) == cash
	})
}

// Payments sums expense and purchase payments by settlement channel.
func (p VouchersPort) Payments(cash bool) decimal.Decimal {
	return p.sum(func(v Voucher) bool {
		return v.Kind == VoucherPayment &&
			(v.Purpose == PurposeExpense || v.Purpose == PurposePurchase) &&
			(v.PaymentType == ledger.PayCash) == cash
	})
}

// OfficePayments sums office petty payments. Office vouchers are cash-only.
func (p VouchersPort) OfficePayments() decimal.Decimal {
	return p.sum(func(v Voucher) bool {
		return v.Kind == VoucherPayment && v.Purpose == PurposeOffice
	})
}

// ValidateVoucher checks a single voucher's internal consistency. Shared by
// the entry path (journal.go) and the port re-validation before a close.
func ValidateVoucher(v Voucher) error {
	if v.Amount.IsNegative() {
		return ledger.ErrNegativeAmount
	}
	if !v.PaymentType.Valid() {
		return fmt.Errorf("unknown payment type %q", v.PaymentType)
	}
	if v.DebitAccountID == v.CreditAccountID {
		return ledger.ErrUnbalancedEntry
	}
	switch v.Kind {
	case VoucherReceipt:
		if v.Purpose != PurposeSale && v.Purpose != PurposeDueCollection {
			return fmt.Errorf("receipt voucher cannot have purpose %q", v.Purpose)
		}
		if v.Purpose == PurposeSale && v.Scope != ScopeFuel && v.Scope != ScopeOther {
			return fmt.Errorf("sale voucher needs a fuel/other scope")
		}
		if v.Purpose == PurposeSale && v.PaymentType == ledger.PayCash {
			// Cash sales are derived at close time, not entered as vouchers.
			return fmt.Errorf("cash sales are captured by the shift close, not vouchers")
		}
	case VoucherPayment:
		switch v.Purpose {
		case PurposeExpense, PurposePurchase:
		case PurposeOffice:
			if v.PaymentType != ledger.PayCash {
				return fmt.Errorf("office payments are cash-only")
			}
		default:
			return fmt.Errorf("payment voucher cannot have purpose %q", v.Purpose)
		}
	default:
		return fmt.Errorf("unknown voucher kind %q", v.Kind)
	}
	return nil
}
