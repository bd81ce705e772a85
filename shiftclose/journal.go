/*
journal.go - Voucher and credit-sale entry

PURPOSE:
  Every money event enters the books here: a voucher or a credit sale is
  validated, given its ledger pair (one Dr, one Cr, equal amounts,
  distinct accounts), and persisted together with the pair atomically.
  This is where the double-entry invariant is enforced on the write path.

CLOSED-SHIFT GUARD:
  Entries tagged to a (date, shift) that has already been closed are
  rejected with AlreadyClosed. Entry forms normally pre-filter closed
  shifts via ClosedShiftIDs; the store check is the backstop.

SEE ALSO:
  - ports.go: ValidateVoucher
  - ledger/store.go: ValidatePair
*/
package shiftclose

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/forecourt/station-ledger/ledger"
)

// Journal records vouchers and credit sales into one store.
type Journal struct {
	store Store
}

func NewJournal(store Store) *Journal {
	return &Journal{store: store}
}

// RecordVoucher validates v, assigns its id and voucher number, posts its
// Dr/Cr pair, and persists both atomically. Returns the stored voucher.
func (j *Journal) RecordVoucher(ctx context.Context, v Voucher) (Voucher, error) {
	if err := ValidateVoucher(v); err != nil {
		return Voucher{}, err
	}

	v.ID = uuid.NewString()
	v.Date = ledger.Day(v.Date)
	v.CreatedAt = time.Now().UTC()
	if v.VoucherNo == "" {
		v.VoucherNo = voucherNo(v.Kind, v.CreatedAt)
	}

	kind := ledger.SourceReceiptVoucher
	if v.Kind == VoucherPayment {
		kind = ledger.SourcePaymentVoucher
	}

	debit := ledger.Transaction{
		AccountID:   v.DebitAccountID,
		Direction:   ledger.Debit,
		Amount:      v.Amount,
		OccurredAt:  v.Date,
		Source:      ledger.SourceRef{Kind: kind, ID: v.ID},
		Description: v.Narration,
		PaymentType: v.PaymentType,
		VoucherNo:   v.VoucherNo,
	}
	credit := debit.Pair(v.CreditAccountID)

	if err := ledger.ValidatePair(debit, credit); err != nil {
		return Voucher{}, err
	}
	return j.store.SaveVoucher(ctx, v, debit, credit)
}

// RecordCreditSale validates s, posts Cr customer / Dr sales income, and
// persists both atomically.
func (j *Journal) RecordCreditSale(ctx context.Context, s CreditSale) (CreditSale, error) {
	if s.Amount.IsNegative() {
		return CreditSale{}, ledger.ErrNegativeAmount
	}
	if s.Scope == "" {
		s.Scope = ScopeFuel
	}
	if s.Scope != ScopeFuel && s.Scope != ScopeOther {
		return CreditSale{}, fmt.Errorf("unknown scope %q", s.Scope)
	}

	s.ID = uuid.NewString()
	s.Date = ledger.Day(s.Date)
	s.CreatedAt = time.Now().UTC()

	credit := ledger.Transaction{
		AccountID:   s.CustomerAccountID,
		Direction:   ledger.Credit,
		Amount:      s.Amount,
		OccurredAt:  s.Date,
		Source:      ledger.SourceRef{Kind: ledger.SourceCreditSale, ID: s.ID},
		Description: s.Narration,
	}
	debit := credit.Pair(s.SalesAccountID)

	if err := ledger.ValidatePair(debit, credit); err != nil {
		return CreditSale{}, err
	}
	return j.store.SaveCreditSale(ctx, s, debit, credit)
}

func voucherNo(kind VoucherKind, at time.Time) string {
	prefix := "RV"
	if kind == VoucherPayment {
		prefix = "PV"
	}
	return fmt.Sprintf("%s-%s-%s", prefix, at.Format("20060102"), uuid.NewString()[:8])
}
