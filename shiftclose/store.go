/*
store.go - Persistence interface for shifts and close snapshots

PURPOSE:
  Defines what the close pipeline needs from the database. One concrete
  store (store/sqlite) implements both this and ledger.Store so that
  CommitClose and voucher posting span both in a single transaction.

IMMUTABILITY:
  DailyReading / ShiftClosed rows are written once by CommitClose and
  never updated or deleted. Operational records gain a shift_closed_id
  link at capture time; that is their only mutation.

SEE ALSO:
  - aggregator.go: The only caller of CommitClose
  - store/sqlite/sqlite.go: Concrete implementation
*/
package shiftclose

import (
	"context"
	"time"

	"github.com/forecourt/station-ledger/ledger"
)

// Store persists shift masters, operational records and close snapshots.
type Store interface {
	// Masters.
	SaveShift(ctx context.Context, s Shift) (Shift, error)
	GetShift(ctx context.Context, id int64) (*Shift, error)
	ListShifts(ctx context.Context) ([]Shift, error)
	SaveDispenser(ctx context.Context, d Dispenser) (Dispenser, error)
	ListDispensers(ctx context.Context, activeOnly bool) ([]Dispenser, error)

	// Operational records for a pending (date, shift).
	SaveDispenserReading(ctx context.Context, r DispenserReading) (DispenserReading, error)
	ReadingsFor(ctx context.Context, date time.Time, shiftID int64) ([]DispenserReading, error)
	SaveOtherProductSale(ctx context.Context, s OtherProductSale) (OtherProductSale, error)
	OtherSalesFor(ctx context.Context, date time.Time, shiftID int64) ([]OtherProductSale, error)

	// Money events. Save methods must reject entries targeting an already
	// closed (date, shift) with AlreadyClosedError, and persist the record
	// together with its ledger pair atomically.
	SaveCreditSale(ctx context.Context, s CreditSale, debit, credit ledger.Transaction) (CreditSale, error)
	CreditSalesFor(ctx context.Context, date time.Time, shiftID int64) ([]CreditSale, error)
	SaveVoucher(ctx context.Context, v Voucher, debit, credit ledger.Transaction) (Voucher, error)
	VouchersFor(ctx context.Context, date time.Time, shiftID int64) ([]Voucher, error)
	VouchersInRange(ctx context.Context, r ledger.DateRange) ([]Voucher, error)

	// Snapshots.
	GetShiftClosed(ctx context.Context, date time.Time, shiftID int64) (*ShiftClosed, error)
	ClosedShiftIDs(ctx context.Context, date time.Time) ([]int64, error)
	DailyReadingsInRange(ctx context.Context, r ledger.DateRange) ([]DailyReading, error)

	// CommitClose writes the snapshot as one atomic unit: DailyReading,
	// ShiftClosed, capture links, and the ledger pairs. The unique
	// (close_date, shift_id) constraint is the concurrency guard; a
	// duplicate commit fails with AlreadyClosedError. Rows present for the
	// (date, shift) but absent from the snapshot's capture lists fail the
	// commit with ErrStaleSnapshot.
	CommitClose(ctx context.Context, snap Snapshot) (*ShiftClosed, error)
}
