/*
Package ledger provides the core accounts-and-transactions engine.

PURPOSE:
  This package contains the ground-truth types and algorithms for the
  station's financial ledger: accounts classified by group, an append-only
  transaction log, and the replay algorithm that turns transactions into
  running-balance views. Everything the reporting layer shows is derived
  from these types.

KEY CONCEPTS IN THIS FILE (types.go):
  - Account: A chart-of-accounts entry with a group classification
  - Transaction: An immutable Dr/Cr ledger row
  - Direction: Debit or Credit, with the single authoritative sign rule
  - SourceRef: Polymorphic link back to the originating business event

DESIGN PRINCIPLES:
  1. Immutability: Transactions are never modified, only offset
  2. Precision: Uses decimal.Decimal to avoid floating-point errors
  3. One sign rule: Direction.Apply is the only place Dr/Cr touches a balance
  4. Auditability: Every row carries its source, description, and voucher no

SIGN CONVENTION:
  From the viewpoint of the account holder, a Credit increases the running
  balance and a Debit decreases it. Cash and bank accounts grow on receipts
  (Cr) and shrink on payments (Dr). This mirrors how the books have always
  been read at the counter; it is the inverse of textbook journal signs,
  so posting rules elsewhere in the system are written against THIS rule.

SEE ALSO:
  - replay.go: Running-balance computation from transactions
  - store.go: Persistence interfaces
  - errors.go: Error taxonomy
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Fixed two-decimal amounts
// =============================================================================

// Places is the fixed fractional precision for every amount in the system.
const Places int32 = 2

// NewAmount builds a two-decimal amount from a string such as "1200.50".
// Invalid input yields zero; callers that need the error use decimal directly.
func NewAmount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d.Round(Places)
}

// =============================================================================
// DIRECTION - Dr / Cr
// =============================================================================

type Direction string

const (
	Debit  Direction = "Dr"
	Credit Direction = "Cr"
)

// Valid reports whether d is one of the two known directions.
func (d Direction) Valid() bool { return d == Debit || d == Credit }

// Apply folds an amount into a running balance under the system's sign
// convention: Cr adds, Dr subtracts. This is the ONLY place the rule lives;
// every view renders balances produced here.
func (d Direction) Apply(balance, amount decimal.Decimal) decimal.Decimal {
	if d == Debit {
		return balance.Sub(amount)
	}
	return balance.Add(amount)
}

// Opposite returns the other direction. Used when building balanced pairs.
func (d Direction) Opposite() Direction {
	if d == Debit {
		return Credit
	}
	return Debit
}

// =============================================================================
// ACCOUNT - Chart-of-accounts entry
// =============================================================================

type AccountGroup string

const (
	GroupCashInHand  AccountGroup = "cash_in_hand"
	GroupBankAccount AccountGroup = "bank_account"
	GroupMobileBank  AccountGroup = "mobile_bank"
	GroupCustomer    AccountGroup = "customer"
	GroupSupplier    AccountGroup = "supplier"
	GroupLiability   AccountGroup = "liability"
	GroupAsset       AccountGroup = "asset"
	GroupOther       AccountGroup = "other"
)

// Valid reports whether g is a known account group.
func (g AccountGroup) Valid() bool {
	switch g {
	case GroupCashInHand, GroupBankAccount, GroupMobileBank, GroupCustomer,
		GroupSupplier, GroupLiability, GroupAsset, GroupOther:
		return true
	}
	return false
}

// Account is a chart-of-accounts entry. Accounts referenced by transactions
// are never deleted; they are deactivated instead.
type Account struct {
	ID            int64
	Name          string
	AccountNumber string // unique across the chart
	Group         AccountGroup
	Active        bool
	CreatedAt     time.Time
}

// =============================================================================
// PAYMENT TYPE - Settlement channel of a business event
// =============================================================================

type PaymentType string

const (
	PayCash       PaymentType = "cash"
	PayBank       PaymentType = "bank"
	PayMobileBank PaymentType = "mobile_bank"
)

func (p PaymentType) Valid() bool {
	return p == PayCash || p == PayBank || p == PayMobileBank
}

// =============================================================================
// SOURCE REFERENCE - What business event produced a transaction
// =============================================================================

type SourceKind string

const (
	SourcePaymentVoucher SourceKind = "payment_voucher"
	SourceReceiptVoucher SourceKind = "receipt_voucher"
	SourceSale           SourceKind = "sale"
	SourceCreditSale     SourceKind = "credit_sale"
	SourceShiftClose     SourceKind = "shift_close"
)

// SourceRef links a transaction to its originating record.
type SourceRef struct {
	Kind SourceKind
	ID   string
}

// =============================================================================
// TRANSACTION - Immutable Dr/Cr ledger row
// =============================================================================

// Transaction is one row of the append-only ledger. Rows are created in
// balanced Dr/Cr pairs against two distinct accounts; the replay engine
// works account-by-account and relies on that pairing for the books to
// stay in step, but does not itself enforce it (see AppendPair on Store).
type Transaction struct {
	ID          int64 // assigned by the store, monotonic per insertion
	AccountID   int64
	Direction   Direction
	Amount      decimal.Decimal // non-negative, two decimals
	OccurredAt  time.Time
	Source      SourceRef
	Description string
	PaymentType PaymentType
	VoucherNo   string
}

// Pair builds the balanced counterpart of tx against another account.
// The amount, timestamp, source and narration carry over; only the
// account and direction flip.
func (tx Transaction) Pair(accountID int64) Transaction {
	out := tx
	out.ID = 0
	out.AccountID = accountID
	out.Direction = tx.Direction.Opposite()
	return out
}
