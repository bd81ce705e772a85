/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements ledger.Store and shiftclose.Store on one database handle so
  that a shift close or a voucher entry can write its business record and
  its ledger rows inside a single transaction. In production the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

APPEND-ONLY ENFORCEMENT:
  No UPDATE or DELETE statements touch the transactions, daily_readings
  or shift_closed tables. The only mutation of operational records is
  stamping shift_closed_id at capture time.

KEY TABLES:
  accounts            chart of accounts (deactivated, never deleted)
  transactions        immutable Dr/Cr ledger rows
  shifts, dispensers  operating masters
  dispenser_readings  per-shift meter cycles
  other_product_sales ancillary sale lines
  credit_sales        on-account sales, posted at entry
  vouchers            receipts/payments, posted at entry
  daily_readings      per-(date, shift) snapshot, written once
  shift_closed        close markers; UNIQUE(close_date, shift_id)

CONCURRENCY:
  The UNIQUE(close_date, shift_id) index is the concurrency guard for
  closes: of two racing commits exactly one lands, the other surfaces
  AlreadyClosed. WAL mode keeps readers from blocking the single writer,
  so a ledger query never observes a half-written close.

USAGE:
  st, err := sqlite.New("./data/station.db")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - ledger/store.go, shiftclose/store.go: Interface definitions
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/forecourt/station-ledger/ledger"
	"github.com/forecourt/station-ledger/shiftclose"
)

const dayFormat = "2006-01-02"

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Chart of accounts
	CREATE TABLE IF NOT EXISTS accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		account_number TEXT NOT NULL UNIQUE,
		account_group TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_accounts_group ON accounts(account_group);

	-- Transactions (append-only ledger). The id tie-breaks same-instant
	-- rows so replay order is deterministic.
	CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id INTEGER NOT NULL REFERENCES accounts(id),
		direction TEXT NOT NULL CHECK (direction IN ('Dr', 'Cr')),
		amount TEXT NOT NULL,
		occurred_at TEXT NOT NULL,
		source_kind TEXT NOT NULL,
		source_id TEXT NOT NULL,
		description TEXT,
		payment_type TEXT,
		voucher_no TEXT,
		created_at TEXT NOT NULL
	);

	-- Hot path: windowed replay per account.
	CREATE INDEX IF NOT EXISTS idx_transactions_account_date
		ON transactions(account_id, occurred_at, id);
	CREATE INDEX IF NOT EXISTS idx_transactions_source
		ON transactions(source_kind, source_id);

	-- Operating masters
	CREATE TABLE IF NOT EXISTS shifts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS dispensers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		product TEXT NOT NULL,
		unit TEXT NOT NULL,
		rate TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1
	);

	-- Operational records
	CREATE TABLE IF NOT EXISTS dispenser_readings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		dispenser_id INTEGER NOT NULL REFERENCES dispensers(id),
		shift_id INTEGER NOT NULL REFERENCES shifts(id),
		date TEXT NOT NULL,
		item_rate TEXT NOT NULL,
		start_reading TEXT NOT NULL,
		end_reading TEXT NOT NULL,
		meter_test TEXT NOT NULL,
		shift_closed_id INTEGER REFERENCES shift_closed(id)
	);

	-- One meter cycle per dispenser per (date, shift).
	CREATE UNIQUE INDEX IF NOT EXISTS idx_readings_unique
		ON dispenser_readings(dispenser_id, date, shift_id);
	CREATE INDEX IF NOT EXISTS idx_readings_date_shift
		ON dispenser_readings(date, shift_id);

	CREATE TABLE IF NOT EXISTS other_product_sales (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		shift_id INTEGER NOT NULL REFERENCES shifts(id),
		date TEXT NOT NULL,
		product TEXT NOT NULL,
		unit TEXT NOT NULL,
		item_rate TEXT NOT NULL,
		sell_quantity TEXT NOT NULL,
		shift_closed_id INTEGER REFERENCES shift_closed(id)
	);

	CREATE INDEX IF NOT EXISTS idx_other_sales_date_shift
		ON other_product_sales(date, shift_id);

	CREATE TABLE IF NOT EXISTS credit_sales (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		shift_id INTEGER NOT NULL REFERENCES shifts(id),
		customer_account_id INTEGER NOT NULL REFERENCES accounts(id),
		sales_account_id INTEGER NOT NULL REFERENCES accounts(id),
		scope TEXT NOT NULL,
		amount TEXT NOT NULL,
		vehicle_no TEXT,
		narration TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_credit_sales_date_shift
		ON credit_sales(date, shift_id);

	CREATE TABLE IF NOT EXISTS vouchers (
		id TEXT PRIMARY KEY,
		voucher_no TEXT NOT NULL,
		kind TEXT NOT NULL,
		purpose TEXT NOT NULL,
		payment_type TEXT NOT NULL,
		scope TEXT,
		date TEXT NOT NULL,
		shift_id INTEGER NOT NULL REFERENCES shifts(id),
		debit_account_id INTEGER NOT NULL REFERENCES accounts(id),
		credit_account_id INTEGER NOT NULL REFERENCES accounts(id),
		amount TEXT NOT NULL,
		narration TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_vouchers_date_shift
		ON vouchers(date, shift_id);
	CREATE INDEX IF NOT EXISTS idx_vouchers_date
		ON vouchers(date);

	-- Snapshots. Written once per (date, shift), never updated.
	CREATE TABLE IF NOT EXISTS daily_readings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		date TEXT NOT NULL,
		shift_id INTEGER NOT NULL REFERENCES shifts(id),
		credit_sales TEXT NOT NULL,
		credit_sales_other TEXT NOT NULL,
		bank_sales TEXT NOT NULL,
		bank_sales_other TEXT NOT NULL,
		cash_sales TEXT NOT NULL,
		cash_sales_other TEXT NOT NULL,
		cash_receive TEXT NOT NULL,
		bank_receive TEXT NOT NULL,
		cash_payment TEXT NOT NULL,
		bank_payment TEXT NOT NULL,
		office_payment TEXT NOT NULL,
		total_cash TEXT NOT NULL,
		final_due_amount TEXT NOT NULL,
		UNIQUE(date, shift_id)
	);

	-- CRITICAL: the unique pair below is the concurrency guard for closes.
	CREATE TABLE IF NOT EXISTS shift_closed (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		close_date TEXT NOT NULL,
		shift_id INTEGER NOT NULL REFERENCES shifts(id),
		daily_reading_id INTEGER NOT NULL REFERENCES daily_readings(id),
		closed_at TEXT NOT NULL,
		UNIQUE(close_date, shift_id)
	);

	CREATE INDEX IF NOT EXISTS idx_shift_closed_date ON shift_closed(close_date);
	`

	_, err := s.db.Exec(schema)
	return err
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// ACCOUNTS (ledger.Store)
// =============================================================================

// SaveAccount inserts an account, or updates its name and group when the
// account number already exists.
func (s *Store) SaveAccount(ctx context.Context, a ledger.Account) (ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !a.Group.Valid() {
		return ledger.Account{}, fmt.Errorf("unknown account group %q", a.Group)
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	a.Active = true

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (name, account_number, account_group, active, created_at)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT(account_number) DO UPDATE SET
			name = excluded.name,
			account_group = excluded.account_group,
			active = 1
	`, a.Name, a.AccountNumber, string(a.Group), a.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return ledger.Account{}, fmt.Errorf("failed to save account: %w", err)
	}

	// Upserts do not report the row id reliably; read it back by number.
	err = s.db.QueryRowContext(ctx,
		"SELECT id FROM accounts WHERE account_number = ?", a.AccountNumber,
	).Scan(&a.ID)
	if err != nil {
		return ledger.Account{}, err
	}
	return a, nil
}

func (s *Store) GetAccount(ctx context.Context, id int64) (*ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		a         ledger.Account
		group     string
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, account_number, account_group, active, created_at FROM accounts WHERE id = ?",
		id,
	).Scan(&a.ID, &a.Name, &a.AccountNumber, &group, &a.Active, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.Group = ledger.AccountGroup(group)
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &a, nil
}

func (s *Store) ListAccounts(ctx context.Context, group ledger.AccountGroup) ([]ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT id, name, account_number, account_group, active, created_at FROM accounts"
	var args []any
	if group != "" {
		query += " WHERE account_group = ?"
		args = append(args, string(group))
	}
	query += " ORDER BY account_number"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []ledger.Account
	for rows.Next() {
		var (
			a         ledger.Account
			g         string
			createdAt string
		)
		if err := rows.Scan(&a.ID, &a.Name, &a.AccountNumber, &g, &a.Active, &createdAt); err != nil {
			return nil, err
		}
		a.Group = ledger.AccountGroup(g)
		a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// DeactivateAccount flags an account inactive. Accounts referenced by
// transactions are never deleted.
func (s *Store) DeactivateAccount(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "UPDATE accounts SET active = 0 WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &ledger.AccountNotFoundError{AccountID: id}
	}
	return nil
}

// =============================================================================
// TRANSACTIONS (ledger.Store, append-only)
// =============================================================================

func (s *Store) appendTx(ctx context.Context, db execer, tx ledger.Transaction) (int64, error) {
	if tx.Amount.IsNegative() {
		return 0, ledger.ErrNegativeAmount
	}
	if !tx.Direction.Valid() {
		return 0, fmt.Errorf("unknown direction %q", tx.Direction)
	}

	res, err := db.ExecContext(ctx, `
		INSERT INTO transactions
		(account_id, direction, amount, occurred_at, source_kind, source_id,
		 description, payment_type, voucher_no, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		tx.AccountID,
		string(tx.Direction),
		tx.Amount.StringFixed(ledger.Places),
		tx.OccurredAt.UTC().Format(time.RFC3339),
		string(tx.Source.Kind),
		tx.Source.ID,
		tx.Description,
		string(tx.PaymentType),
		tx.VoucherNo,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to append transaction: %w", err)
	}
	return res.LastInsertId()
}

func (s *Store) Append(ctx context.Context, tx ledger.Transaction) (ledger.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.appendTx(ctx, s.db, tx)
	if err != nil {
		return ledger.Transaction{}, err
	}
	tx.ID = id
	return tx, nil
}

// AppendPair persists a balanced Dr/Cr pair atomically.
func (s *Store) AppendPair(ctx context.Context, debit, credit ledger.Transaction) error {
	if err := ledger.ValidatePair(debit, credit); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if _, err := s.appendTx(ctx, sqlTx, debit); err != nil {
		return err
	}
	if _, err := s.appendTx(ctx, sqlTx, credit); err != nil {
		return err
	}
	return sqlTx.Commit()
}

const txColumns = `id, account_id, direction, amount, occurred_at, source_kind,
	source_id, description, payment_type, voucher_no`

func (s *Store) TransactionsInRange(ctx context.Context, accountID int64, r ledger.DateRange) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT ` + txColumns + `
		FROM transactions
		WHERE account_id = ? AND occurred_at >= ? AND occurred_at < ?
		ORDER BY occurred_at ASC, id ASC
	`
	return s.queryTransactions(ctx, query, accountID,
		r.Start.Format(time.RFC3339), r.ExclusiveEnd().Format(time.RFC3339))
}

func (s *Store) TransactionsThrough(ctx context.Context, accountID int64, end time.Time) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT ` + txColumns + `
		FROM transactions
		WHERE account_id = ? AND occurred_at < ?
		ORDER BY occurred_at ASC, id ASC
	`
	cutoff := ledger.Day(end).AddDate(0, 0, 1)
	return s.queryTransactions(ctx, query, accountID, cutoff.Format(time.RFC3339))
}

func (s *Store) queryTransactions(ctx context.Context, query string, args ...any) ([]ledger.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []ledger.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}

func scanTransaction(rows *sql.Rows) (ledger.Transaction, error) {
	var (
		tx          ledger.Transaction
		direction   string
		amount      string
		occurredAt  string
		sourceKind  string
		description sql.NullString
		paymentType sql.NullString
		voucherNo   sql.NullString
	)
	err := rows.Scan(&tx.ID, &tx.AccountID, &direction, &amount, &occurredAt,
		&sourceKind, &tx.Source.ID, &description, &paymentType, &voucherNo)
	if err != nil {
		return tx, fmt.Errorf("failed to scan transaction: %w", err)
	}

	tx.Direction = ledger.Direction(direction)
	tx.Amount = parseDecimal(amount)
	tx.OccurredAt, _ = time.Parse(time.RFC3339, occurredAt)
	tx.Source.Kind = ledger.SourceKind(sourceKind)
	tx.Description = description.String
	tx.PaymentType = ledger.PaymentType(paymentType.String)
	tx.VoucherNo = voucherNo.String
	return tx, nil
}

// =============================================================================
// SHIFT AND DISPENSER MASTERS (shiftclose.Store)
// =============================================================================

func (s *Store) SaveShift(ctx context.Context, sh shiftclose.Shift) (shiftclose.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shifts (name) VALUES (?)
		ON CONFLICT(name) DO NOTHING
	`, sh.Name)
	if err != nil {
		return shiftclose.Shift{}, err
	}
	err = s.db.QueryRowContext(ctx, "SELECT id FROM shifts WHERE name = ?", sh.Name).Scan(&sh.ID)
	return sh, err
}

func (s *Store) GetShift(ctx context.Context, id int64) (*shiftclose.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sh shiftclose.Shift
	err := s.db.QueryRowContext(ctx, "SELECT id, name FROM shifts WHERE id = ?", id).
		Scan(&sh.ID, &sh.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sh, nil
}

func (s *Store) ListShifts(ctx context.Context) ([]shiftclose.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM shifts ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shifts []shiftclose.Shift
	for rows.Next() {
		var sh shiftclose.Shift
		if err := rows.Scan(&sh.ID, &sh.Name); err != nil {
			return nil, err
		}
		shifts = append(shifts, sh)
	}
	return shifts, rows.Err()
}

func (s *Store) SaveDispenser(ctx context.Context, d shiftclose.Dispenser) (shiftclose.Dispenser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.ID == 0 {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO dispensers (name, product, unit, rate, active)
			VALUES (?, ?, ?, ?, 1)
		`, d.Name, d.Product, d.Unit, d.Rate.String())
		if err != nil {
			return shiftclose.Dispenser{}, err
		}
		d.ID, err = res.LastInsertId()
		if err != nil {
			return shiftclose.Dispenser{}, err
		}
		d.Active = true
		return d, nil
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE dispensers SET name = ?, product = ?, unit = ?, rate = ?, active = ?
		WHERE id = ?
	`, d.Name, d.Product, d.Unit, d.Rate.String(), d.Active, d.ID)
	return d, err
}

func (s *Store) ListDispensers(ctx context.Context, activeOnly bool) ([]shiftclose.Dispenser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT id, name, product, unit, rate, active FROM dispensers"
	if activeOnly {
		query += " WHERE active = 1"
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dispensers []shiftclose.Dispenser
	for rows.Next() {
		var (
			d    shiftclose.Dispenser
			rate string
		)
		if err := rows.Scan(&d.ID, &d.Name, &d.Product, &d.Unit, &rate, &d.Active); err != nil {
			return nil, err
		}
		d.Rate = parseDecimal(rate)
		dispensers = append(dispensers, d)
	}
	return dispensers, rows.Err()
}

// =============================================================================
// OPERATIONAL RECORDS (shiftclose.Store)
// =============================================================================

// SaveDispenserReading upserts the meter cycle for (dispenser, date, shift)
// while the shift is still open. Rejected once the shift is closed.
func (s *Store) SaveDispenserReading(ctx context.Context, r shiftclose.DispenserReading) (shiftclose.DispenserReading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	closed, err := s.isClosed(ctx, s.db, r.Date, r.ShiftID)
	if err != nil {
		return shiftclose.DispenserReading{}, err
	}
	if closed {
		return shiftclose.DispenserReading{}, &ledger.AlreadyClosedError{Date: ledger.Day(r.Date), ShiftID: r.ShiftID}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO dispenser_readings
		(dispenser_id, shift_id, date, item_rate, start_reading, end_reading, meter_test)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(dispenser_id, date, shift_id) DO UPDATE SET
			item_rate = excluded.item_rate,
			start_reading = excluded.start_reading,
			end_reading = excluded.end_reading,
			meter_test = excluded.meter_test
	`,
		r.DispenserID, r.ShiftID, ledger.Day(r.Date).Format(dayFormat),
		r.ItemRate.String(), r.StartReading.String(), r.EndReading.String(), r.MeterTest.String(),
	)
	if err != nil {
		return shiftclose.DispenserReading{}, err
	}

	err = s.db.QueryRowContext(ctx,
		"SELECT id FROM dispenser_readings WHERE dispenser_id = ? AND date = ? AND shift_id = ?",
		r.DispenserID, ledger.Day(r.Date).Format(dayFormat), r.ShiftID,
	).Scan(&r.ID)
	return r, err
}

func (s *Store) ReadingsFor(ctx context.Context, date time.Time, shiftID int64) ([]shiftclose.DispenserReading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, dispenser_id, shift_id, date, item_rate, start_reading, end_reading,
		       meter_test, COALESCE(shift_closed_id, 0)
		FROM dispenser_readings
		WHERE date = ? AND shift_id = ?
		ORDER BY dispenser_id
	`, ledger.Day(date).Format(dayFormat), shiftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []shiftclose.DispenserReading
	for rows.Next() {
		var (
			r                                shiftclose.DispenserReading
			day, rate, start, end, meterTest string
		)
		if err := rows.Scan(&r.ID, &r.DispenserID, &r.ShiftID, &day, &rate, &start,
			&end, &meterTest, &r.ShiftClosedID); err != nil {
			return nil, err
		}
		r.Date, _ = time.Parse(dayFormat, day)
		r.ItemRate = parseDecimal(rate)
		r.StartReading = parseDecimal(start)
		r.EndReading = parseDecimal(end)
		r.MeterTest = parseDecimal(meterTest)
		readings = append(readings, r)
	}
	return readings, rows.Err()
}

func (s *Store) SaveOtherProductSale(ctx context.Context, o shiftclose.OtherProductSale) (shiftclose.OtherProductSale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	closed, err := s.isClosed(ctx, s.db, o.Date, o.ShiftID)
	if err != nil {
		return shiftclose.OtherProductSale{}, err
	}
	if closed {
		return shiftclose.OtherProductSale{}, &ledger.AlreadyClosedError{Date: ledger.Day(o.Date), ShiftID: o.ShiftID}
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO other_product_sales (shift_id, date, product, unit, item_rate, sell_quantity)
		VALUES (?, ?, ?, ?, ?, ?)
	`, o.ShiftID, ledger.Day(o.Date).Format(dayFormat), o.Product, o.Unit,
		o.ItemRate.String(), o.SellQuantity.String())
	if err != nil {
		return shiftclose.OtherProductSale{}, err
	}
	o.ID, err = res.LastInsertId()
	return o, err
}

func (s *Store) OtherSalesFor(ctx context.Context, date time.Time, shiftID int64) ([]shiftclose.OtherProductSale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, shift_id, date, product, unit, item_rate, sell_quantity,
		       COALESCE(shift_closed_id, 0)
		FROM other_product_sales
		WHERE date = ? AND shift_id = ?
		ORDER BY id
	`, ledger.Day(date).Format(dayFormat), shiftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sales []shiftclose.OtherProductSale
	for rows.Next() {
		var (
			o              shiftclose.OtherProductSale
			day, rate, qty string
		)
		if err := rows.Scan(&o.ID, &o.ShiftID, &day, &o.Product, &o.Unit, &rate, &qty,
			&o.ShiftClosedID); err != nil {
			return nil, err
		}
		o.Date, _ = time.Parse(dayFormat, day)
		o.ItemRate = parseDecimal(rate)
		o.SellQuantity = parseDecimal(qty)
		sales = append(sales, o)
	}
	return sales, rows.Err()
}

// =============================================================================
// MONEY EVENTS (shiftclose.Store) - record plus ledger pair, atomic
// =============================================================================

func (s *Store) SaveCreditSale(ctx context.Context, cs shiftclose.CreditSale, debit, credit ledger.Transaction) (shiftclose.CreditSale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return shiftclose.CreditSale{}, err
	}
	defer sqlTx.Rollback()

	closed, err := s.isClosed(ctx, sqlTx, cs.Date, cs.ShiftID)
	if err != nil {
		return shiftclose.CreditSale{}, err
	}
	if closed {
		return shiftclose.CreditSale{}, &ledger.AlreadyClosedError{Date: ledger.Day(cs.Date), ShiftID: cs.ShiftID}
	}

	_, err = sqlTx.ExecContext(ctx, `
		INSERT INTO credit_sales
		(id, date, shift_id, customer_account_id, sales_account_id, scope,
		 amount, vehicle_no, narration, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		cs.ID, ledger.Day(cs.Date).Format(dayFormat), cs.ShiftID,
		cs.CustomerAccountID, cs.SalesAccountID, string(cs.Scope),
		cs.Amount.StringFixed(ledger.Places), cs.VehicleNo, cs.Narration,
		cs.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return shiftclose.CreditSale{}, fmt.Errorf("failed to save credit sale: %w", err)
	}

	if _, err := s.appendTx(ctx, sqlTx, debit); err != nil {
		return shiftclose.CreditSale{}, err
	}
	if _, err := s.appendTx(ctx, sqlTx, credit); err != nil {
		return shiftclose.CreditSale{}, err
	}
	return cs, sqlTx.Commit()
}

func (s *Store) CreditSalesFor(ctx context.Context, date time.Time, shiftID int64) ([]shiftclose.CreditSale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, shift_id, customer_account_id, sales_account_id, scope,
		       amount, COALESCE(vehicle_no, ''), COALESCE(narration, ''), created_at
		FROM credit_sales
		WHERE date = ? AND shift_id = ?
		ORDER BY created_at, id
	`, ledger.Day(date).Format(dayFormat), shiftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCreditSales(rows)
}

func scanCreditSales(rows *sql.Rows) ([]shiftclose.CreditSale, error) {
	var sales []shiftclose.CreditSale
	for rows.Next() {
		var (
			cs                     shiftclose.CreditSale
			day, scope, amount, at string
		)
		if err := rows.Scan(&cs.ID, &day, &cs.ShiftID, &cs.CustomerAccountID,
			&cs.SalesAccountID, &scope, &amount, &cs.VehicleNo, &cs.Narration, &at); err != nil {
			return nil, err
		}
		cs.Date, _ = time.Parse(dayFormat, day)
		cs.Scope = shiftclose.SaleScope(scope)
		cs.Amount = parseDecimal(amount)
		cs.CreatedAt, _ = time.Parse(time.RFC3339, at)
		sales = append(sales, cs)
	}
	return sales, rows.Err()
}

func (s *Store) SaveVoucher(ctx context.Context, v shiftclose.Voucher, debit, credit ledger.Transaction) (shiftclose.Voucher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return shiftclose.Voucher{}, err
	}
	defer sqlTx.Rollback()

	closed, err := s.isClosed(ctx, sqlTx, v.Date, v.ShiftID)
	if err != nil {
		return shiftclose.Voucher{}, err
	}
	if closed {
		return shiftclose.Voucher{}, &ledger.AlreadyClosedError{Date: ledger.Day(v.Date), ShiftID: v.ShiftID}
	}

	_, err = sqlTx.ExecContext(ctx, `
		INSERT INTO vouchers
		(id, voucher_no, kind, purpose, payment_type, scope, date, shift_id,
		 debit_account_id, credit_account_id, amount, narration, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		v.ID, v.VoucherNo, string(v.Kind), string(v.Purpose), string(v.PaymentType),
		string(v.Scope), ledger.Day(v.Date).Format(dayFormat), v.ShiftID,
		v.DebitAccountID, v.CreditAccountID, v.Amount.StringFixed(ledger.Places),
		v.Narration, v.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return shiftclose.Voucher{}, fmt.Errorf("failed to save voucher: %w", err)
	}

	if _, err := s.appendTx(ctx, sqlTx, debit); err != nil {
		return shiftclose.Voucher{}, err
	}
	if _, err := s.appendTx(ctx, sqlTx, credit); err != nil {
		return shiftclose.Voucher{}, err
	}
	return v, sqlTx.Commit()
}

const voucherColumns = `id, voucher_no, kind, purpose, payment_type, COALESCE(scope, ''),
	date, shift_id, debit_account_id, credit_account_id, amount,
	COALESCE(narration, ''), created_at`

func (s *Store) VouchersFor(ctx context.Context, date time.Time, shiftID int64) ([]shiftclose.Voucher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+voucherColumns+`
		FROM vouchers
		WHERE date = ? AND shift_id = ?
		ORDER BY created_at, id
	`, ledger.Day(date).Format(dayFormat), shiftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanVouchers(rows)
}

func (s *Store) VouchersInRange(ctx context.Context, r ledger.DateRange) ([]shiftclose.Voucher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+voucherColumns+`
		FROM vouchers
		WHERE date >= ? AND date <= ?
		ORDER BY date, created_at, id
	`, r.Start.Format(dayFormat), r.End.Format(dayFormat))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanVouchers(rows)
}

func scanVouchers(rows *sql.Rows) ([]shiftclose.Voucher, error) {
	var vouchers []shiftclose.Voucher
	for rows.Next() {
		var (
			v                                       shiftclose.Voucher
			kind, purpose, payType, scope, day, amt string
			createdAt                               string
		)
		if err := rows.Scan(&v.ID, &v.VoucherNo, &kind, &purpose, &payType, &scope,
			&day, &v.ShiftID, &v.DebitAccountID, &v.CreditAccountID, &amt,
			&v.Narration, &createdAt); err != nil {
			return nil, err
		}
		v.Kind = shiftclose.VoucherKind(kind)
		v.Purpose = shiftclose.VoucherPurpose(purpose)
		v.PaymentType = ledger.PaymentType(payType)
		v.Scope = shiftclose.SaleScope(scope)
		v.Date, _ = time.Parse(dayFormat, day)
		v.Amount = parseDecimal(amt)
		v.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		vouchers = append(vouchers, v)
	}
	return vouchers, rows.Err()
}

// =============================================================================
// SNAPSHOTS (shiftclose.Store)
// =============================================================================

func (s *Store) isClosed(ctx context.Context, db queryer, date time.Time, shiftID int64) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM shift_closed WHERE close_date = ? AND shift_id = ?",
		ledger.Day(date).Format(dayFormat), shiftID,
	).Scan(&count)
	return count > 0, err
}

func (s *Store) GetShiftClosed(ctx context.Context, date time.Time, shiftID int64) (*shiftclose.ShiftClosed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		sc               shiftclose.ShiftClosed
		closeDate, point string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, close_date, shift_id, daily_reading_id, closed_at
		FROM shift_closed WHERE close_date = ? AND shift_id = ?
	`, ledger.Day(date).Format(dayFormat), shiftID).
		Scan(&sc.ID, &closeDate, &sc.ShiftID, &sc.DailyReadingID, &point)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sc.CloseDate, _ = time.Parse(dayFormat, closeDate)
	sc.ClosedAt, _ = time.Parse(time.RFC3339, point)

	sc.ReadingIDs, err = s.capturedIDs(ctx, "dispenser_readings", sc.ID)
	if err != nil {
		return nil, err
	}
	sc.OtherSaleIDs, err = s.capturedIDs(ctx, "other_product_sales", sc.ID)
	if err != nil {
		return nil, err
	}
	return &sc, nil
}

func (s *Store) capturedIDs(ctx context.Context, table string, shiftClosedID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM "+table+" WHERE shift_closed_id = ? ORDER BY id", shiftClosedID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) ClosedShiftIDs(ctx context.Context, date time.Time) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT shift_id FROM shift_closed WHERE close_date = ? ORDER BY shift_id",
		ledger.Day(date).Format(dayFormat))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) DailyReadingsInRange(ctx context.Context, r ledger.DateRange) ([]shiftclose.DailyReading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, shift_id, credit_sales, credit_sales_other, bank_sales,
		       bank_sales_other, cash_sales, cash_sales_other, cash_receive,
		       bank_receive, cash_payment, bank_payment, office_payment,
		       total_cash, final_due_amount
		FROM daily_readings
		WHERE date >= ? AND date <= ?
		ORDER BY date, shift_id
	`, r.Start.Format(dayFormat), r.End.Format(dayFormat))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []shiftclose.DailyReading
	for rows.Next() {
		var (
			d   shiftclose.DailyReading
			day string
			amt [13]string
		)
		if err := rows.Scan(&d.ID, &day, &d.ShiftID, &amt[0], &amt[1], &amt[2],
			&amt[3], &amt[4], &amt[5], &amt[6], &amt[7], &amt[8], &amt[9],
			&amt[10], &amt[11], &amt[12]); err != nil {
			return nil, err
		}
		d.Date, _ = time.Parse(dayFormat, day)
		d.CreditSales = parseDecimal(amt[0])
		d.CreditSalesOther = parseDecimal(amt[1])
		d.BankSales = parseDecimal(amt[2])
		d.BankSalesOther = parseDecimal(amt[3])
		d.CashSales = parseDecimal(amt[4])
		d.CashSalesOther = parseDecimal(amt[5])
		d.CashReceive = parseDecimal(amt[6])
		d.BankReceive = parseDecimal(amt[7])
		d.CashPayment = parseDecimal(amt[8])
		d.BankPayment = parseDecimal(amt[9])
		d.OfficePayment = parseDecimal(amt[10])
		d.TotalCash = parseDecimal(amt[11])
		d.FinalDueAmount = parseDecimal(amt[12])
		readings = append(readings, d)
	}
	return readings, rows.Err()
}

// CommitClose writes the snapshot as one atomic unit. The unique
// (close_date, shift_id) index settles concurrent closes: the loser
// gets AlreadyClosedError and nothing partial is ever visible.
func (s *Store) CommitClose(ctx context.Context, snap shiftclose.Snapshot) (*shiftclose.ShiftClosed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(snap.Pairs)%2 != 0 {
		return nil, ledger.ErrUnbalancedEntry
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	d := snap.Reading
	day := ledger.Day(d.Date).Format(dayFormat)

	// The ports were loaded outside this transaction. Money events post
	// their ledger pairs at entry time, so a record landing in the gap
	// would leave the snapshot totals out of step with the ledger. Rows
	// for a pending shift are only ever added, so a count compare against
	// the captured ids detects the gap.
	for _, c := range []struct {
		table string
		want  int
	}{
		{"dispenser_readings", len(snap.ReadingIDs)},
		{"other_product_sales", len(snap.OtherSaleIDs)},
		{"credit_sales", len(snap.CreditSaleIDs)},
		{"vouchers", len(snap.VoucherIDs)},
	} {
		var got int
		err := sqlTx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM "+c.table+" WHERE date = ? AND shift_id = ?",
			day, d.ShiftID,
		).Scan(&got)
		if err != nil {
			return nil, err
		}
		if got != c.want {
			return nil, fmt.Errorf("%s gained rows during close of shift %d on %s: %w",
				c.table, d.ShiftID, day, ledger.ErrStaleSnapshot)
		}
	}

	res, err := sqlTx.ExecContext(ctx, `
		INSERT INTO daily_readings
		(date, shift_id, credit_sales, credit_sales_other, bank_sales,
		 bank_sales_other, cash_sales, cash_sales_other, cash_receive,
		 bank_receive, cash_payment, bank_payment, office_payment,
		 total_cash, final_due_amount)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		day, d.ShiftID,
		fixed(d.CreditSales), fixed(d.CreditSalesOther),
		fixed(d.BankSales), fixed(d.BankSalesOther),
		fixed(d.CashSales), fixed(d.CashSalesOther),
		fixed(d.CashReceive), fixed(d.BankReceive),
		fixed(d.CashPayment), fixed(d.BankPayment), fixed(d.OfficePayment),
		fixed(d.TotalCash), fixed(d.FinalDueAmount),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, &ledger.AlreadyClosedError{Date: ledger.Day(d.Date), ShiftID: d.ShiftID}
		}
		return nil, fmt.Errorf("failed to write daily reading: %w", err)
	}
	readingID, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	closedAt := time.Now().UTC()
	res, err = sqlTx.ExecContext(ctx, `
		INSERT INTO shift_closed (close_date, shift_id, daily_reading_id, closed_at)
		VALUES (?, ?, ?, ?)
	`, day, d.ShiftID, readingID, closedAt.Format(time.RFC3339))
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, &ledger.AlreadyClosedError{Date: ledger.Day(d.Date), ShiftID: d.ShiftID}
		}
		return nil, fmt.Errorf("failed to write shift close: %w", err)
	}
	closedID, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	for _, id := range snap.ReadingIDs {
		if _, err := sqlTx.ExecContext(ctx,
			"UPDATE dispenser_readings SET shift_closed_id = ? WHERE id = ?", closedID, id); err != nil {
			return nil, err
		}
	}
	for _, id := range snap.OtherSaleIDs {
		if _, err := sqlTx.ExecContext(ctx,
			"UPDATE other_product_sales SET shift_closed_id = ? WHERE id = ?", closedID, id); err != nil {
			return nil, err
		}
	}

	for i := 0; i+1 < len(snap.Pairs); i += 2 {
		if err := ledger.ValidatePair(snap.Pairs[i], snap.Pairs[i+1]); err != nil {
			return nil, err
		}
		if _, err := s.appendTx(ctx, sqlTx, snap.Pairs[i]); err != nil {
			return nil, err
		}
		if _, err := s.appendTx(ctx, sqlTx, snap.Pairs[i+1]); err != nil {
			return nil, err
		}
	}

	if err := sqlTx.Commit(); err != nil {
		return nil, err
	}

	return &shiftclose.ShiftClosed{
		ID:             closedID,
		CloseDate:      ledger.Day(d.Date),
		ShiftID:        d.ShiftID,
		DailyReadingID: readingID,
		ReadingIDs:     snap.ReadingIDs,
		OtherSaleIDs:   snap.OtherSaleIDs,
		ClosedAt:       closedAt,
	}, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func fixed(d decimal.Decimal) string {
	return d.StringFixed(ledger.Places)
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}

var (
	_ ledger.Store     = (*Store)(nil)
	_ shiftclose.Store = (*Store)(nil)
)
