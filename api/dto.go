/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

AMOUNTS:
  Every amount crosses the wire as a fixed two-decimal string ("1200.50"),
  never as a float. Dates are YYYY-MM-DD; timestamps are RFC3339.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers and the domain layer, not in DTOs.
  DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - reports/: The domain views these flatten
*/
package api

import (
	"time"

	"github.com/forecourt/station-ledger/ledger"
	"github.com/forecourt/station-ledger/reports"
	"github.com/forecourt/station-ledger/shiftclose"
)

const dayFormat = "2006-01-02"

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// ACCOUNTS
// =============================================================================

type AccountDTO struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	AccountNumber string `json:"account_number"`
	Group         string `json:"group"`
	Active        bool   `json:"active"`
	CreatedAt     string `json:"created_at,omitempty"`
}

type CreateAccountRequest struct {
	Name          string `json:"name"`
	AccountNumber string `json:"account_number"`
	Group         string `json:"group"`
}

func toAccountDTO(a ledger.Account) AccountDTO {
	dto := AccountDTO{
		ID:            a.ID,
		Name:          a.Name,
		AccountNumber: a.AccountNumber,
		Group:         string(a.Group),
		Active:        a.Active,
	}
	if !a.CreatedAt.IsZero() {
		dto.CreatedAt = a.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

// =============================================================================
// MASTERS
// =============================================================================

type ShiftDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type CreateShiftRequest struct {
	Name string `json:"name"`
}

type DispenserDTO struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Product string `json:"product"`
	Unit    string `json:"unit"`
	Rate    string `json:"rate"`
	Active  bool   `json:"active"`
}

type CreateDispenserRequest struct {
	Name    string `json:"name"`
	Product string `json:"product"`
	Unit    string `json:"unit"`
	Rate    string `json:"rate"`
}

func toDispenserDTO(d shiftclose.Dispenser) DispenserDTO {
	return DispenserDTO{
		ID:      d.ID,
		Name:    d.Name,
		Product: d.Product,
		Unit:    d.Unit,
		Rate:    d.Rate.StringFixed(ledger.Places),
		Active:  d.Active,
	}
}

// =============================================================================
// OPERATIONAL RECORDS
// =============================================================================

// SubmitReadingRequest is one dispenser's meter cycle for a (date, shift).
type SubmitReadingRequest struct {
	DispenserID  int64  `json:"dispenser_id"`
	Date         string `json:"date"`
	ItemRate     string `json:"item_rate"`
	StartReading string `json:"start_reading"`
	EndReading   string `json:"end_reading"`
	MeterTest    string `json:"meter_test"`
}

type ReadingDTO struct {
	ID           int64  `json:"id"`
	DispenserID  int64  `json:"dispenser_id"`
	ShiftID      int64  `json:"shift_id"`
	Date         string `json:"date"`
	ItemRate     string `json:"item_rate"`
	StartReading string `json:"start_reading"`
	EndReading   string `json:"end_reading"`
	MeterTest    string `json:"meter_test"`
	NetReading   string `json:"net_reading"`
	TotalSale    string `json:"total_sale"`
}

func toReadingDTO(r shiftclose.DispenserReading) ReadingDTO {
	return ReadingDTO{
		ID:           r.ID,
		DispenserID:  r.DispenserID,
		ShiftID:      r.ShiftID,
		Date:         r.Date.Format(dayFormat),
		ItemRate:     r.ItemRate.StringFixed(ledger.Places),
		StartReading: r.StartReading.String(),
		EndReading:   r.EndReading.String(),
		MeterTest:    r.MeterTest.String(),
		NetReading:   r.NetReading().String(),
		TotalSale:    r.TotalSale().StringFixed(ledger.Places),
	}
}

type SubmitOtherSaleRequest struct {
	Date         string `json:"date"`
	Product      string `json:"product"`
	Unit         string `json:"unit"`
	ItemRate     string `json:"item_rate"`
	SellQuantity string `json:"sell_quantity"`
}

type OtherSaleDTO struct {
	ID           int64  `json:"id"`
	ShiftID      int64  `json:"shift_id"`
	Date         string `json:"date"`
	Product      string `json:"product"`
	Unit         string `json:"unit"`
	ItemRate     string `json:"item_rate"`
	SellQuantity string `json:"sell_quantity"`
	TotalSales   string `json:"total_sales"`
}

func toOtherSaleDTO(s shiftclose.OtherProductSale) OtherSaleDTO {
	return OtherSaleDTO{
		ID:           s.ID,
		ShiftID:      s.ShiftID,
		Date:         s.Date.Format(dayFormat),
		Product:      s.Product,
		Unit:         s.Unit,
		ItemRate:     s.ItemRate.StringFixed(ledger.Places),
		SellQuantity: s.SellQuantity.String(),
		TotalSales:   s.TotalSales().StringFixed(ledger.Places),
	}
}

// =============================================================================
// MONEY EVENTS
// =============================================================================

type CreateVoucherRequest struct {
	Kind            string `json:"kind"`         // receipt | payment
	Purpose         string `json:"purpose"`      // sale | due_collection | expense | purchase | office
	PaymentType     string `json:"payment_type"` // cash | bank | mobile_bank
	Scope           string `json:"scope,omitempty"`
	Date            string `json:"date"`
	ShiftID         int64  `json:"shift_id"`
	DebitAccountID  int64  `json:"debit_account_id"`
	CreditAccountID int64  `json:"credit_account_id"`
	Amount          string `json:"amount"`
	Narration       string `json:"narration,omitempty"`
}

type VoucherDTO struct {
	ID              string `json:"id"`
	VoucherNo       string `json:"voucher_no"`
	Kind            string `json:"kind"`
	Purpose         string `json:"purpose"`
	PaymentType     string `json:"payment_type"`
	Scope           string `json:"scope,omitempty"`
	Date            string `json:"date"`
	ShiftID         int64  `json:"shift_id"`
	DebitAccountID  int64  `json:"debit_account_id"`
	CreditAccountID int64  `json:"credit_account_id"`
	Amount          string `json:"amount"`
	Narration       string `json:"narration,omitempty"`
}

func toVoucherDTO(v shiftclose.Voucher) VoucherDTO {
	return VoucherDTO{
		ID:              v.ID,
		VoucherNo:       v.VoucherNo,
		Kind:            string(v.Kind),
		Purpose:         string(v.Purpose),
		PaymentType:     string(v.PaymentType),
		Scope:           string(v.Scope),
		Date:            v.Date.Format(dayFormat),
		ShiftID:         v.ShiftID,
		DebitAccountID:  v.DebitAccountID,
		CreditAccountID: v.CreditAccountID,
		Amount:          v.Amount.StringFixed(ledger.Places),
		Narration:       v.Narration,
	}
}

type CreateCreditSaleRequest struct {
	Date              string `json:"date"`
	ShiftID           int64  `json:"shift_id"`
	CustomerAccountID int64  `json:"customer_account_id"`
	SalesAccountID    int64  `json:"sales_account_id"`
	Scope             string `json:"scope,omitempty"`
	Amount            string `json:"amount"`
	VehicleNo         string `json:"vehicle_no,omitempty"`
	Narration         string `json:"narration,omitempty"`
}

type CreditSaleDTO struct {
	ID                string `json:"id"`
	Date              string `json:"date"`
	ShiftID           int64  `json:"shift_id"`
	CustomerAccountID int64  `json:"customer_account_id"`
	SalesAccountID    int64  `json:"sales_account_id"`
	Scope             string `json:"scope"`
	Amount            string `json:"amount"`
	VehicleNo         string `json:"vehicle_no,omitempty"`
	Narration         string `json:"narration,omitempty"`
}

func toCreditSaleDTO(s shiftclose.CreditSale) CreditSaleDTO {
	return CreditSaleDTO{
		ID:                s.ID,
		Date:              s.Date.Format(dayFormat),
		ShiftID:           s.ShiftID,
		CustomerAccountID: s.CustomerAccountID,
		SalesAccountID:    s.SalesAccountID,
		Scope:             string(s.Scope),
		Amount:            s.Amount.StringFixed(ledger.Places),
		VehicleNo:         s.VehicleNo,
		Narration:         s.Narration,
	}
}

// =============================================================================
// SHIFT CLOSE
// =============================================================================

type CloseShiftRequest struct {
	Date string `json:"date"`
}

// DailyReadingDTO is the snapshot a close returns.
type DailyReadingDTO struct {
	ID      int64  `json:"id"`
	Date    string `json:"date"`
	ShiftID int64  `json:"shift_id"`

	CreditSales      string `json:"credit_sales"`
	CreditSalesOther string `json:"credit_sales_other"`
	BankSales        string `json:"bank_sales"`
	BankSalesOther   string `json:"bank_sales_other"`
	CashSales        string `json:"cash_sales"`
	CashSalesOther   string `json:"cash_sales_other"`

	CashReceive   string `json:"cash_receive"`
	BankReceive   string `json:"bank_receive"`
	CashPayment   string `json:"cash_payment"`
	BankPayment   string `json:"bank_payment"`
	OfficePayment string `json:"office_payment"`

	TotalCash      string `json:"total_cash"`
	FinalDueAmount string `json:"final_due_amount"`
}

func toDailyReadingDTO(d shiftclose.DailyReading) DailyReadingDTO {
	return DailyReadingDTO{
		ID:               d.ID,
		Date:             d.Date.Format(dayFormat),
		ShiftID:          d.ShiftID,
		CreditSales:      d.CreditSales.StringFixed(ledger.Places),
		CreditSalesOther: d.CreditSalesOther.StringFixed(ledger.Places),
		BankSales:        d.BankSales.StringFixed(ledger.Places),
		BankSalesOther:   d.BankSalesOther.StringFixed(ledger.Places),
		CashSales:        d.CashSales.StringFixed(ledger.Places),
		CashSalesOther:   d.CashSalesOther.StringFixed(ledger.Places),
		CashReceive:      d.CashReceive.StringFixed(ledger.Places),
		BankReceive:      d.BankReceive.StringFixed(ledger.Places),
		CashPayment:      d.CashPayment.StringFixed(ledger.Places),
		BankPayment:      d.BankPayment.StringFixed(ledger.Places),
		OfficePayment:    d.OfficePayment.StringFixed(ledger.Places),
		TotalCash:        d.TotalCash.StringFixed(ledger.Places),
		FinalDueAmount:   d.FinalDueAmount.StringFixed(ledger.Places),
	}
}

type CloseShiftResponse struct {
	ShiftClosedID int64           `json:"shift_closed_id"`
	ClosedAt      string          `json:"closed_at"`
	DailyReading  DailyReadingDTO `json:"daily_reading"`
}

// =============================================================================
// LEDGER VIEWS
// =============================================================================

type TransactionDTO struct {
	ID          int64  `json:"id"`
	AccountID   int64  `json:"account_id"`
	Direction   string `json:"direction"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
	SourceKind  string `json:"source_kind"`
	SourceID    string `json:"source_id"`
	Description string `json:"description,omitempty"`
	PaymentType string `json:"payment_type,omitempty"`
	VoucherNo   string `json:"voucher_no,omitempty"`
	Balance     string `json:"balance"`
}

func toTransactionDTO(row ledger.Row) TransactionDTO {
	tx := row.Tx
	return TransactionDTO{
		ID:          tx.ID,
		AccountID:   tx.AccountID,
		Direction:   string(tx.Direction),
		Amount:      tx.Amount.StringFixed(ledger.Places),
		Date:        tx.OccurredAt.Format(dayFormat),
		SourceKind:  string(tx.Source.Kind),
		SourceID:    tx.Source.ID,
		Description: tx.Description,
		PaymentType: string(tx.PaymentType),
		VoucherNo:   tx.VoucherNo,
		Balance:     row.Balance.StringFixed(ledger.Places),
	}
}

type CompanyDTO struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

func toCompanyDTO(c reports.CompanyProfile) CompanyDTO {
	return CompanyDTO{Name: c.Name, Address: c.Address, Phone: c.Phone}
}

// StatementDTO is a generic account statement: opening balance, paginated
// running-balance rows, and range totals.
type StatementDTO struct {
	Company        CompanyDTO       `json:"company"`
	Account        AccountDTO       `json:"account"`
	From           string           `json:"from"`
	To             string           `json:"to"`
	OpeningBalance string           `json:"opening_balance"`
	Rows           []TransactionDTO `json:"rows"`
	TotalDebit     string           `json:"total_debit"`
	TotalCredit    string           `json:"total_credit"`
	ClosingBalance string           `json:"closing_balance"`
	Page           int              `json:"page"`
	PerPage        int              `json:"per_page"`
	TotalRows      int              `json:"total_rows"`
	TotalPages     int              `json:"total_pages"`
}

func toStatementDTO(st *reports.Statement) StatementDTO {
	rows := make([]TransactionDTO, 0, len(st.Page.Rows))
	for _, row := range st.Page.Rows {
		rows = append(rows, toTransactionDTO(row))
	}
	return StatementDTO{
		Company:        toCompanyDTO(st.Company),
		Account:        toAccountDTO(st.Account),
		From:           st.Result.Range.Start.Format(dayFormat),
		To:             st.Result.Range.End.Format(dayFormat),
		OpeningBalance: st.Result.OpeningBalance.StringFixed(ledger.Places),
		Rows:           rows,
		TotalDebit:     st.Result.TotalDebit.StringFixed(ledger.Places),
		TotalCredit:    st.Result.TotalCredit.StringFixed(ledger.Places),
		ClosingBalance: st.Result.ClosingBalance.StringFixed(ledger.Places),
		Page:           st.Page.Page,
		PerPage:        st.Page.PerPage,
		TotalRows:      st.Page.TotalRows,
		TotalPages:     st.Page.TotalPages,
	}
}

// =============================================================================
// BOOKS
// =============================================================================

type CashBookRowDTO struct {
	Date    string `json:"date"`
	ShiftID int64  `json:"shift_id"`
	CashIn  string `json:"cash_in"`
	CashOut string `json:"cash_out"`
	Balance string `json:"balance"`
}

type CashBookDTO struct {
	Company        CompanyDTO       `json:"company"`
	From           string           `json:"from"`
	To             string           `json:"to"`
	OpeningBalance string           `json:"opening_balance"`
	Rows           []CashBookRowDTO `json:"rows"`
	TotalIn        string           `json:"total_in"`
	TotalOut       string           `json:"total_out"`
	ClosingBalance string           `json:"closing_balance"`
}

func toCashBookDTO(cb *reports.CashBook) CashBookDTO {
	rows := make([]CashBookRowDTO, 0, len(cb.Rows))
	for _, row := range cb.Rows {
		rows = append(rows, CashBookRowDTO{
			Date:    row.Date.Format(dayFormat),
			ShiftID: row.ShiftID,
			CashIn:  row.CashIn.StringFixed(ledger.Places),
			CashOut: row.CashOut.StringFixed(ledger.Places),
			Balance: row.Balance.StringFixed(ledger.Places),
		})
	}
	return CashBookDTO{
		Company:        toCompanyDTO(cb.Company),
		From:           cb.Range.Start.Format(dayFormat),
		To:             cb.Range.End.Format(dayFormat),
		OpeningBalance: cb.OpeningBalance.StringFixed(ledger.Places),
		Rows:           rows,
		TotalIn:        cb.TotalIn.StringFixed(ledger.Places),
		TotalOut:       cb.TotalOut.StringFixed(ledger.Places),
		ClosingBalance: cb.ClosingBalance.StringFixed(ledger.Places),
	}
}

type BankBookEntryDTO struct {
	Account        AccountDTO `json:"account"`
	TotalDebit     string     `json:"total_debit"`
	TotalCredit    string     `json:"total_credit"`
	ClosingBalance string     `json:"closing_balance"`
}

type BankBookDTO struct {
	Company CompanyDTO         `json:"company"`
	Group   string             `json:"group"`
	From    string             `json:"from"`
	To      string             `json:"to"`
	Entries []BankBookEntryDTO `json:"entries"`
}

func toBankBookDTO(bb *reports.BankBook) BankBookDTO {
	entries := make([]BankBookEntryDTO, 0, len(bb.Entries))
	for _, e := range bb.Entries {
		entries = append(entries, BankBookEntryDTO{
			Account:        toAccountDTO(e.Account),
			TotalDebit:     e.TotalDebit.StringFixed(ledger.Places),
			TotalCredit:    e.TotalCredit.StringFixed(ledger.Places),
			ClosingBalance: e.ClosingBalance.StringFixed(ledger.Places),
		})
	}
	return BankBookDTO{
		Company: toCompanyDTO(bb.Company),
		Group:   string(bb.Group),
		From:    bb.Range.Start.Format(dayFormat),
		To:      bb.Range.End.Format(dayFormat),
		Entries: entries,
	}
}

// =============================================================================
// BALANCE SHEET
// =============================================================================

type BalanceSheetLineDTO struct {
	Account AccountDTO `json:"account"`
	Amount  string     `json:"amount"`
}

type TradingSummaryDTO struct {
	TotalSales    string `json:"total_sales"`
	TotalPurchase string `json:"total_purchase"`
	OpeningStock  string `json:"opening_stock"`
	ClosingStock  string `json:"closing_stock"`
	GrossProfit   string `json:"gross_profit"`
	AdminExpense  string `json:"admin_expense"`
	NetProfit     string `json:"net_profit"`
}

type BalanceSheetDTO struct {
	Company          CompanyDTO            `json:"company"`
	From             string                `json:"from"`
	To               string                `json:"to"`
	Assets           []BalanceSheetLineDTO `json:"assets"`
	Liabilities      []BalanceSheetLineDTO `json:"liabilities"`
	TotalAssets      string                `json:"total_assets"`
	TotalLiabilities string                `json:"total_liabilities"`
	NetWorth         string                `json:"net_worth"`
	Trading          TradingSummaryDTO     `json:"trading"`
}

func toBalanceSheetDTO(bs *reports.BalanceSheet) BalanceSheetDTO {
	lines := func(in []reports.BalanceSheetLine) []BalanceSheetLineDTO {
		out := make([]BalanceSheetLineDTO, 0, len(in))
		for _, l := range in {
			out = append(out, BalanceSheetLineDTO{
				Account: toAccountDTO(l.Account),
				Amount:  l.Amount.StringFixed(ledger.Places),
			})
		}
		return out
	}
	return BalanceSheetDTO{
		Company:          toCompanyDTO(bs.Company),
		From:             bs.Range.Start.Format(dayFormat),
		To:               bs.Range.End.Format(dayFormat),
		Assets:           lines(bs.Assets),
		Liabilities:      lines(bs.Liabilities),
		TotalAssets:      bs.TotalAssets.StringFixed(ledger.Places),
		TotalLiabilities: bs.TotalLiabilities.StringFixed(ledger.Places),
		NetWorth:         bs.NetWorth.StringFixed(ledger.Places),
		Trading: TradingSummaryDTO{
			TotalSales:    bs.Trading.TotalSales.StringFixed(ledger.Places),
			TotalPurchase: bs.Trading.TotalPurchase.StringFixed(ledger.Places),
			OpeningStock:  bs.Trading.OpeningStock.StringFixed(ledger.Places),
			ClosingStock:  bs.Trading.ClosingStock.StringFixed(ledger.Places),
			GrossProfit:   bs.Trading.GrossProfit.StringFixed(ledger.Places),
			AdminExpense:  bs.Trading.AdminExpense.StringFixed(ledger.Places),
			NetProfit:     bs.Trading.NetProfit.StringFixed(ledger.Places),
		},
	}
}

// =============================================================================
// SCENARIOS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}
