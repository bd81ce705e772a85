/*
handlers.go - HTTP API handlers for the station ledger

PURPOSE:
  Exposes the shift-closing and ledger engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Accounts:
    GET    /api/accounts               List accounts (?group= filter)
    POST   /api/accounts               Create account
    DELETE /api/accounts/{id}          Deactivate account

  Masters:
    GET    /api/shifts                 List shifts
    POST   /api/shifts                 Create shift
    GET    /api/dispensers             List dispensers
    POST   /api/dispensers             Create dispenser

  Shift operations:
    POST /api/shifts/{id}/readings     Submit dispenser reading
    POST /api/shifts/{id}/other-sales  Submit other-product sale
    POST /api/shifts/{id}/close        Close the shift for a date
    GET  /api/shifts/closed?date=      Closed shift ids for a date

  Money events:
    POST /api/vouchers                 Receipt/payment voucher
    POST /api/credit-sales             Credit sale entry

  Views:
    GET /api/ledger/{accountID}        Account statement (paginated)
    GET /api/books/cash                Cash book per closed shift
    GET /api/books/bank                Bank/mobile-bank book
    GET /api/reports/balance-sheet     Balance sheet + trading summary

  Scenarios:
    GET  /api/scenarios                List demo scenarios
    POST /api/scenarios/load           Load a demo scenario

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, incomplete shift data
  - 404: Missing account or shift
  - 409: Shift already closed, or a close raced a concurrent entry
  - 500: Internal errors
  The taxonomy helpers in the ledger package drive the mapping, so a
  handler never inspects concrete error types.

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.
  Put this behind the station's reverse proxy.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/forecourt/station-ledger/factory"
	"github.com/forecourt/station-ledger/ledger"
	"github.com/forecourt/station-ledger/reports"
	"github.com/forecourt/station-ledger/shiftclose"
	"github.com/forecourt/station-ledger/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   *sqlite.Store
	Journal *shiftclose.Journal
	Reports *reports.Builder
	Chart   *factory.ChartFactory

	log *logrus.Logger

	// Posting targets for shift closes. Set once at startup (or by a
	// scenario load) after the chart is seeded.
	posting shiftclose.PostingAccounts
}

// NewHandler creates a new handler with the given store and report builder.
func NewHandler(store *sqlite.Store, builder *reports.Builder, log *logrus.Logger) *Handler {
	if log == nil {
		log = logrus.New()
	}
	return &Handler{
		Store:   store,
		Journal: shiftclose.NewJournal(store),
		Reports: builder,
		Chart:   factory.NewChartFactory(),
		log:     log,
	}
}

// SetPostingAccounts wires the cash and sales accounts closes post against.
func (h *Handler) SetPostingAccounts(p shiftclose.PostingAccounts) {
	h.posting = p
}

func (h *Handler) aggregator() *shiftclose.Aggregator {
	return shiftclose.NewAggregator(h.Store, h.posting)
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

// ListAccounts returns the chart, optionally filtered by group.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	group := ledger.AccountGroup(r.URL.Query().Get("group"))
	if group != "" && !group.Valid() {
		writeError(w, http.StatusBadRequest, "Unknown account group", nil)
		return
	}

	accounts, err := h.Store.ListAccounts(r.Context(), group)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list accounts", err)
		return
	}

	dtos := make([]AccountDTO, 0, len(accounts))
	for _, a := range accounts {
		dtos = append(dtos, toAccountDTO(a))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateAccount adds one chart entry.
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" || req.AccountNumber == "" {
		writeError(w, http.StatusBadRequest, "name and account_number are required", nil)
		return
	}
	group := ledger.AccountGroup(req.Group)
	if !group.Valid() {
		writeError(w, http.StatusBadRequest, "Unknown account group", nil)
		return
	}

	account, err := h.Store.SaveAccount(r.Context(), ledger.Account{
		Name:          req.Name,
		AccountNumber: req.AccountNumber,
		Group:         group,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create account", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountDTO(account))
}

// DeactivateAccount flags an account inactive.
func (h *Handler) DeactivateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid account id", err)
		return
	}

	if err := h.Store.DeactivateAccount(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to deactivate account", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "active": false})
}

// =============================================================================
// MASTER DATA HANDLERS
// =============================================================================

func (h *Handler) ListShifts(w http.ResponseWriter, r *http.Request) {
	shifts, err := h.Store.ListShifts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list shifts", err)
		return
	}
	dtos := make([]ShiftDTO, 0, len(shifts))
	for _, s := range shifts {
		dtos = append(dtos, ShiftDTO{ID: s.ID, Name: s.Name})
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateShift(w http.ResponseWriter, r *http.Request) {
	var req CreateShiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	shift, err := h.Store.SaveShift(r.Context(), shiftclose.Shift{Name: req.Name})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create shift", err)
		return
	}
	writeJSON(w, http.StatusCreated, ShiftDTO{ID: shift.ID, Name: shift.Name})
}

func (h *Handler) ListDispensers(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	dispensers, err := h.Store.ListDispensers(r.Context(), activeOnly)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list dispensers", err)
		return
	}
	dtos := make([]DispenserDTO, 0, len(dispensers))
	for _, d := range dispensers {
		dtos = append(dtos, toDispenserDTO(d))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateDispenser(w http.ResponseWriter, r *http.Request) {
	var req CreateDispenserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" || req.Product == "" {
		writeError(w, http.StatusBadRequest, "name and product are required", nil)
		return
	}

	dispenser, err := h.Store.SaveDispenser(r.Context(), shiftclose.Dispenser{
		Name:    req.Name,
		Product: req.Product,
		Unit:    req.Unit,
		Rate:    ledger.NewAmount(req.Rate),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create dispenser", err)
		return
	}
	writeJSON(w, http.StatusCreated, toDispenserDTO(dispenser))
}

// =============================================================================
// SHIFT OPERATION HANDLERS
// =============================================================================

// SubmitReading records one dispenser's meter cycle for the shift.
func (h *Handler) SubmitReading(w http.ResponseWriter, r *http.Request) {
	shiftID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid shift id", err)
		return
	}

	var req SubmitReadingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := ledger.ParseDay(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	reading, err := h.Store.SaveDispenserReading(r.Context(), shiftclose.DispenserReading{
		DispenserID:  req.DispenserID,
		ShiftID:      shiftID,
		Date:         date,
		ItemRate:     ledger.NewAmount(req.ItemRate),
		StartReading: ledger.NewAmount(req.StartReading),
		EndReading:   ledger.NewAmount(req.EndReading),
		MeterTest:    ledger.NewAmount(req.MeterTest),
	})
	if err != nil {
		writeDomainError(w, "Failed to save reading", err)
		return
	}
	writeJSON(w, http.StatusCreated, toReadingDTO(reading))
}

// SubmitOtherSale records an ancillary product sale line for the shift.
func (h *Handler) SubmitOtherSale(w http.ResponseWriter, r *http.Request) {
	shiftID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid shift id", err)
		return
	}

	var req SubmitOtherSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := ledger.ParseDay(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	sale, err := h.Store.SaveOtherProductSale(r.Context(), shiftclose.OtherProductSale{
		ShiftID:      shiftID,
		Date:         date,
		Product:      req.Product,
		Unit:         req.Unit,
		ItemRate:     ledger.NewAmount(req.ItemRate),
		SellQuantity: ledger.NewAmount(req.SellQuantity),
	})
	if err != nil {
		writeDomainError(w, "Failed to save other-product sale", err)
		return
	}
	writeJSON(w, http.StatusCreated, toOtherSaleDTO(sale))
}

// CloseShift freezes the (date, shift) pair into its snapshot.
func (h *Handler) CloseShift(w http.ResponseWriter, r *http.Request) {
	shiftID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid shift id", err)
		return
	}

	var req CloseShiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := ledger.ParseDay(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	closed, reading, err := h.aggregator().CloseShift(r.Context(), date, shiftID)
	if err != nil {
		writeDomainError(w, "Failed to close shift", err)
		return
	}

	h.log.WithFields(logrus.Fields{
		"shift_id":   shiftID,
		"close_date": req.Date,
		"total_cash": reading.TotalCash.StringFixed(ledger.Places),
	}).Info("shift closed")

	writeJSON(w, http.StatusCreated, CloseShiftResponse{
		ShiftClosedID: closed.ID,
		ClosedAt:      closed.ClosedAt.Format(time.RFC3339),
		DailyReading:  toDailyReadingDTO(*reading),
	})
}

// ClosedShifts returns the shift ids already closed for a date, so entry
// forms can exclude them.
func (h *Handler) ClosedShifts(w http.ResponseWriter, r *http.Request) {
	date, err := ledger.ParseDay(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid or missing date (use YYYY-MM-DD)", err)
		return
	}

	ids, err := h.Store.ClosedShiftIDs(r.Context(), date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to query closed shifts", err)
		return
	}
	if ids == nil {
		ids = []int64{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": r.URL.Query().Get("date"), "closed_shift_ids": ids})
}

// =============================================================================
// MONEY EVENT HANDLERS
// =============================================================================

// CreateVoucher records a receipt or payment voucher with its ledger pair.
func (h *Handler) CreateVoucher(w http.ResponseWriter, r *http.Request) {
	var req CreateVoucherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := ledger.ParseDay(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	v := shiftclose.Voucher{
		Kind:            shiftclose.VoucherKind(req.Kind),
		Purpose:         shiftclose.VoucherPurpose(req.Purpose),
		PaymentType:     ledger.PaymentType(req.PaymentType),
		Scope:           shiftclose.SaleScope(req.Scope),
		Date:            date,
		ShiftID:         req.ShiftID,
		DebitAccountID:  req.DebitAccountID,
		CreditAccountID: req.CreditAccountID,
		Amount:          ledger.NewAmount(req.Amount),
		Narration:       req.Narration,
	}
	if err := shiftclose.ValidateVoucher(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid voucher", err)
		return
	}

	voucher, err := h.Journal.RecordVoucher(r.Context(), v)
	if err != nil {
		writeDomainError(w, "Failed to record voucher", err)
		return
	}
	writeJSON(w, http.StatusCreated, toVoucherDTO(voucher))
}

// CreateCreditSale records an on-account sale with its ledger pair.
func (h *Handler) CreateCreditSale(w http.ResponseWriter, r *http.Request) {
	var req CreateCreditSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := ledger.ParseDay(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	sale, err := h.Journal.RecordCreditSale(r.Context(), shiftclose.CreditSale{
		Date:              date,
		ShiftID:           req.ShiftID,
		CustomerAccountID: req.CustomerAccountID,
		SalesAccountID:    req.SalesAccountID,
		Scope:             shiftclose.SaleScope(req.Scope),
		Amount:            ledger.NewAmount(req.Amount),
		VehicleNo:         req.VehicleNo,
		Narration:         req.Narration,
	})
	if err != nil {
		writeDomainError(w, "Failed to record credit sale", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCreditSaleDTO(sale))
}

// =============================================================================
// VIEW HANDLERS
// =============================================================================

// GetStatement replays an account over a range and returns the paginated
// running-balance statement.
func (h *Handler) GetStatement(w http.ResponseWriter, r *http.Request) {
	accountID, err := strconv.ParseInt(chi.URLParam(r, "accountID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid account id", err)
		return
	}
	dateRange, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}
	page, perPage := parsePagination(r)

	opening, hasOpening, err := parseAmountParam(r, "opening_balance")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid opening balance", err)
		return
	}

	statement, err := h.Reports.Statement(r.Context(), accountID, dateRange, opening, hasOpening, page, perPage)
	if err != nil {
		writeDomainError(w, "Failed to build statement", err)
		return
	}
	writeJSON(w, http.StatusOK, toStatementDTO(statement))
}

// GetCashBook returns the per-closed-shift cash book for a range.
func (h *Handler) GetCashBook(w http.ResponseWriter, r *http.Request) {
	dateRange, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}
	opening, _, err := parseAmountParam(r, "opening_balance")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid opening balance", err)
		return
	}

	book, err := h.Reports.CashBook(r.Context(), dateRange, opening)
	if err != nil {
		writeDomainError(w, "Failed to build cash book", err)
		return
	}
	writeJSON(w, http.StatusOK, toCashBookDTO(book))
}

// GetBankBook returns the per-account bank (or mobile-bank) book.
func (h *Handler) GetBankBook(w http.ResponseWriter, r *http.Request) {
	dateRange, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}

	group := ledger.GroupBankAccount
	if g := r.URL.Query().Get("group"); g != "" {
		group = ledger.AccountGroup(g)
		if group != ledger.GroupBankAccount && group != ledger.GroupMobileBank {
			writeError(w, http.StatusBadRequest, "group must be bank_account or mobile_bank", nil)
			return
		}
	}

	book, err := h.Reports.BankBook(r.Context(), group, dateRange)
	if err != nil {
		writeDomainError(w, "Failed to build bank book", err)
		return
	}
	writeJSON(w, http.StatusOK, toBankBookDTO(book))
}

// GetBalanceSheet returns the as-of balance sheet with its independent
// trading summary. Stock valuations come from the caller; the ledger does
// not track inventory quantities.
func (h *Handler) GetBalanceSheet(w http.ResponseWriter, r *http.Request) {
	dateRange, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}
	var stock reports.StockValuation
	if stock.Opening, _, err = parseAmountParam(r, "opening_stock"); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid stock valuation", err)
		return
	}
	if stock.Closing, _, err = parseAmountParam(r, "closing_stock"); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid stock valuation", err)
		return
	}

	sheet, err := h.Reports.BalanceSheet(r.Context(), dateRange, stock)
	if err != nil {
		writeDomainError(w, "Failed to build balance sheet", err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceSheetDTO(sheet))
}

// =============================================================================
// HELPERS
// =============================================================================

func parseRange(r *http.Request) (ledger.DateRange, error) {
	start, err := ledger.ParseDay(r.URL.Query().Get("from"))
	if err != nil {
		return ledger.DateRange{}, err
	}
	end, err := ledger.ParseDay(r.URL.Query().Get("to"))
	if err != nil {
		return ledger.DateRange{}, err
	}
	return ledger.NewDateRange(start, end)
}

// parseAmountParam reads an optional decimal query parameter. Absent means
// zero; present but unparseable is an input error, never silently zero.
func parseAmountParam(r *http.Request, name string) (decimal.Decimal, bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return decimal.Zero, false, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, false, fmt.Errorf("%s must be a decimal amount: %w", name, err)
	}
	return d, true, nil
}

func parsePagination(r *http.Request) (page, perPage int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ = strconv.Atoi(r.URL.Query().Get("per_page"))
	return page, perPage
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps the error taxonomy to HTTP statuses.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case ledger.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case ledger.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
