package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forecourt/station-ledger/api"
	"github.com/forecourt/station-ledger/ledger"
	"github.com/forecourt/station-ledger/reports"
	"github.com/forecourt/station-ledger/shiftclose"
	"github.com/forecourt/station-ledger/store/sqlite"
)

// =============================================================================
// TEST SERVER
// =============================================================================

type testServer struct {
	srv   *httptest.Server
	store *sqlite.Store

	cash     ledger.Account
	bank     ledger.Account
	sales    ledger.Account
	customer ledger.Account
	expense  ledger.Account

	morning shiftclose.Shift
	pump    shiftclose.Dispenser
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ts := &testServer{store: store}

	save := func(a ledger.Account) ledger.Account {
		out, err := store.SaveAccount(ctx, a)
		require.NoError(t, err)
		return out
	}
	ts.cash = save(ledger.Account{Name: "Cash in Hand", AccountNumber: "1001", Group: ledger.GroupCashInHand})
	ts.bank = save(ledger.Account{Name: "City Bank", AccountNumber: "1101", Group: ledger.GroupBankAccount})
	ts.sales = save(ledger.Account{Name: "Fuel Sales Income", AccountNumber: "4001", Group: ledger.GroupOther})
	ts.customer = save(ledger.Account{Name: "City Transport Ltd", AccountNumber: "2001", Group: ledger.GroupCustomer})
	ts.expense = save(ledger.Account{Name: "Operating Expenses", AccountNumber: "5001", Group: ledger.GroupOther})

	ts.morning, err = store.SaveShift(ctx, shiftclose.Shift{Name: "Morning"})
	require.NoError(t, err)
	ts.pump, err = store.SaveDispenser(ctx, shiftclose.Dispenser{
		Name: "Pump 1", Product: "Octane", Unit: "litre",
		Rate: ledger.NewAmount("130.00"), Active: true,
	})
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)

	builder := reports.NewBuilder(store, store, reports.CompanyProfile{Name: "Test Station"})
	handler := api.NewHandler(store, builder, log)
	handler.SetPostingAccounts(shiftclose.PostingAccounts{
		CashAccountID:  ts.cash.ID,
		SalesAccountID: ts.sales.ID,
	})

	ts.srv = httptest.NewServer(api.NewRouter(handler))
	t.Cleanup(ts.srv.Close)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, raw
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out), "body: %s", raw)
	return out
}

func (ts *testServer) submitReading(t *testing.T, date string) {
	t.Helper()
	resp, _ := ts.do(t, http.MethodPost, fmt.Sprintf("/api/shifts/%d/readings", ts.morning.ID), map[string]any{
		"dispenser_id":  ts.pump.ID,
		"date":          date,
		"item_rate":     "130.00",
		"start_reading": "1000",
		"end_reading":   "1100",
		"meter_test":    "0",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func TestAccountsEndpoints(t *testing.T) {
	ts := newTestServer(t)

	resp, raw := ts.do(t, http.MethodPost, "/api/accounts", map[string]any{
		"name":           "Greenline Buses",
		"account_number": "2002",
		"group":          "customer",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[api.AccountDTO](t, raw)
	assert.Equal(t, "Greenline Buses", created.Name)
	assert.True(t, created.Active)

	resp, raw = ts.do(t, http.MethodGet, "/api/accounts?group=customer", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	customers := decode[[]api.AccountDTO](t, raw)
	assert.Len(t, customers, 2)

	resp, _ = ts.do(t, http.MethodGet, "/api/accounts?group=piggybank", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodPost, "/api/accounts", map[string]any{"name": "No Number"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/accounts/%d", created.ID), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodDelete, "/api/accounts/999", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// SHIFT CLOSE FLOW
// =============================================================================

func TestCloseShiftFlow(t *testing.T) {
	// GIVEN: A reading and a credit sale entered through the API
	// WHEN: Closing the shift
	// THEN: 201 with the derived snapshot; a repeat close returns 409

	ts := newTestServer(t)
	const day = "2025-02-01"

	ts.submitReading(t, day)

	resp, _ := ts.do(t, http.MethodPost, "/api/credit-sales", map[string]any{
		"date":                day,
		"shift_id":            ts.morning.ID,
		"customer_account_id": ts.customer.ID,
		"sales_account_id":    ts.sales.ID,
		"amount":              "5200.00",
		"vehicle_no":          "DH-1234",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, raw := ts.do(t, http.MethodPost, fmt.Sprintf("/api/shifts/%d/close", ts.morning.ID),
		map[string]any{"date": day})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	closed := decode[api.CloseShiftResponse](t, raw)
	assert.NotZero(t, closed.ShiftClosedID)
	assert.Equal(t, "5200.00", closed.DailyReading.CreditSales)
	assert.Equal(t, "7800.00", closed.DailyReading.CashSales) // 13000 - 5200
	assert.Equal(t, "7800.00", closed.DailyReading.TotalCash)

	resp, raw = ts.do(t, http.MethodPost, fmt.Sprintf("/api/shifts/%d/close", ts.morning.ID),
		map[string]any{"date": day})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	errResp := decode[api.ErrorResponse](t, raw)
	assert.Equal(t, "Failed to close shift", errResp.Error)

	resp, raw = ts.do(t, http.MethodGet, "/api/shifts/closed?date="+day, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	listing := decode[struct {
		Date           string  `json:"date"`
		ClosedShiftIDs []int64 `json:"closed_shift_ids"`
	}](t, raw)
	assert.Equal(t, []int64{ts.morning.ID}, listing.ClosedShiftIDs)
}

func TestCloseShift_MissingReading_BadRequest(t *testing.T) {
	ts := newTestServer(t)

	resp, raw := ts.do(t, http.MethodPost, fmt.Sprintf("/api/shifts/%d/close", ts.morning.ID),
		map[string]any{"date": "2025-02-02"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	errResp := decode[api.ErrorResponse](t, raw)
	assert.Contains(t, errResp.Details, "missing readings")
}

func TestCloseShift_UnknownShift_NotFound(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := ts.do(t, http.MethodPost, "/api/shifts/999/close", map[string]any{"date": "2025-02-01"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// VOUCHERS
// =============================================================================

func TestCreateVoucher(t *testing.T) {
	ts := newTestServer(t)

	resp, raw := ts.do(t, http.MethodPost, "/api/vouchers", map[string]any{
		"kind":              "payment",
		"purpose":           "expense",
		"payment_type":      "cash",
		"date":              "2025-02-01",
		"shift_id":          ts.morning.ID,
		"debit_account_id":  ts.cash.ID,
		"credit_account_id": ts.expense.ID,
		"amount":            "800.00",
		"narration":         "Generator fuel",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	v := decode[api.VoucherDTO](t, raw)
	assert.NotEmpty(t, v.ID)
	assert.NotEmpty(t, v.VoucherNo)
	assert.Equal(t, "800.00", v.Amount)

	// Office vouchers are cash-only.
	resp, raw = ts.do(t, http.MethodPost, "/api/vouchers", map[string]any{
		"kind":              "payment",
		"purpose":           "office",
		"payment_type":      "bank",
		"date":              "2025-02-01",
		"shift_id":          ts.morning.ID,
		"debit_account_id":  ts.cash.ID,
		"credit_account_id": ts.expense.ID,
		"amount":            "50.00",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	errResp := decode[api.ErrorResponse](t, raw)
	assert.Equal(t, "Invalid voucher", errResp.Error)
}

// =============================================================================
// LEDGER VIEWS
// =============================================================================

func TestGetStatement(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := ts.do(t, http.MethodPost, "/api/credit-sales", map[string]any{
		"date":                "2025-02-01",
		"shift_id":            ts.morning.ID,
		"customer_account_id": ts.customer.ID,
		"sales_account_id":    ts.sales.ID,
		"amount":              "5200.00",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	path := fmt.Sprintf("/api/ledger/%d?from=2025-02-01&to=2025-02-28", ts.customer.ID)
	resp, raw := ts.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	st := decode[api.StatementDTO](t, raw)
	assert.Equal(t, "Test Station", st.Company.Name)
	require.Len(t, st.Rows, 1)
	assert.Equal(t, "Cr", st.Rows[0].Direction)
	assert.Equal(t, "5200.00", st.Rows[0].Balance)
	assert.Equal(t, "5200.00", st.ClosingBalance)

	// Unknown account and malformed ranges map to 404/400.
	resp, _ = ts.do(t, http.MethodGet, "/api/ledger/999?from=2025-02-01&to=2025-02-28", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodGet, path[:len(path)-len("2025-02-28")]+"2025-01-01", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAmountQueryParams_RejectUnparseableValues(t *testing.T) {
	// GIVEN: Decimal query parameters carrying garbage
	// WHEN: Requesting statements, cash book or balance sheet with them
	// THEN: 400 instead of a report silently built on zero

	ts := newTestServer(t)

	path := fmt.Sprintf("/api/ledger/%d?from=2025-02-01&to=2025-02-28&opening_balance=abc", ts.customer.ID)
	resp, _ := ts.do(t, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodGet, "/api/books/cash?from=2025-02-01&to=2025-02-28&opening_balance=1,000", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodGet, "/api/reports/balance-sheet?from=2025-02-01&to=2025-02-28&opening_stock=x", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodGet, "/api/reports/balance-sheet?from=2025-02-01&to=2025-02-28&closing_stock=12..5", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetBankBook_GroupValidation(t *testing.T) {
	ts := newTestServer(t)

	resp, raw := ts.do(t, http.MethodGet, "/api/books/bank?from=2025-02-01&to=2025-02-28", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	book := decode[api.BankBookDTO](t, raw)
	assert.Equal(t, "bank_account", book.Group)
	require.Len(t, book.Entries, 1)
	assert.Equal(t, ts.bank.ID, book.Entries[0].Account.ID)

	resp, _ = ts.do(t, http.MethodGet, "/api/books/bank?from=2025-02-01&to=2025-02-28&group=customer", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetCashBookAndBalanceSheet(t *testing.T) {
	ts := newTestServer(t)
	const day = "2025-02-01"

	ts.submitReading(t, day)
	resp, _ := ts.do(t, http.MethodPost, fmt.Sprintf("/api/shifts/%d/close", ts.morning.ID),
		map[string]any{"date": day})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, raw := ts.do(t, http.MethodGet, "/api/books/cash?from=2025-02-01&to=2025-02-28", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	book := decode[api.CashBookDTO](t, raw)
	require.Len(t, book.Rows, 1)
	assert.Equal(t, "13000.00", book.Rows[0].CashIn)
	assert.Equal(t, "13000.00", book.ClosingBalance)

	resp, raw = ts.do(t, http.MethodGet, "/api/reports/balance-sheet?from=2025-02-01&to=2025-02-28", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sheet := decode[api.BalanceSheetDTO](t, raw)
	assert.Equal(t, "13000.00", sheet.TotalAssets)
	assert.Equal(t, "13000.00", sheet.NetWorth)
	assert.Equal(t, "13000.00", sheet.Trading.TotalSales)
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestScenarios(t *testing.T) {
	ts := newTestServer(t)

	resp, raw := ts.do(t, http.MethodGet, "/api/scenarios", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[[]api.ScenarioDTO](t, raw)
	assert.Len(t, list, 2)

	// Retire the fixture pump so the scenario's own dispensers are the only
	// ones a close requires readings for.
	ts.pump.Active = false
	_, err := ts.store.SaveDispenser(context.Background(), ts.pump)
	require.NoError(t, err)

	resp, _ = ts.do(t, http.MethodPost, "/api/scenarios/load", map[string]any{"scenario_id": "busy-day"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The busy day closed its Morning shift, so the cash book has a row.
	resp, raw = ts.do(t, http.MethodGet, "/api/books/cash?from=2000-01-01&to=2100-01-01", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	book := decode[api.CashBookDTO](t, raw)
	assert.NotEmpty(t, book.Rows)

	resp, _ = ts.do(t, http.MethodPost, "/api/scenarios/load", map[string]any{"scenario_id": "nope"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
