/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates the chart of accounts,
	masters, and a day of station activity demonstrating specific features.

AVAILABLE SCENARIOS:

	fresh-station:  Default chart + masters, no activity yet
	busy-day:       Full trading day: readings, credit sales, vouchers,
	                Morning shift closed

HOW SCENARIOS WORK:
 1. Seed the default chart plus demo customers/suppliers
 2. Create shifts and dispensers
 3. Submit readings, sales and vouchers
 4. Optionally close a shift

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "busy-day"}

NOTE:

	Scenarios write into the current database. Only use with a fresh or
	disposable database in development/demo environments.

SEE ALSO:
  - handlers.go: LoadScenario, ListScenarios handlers
  - factory/chart.go: Default chart JSON
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/forecourt/station-ledger/factory"
	"github.com/forecourt/station-ledger/ledger"
	"github.com/forecourt/station-ledger/shiftclose"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "fresh-station",
		Name:        "Fresh Station",
		Description: "Default chart, shifts and dispensers with no activity",
	},
	{
		ID:          "busy-day",
		Name:        "Busy Day",
		Description: "A full trading day with credit sales, vouchers and a closed Morning shift",
	},
}

// ListScenarios returns the available demo scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario seeds the database with the named scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var err error
	switch req.ScenarioID {
	case "fresh-station":
		_, err = h.loadFreshStation(r.Context())
	case "busy-day":
		err = h.loadBusyDay(r.Context())
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown scenario: %s", req.ScenarioID), nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"loaded": req.ScenarioID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// seeded holds the ids a scenario needs after the chart and masters land.
type seeded struct {
	accounts  map[string]int64 // keyed by account number
	morning   shiftclose.Shift
	evening   shiftclose.Shift
	dispenser []shiftclose.Dispenser
}

// loadFreshStation seeds the default chart, two demo customers, a supplier,
// shifts and dispensers, and wires the posting accounts.
func (h *Handler) loadFreshStation(ctx context.Context) (*seeded, error) {
	chartJSON := factory.DefaultStationChartJSON()
	accounts, err := h.Chart.ParseChart(chartJSON)
	if err != nil {
		return nil, err
	}
	accounts = append(accounts,
		ledger.Account{Name: "City Transport Ltd", AccountNumber: "2001", Group: ledger.GroupCustomer},
		ledger.Account{Name: "Greenline Buses", AccountNumber: "2002", Group: ledger.GroupCustomer},
		ledger.Account{Name: "Fuel Depot Supplier", AccountNumber: "2501", Group: ledger.GroupSupplier},
	)

	s := &seeded{accounts: make(map[string]int64, len(accounts))}
	for _, a := range accounts {
		saved, err := h.Store.SaveAccount(ctx, a)
		if err != nil {
			return nil, err
		}
		s.accounts[saved.AccountNumber] = saved.ID
	}

	if s.morning, err = h.Store.SaveShift(ctx, shiftclose.Shift{Name: "Morning"}); err != nil {
		return nil, err
	}
	if s.evening, err = h.Store.SaveShift(ctx, shiftclose.Shift{Name: "Evening"}); err != nil {
		return nil, err
	}

	for _, d := range []shiftclose.Dispenser{
		{Name: "Pump 1", Product: "Octane", Unit: "litre", Rate: ledger.NewAmount("130.00")},
		{Name: "Pump 2", Product: "Diesel", Unit: "litre", Rate: ledger.NewAmount("109.00")},
	} {
		saved, err := h.Store.SaveDispenser(ctx, d)
		if err != nil {
			return nil, err
		}
		s.dispenser = append(s.dispenser, saved)
	}

	h.SetPostingAccounts(shiftclose.PostingAccounts{
		CashAccountID:  s.accounts["1001"],
		SalesAccountID: s.accounts["4001"],
	})
	return s, nil
}

// loadBusyDay seeds a fresh station and then one full trading day:
// meter cycles on both pumps, a lubricant sale, a credit sale, a bank-settled
// sale, a due collection, an expense and an office payment - then closes the
// Morning shift so the cash book has a row.
func (h *Handler) loadBusyDay(ctx context.Context) error {
	s, err := h.loadFreshStation(ctx)
	if err != nil {
		return err
	}

	day := ledger.Day(time.Now().UTC().AddDate(0, 0, -1))

	for i, d := range s.dispenser {
		start := ledger.NewAmount(fmt.Sprintf("%d", 10000+i*5000))
		_, err := h.Store.SaveDispenserReading(ctx, shiftclose.DispenserReading{
			DispenserID:  d.ID,
			ShiftID:      s.morning.ID,
			Date:         day,
			ItemRate:     d.Rate,
			StartReading: start,
			EndReading:   start.Add(ledger.NewAmount("350.5")),
			MeterTest:    ledger.NewAmount("2.5"),
		})
		if err != nil {
			return err
		}
	}

	_, err = h.Store.SaveOtherProductSale(ctx, shiftclose.OtherProductSale{
		ShiftID:      s.morning.ID,
		Date:         day,
		Product:      "Engine Oil 1L",
		Unit:         "pc",
		ItemRate:     ledger.NewAmount("650.00"),
		SellQuantity: ledger.NewAmount("4"),
	})
	if err != nil {
		return err
	}

	_, err = h.Journal.RecordCreditSale(ctx, shiftclose.CreditSale{
		Date:              day,
		ShiftID:           s.morning.ID,
		CustomerAccountID: s.accounts["2001"],
		SalesAccountID:    s.accounts["4001"],
		Scope:             shiftclose.ScopeFuel,
		Amount:            ledger.NewAmount("5200.00"),
		VehicleNo:         "DM-TA-11-2047",
		Narration:         "Octane on account",
	})
	if err != nil {
		return err
	}

	vouchers := []shiftclose.Voucher{
		{
			Kind: shiftclose.VoucherReceipt, Purpose: shiftclose.PurposeSale,
			PaymentType: ledger.PayBank, Scope: shiftclose.ScopeFuel,
			Date: day, ShiftID: s.morning.ID,
			DebitAccountID: s.accounts["4001"], CreditAccountID: s.accounts["1101"],
			Amount: ledger.NewAmount("8000.00"), Narration: "Card sales settled to bank",
		},
		{
			Kind: shiftclose.VoucherReceipt, Purpose: shiftclose.PurposeDueCollection,
			PaymentType: ledger.PayCash,
			Date:        day, ShiftID: s.morning.ID,
			DebitAccountID: s.accounts["2002"], CreditAccountID: s.accounts["1001"],
			Amount: ledger.NewAmount("3000.00"), Narration: "Greenline dues collected",
		},
		{
			Kind: shiftclose.VoucherPayment, Purpose: shiftclose.PurposeExpense,
			PaymentType: ledger.PayCash,
			Date:        day, ShiftID: s.morning.ID,
			DebitAccountID: s.accounts["1001"], CreditAccountID: s.accounts["5001"],
			Amount: ledger.NewAmount("1200.00"), Narration: "Generator fuel",
		},
		{
			Kind: shiftclose.VoucherPayment, Purpose: shiftclose.PurposeOffice,
			PaymentType: ledger.PayCash,
			Date:        day, ShiftID: s.morning.ID,
			DebitAccountID: s.accounts["1001"], CreditAccountID: s.accounts["5002"],
			Amount: ledger.NewAmount("450.00"), Narration: "Stationery",
		},
	}
	for _, v := range vouchers {
		if _, err := h.Journal.RecordVoucher(ctx, v); err != nil {
			return err
		}
	}

	_, _, err = h.aggregator().CloseShift(ctx, day, s.morning.ID)
	return err
}
