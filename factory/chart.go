/*
Package factory provides JSON to Go chart-of-accounts conversion.

PURPOSE:
  Converts JSON chart definitions into ledger.Account entries. This enables
  station setup without code changes - the owner can define the chart in
  JSON, and the factory creates the proper Go structs.

WHY JSON?
  - Non-developers can adjust the chart
  - Easy integration with an admin UI
  - Version control for station configuration
  - Per-station charts from one binary

JSON SCHEMA:
  {
    "accounts": [
      {"name": "Cash in Hand", "account_number": "1001", "group": "cash_in_hand"},
      {"name": "City Bank - Current", "account_number": "1101", "group": "bank_account"},
      {"name": "Fuel Sales Income", "account_number": "4001", "group": "other"}
    ]
  }

KEY FEATURES:
  - Validates account groups against the known set
  - Rejects duplicate account numbers within one chart
  - Ships a default station chart covering every group

USAGE:
  f := factory.NewChartFactory()

  // From JSON string
  accounts, err := f.ParseChart(jsonString)

  // Or the built-in default
  accounts, err := f.ParseChart(factory.DefaultStationChartJSON())

  for _, a := range accounts {
      store.SaveAccount(ctx, a)
  }

SEE ALSO:
  - ledger/types.go: Account and AccountGroup definitions
  - api/scenarios.go: Uses the default chart when seeding demo data
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/forecourt/station-ledger/ledger"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// ChartJSON is the JSON representation of a chart of accounts.
type ChartJSON struct {
	Accounts []AccountJSON `json:"accounts"`
}

// AccountJSON is one chart entry.
type AccountJSON struct {
	Name          string `json:"name"`
	AccountNumber string `json:"account_number"`
	Group         string `json:"group"`
}

// =============================================================================
// FACTORY
// =============================================================================

// ChartFactory converts JSON chart definitions into account entries.
type ChartFactory struct{}

func NewChartFactory() *ChartFactory {
	return &ChartFactory{}
}

// ParseChart converts a JSON chart into ledger accounts. The returned
// accounts carry no IDs; the store assigns those on save.
func (f *ChartFactory) ParseChart(jsonStr string) ([]ledger.Account, error) {
	var chart ChartJSON
	if err := json.Unmarshal([]byte(jsonStr), &chart); err != nil {
		return nil, fmt.Errorf("invalid chart JSON: %w", err)
	}
	if len(chart.Accounts) == 0 {
		return nil, fmt.Errorf("chart has no accounts")
	}

	seen := make(map[string]bool, len(chart.Accounts))
	accounts := make([]ledger.Account, 0, len(chart.Accounts))
	for i, a := range chart.Accounts {
		if a.Name == "" {
			return nil, fmt.Errorf("account %d: name is required", i)
		}
		if a.AccountNumber == "" {
			return nil, fmt.Errorf("account %q: account_number is required", a.Name)
		}
		if seen[a.AccountNumber] {
			return nil, fmt.Errorf("account %q: duplicate account_number %s", a.Name, a.AccountNumber)
		}
		seen[a.AccountNumber] = true

		group := ledger.AccountGroup(a.Group)
		if !group.Valid() {
			return nil, fmt.Errorf("account %q: unknown group %q", a.Name, a.Group)
		}

		accounts = append(accounts, ledger.Account{
			Name:          a.Name,
			AccountNumber: a.AccountNumber,
			Group:         group,
			Active:        true,
		})
	}
	return accounts, nil
}

// =============================================================================
// DEFAULT CHART
// =============================================================================

// DefaultStationChartJSON returns the chart a typical station starts with:
// one drawer, a bank and a mobile-banking account, income and expense
// heads, and the stock asset. Customers and suppliers are added per party.
func DefaultStationChartJSON() string {
	chart := ChartJSON{
		Accounts: []AccountJSON{
			{Name: "Cash in Hand", AccountNumber: "1001", Group: string(ledger.GroupCashInHand)},
			{Name: "Bank - Current Account", AccountNumber: "1101", Group: string(ledger.GroupBankAccount)},
			{Name: "Mobile Banking", AccountNumber: "1201", Group: string(ledger.GroupMobileBank)},
			{Name: "Fuel Stock", AccountNumber: "1501", Group: string(ledger.GroupAsset)},
			{Name: "Fuel Sales Income", AccountNumber: "4001", Group: string(ledger.GroupOther)},
			{Name: "Other Product Sales Income", AccountNumber: "4002", Group: string(ledger.GroupOther)},
			{Name: "Operating Expenses", AccountNumber: "5001", Group: string(ledger.GroupOther)},
			{Name: "Office Expenses", AccountNumber: "5002", Group: string(ledger.GroupOther)},
			{Name: "Owner Capital", AccountNumber: "3001", Group: string(ledger.GroupLiability)},
		},
	}
	out, _ := json.Marshal(chart)
	return string(out)
}
