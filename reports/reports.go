/*
Package reports builds the ledger views the back office prints and reads.

PURPOSE:
  Three specializations of the replay engine plus the balance sheet:

    Cash Book          per closed shift, from DailyReading snapshots
    Bank Book          per bank/mobile-bank account, per transaction
    Account Statement  generic, for customers/suppliers/loans
    Balance Sheet      asset/liability buckets + trading summary

  None of these compute balances themselves: every running balance comes
  from ledger.Engine. The views shape rows; the engine owns arithmetic.

HEADERS:
  Every report carries the company profile it was built with. The profile
  is injected at construction time, never read from ambient state.

SEE ALSO:
  - cashbook.go, bankbook.go, statement.go, balancesheet.go
*/
package reports

import (
	"github.com/forecourt/station-ledger/ledger"
	"github.com/forecourt/station-ledger/shiftclose"
)

// CompanyProfile is the letterhead stamped on every report.
type CompanyProfile struct {
	Name    string
	Address string
	Phone   string
}

// Builder assembles reports from the ledger engine and the two stores.
type Builder struct {
	engine   *ledger.Engine
	accounts ledger.Store
	shifts   shiftclose.Store
	company  CompanyProfile
}

func NewBuilder(accounts ledger.Store, shifts shiftclose.Store, company CompanyProfile) *Builder {
	return &Builder{
		engine:   ledger.NewEngine(accounts),
		accounts: accounts,
		shifts:   shifts,
		company:  company,
	}
}

// Company returns the injected profile, for handlers that stamp headers.
func (b *Builder) Company() CompanyProfile { return b.company }

// Engine exposes the replay engine for direct statement calls.
func (b *Builder) Engine() *ledger.Engine { return b.engine }
