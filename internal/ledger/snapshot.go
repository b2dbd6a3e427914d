package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Snapshot holds the closing balances of one balancete period.
type Snapshot struct {
	Period           string
	BalanceteVersion string
	balances         map[string]decimal.Decimal
}

// NewSnapshot builds a snapshot from a code → closing balance map.
func NewSnapshot(period, version string, balances map[string]decimal.Decimal) Snapshot {
	copied := make(map[string]decimal.Decimal, len(balances))
	for code, bal := range balances {
		copied[code] = bal
	}
	return Snapshot{Period: period, BalanceteVersion: version, balances: copied}
}

// Balance returns the closing balance for code, zero when absent.
func (s Snapshot) Balance(code string) decimal.Decimal {
	if bal, ok := s.balances[code]; ok {
		return bal
	}
	return decimal.Zero
}

// Sum adds the balances of the given accounts.
func (s Snapshot) Sum(accounts []Account) decimal.Decimal {
	total := decimal.Zero
	for _, acc := range accounts {
		total = total.Add(s.Balance(acc.Code))
	}
	return total
}

// LoadSnapshot reads the closing balance of every analytic account in the
// chart. Stores implementing BulkBalanceStore are read in one call.
func LoadSnapshot(ctx context.Context, store TrialBalanceStore, chart *Chart, period, version string) (Snapshot, error) {
	if bulk, ok := store.(BulkBalanceStore); ok {
		balances, err := bulk.ClosingBalances(ctx, period, version)
		if err != nil {
			return Snapshot{}, fmt.Errorf("ledger: closing balances %s: %w", period, err)
		}
		return Snapshot{Period: period, BalanceteVersion: version, balances: balances}, nil
	}
	balances := make(map[string]decimal.Decimal)
	for _, acc := range chart.Accounts() {
		if !acc.Analytic {
			continue
		}
		bal, err := store.Balance(ctx, acc.Code, period, version)
		if err != nil {
			return Snapshot{}, fmt.Errorf("ledger: balance %s@%s: %w", acc.Code, period, err)
		}
		if !bal.IsZero() {
			balances[acc.Code] = bal
		}
	}
	return Snapshot{Period: period, BalanceteVersion: version, balances: balances}, nil
}
