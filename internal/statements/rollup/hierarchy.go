package rollup

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-statements/internal/ledger"
)

// OrphanReason explains why an analytic account could not be placed.
type OrphanReason string

const (
	ReasonMissingParent    OrphanReason = "missing_parent"
	ReasonNoLevel2Ancestor OrphanReason = "no_level2_ancestor"
	ReasonNoLevel1Ancestor OrphanReason = "no_level1_ancestor"
	ReasonKindMismatch     OrphanReason = "kind_mismatch"
	ReasonVersionMismatch  OrphanReason = "version_mismatch"
	ReasonInvalidLevel     OrphanReason = "invalid_level"
	ReasonCycle            OrphanReason = "cycle"
)

// Orphan is a balance-carrying analytic account excluded from the tree.
type Orphan struct {
	Code   string          `json:"code"`
	Name   string          `json:"name"`
	Kind   ledger.Kind     `json:"kind"`
	Amount decimal.Decimal `json:"amount"`
	Reason OrphanReason    `json:"reason"`
}

// Placement locates an account in the two display tiers. Subgroup is nil for
// accounts placed directly at level 1.
type Placement struct {
	Group    ledger.Account
	Subgroup *ledger.Account
}

// Resolve finds the level-1 group and level-2 subgroup of acc by walking
// parent codes. Intermediate levels beyond 2 are skipped. Every ancestor must
// share the account's kind and version.
func Resolve(chart *ledger.Chart, acc ledger.Account) (Placement, OrphanReason) {
	switch {
	case acc.Level < 1:
		return Placement{}, ReasonInvalidLevel
	case acc.Level == 1:
		return Placement{Group: acc}, ""
	case acc.Level == 2:
		top, reason := level1Parent(chart, acc, acc)
		if reason != "" {
			return Placement{}, reason
		}
		sub := acc
		return Placement{Group: top, Subgroup: &sub}, ""
	}

	seen := map[string]struct{}{acc.Code: {}}
	cur := acc
	for {
		parent, reason := parentOf(chart, acc, cur)
		if reason != "" {
			return Placement{}, reason
		}
		if _, dup := seen[parent.Code]; dup {
			return Placement{}, ReasonCycle
		}
		seen[parent.Code] = struct{}{}
		switch {
		case parent.Level == 2:
			top, reason := level1Parent(chart, acc, parent)
			if reason != "" {
				return Placement{}, reason
			}
			sub := parent
			return Placement{Group: top, Subgroup: &sub}, ""
		case parent.Level < 2:
			return Placement{}, ReasonNoLevel2Ancestor
		}
		cur = parent
	}
}

func level1Parent(chart *ledger.Chart, origin, sub ledger.Account) (ledger.Account, OrphanReason) {
	if !sub.HasParent() {
		return ledger.Account{}, ReasonNoLevel1Ancestor
	}
	top, reason := parentOf(chart, origin, sub)
	if reason != "" {
		if reason == ReasonMissingParent {
			return ledger.Account{}, ReasonNoLevel1Ancestor
		}
		return ledger.Account{}, reason
	}
	if top.Level != 1 {
		return ledger.Account{}, ReasonNoLevel1Ancestor
	}
	return top, ""
}

func parentOf(chart *ledger.Chart, origin, cur ledger.Account) (ledger.Account, OrphanReason) {
	parent, ok := chart.Parent(cur)
	if !ok {
		return ledger.Account{}, ReasonMissingParent
	}
	if parent.Kind != origin.Kind {
		return ledger.Account{}, ReasonKindMismatch
	}
	if parent.Version != origin.Version {
		return ledger.Account{}, ReasonVersionMismatch
	}
	return parent, ""
}

// Partition runs the lineage check over accounts without rolling them up.
// Accounts that resolve are returned in input order; unplaceable accounts are
// reported as orphans when any of the balances exceeds tol, with the first
// such balance as the orphan amount. Unplaceable accounts with no balance are
// dropped.
func Partition(chart *ledger.Chart, accounts []ledger.Account, tol decimal.Decimal, balances ...BalanceFunc) ([]ledger.Account, []Orphan) {
	if tol.IsZero() {
		tol = DefaultTolerance
	}
	placed := make([]ledger.Account, 0, len(accounts))
	var orphans []Orphan
	for _, acc := range accounts {
		_, reason := Resolve(chart, acc)
		if reason == "" {
			placed = append(placed, acc)
			continue
		}
		for _, balance := range balances {
			amount := balance(acc.Code)
			if amount.Abs().GreaterThan(tol) {
				orphans = append(orphans, Orphan{Code: acc.Code, Name: acc.Name, Kind: acc.Kind, Amount: amount, Reason: reason})
				break
			}
		}
	}
	sort.SliceStable(orphans, func(i, j int) bool { return orphans[i].Code < orphans[j].Code })
	return placed, orphans
}
