package ledger

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// Kind is the accounting element of an account.
type Kind string

const (
	KindAsset     Kind = "asset"
	KindLiability Kind = "liability"
	KindEquity    Kind = "equity"
	KindRevenue   Kind = "revenue"
	KindCost      Kind = "cost"
	KindExpense   Kind = "expense"
)

// Kinds lists every known account kind in chart order.
var Kinds = []Kind{KindAsset, KindLiability, KindEquity, KindRevenue, KindCost, KindExpense}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindAsset, KindLiability, KindEquity, KindRevenue, KindCost, KindExpense:
		return true
	}
	return false
}

// CreditNormal reports whether the kind carries credit (negative) balances in
// a balancete.
func (k Kind) CreditNormal() bool {
	return k == KindLiability || k == KindEquity || k == KindRevenue
}

// Temporary reports whether accounts of this kind are closed into equity at
// fiscal year end.
func (k Kind) Temporary() bool {
	return k == KindRevenue || k == KindCost || k == KindExpense
}

// Nature separates balance sheet accounts from result accounts.
type Nature string

const (
	NaturePermanent Nature = "permanent"
	NatureTemporary Nature = "temporary"
)

// Account models a chart of accounts node.
type Account struct {
	Code       string
	Name       string
	Kind       Kind
	Nature     Nature
	Level      int
	Analytic   bool
	ParentCode string
	Version    string
	Active     bool
}

// HasParent reports whether the account references a parent.
func (a Account) HasParent() bool {
	return a.ParentCode != ""
}

// PeriodBalance is one balancete row.
type PeriodBalance struct {
	Code             string
	Period           string
	BalanceteVersion string
	Opening          decimal.Decimal
	Debits           decimal.Decimal
	Credits          decimal.Decimal
	Closing          decimal.Decimal
}

var (
	// ErrAccountNotFound indicates the account code is absent from the chart version.
	ErrAccountNotFound = errors.New("ledger: account not found")
	// ErrPeriodNotFound indicates no balancete rows exist for the period/version.
	ErrPeriodNotFound = errors.New("ledger: trial balance not found")
)

// AccountRepository resolves chart of accounts entries.
type AccountRepository interface {
	AccountsByKind(ctx context.Context, kind Kind, version string) ([]Account, error)
	AccountByCode(ctx context.Context, code, version string) (Account, error)
}

// TrialBalanceStore resolves balancete balances. Balance returns zero when the
// account has no row; SumOfAllBalances returns ErrPeriodNotFound when the
// period has no rows at all.
type TrialBalanceStore interface {
	Balance(ctx context.Context, code, period, balanceteVersion string) (decimal.Decimal, error)
	SumOfAllBalances(ctx context.Context, period, balanceteVersion string) (decimal.Decimal, error)
}

// BulkBalanceStore is implemented by stores able to return every closing
// balance of a period in one round trip.
type BulkBalanceStore interface {
	ClosingBalances(ctx context.Context, period, balanceteVersion string) (map[string]decimal.Decimal, error)
}
