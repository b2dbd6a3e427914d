// Package rollup rebuilds the account hierarchy of a chart and rolls analytic
// balances up to their level-2 and level-1 groups.
package rollup

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-statements/internal/ledger"
)

// DefaultTolerance is the magnitude at or below which a balance is treated as zero.
var DefaultTolerance = decimal.New(1, -2)

// BalanceFunc resolves the closing balance of an account code.
type BalanceFunc func(code string) decimal.Decimal

// SignPolicy turns a raw balancete amount into its presentation amount.
type SignPolicy func(acc ledger.Account, amount decimal.Decimal) decimal.Decimal

// Natural keeps balancete signs (debit positive).
func Natural(_ ledger.Account, amount decimal.Decimal) decimal.Decimal {
	return amount
}

// CreditNormal negates every amount.
func CreditNormal(_ ledger.Account, amount decimal.Decimal) decimal.Decimal {
	return amount.Neg()
}

// ByKind negates amounts of credit-normal kinds (liability, equity, revenue).
func ByKind(acc ledger.Account, amount decimal.Decimal) decimal.Decimal {
	if acc.Kind.CreditNormal() {
		return amount.Neg()
	}
	return amount
}

// Options parameterise a rollup.
type Options struct {
	Kinds     []ledger.Kind
	Balance   BalanceFunc
	Sign      SignPolicy
	Tolerance decimal.Decimal
}

// Group is a node of the rolled-up tree.
type Group struct {
	Code     string
	Name     string
	Level    int
	Balance  decimal.Decimal
	Children map[string]*Group
}

func newGroup(acc ledger.Account) *Group {
	return &Group{Code: acc.Code, Name: acc.Name, Level: acc.Level, Children: make(map[string]*Group)}
}

func (g *Group) child(acc ledger.Account) *Group {
	c, ok := g.Children[acc.Code]
	if !ok {
		c = newGroup(acc)
		g.Children[acc.Code] = c
	}
	return c
}

// Leaf is an analytic account that contributed to the tree.
type Leaf struct {
	Account      ledger.Account
	Amount       decimal.Decimal
	GroupCode    string
	SubgroupCode string
}

// Tree is the outcome of a rollup.
type Tree struct {
	Groups  map[string]*Group
	Total   decimal.Decimal
	Leaves  []Leaf
	Orphans []Orphan
}

// Build places every analytic account of the requested kinds and adds its
// signed balance to its own node and to every ancestor group. Accounts whose
// magnitude does not exceed the tolerance are omitted. Accounts whose lineage
// cannot be resolved are reported as orphans and excluded from totals.
func Build(chart *ledger.Chart, opts Options) Tree {
	tol := opts.Tolerance
	if tol.IsZero() {
		tol = DefaultTolerance
	}
	sign := opts.Sign
	if sign == nil {
		sign = Natural
	}
	tree := Tree{Groups: make(map[string]*Group), Total: decimal.Zero}
	if chart == nil || opts.Balance == nil {
		return tree
	}

	for _, acc := range chart.Analytic(opts.Kinds...) {
		amount := sign(acc, opts.Balance(acc.Code))
		if amount.Abs().LessThanOrEqual(tol) {
			continue
		}
		placement, reason := Resolve(chart, acc)
		if reason != "" {
			tree.Orphans = append(tree.Orphans, Orphan{
				Code:   acc.Code,
				Name:   acc.Name,
				Kind:   acc.Kind,
				Amount: amount,
				Reason: reason,
			})
			continue
		}
		tree.add(acc, placement, amount)
	}
	sort.SliceStable(tree.Orphans, func(i, j int) bool { return tree.Orphans[i].Code < tree.Orphans[j].Code })
	return tree
}

func (t *Tree) add(acc ledger.Account, p Placement, amount decimal.Decimal) {
	top, ok := t.Groups[p.Group.Code]
	if !ok {
		top = newGroup(p.Group)
		t.Groups[p.Group.Code] = top
	}
	top.Balance = top.Balance.Add(amount)
	leaf := Leaf{Account: acc, Amount: amount, GroupCode: p.Group.Code}

	if p.Subgroup != nil {
		sub := top.child(*p.Subgroup)
		sub.Balance = sub.Balance.Add(amount)
		leaf.SubgroupCode = sub.Code
		if acc.Code != sub.Code {
			node := sub.child(acc)
			node.Balance = node.Balance.Add(amount)
		}
	}
	t.Total = t.Total.Add(amount)
	t.Leaves = append(t.Leaves, leaf)
}

// GroupTotal returns the balance of a level-1 group, zero when absent.
func (t Tree) GroupTotal(code string) decimal.Decimal {
	if g, ok := t.Groups[code]; ok {
		return g.Balance
	}
	return decimal.Zero
}

// Node is the display form of a Group, children sorted by code.
type Node struct {
	Code     string          `json:"code"`
	Name     string          `json:"name"`
	Level    int             `json:"level"`
	Balance  decimal.Decimal `json:"balance"`
	Children []Node          `json:"children,omitempty"`
}

// Sorted returns the level-1 groups in code order with every tier sorted.
func (t Tree) Sorted() []Node {
	return sortGroups(t.Groups)
}

func sortGroups(groups map[string]*Group) []Node {
	if len(groups) == 0 {
		return nil
	}
	codes := make([]string, 0, len(groups))
	for code := range groups {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	nodes := make([]Node, 0, len(codes))
	for _, code := range codes {
		g := groups[code]
		nodes = append(nodes, Node{
			Code:     g.Code,
			Name:     g.Name,
			Level:    g.Level,
			Balance:  g.Balance,
			Children: sortGroups(g.Children),
		})
	}
	return nodes
}
