package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// Chart is a read-only arena of accounts indexed by code. Parent/child links
// are resolved through code lookups, so one Chart can be traversed by many
// goroutines at once.
type Chart struct {
	version  string
	accounts []Account
	byCode   map[string]int
}

// NewChart indexes the provided accounts. The first occurrence of a code wins.
func NewChart(version string, accounts []Account) *Chart {
	c := &Chart{
		version:  version,
		accounts: make([]Account, 0, len(accounts)),
		byCode:   make(map[string]int, len(accounts)),
	}
	for _, acc := range accounts {
		c.add(acc)
	}
	return c
}

func (c *Chart) add(acc Account) bool {
	if _, ok := c.byCode[acc.Code]; ok {
		return false
	}
	c.byCode[acc.Code] = len(c.accounts)
	c.accounts = append(c.accounts, acc)
	return true
}

// Version returns the chart version.
func (c *Chart) Version() string {
	if c == nil {
		return ""
	}
	return c.version
}

// Len returns the number of indexed accounts.
func (c *Chart) Len() int {
	if c == nil {
		return 0
	}
	return len(c.accounts)
}

// Lookup returns the account for code.
func (c *Chart) Lookup(code string) (Account, bool) {
	if c == nil {
		return Account{}, false
	}
	idx, ok := c.byCode[code]
	if !ok {
		return Account{}, false
	}
	return c.accounts[idx], true
}

// Parent returns the parent of acc when it is indexed.
func (c *Chart) Parent(acc Account) (Account, bool) {
	if !acc.HasParent() {
		return Account{}, false
	}
	return c.Lookup(acc.ParentCode)
}

// Accounts returns the accounts in insertion order. Callers must not modify
// the returned slice.
func (c *Chart) Accounts() []Account {
	if c == nil {
		return nil
	}
	return c.accounts
}

// ByKind returns the accounts of the given kinds in insertion order.
func (c *Chart) ByKind(kinds ...Kind) []Account {
	want := make(map[Kind]struct{}, len(kinds))
	for _, k := range kinds {
		want[k] = struct{}{}
	}
	out := make([]Account, 0)
	for _, acc := range c.Accounts() {
		if _, ok := want[acc.Kind]; ok {
			out = append(out, acc)
		}
	}
	return out
}

// Analytic returns every analytic account of the given kinds sorted by code.
func (c *Chart) Analytic(kinds ...Kind) []Account {
	out := make([]Account, 0)
	for _, acc := range c.ByKind(kinds...) {
		if acc.Analytic {
			out = append(out, acc)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Lineage returns the names of the account and its ancestors, nearest first.
// The walk stops at a missing parent or a cycle.
func (c *Chart) Lineage(code string) []string {
	names := make([]string, 0, 5)
	seen := make(map[string]struct{}, 5)
	acc, ok := c.Lookup(code)
	for ok {
		if _, dup := seen[acc.Code]; dup {
			break
		}
		seen[acc.Code] = struct{}{}
		names = append(names, acc.Name)
		acc, ok = c.Parent(acc)
	}
	return names
}

// LoadChart fetches the accounts of the requested kinds and resolves parents
// referenced across kinds so the hierarchy builder can tell a missing parent
// from a parent of the wrong kind.
func LoadChart(ctx context.Context, repo AccountRepository, version string, kinds ...Kind) (*Chart, error) {
	if repo == nil {
		return nil, errors.New("ledger: account repository not configured")
	}
	chart := NewChart(version, nil)
	for _, kind := range kinds {
		accounts, err := repo.AccountsByKind(ctx, kind, version)
		if err != nil {
			return nil, fmt.Errorf("ledger: accounts by kind %s: %w", kind, err)
		}
		for _, acc := range accounts {
			if !acc.Active {
				continue
			}
			chart.add(acc)
		}
	}

	pending := chart.missingParents()
	resolved := make(map[string]struct{})
	for len(pending) > 0 {
		next := make([]string, 0)
		for _, code := range pending {
			if _, done := resolved[code]; done {
				continue
			}
			resolved[code] = struct{}{}
			acc, err := repo.AccountByCode(ctx, code, version)
			if errors.Is(err, ErrAccountNotFound) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("ledger: account %s: %w", code, err)
			}
			if !acc.Active {
				continue
			}
			if chart.add(acc) && acc.HasParent() {
				if _, ok := chart.Lookup(acc.ParentCode); !ok {
					next = append(next, acc.ParentCode)
				}
			}
		}
		pending = next
	}
	return chart, nil
}

func (c *Chart) missingParents() []string {
	missing := make([]string, 0)
	seen := make(map[string]struct{})
	for _, acc := range c.accounts {
		if !acc.HasParent() {
			continue
		}
		if _, ok := c.byCode[acc.ParentCode]; ok {
			continue
		}
		if _, ok := seen[acc.ParentCode]; ok {
			continue
		}
		seen[acc.ParentCode] = struct{}{}
		missing = append(missing, acc.ParentCode)
	}
	sort.Strings(missing)
	return missing
}
