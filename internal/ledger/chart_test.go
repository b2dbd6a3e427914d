package ledger

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/odyssey-erp/odyssey-statements/testing"
)

type fakeAccounts struct {
	accounts []Account
	byCode   int
}

func (f *fakeAccounts) AccountsByKind(ctx context.Context, kind Kind, version string) ([]Account, error) {
	out := make([]Account, 0)
	for _, acc := range f.accounts {
		if acc.Kind == kind && acc.Version == version {
			out = append(out, acc)
		}
	}
	return out, nil
}

func (f *fakeAccounts) AccountByCode(ctx context.Context, code, version string) (Account, error) {
	f.byCode++
	for _, acc := range f.accounts {
		if acc.Code == code && acc.Version == version {
			return acc, nil
		}
	}
	return Account{}, ErrAccountNotFound
}

type fakeBalances map[string]decimal.Decimal

func (f fakeBalances) Balance(ctx context.Context, code, period, version string) (decimal.Decimal, error) {
	return f[code], nil
}

func (f fakeBalances) SumOfAllBalances(ctx context.Context, period, version string) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, v := range f {
		total = total.Add(v)
	}
	return total, nil
}

func TestLoadChartResolvesForeignParents(t *testing.T) {
	repo := &fakeAccounts{accounts: []Account{
		{Code: "1", Name: "Ativo", Kind: KindAsset, Level: 1, Version: "1.0", Active: true},
		{Code: "1.1", Name: "Ativo Circulante", Kind: KindAsset, Level: 2, ParentCode: "1", Version: "1.0", Active: true},
		{Code: "1.1.01", Name: "Caixa", Kind: KindAsset, Level: 3, Analytic: true, ParentCode: "1.1", Version: "1.0", Active: true},
		{Code: "2", Name: "Passivo", Kind: KindLiability, Level: 1, Version: "1.0", Active: true},
		{Code: "1.9.01", Name: "Conta mal classificada", Kind: KindAsset, Level: 3, Analytic: true, ParentCode: "2", Version: "1.0", Active: true},
		{Code: "1.8.01", Name: "Conta sem pai", Kind: KindAsset, Level: 3, Analytic: true, ParentCode: "9.9", Version: "1.0", Active: true},
	}}

	chart, err := LoadChart(context.Background(), repo, "1.0", KindAsset)
	require.NoError(t, err)

	parent, ok := chart.Lookup("2")
	require.True(t, ok, "cross-kind parent should be resolved")
	assert.Equal(t, KindLiability, parent.Kind)
	_, ok = chart.Lookup("9.9")
	assert.False(t, ok)
	assert.Equal(t, 2, repo.byCode)
	assert.Equal(t, []string{"Caixa", "Ativo Circulante", "Ativo"}, chart.Lineage("1.1.01"))
}

func TestLoadChartSkipsInactive(t *testing.T) {
	repo := &fakeAccounts{accounts: []Account{
		{Code: "3", Name: "Patrimônio Líquido", Kind: KindEquity, Level: 1, Version: "1.0", Active: true},
		{Code: "3.1", Name: "Capital", Kind: KindEquity, Level: 2, ParentCode: "3", Version: "1.0", Active: false},
	}}
	chart, err := LoadChart(context.Background(), repo, "1.0", KindEquity)
	require.NoError(t, err)
	assert.Equal(t, 1, chart.Len())
}

func TestLineageStopsOnCycle(t *testing.T) {
	chart := NewChart("1.0", []Account{
		{Code: "a", Name: "A", ParentCode: "b"},
		{Code: "b", Name: "B", ParentCode: "a"},
	})
	assert.Equal(t, []string{"A", "B"}, chart.Lineage("a"))
}

func TestLoadSnapshotPerCode(t *testing.T) {
	chart := NewChart("1.0", []Account{
		{Code: "1", Name: "Ativo", Kind: KindAsset, Level: 1},
		{Code: "1.1.01", Name: "Caixa", Kind: KindAsset, Level: 3, Analytic: true, ParentCode: "1.1"},
	})
	store := fakeBalances{"1": decimal.RequireFromString("99"), "1.1.01": decimal.RequireFromString("1000.00")}

	snap, err := LoadSnapshot(context.Background(), store, chart, "2024-01", "1.0")
	require.NoError(t, err)
	assert.True(t, snap.Balance("1.1.01").Equal(decimal.RequireFromString("1000")))
	assert.True(t, snap.Balance("1").IsZero(), "synthetic rows are not read")
}
