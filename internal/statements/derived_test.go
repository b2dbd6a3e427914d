package statements

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-statements/internal/ledger"
	"github.com/odyssey-erp/odyssey-statements/internal/statements/rollup"
)

func requireOrphan(t *testing.T, orphans []rollup.Orphan, code, amount string) {
	t.Helper()
	require.Len(t, orphans, 1)
	assert.Equal(t, code, orphans[0].Code)
	assert.Equal(t, rollup.ReasonMissingParent, orphans[0].Reason)
	assert.Equal(t, amount, orphans[0].Amount.StringFixed(2))
}

func orphanEquityFixture() ([]ledger.Account, *mockBalances) {
	chart := append(fixtureChart(), account("3.9.01", "Reserva Avulsa", ledger.KindEquity, 3, true, "9.9"))
	balances := fixtureBalances().set("2024-12", "3.9.01", -50).set("2024-12", "1.1.01", 2500)
	return chart, balances
}

func TestEquityChangesOrphanPolicyFail(t *testing.T) {
	chart, balances := orphanEquityFixture()
	store := newMemoryStore()
	svc := newFixtureService(&mockAccounts{accounts: chart}, balances, store)

	_, err := svc.Generate(context.Background(), ranged(TypeDMPL, "2023-12", "2024-12"))
	se := requireKind(t, err, KindOrphanedAccount)
	requireOrphan(t, se.Orphans, "3.9.01", "-50.00")
	assert.Zero(t, store.len())
}

func TestEquityChangesOrphanPolicyReportExcludesOrphan(t *testing.T) {
	chart, balances := orphanEquityFixture()
	svc := newFixtureService(&mockAccounts{accounts: chart}, balances, newMemoryStore(), WithOrphanPolicy(OrphanPolicyReport))

	doc, err := svc.Generate(context.Background(), ranged(TypeDMPL, "2023-12", "2024-12"))
	require.NoError(t, err)
	assert.Equal(t, "2000.00", total(t, doc, TotalOpeningEquity))
	assert.Equal(t, "3850.00", total(t, doc, TotalClosingEquity), "the orphan never reaches the table")
	assert.True(t, *doc.Payload.Diagnostics.Balanced)
	requireOrphan(t, doc.Payload.Diagnostics.Orphans, "3.9.01", "-50.00")
	for _, row := range doc.Payload.Table.Rows {
		for _, it := range row.Contributions {
			assert.NotEqual(t, "3.9.01", it.Code)
		}
	}
}

func orphanAssetFixture() ([]ledger.Account, *mockBalances) {
	chart := append(fixtureChart(), account("1.9.01", "Depósitos Judiciais", ledger.KindAsset, 3, true, "9.9"))
	balances := fixtureBalances().set("2024-12", "1.9.01", 40).set("2024-12", "1.1.01", 2410)
	return chart, balances
}

func TestCashFlowOrphanPolicyFail(t *testing.T) {
	chart, balances := orphanAssetFixture()
	store := newMemoryStore()
	svc := newFixtureService(&mockAccounts{accounts: chart}, balances, store, WithAutoChain(true))

	_, err := svc.Generate(context.Background(), ranged(TypeDFC, "2023-12", "2024-12"))
	se := requireKind(t, err, KindOrphanedAccount)
	requireOrphan(t, se.Orphans, "1.9.01", "40.00")
	_, err = svc.Get(context.Background(), TypeDFC, "2023-12_2024-12", balanceteVersion)
	requireKind(t, err, KindNotFound)
}

func TestCashFlowOrphanPolicyReportExcludesOrphan(t *testing.T) {
	chart, balances := orphanAssetFixture()
	svc := newFixtureService(&mockAccounts{accounts: chart}, balances, newMemoryStore(),
		WithAutoChain(true), WithOrphanPolicy(OrphanPolicyReport))

	doc, err := svc.Generate(context.Background(), ranged(TypeDFC, "2023-12", "2024-12"))
	require.NoError(t, err)
	assert.Equal(t, "-200.00", total(t, doc, TotalWorkingCapitalChange), "the orphan stays out of working capital")
	for _, it := range doc.Payload.Items {
		assert.NotEqual(t, "1.9.01", it.Code)
	}
	diag := doc.Payload.Diagnostics
	requireOrphan(t, diag.Orphans, "1.9.01", "40.00")
	assert.False(t, *diag.Reconciled, "the excluded movement shows up as a difference")
	assert.Equal(t, "-40.00", diag.Difference.StringFixed(2))
}

func orphanExpenseFixture() ([]ledger.Account, *mockBalances) {
	chart := append(fixtureChart(), account("6.9.01", "Despesas Eventuais", ledger.KindExpense, 3, true, "9.9"))
	balances := fixtureBalances().set("2024-12", "6.9.01", 30).set("2024-12", "1.1.01", 2420)
	return chart, balances
}

func TestValueAddedOrphanPolicyFail(t *testing.T) {
	chart, balances := orphanExpenseFixture()
	store := newMemoryStore()
	ctx := context.Background()

	reporting := newFixtureService(&mockAccounts{accounts: chart}, balances, store, WithOrphanPolicy(OrphanPolicyReport))
	_, err := reporting.Generate(ctx, single(TypeDRE, "2024-12"))
	require.NoError(t, err)

	svc := newFixtureService(&mockAccounts{accounts: chart}, balances, store)
	_, err = svc.Generate(ctx, single(TypeDVA, "2024-12"))
	se := requireKind(t, err, KindOrphanedAccount)
	requireOrphan(t, se.Orphans, "6.9.01", "30.00")
	assert.Equal(t, 1, store.len())
}

func TestValueAddedOrphanPolicyReportExcludesOrphan(t *testing.T) {
	chart, balances := orphanExpenseFixture()
	svc := newFixtureService(&mockAccounts{accounts: chart}, balances, newMemoryStore(),
		WithAutoChain(true), WithOrphanPolicy(OrphanPolicyReport))

	doc, err := svc.Generate(context.Background(), single(TypeDVA, "2024-12"))
	require.NoError(t, err)
	assert.Equal(t, "1650.00", total(t, doc, TotalOwnCapital))
	assert.Equal(t, "0.00", total(t, doc, TotalUnallocated))
	assert.True(t, *doc.Payload.Diagnostics.Balanced)
	assert.Empty(t, doc.Payload.Diagnostics.Unallocated)
	requireOrphan(t, doc.Payload.Diagnostics.Orphans, "6.9.01", "30.00")
}

func orphanComprehensiveFixture() ([]ledger.Account, *mockBalances) {
	chart := append(fixtureChart(), account("3.9.01", "Ajuste de Avaliação Avulso", ledger.KindEquity, 3, true, "9.9"))
	balances := fixtureBalances().set("2024-12", "3.9.01", -80).set("2024-12", "1.1.01", 2530)
	return chart, balances
}

func TestComprehensiveIncomeOrphanPolicyFail(t *testing.T) {
	chart, balances := orphanComprehensiveFixture()
	svc := newFixtureService(&mockAccounts{accounts: chart}, balances, newMemoryStore(), WithAutoChain(true))

	_, err := svc.Generate(context.Background(), single(TypeDRA, "2024-12"))
	se := requireKind(t, err, KindOrphanedAccount)
	requireOrphan(t, se.Orphans, "3.9.01", "-80.00")
}

func TestComprehensiveIncomeOrphanPolicyReportExcludesOrphan(t *testing.T) {
	chart, balances := orphanComprehensiveFixture()
	svc := newFixtureService(&mockAccounts{accounts: chart}, balances, newMemoryStore(),
		WithAutoChain(true), WithOrphanPolicy(OrphanPolicyReport))

	doc, err := svc.Generate(context.Background(), single(TypeDRA, "2024-12"))
	require.NoError(t, err)
	assert.Empty(t, doc.Payload.Items)
	assert.Equal(t, "0.00", total(t, doc, TotalOtherComprehensive))
	assert.Equal(t, "1650.00", total(t, doc, TotalComprehensiveIncome))
	requireOrphan(t, doc.Payload.Diagnostics.Orphans, "3.9.01", "-80.00")
}

func TestCashFlowCarriesResultHiddenByIncomeStatement(t *testing.T) {
	chart := fixtureChart()
	balances := fixtureBalances().set("2024-12", "1.1.01", 2449.95)
	for _, code := range []string{"6.1.05", "6.1.06", "6.1.07", "6.1.08", "6.1.09"} {
		chart = append(chart, account(code, "Tarifas Bancárias "+code, ledger.KindExpense, 3, true, "6.1"))
		balances.set("2024-12", code, 0.01)
	}
	svc := newFixtureService(&mockAccounts{accounts: chart}, balances, newMemoryStore(), WithAutoChain(true))

	doc, err := svc.Generate(context.Background(), ranged(TypeDFC, "2023-12", "2024-12"))
	require.NoError(t, err)
	assert.Equal(t, "1650.00", total(t, doc, TotalNetProfit))
	assert.Equal(t, "-0.05", total(t, doc, TotalUnpresentedResult))
	assert.Equal(t, "1449.95", total(t, doc, TotalOperating))
	assert.Equal(t, "1449.95", total(t, doc, TotalNetCashChange))

	diag := doc.Payload.Diagnostics
	assert.True(t, *diag.Reconciled)
	assert.True(t, diag.Difference.IsZero(), "difference %s", diag.Difference)

	found := false
	for _, line := range doc.Payload.Lines {
		if line.Description == "Resultados não apresentados na DRE" {
			found = true
			assert.Equal(t, "-0.05", line.Value.StringFixed(2))
		}
	}
	assert.True(t, found)
}

func TestCashFlowOmitsResidueLineWhenIncomeStatementIsComplete(t *testing.T) {
	svc := newFixtureService(&mockAccounts{accounts: fixtureChart()}, fixtureBalances(), newMemoryStore(), WithAutoChain(true))

	doc, err := svc.Generate(context.Background(), ranged(TypeDFC, "2023-12", "2024-12"))
	require.NoError(t, err)
	assert.Equal(t, "0.00", total(t, doc, TotalUnpresentedResult))
	for _, line := range doc.Payload.Lines {
		assert.NotEqual(t, "Resultados não apresentados na DRE", line.Description)
	}
}

func TestGenerateSurvivesFirstCallerCancellation(t *testing.T) {
	accounts := &mockAccounts{accounts: fixtureChart(), delay: 10 * time.Millisecond}
	store := newMemoryStore()
	svc := newFixtureService(accounts, fixtureBalances(), store)

	first, cancel := context.WithCancel(context.Background())
	defer cancel()
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.Generate(first, single(TypeBP, "2024-12"))
		firstErr <- err
	}()
	time.Sleep(5 * time.Millisecond)

	type result struct {
		doc Document
		err error
	}
	second := make(chan result, 1)
	go func() {
		doc, err := svc.Generate(context.Background(), single(TypeBP, "2024-12"))
		second <- result{doc, err}
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()

	err := <-firstErr
	requireKind(t, err, KindComputation)
	assert.ErrorIs(t, err, context.Canceled)

	res := <-second
	require.NoError(t, res.err, "a shared generation must not inherit another caller's cancellation")
	assert.Equal(t, "5450.00", total(t, res.doc, TotalAssets))
	assert.Equal(t, 1, store.len())
}

func TestDerivedStatementsRequireTrialBalance(t *testing.T) {
	store := newMemoryStore()
	ctx := context.Background()
	seed := newFixtureService(&mockAccounts{accounts: fixtureChart()}, fixtureBalances(), store)
	_, err := seed.Generate(ctx, single(TypeDRE, "2024-12"))
	require.NoError(t, err)

	onlyOpening := newMockBalances().set("2023-12", "1.1.01", 1000).set("2023-12", "3.1.01", -1000)
	svc := newFixtureService(&mockAccounts{accounts: fixtureChart()}, onlyOpening, store)
	for _, typ := range []Type{TypeDRA, TypeDVA} {
		t.Run(string(typ), func(t *testing.T) {
			_, err := svc.Generate(ctx, single(typ, "2024-12"))
			se := requireKind(t, err, KindNotFound)
			assert.Contains(t, se.Message, "no trial balance")
		})
	}
	assert.Equal(t, 1, store.len())
}
