package statements

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-statements/internal/ledger"
)

const (
	chartVersion     = "v1"
	balanceteVersion = "b1"
)

type mockAccounts struct {
	accounts []ledger.Account
	delay    time.Duration
	panicMsg string

	calls    atomic.Int64
	inflight atomic.Int64
	maxSeen  atomic.Int64
}

func (m *mockAccounts) enter() func() {
	m.calls.Add(1)
	n := m.inflight.Add(1)
	for {
		seen := m.maxSeen.Load()
		if n <= seen || m.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	return func() { m.inflight.Add(-1) }
}

func (m *mockAccounts) AccountsByKind(ctx context.Context, kind ledger.Kind, version string) ([]ledger.Account, error) {
	defer m.enter()()
	if m.panicMsg != "" {
		panic(m.panicMsg)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]ledger.Account, 0)
	for _, acc := range m.accounts {
		if acc.Kind == kind && acc.Version == version {
			out = append(out, acc)
		}
	}
	return out, nil
}

func (m *mockAccounts) AccountByCode(ctx context.Context, code, version string) (ledger.Account, error) {
	for _, acc := range m.accounts {
		if acc.Code == code && acc.Version == version {
			return acc, nil
		}
	}
	return ledger.Account{}, ledger.ErrAccountNotFound
}

type mockBalances struct {
	mu      sync.Mutex
	periods map[string]map[string]decimal.Decimal
}

func newMockBalances() *mockBalances {
	return &mockBalances{periods: make(map[string]map[string]decimal.Decimal)}
}

func (m *mockBalances) set(period, code string, v float64) *mockBalances {
	return m.setAmount(period, code, decimal.NewFromFloat(v))
}

func (m *mockBalances) setAmount(period, code string, v decimal.Decimal) *mockBalances {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, ok := m.periods[period]
	if !ok {
		rows = make(map[string]decimal.Decimal)
		m.periods[period] = rows
	}
	rows[code] = v
	return m
}

func (m *mockBalances) Balance(ctx context.Context, code, period, version string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if version != balanceteVersion {
		return decimal.Zero, nil
	}
	return m.periods[period][code], nil
}

func (m *mockBalances) SumOfAllBalances(ctx context.Context, period, version string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, ok := m.periods[period]
	if !ok || version != balanceteVersion {
		return decimal.Zero, ledger.ErrPeriodNotFound
	}
	sum := decimal.Zero
	for _, v := range rows {
		sum = sum.Add(v)
	}
	return sum, nil
}

type memoryStore struct {
	mu      sync.Mutex
	docs    map[string]Document
	upserts int
	gets    int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{docs: make(map[string]Document)}
}

func storeKey(typ Type, periodKey, version string) string {
	return string(typ) + "|" + periodKey + "|" + version
}

func (m *memoryStore) Get(ctx context.Context, typ Type, periodKey, version string) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	doc, ok := m.docs[storeKey(typ, periodKey, version)]
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

func (m *memoryStore) Upsert(ctx context.Context, doc Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	key := storeKey(doc.Type, doc.PeriodKey, doc.BalanceteVersion)
	if prev, ok := m.docs[key]; ok {
		doc.ID = prev.ID
	}
	m.docs[key] = doc
	return nil
}

func (m *memoryStore) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}

func account(code, name string, kind ledger.Kind, level int, analytic bool, parent string) ledger.Account {
	nature := ledger.NaturePermanent
	if kind.Temporary() {
		nature = ledger.NatureTemporary
	}
	return ledger.Account{
		Code:       code,
		Name:       name,
		Kind:       kind,
		Nature:     nature,
		Level:      level,
		Analytic:   analytic,
		ParentCode: parent,
		Version:    chartVersion,
		Active:     true,
	}
}

// fixtureChart is a small but complete chart of accounts.
func fixtureChart() []ledger.Account {
	return []ledger.Account{
		account("1", "Ativo", ledger.KindAsset, 1, false, ""),
		account("1.1", "Ativo Circulante", ledger.KindAsset, 2, false, "1"),
		account("1.1.01", "Caixa", ledger.KindAsset, 3, true, "1.1"),
		account("1.1.02", "Clientes", ledger.KindAsset, 3, true, "1.1"),
		account("1.2", "Ativo Não Circulante", ledger.KindAsset, 2, false, "1"),
		account("1.2.01", "Máquinas e Equipamentos", ledger.KindAsset, 3, true, "1.2"),
		account("1.2.02", "(-) Depreciação Acumulada", ledger.KindAsset, 3, true, "1.2"),

		account("2", "Passivo", ledger.KindLiability, 1, false, ""),
		account("2.1", "Passivo Circulante", ledger.KindLiability, 2, false, "2"),
		account("2.1.01", "Fornecedores", ledger.KindLiability, 3, true, "2.1"),
		account("2.2", "Passivo Não Circulante", ledger.KindLiability, 2, false, "2"),
		account("2.2.01", "Empréstimos e Financiamentos", ledger.KindLiability, 3, true, "2.2"),

		account("3", "Patrimônio Líquido", ledger.KindEquity, 1, false, ""),
		account("3.1", "Capital Social", ledger.KindEquity, 2, false, "3"),
		account("3.1.01", "Capital Subscrito", ledger.KindEquity, 3, true, "3.1"),
		account("3.2", "Reservas de Lucros", ledger.KindEquity, 2, false, "3"),
		account("3.2.01", "Reserva Legal", ledger.KindEquity, 3, true, "3.2"),
		account("3.3", "Lucros Acumulados", ledger.KindEquity, 2, false, "3"),
		account("3.3.01", "Lucros Acumulados", ledger.KindEquity, 3, true, "3.3"),

		account("4", "Receitas", ledger.KindRevenue, 1, false, ""),
		account("4.1", "Receita Bruta", ledger.KindRevenue, 2, false, "4"),
		account("4.1.01", "Venda de Produtos", ledger.KindRevenue, 3, true, "4.1"),
		account("4.1.02", "Receitas Financeiras", ledger.KindRevenue, 3, true, "4.1"),

		account("5", "Custos", ledger.KindCost, 1, false, ""),
		account("5.1", "Custo das Vendas", ledger.KindCost, 2, false, "5"),
		account("5.1.01", "Custo dos Produtos Vendidos", ledger.KindCost, 3, true, "5.1"),

		account("6", "Despesas", ledger.KindExpense, 1, false, ""),
		account("6.1", "Despesas Operacionais", ledger.KindExpense, 2, false, "6"),
		account("6.1.01", "Salários e Ordenados", ledger.KindExpense, 3, true, "6.1"),
		account("6.1.02", "Despesa de Depreciação", ledger.KindExpense, 3, true, "6.1"),
		account("6.1.03", "Impostos e Taxas", ledger.KindExpense, 3, true, "6.1"),
		account("6.1.04", "Juros Passivos", ledger.KindExpense, 3, true, "6.1"),
	}
}

// fixtureBalances holds a closed opening year (2023-12) and an unclosed
// closing period (2024-12) with a net profit of 1650.
func fixtureBalances() *mockBalances {
	b := newMockBalances()
	b.set("2023-12", "1.1.01", 1000).
		set("2023-12", "1.1.02", 500).
		set("2023-12", "1.2.01", 2000).
		set("2023-12", "1.2.02", -200).
		set("2023-12", "2.1.01", -300).
		set("2023-12", "2.2.01", -1000).
		set("2023-12", "3.1.01", -1500).
		set("2023-12", "3.2.01", -100).
		set("2023-12", "3.3.01", -400)

	b.set("2024-12", "1.1.01", 2450).
		set("2024-12", "1.1.02", 800).
		set("2024-12", "1.2.01", 2500).
		set("2024-12", "1.2.02", -300).
		set("2024-12", "2.1.01", -400).
		set("2024-12", "2.2.01", -1200).
		set("2024-12", "3.1.01", -1800).
		set("2024-12", "3.2.01", -100).
		set("2024-12", "3.3.01", -300).
		set("2024-12", "4.1.01", -5000).
		set("2024-12", "4.1.02", -200).
		set("2024-12", "5.1.01", 2000).
		set("2024-12", "6.1.01", 1000).
		set("2024-12", "6.1.02", 100).
		set("2024-12", "6.1.03", 300).
		set("2024-12", "6.1.04", 150)
	return b
}

var fixedNow = time.Date(2025, 1, 15, 9, 30, 0, 0, time.UTC)

func newFixtureService(accounts *mockAccounts, balances *mockBalances, store Store, opts ...Option) *Service {
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewService(accounts, balances, store, opts...)
}
