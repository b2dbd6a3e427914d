package statements

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-statements/internal/ledger"
	"github.com/odyssey-erp/odyssey-statements/internal/statements/rollup"
)

func (s *Service) incomeStatement(ctx context.Context, req Request) (Payload, error) {
	if err := s.requirePeriod(ctx, req.Period, req.BalanceteVersion); err != nil {
		return Payload{}, err
	}
	chart, err := s.loadChart(ctx, req.ChartVersion, ledger.KindRevenue, ledger.KindCost, ledger.KindExpense)
	if err != nil {
		return Payload{}, err
	}
	snap, err := s.loadSnapshot(ctx, chart, req.Period, req.BalanceteVersion)
	if err != nil {
		return Payload{}, err
	}

	revenue := rollup.Build(chart, rollup.Options{Kinds: []ledger.Kind{ledger.KindRevenue}, Balance: snap.Balance, Sign: rollup.CreditNormal})
	costs := rollup.Build(chart, rollup.Options{Kinds: []ledger.Kind{ledger.KindCost}, Balance: snap.Balance, Sign: rollup.Natural})
	expenses := rollup.Build(chart, rollup.Options{Kinds: []ledger.Kind{ledger.KindExpense}, Balance: snap.Balance, Sign: rollup.Natural})
	orphans, err := s.placeOrphans(req, revenue, costs, expenses)
	if err != nil {
		return Payload{}, err
	}

	grossProfit := revenue.Total.Sub(costs.Total)
	operatingProfit := grossProfit.Sub(expenses.Total)
	// No income tax or minority interest layer is modelled.
	netProfit := operatingProfit

	revenueNodes := revenue.Sorted()
	costNodes := costs.Sorted()
	expenseNodes := expenses.Sorted()
	lines := make([]Line, 0, 16)
	lines = append(lines, subtotalLine("RECEITA BRUTA", revenue.Total, 0))
	lines = append(lines, nodeLines(revenueNodes, 1)...)
	lines = append(lines, subtotalLine("(-) CUSTOS", costs.Total, 0))
	lines = append(lines, nodeLines(costNodes, 1)...)
	lines = append(lines, resultLine("LUCRO BRUTO", grossProfit, 0))
	lines = append(lines, subtotalLine("(-) DESPESAS OPERACIONAIS", expenses.Total, 0))
	lines = append(lines, nodeLines(expenseNodes, 1)...)
	lines = append(lines, resultLine("LUCRO OPERACIONAL", operatingProfit, 0))
	lines = append(lines, resultLine("LUCRO LÍQUIDO DO EXERCÍCIO", netProfit, 0))

	return Payload{
		Lines: lines,
		Totals: map[string]decimal.Decimal{
			TotalRevenue:         revenue.Total,
			TotalCost:            costs.Total,
			TotalExpense:         expenses.Total,
			TotalGrossProfit:     grossProfit,
			TotalOperatingProfit: operatingProfit,
			TotalNetProfit:       netProfit,
		},
		Sections: map[string][]rollup.Node{
			"revenue":  revenueNodes,
			"costs":    costNodes,
			"expenses": expenseNodes,
		},
		Diagnostics: Diagnostics{Orphans: orphans},
	}, nil
}
