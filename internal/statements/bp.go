package statements

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-statements/internal/ledger"
	"github.com/odyssey-erp/odyssey-statements/internal/statements/rollup"
)

const (
	unclosedResultCode = "RESULTADO"
	unclosedResultName = "Resultado do exercício"
)

// unclosedResult is the credit-positive result still carried by temporary
// accounts, zero once the period has been closed into equity.
func unclosedResult(chart *ledger.Chart, snap ledger.Snapshot) decimal.Decimal {
	return snap.Sum(chart.Analytic(ledger.KindRevenue, ledger.KindCost, ledger.KindExpense)).Neg()
}

func (s *Service) balanceSheet(ctx context.Context, req Request) (Payload, error) {
	if err := s.requireClosure(ctx, req.Period, req.BalanceteVersion); err != nil {
		return Payload{}, err
	}
	chart, err := s.loadChart(ctx, req.ChartVersion, ledger.Kinds...)
	if err != nil {
		return Payload{}, err
	}
	snap, err := s.loadSnapshot(ctx, chart, req.Period, req.BalanceteVersion)
	if err != nil {
		return Payload{}, err
	}

	assets := rollup.Build(chart, rollup.Options{Kinds: []ledger.Kind{ledger.KindAsset}, Balance: snap.Balance, Sign: rollup.Natural})
	liabilities := rollup.Build(chart, rollup.Options{Kinds: []ledger.Kind{ledger.KindLiability}, Balance: snap.Balance, Sign: rollup.CreditNormal})
	equity := rollup.Build(chart, rollup.Options{Kinds: []ledger.Kind{ledger.KindEquity}, Balance: snap.Balance, Sign: rollup.CreditNormal})
	orphans, err := s.placeOrphans(req, assets, liabilities, equity)
	if err != nil {
		return Payload{}, err
	}

	equityNodes := equity.Sorted()
	totalEquity := equity.Total
	unclosed := unclosedResult(chart, snap)
	if unclosed.Abs().GreaterThan(Tolerance) {
		totalEquity = totalEquity.Add(unclosed)
		equityNodes = append(equityNodes, rollup.Node{Code: unclosedResultCode, Name: unclosedResultName, Level: 1, Balance: unclosed})
	} else {
		unclosed = decimal.Zero
	}
	liabilitiesAndEquity := liabilities.Total.Add(totalEquity)
	diff := assets.Total.Sub(liabilitiesAndEquity)
	if diff.Abs().GreaterThan(Tolerance) {
		return Payload{}, imbalanceError(KindBalanceSheetImbalance, diff,
			"total assets %s differ from liabilities and equity %s by %s",
			assets.Total.StringFixed(2), liabilitiesAndEquity.StringFixed(2), diff.StringFixed(2))
	}

	assetNodes := assets.Sorted()
	liabilityNodes := liabilities.Sorted()
	lines := make([]Line, 0, 16)
	lines = append(lines, titleLine("ATIVO", 0))
	lines = append(lines, nodeLines(assetNodes, 1)...)
	lines = append(lines, subtotalLine("TOTAL DO ATIVO", assets.Total, 0))
	lines = append(lines, titleLine("PASSIVO", 0))
	lines = append(lines, nodeLines(liabilityNodes, 1)...)
	lines = append(lines, subtotalLine("TOTAL DO PASSIVO", liabilities.Total, 0))
	lines = append(lines, titleLine("PATRIMÔNIO LÍQUIDO", 0))
	lines = append(lines, nodeLines(equityNodes, 1)...)
	lines = append(lines, subtotalLine("TOTAL DO PATRIMÔNIO LÍQUIDO", totalEquity, 0))
	lines = append(lines, resultLine("TOTAL DO PASSIVO E PATRIMÔNIO LÍQUIDO", liabilitiesAndEquity, 0))

	return Payload{
		Lines: lines,
		Totals: map[string]decimal.Decimal{
			TotalAssets:               assets.Total,
			TotalLiabilities:          liabilities.Total,
			TotalEquity:               totalEquity,
			TotalLiabilitiesAndEquity: liabilitiesAndEquity,
			TotalUnclosedResult:       unclosed,
		},
		Sections: map[string][]rollup.Node{
			"assets":      assetNodes,
			"liabilities": liabilityNodes,
			"equity":      equityNodes,
		},
		Diagnostics: Diagnostics{
			Balanced:   boolPtr(true),
			Difference: amount(diff),
			Orphans:    orphans,
		},
	}, nil
}
