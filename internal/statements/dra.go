package statements

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-statements/internal/ledger"
	"github.com/odyssey-erp/odyssey-statements/internal/statements/classify"
	"github.com/odyssey-erp/odyssey-statements/internal/statements/rollup"
)

const noComprehensiveItems = "Não há outros resultados abrangentes no período"

func (s *Service) comprehensiveIncome(ctx context.Context, req Request) (Payload, error) {
	if err := s.requirePeriod(ctx, req.Period, req.BalanceteVersion); err != nil {
		return Payload{}, err
	}
	dre, err := s.priorIncomeStatement(ctx, req.Period, req)
	if err != nil {
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

	candidates := make([]ledger.Account, 0)
	buckets := make(map[string]classify.Bucket)
	for _, acc := range chart.Analytic(ledger.Kinds...) {
		bucket := s.rules.ClassifyPath(chart.Lineage(acc.Code), classify.ContextComprehensive)
		if bucket == classify.BucketNotComprehensive {
			continue
		}
		candidates = append(candidates, acc)
		buckets[acc.Code] = bucket
	}
	placed, orphans, err := s.placedAccounts(req, chart, candidates, snap.Balance)
	if err != nil {
		return Payload{}, err
	}

	items := make([]Item, 0)
	for _, acc := range placed {
		bucket := buckets[acc.Code]
		value := rollup.ByKind(acc, snap.Balance(acc.Code))
		if value.Abs().LessThanOrEqual(Tolerance) {
			continue
		}
		items = append(items, Item{Code: acc.Code, Name: acc.Name, Section: "other_comprehensive", Bucket: bucket, Amount: value})
	}

	netProfit := dre.Total(TotalNetProfit)
	other := sumItems(items)
	total := netProfit.Add(other)

	lines := make([]Line, 0, len(items)+4)
	lines = append(lines, resultLine("LUCRO LÍQUIDO DO EXERCÍCIO", netProfit, 1))
	lines = append(lines, titleLine("OUTROS RESULTADOS ABRANGENTES", 1))
	if len(items) == 0 {
		lines = append(lines, itemLine("", noComprehensiveItems, decimal.Zero, 2))
	} else {
		lines = append(lines, itemLines(items, 2)...)
	}
	lines = append(lines, subtotalLine("TOTAL DE OUTROS RESULTADOS ABRANGENTES", other, 1))
	lines = append(lines, resultLine("RESULTADO ABRANGENTE TOTAL DO EXERCÍCIO", total, 1))

	return Payload{
		Lines: lines,
		Totals: map[string]decimal.Decimal{
			TotalNetProfit:           netProfit,
			TotalOtherComprehensive:  other,
			TotalComprehensiveIncome: total,
		},
		Items:       items,
		Diagnostics: Diagnostics{Orphans: orphans},
	}, nil
}
