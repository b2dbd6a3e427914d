package statements

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-statements/internal/ledger"
	"github.com/odyssey-erp/odyssey-statements/internal/statements/classify"
)

var revenueLabels = map[classify.Bucket]string{
	classify.BucketProducts:     "Vendas de produtos",
	classify.BucketServices:     "Prestação de serviços",
	classify.BucketMerchandise:  "Vendas de mercadorias",
	classify.BucketOtherRevenue: "Outras receitas",
}

func (s *Service) valueAdded(ctx context.Context, req Request) (Payload, error) {
	if err := s.requirePeriod(ctx, req.Period, req.BalanceteVersion); err != nil {
		return Payload{}, err
	}
	dre, err := s.priorIncomeStatement(ctx, req.Period, req)
	if err != nil {
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

	placed, orphans, err := s.placedAccounts(req, chart,
		chart.Analytic(ledger.KindRevenue, ledger.KindCost, ledger.KindExpense), snap.Balance)
	if err != nil {
		return Payload{}, err
	}

	var (
		revenues, inputs, depreciation, transferred []Item
		personnel, taxes, lenders, unallocated      []Item
	)
	for _, acc := range placed {
		raw := snap.Balance(acc.Code)
		if raw.Abs().LessThanOrEqual(Tolerance) {
			continue
		}
		lineage := chart.Lineage(acc.Code)
		switch acc.Kind {
		case ledger.KindRevenue:
			bucket := s.rules.ClassifyPath(lineage, classify.ContextRevenue)
			it := Item{Code: acc.Code, Name: acc.Name, Bucket: bucket, Amount: raw.Neg()}
			if bucket == classify.BucketFinancialRevenue {
				it.Section = "transferred_value"
				transferred = append(transferred, it)
				continue
			}
			it.Section = "revenues"
			revenues = append(revenues, it)
		case ledger.KindCost:
			inputs = append(inputs, Item{Code: acc.Code, Name: acc.Name, Section: "third_party_inputs", Bucket: classify.BucketThirdPartyInput, Amount: raw})
		case ledger.KindExpense:
			bucket := s.rules.ClassifyPath(lineage, classify.ContextValueAdded)
			it := Item{Code: acc.Code, Name: acc.Name, Bucket: bucket, Amount: raw}
			switch bucket {
			case classify.BucketDepreciation:
				it.Section = "depreciation"
				depreciation = append(depreciation, it)
			case classify.BucketThirdPartyInput:
				it.Section = "third_party_inputs"
				inputs = append(inputs, it)
			case classify.BucketPersonnel:
				it.Section = "personnel"
				personnel = append(personnel, it)
			case classify.BucketTaxes:
				it.Section = "taxes"
				taxes = append(taxes, it)
			case classify.BucketThirdPartyCapital:
				it.Section = "third_party_capital"
				lenders = append(lenders, it)
			default:
				it.Section = "unallocated"
				unallocated = append(unallocated, it)
			}
		}
	}

	netProfit := dre.Total(TotalNetProfit)
	ownCapital := decimal.Max(netProfit, decimal.Zero)

	revenueTotal := sumItems(revenues)
	inputTotal := sumItems(inputs)
	grossValueAdded := revenueTotal.Sub(inputTotal)
	depreciationTotal := sumItems(depreciation)
	netValueAdded := grossValueAdded.Sub(depreciationTotal)
	transferredTotal := sumItems(transferred)
	totalValueAdded := netValueAdded.Add(transferredTotal)

	personnelTotal := sumItems(personnel)
	taxTotal := sumItems(taxes)
	lenderTotal := sumItems(lenders)
	distributed := personnelTotal.Add(taxTotal).Add(lenderTotal).Add(ownCapital)
	diff := totalValueAdded.Sub(distributed)
	balanced := diff.Abs().LessThan(Tolerance)
	if !balanced {
		s.logger.Warn("value added distribution does not match generation",
			slog.String("period", req.Period),
			slog.String("difference", diff.StringFixed(2)),
			slog.Int("unallocated", len(unallocated)),
		)
	}

	lines := make([]Line, 0, 32)
	lines = append(lines, titleLine("1 - RECEITAS", 0))
	for _, bucket := range []classify.Bucket{classify.BucketProducts, classify.BucketServices, classify.BucketMerchandise, classify.BucketOtherRevenue} {
		if sub, ok := subtotalByBucket(revenues, bucket); ok {
			lines = append(lines, itemLine("", revenueLabels[bucket], sub, 1))
		}
	}
	lines = append(lines, subtotalLine("Total de receitas", revenueTotal, 1))
	lines = append(lines, titleLine("2 - INSUMOS ADQUIRIDOS DE TERCEIROS", 0))
	lines = append(lines, itemLines(inputs, 1)...)
	lines = append(lines, subtotalLine("Total de insumos", inputTotal, 1))
	lines = append(lines, resultLine("3 - VALOR ADICIONADO BRUTO (1-2)", grossValueAdded, 0))
	lines = append(lines, subtotalLine("4 - DEPRECIAÇÃO, AMORTIZAÇÃO E EXAUSTÃO", depreciationTotal, 0))
	lines = append(lines, itemLines(depreciation, 1)...)
	lines = append(lines, resultLine("5 - VALOR ADICIONADO LÍQUIDO PRODUZIDO (3-4)", netValueAdded, 0))
	lines = append(lines, subtotalLine("6 - VALOR ADICIONADO RECEBIDO EM TRANSFERÊNCIA", transferredTotal, 0))
	lines = append(lines, itemLines(transferred, 1)...)
	lines = append(lines, resultLine("7 - VALOR ADICIONADO TOTAL A DISTRIBUIR (5+6)", totalValueAdded, 0))
	lines = append(lines, titleLine("8 - DISTRIBUIÇÃO DO VALOR ADICIONADO", 0))
	lines = append(lines, subtotalLine("Pessoal", personnelTotal, 1))
	lines = append(lines, itemLines(personnel, 2)...)
	lines = append(lines, subtotalLine("Impostos, taxas e contribuições", taxTotal, 1))
	lines = append(lines, itemLines(taxes, 2)...)
	lines = append(lines, subtotalLine("Remuneração de capitais de terceiros", lenderTotal, 1))
	lines = append(lines, itemLines(lenders, 2)...)
	lines = append(lines, subtotalLine("Remuneração de capitais próprios", ownCapital, 1))
	lines = append(lines, resultLine("TOTAL DISTRIBUÍDO", distributed, 0))

	items := make([]Item, 0, len(revenues)+len(inputs)+len(depreciation)+len(transferred)+len(personnel)+len(taxes)+len(lenders))
	for _, group := range [][]Item{revenues, inputs, depreciation, transferred, personnel, taxes, lenders} {
		items = append(items, group...)
	}

	return Payload{
		Lines: lines,
		Totals: map[string]decimal.Decimal{
			TotalDVARevenues:       revenueTotal,
			TotalThirdPartyInputs:  inputTotal,
			TotalGrossValueAdded:   grossValueAdded,
			TotalDepreciation:      depreciationTotal,
			TotalNetValueAdded:     netValueAdded,
			TotalTransferredValue:  transferredTotal,
			TotalValueAdded:        totalValueAdded,
			TotalPersonnel:         personnelTotal,
			TotalTaxes:             taxTotal,
			TotalThirdPartyCapital: lenderTotal,
			TotalOwnCapital:        ownCapital,
			TotalDistributed:       distributed,
			TotalUnallocated:       sumItems(unallocated),
			TotalNetProfit:         netProfit,
		},
		Items: items,
		Diagnostics: Diagnostics{
			Balanced:    boolPtr(balanced),
			Difference:  amount(diff),
			Orphans:     orphans,
			Unallocated: unallocated,
		},
	}, nil
}

func subtotalByBucket(items []Item, bucket classify.Bucket) (decimal.Decimal, bool) {
	total := decimal.Zero
	found := false
	for _, it := range items {
		if it.Bucket == bucket {
			total = total.Add(it.Amount)
			found = true
		}
	}
	return total, found
}
