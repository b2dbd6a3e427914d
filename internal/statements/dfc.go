package statements

import (
	"context"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-statements/internal/ledger"
	"github.com/odyssey-erp/odyssey-statements/internal/statements/classify"
)

// Cash flow item sections.
const (
	sectionNonCash        = "non_cash_adjustments"
	sectionWorkingCapital = "working_capital"
	sectionResultTransfer = "result_transfers"
	sectionInvesting      = "investing"
	sectionFinancing      = "financing"
)

// loadBoundaries reads the opening and closing snapshots concurrently after
// checking the closure invariant at both ends.
func (s *Service) loadBoundaries(ctx context.Context, chart *ledger.Chart, req Request) (ledger.Snapshot, ledger.Snapshot, error) {
	var opening, closing ledger.Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.requireClosure(gctx, req.PeriodStart, req.BalanceteVersion); err != nil {
			return err
		}
		snap, err := s.loadSnapshot(gctx, chart, req.PeriodStart, req.BalanceteVersion)
		opening = snap
		return err
	})
	g.Go(func() error {
		if err := s.requireClosure(gctx, req.PeriodEnd, req.BalanceteVersion); err != nil {
			return err
		}
		snap, err := s.loadSnapshot(gctx, chart, req.PeriodEnd, req.BalanceteVersion)
		closing = snap
		return err
	})
	if err := g.Wait(); err != nil {
		return ledger.Snapshot{}, ledger.Snapshot{}, err
	}
	return opening, closing, nil
}

func (s *Service) cashFlow(ctx context.Context, req Request) (Payload, error) {
	if req.Method != MethodIndirect {
		return Payload{}, newError(KindUnsupportedMethod, "%s cash flow is not supported", req.Method)
	}
	chart, err := s.loadChart(ctx, req.ChartVersion, ledger.Kinds...)
	if err != nil {
		return Payload{}, err
	}
	opening, closing, err := s.loadBoundaries(ctx, chart, req)
	if err != nil {
		return Payload{}, err
	}
	dre, err := s.priorIncomeStatement(ctx, req.PeriodEnd, req)
	if err != nil {
		return Payload{}, err
	}

	placed, orphans, err := s.placedAccounts(req, chart,
		chart.Analytic(ledger.KindAsset, ledger.KindLiability, ledger.KindEquity),
		opening.Balance, closing.Balance)
	if err != nil {
		return Payload{}, err
	}

	var (
		openingCash = decimal.Zero
		closingCash = decimal.Zero
		items       = make([]Item, 0)
	)
	for _, acc := range placed {
		lineage := chart.Lineage(acc.Code)
		if acc.Kind == ledger.KindAsset && s.rules.ClassifyPath(lineage, classify.ContextCashFlow) == classify.BucketCash {
			openingCash = openingCash.Add(opening.Balance(acc.Code))
			closingCash = closingCash.Add(closing.Balance(acc.Code))
			continue
		}
		delta := closing.Balance(acc.Code).Sub(opening.Balance(acc.Code))
		if delta.IsZero() {
			continue
		}
		it := Item{Code: acc.Code, Name: acc.Name, Amount: delta.Neg()}
		it.Section, it.Bucket, it.Tag = s.flowSection(acc, lineage)
		items = append(items, it)
	}

	sections := make(map[string][]Item)
	for _, it := range items {
		sections[it.Section] = append(sections[it.Section], it)
	}
	netProfit := dre.Total(TotalNetProfit)
	// The stored income statement drops lines within tolerance and orphaned
	// result accounts; the ledger result does not.
	residue := unclosedResult(chart, closing).Sub(netProfit)
	priorUnclosed := unclosedResult(chart, opening)
	nonCash := sumItems(sections[sectionNonCash])
	workingCapital := sumItems(sections[sectionWorkingCapital])
	transfers := sumItems(sections[sectionResultTransfer])
	operating := netProfit.Add(residue).Sub(priorUnclosed).Add(nonCash).Add(workingCapital).Add(transfers)
	investing := sumItems(sections[sectionInvesting])
	financing := sumItems(sections[sectionFinancing])
	netChange := operating.Add(investing).Add(financing)
	diff := closingCash.Sub(openingCash).Sub(netChange)
	reconciled := diff.Abs().LessThanOrEqual(Tolerance)

	lines := make([]Line, 0, len(items)+16)
	lines = append(lines, titleLine("FLUXO DE CAIXA DAS ATIVIDADES OPERACIONAIS", 0))
	lines = append(lines, itemLine("", "Lucro líquido do exercício", netProfit, 1))
	if !residue.IsZero() {
		lines = append(lines, itemLine("", "Resultados não apresentados na DRE", residue, 1))
	}
	if !priorUnclosed.IsZero() {
		lines = append(lines, itemLine("", "(-) Resultado apurado até o início do período", priorUnclosed.Neg(), 1))
	}
	lines = append(lines, subtotalLine("Ajustes por itens que não afetam o caixa", nonCash, 1))
	lines = append(lines, itemLines(sections[sectionNonCash], 2)...)
	lines = append(lines, subtotalLine("Variações no capital de giro", workingCapital, 1))
	lines = append(lines, itemLines(sections[sectionWorkingCapital], 2)...)
	if len(sections[sectionResultTransfer]) > 0 {
		lines = append(lines, subtotalLine("Resultados incorporados ao patrimônio líquido", transfers, 1))
		lines = append(lines, itemLines(sections[sectionResultTransfer], 2)...)
	}
	lines = append(lines, subtotalLine("CAIXA LÍQUIDO DAS ATIVIDADES OPERACIONAIS", operating, 0))
	lines = append(lines, titleLine("FLUXO DE CAIXA DAS ATIVIDADES DE INVESTIMENTO", 0))
	lines = append(lines, itemLines(sections[sectionInvesting], 1)...)
	lines = append(lines, subtotalLine("CAIXA LÍQUIDO DAS ATIVIDADES DE INVESTIMENTO", investing, 0))
	lines = append(lines, titleLine("FLUXO DE CAIXA DAS ATIVIDADES DE FINANCIAMENTO", 0))
	lines = append(lines, itemLines(sections[sectionFinancing], 1)...)
	lines = append(lines, subtotalLine("CAIXA LÍQUIDO DAS ATIVIDADES DE FINANCIAMENTO", financing, 0))
	lines = append(lines, resultLine("VARIAÇÃO LÍQUIDA DE CAIXA", netChange, 0))
	lines = append(lines, itemLine("", "Caixa e equivalentes no início do período", openingCash, 1))
	lines = append(lines, itemLine("", "Caixa e equivalentes no fim do período", closingCash, 1))

	return Payload{
		Lines: lines,
		Totals: map[string]decimal.Decimal{
			TotalNetProfit:            netProfit,
			TotalUnpresentedResult:    residue,
			TotalPriorUnclosedResult:  priorUnclosed,
			TotalNonCashAdjustments:   nonCash,
			TotalWorkingCapitalChange: workingCapital,
			TotalOperating:            operating,
			TotalInvesting:            investing,
			TotalFinancing:            financing,
			TotalNetCashChange:        netChange,
			TotalOpeningCash:          openingCash,
			TotalClosingCash:          closingCash,
		},
		Items: items,
		Diagnostics: Diagnostics{
			Reconciled: boolPtr(reconciled),
			Difference: amount(diff),
			Orphans:    orphans,
		},
	}, nil
}

// flowSection places a non-cash balance sheet account in exactly one cash
// flow section. Unclassified accounts are treated as current.
func (s *Service) flowSection(acc ledger.Account, lineage []string) (string, classify.Bucket, string) {
	cf := s.rules.ClassifyPath(lineage, classify.ContextCashFlow)
	term := s.rules.ClassifyPath(lineage, classify.ContextTerm)
	switch acc.Kind {
	case ledger.KindAsset:
		switch {
		case cf == classify.BucketNonCashCharge:
			return sectionNonCash, cf, ""
		case term == classify.BucketNonCurrent:
			return sectionInvesting, term, ""
		}
		return sectionWorkingCapital, term, ""
	case ledger.KindLiability:
		if cf == classify.BucketNonCashCharge {
			return sectionNonCash, cf, ""
		}
		tag := s.rules.ClassifyPath(lineage, classify.ContextFinancing)
		if tag == classify.BucketLoan || tag == classify.BucketDividend || term == classify.BucketNonCurrent {
			return sectionFinancing, tag, financingTag(tag)
		}
		return sectionWorkingCapital, term, ""
	default:
		if s.rules.ClassifyPath(lineage, classify.ContextEquity) == classify.BucketRetainedEarnings {
			return sectionResultTransfer, classify.BucketRetainedEarnings, ""
		}
		tag := s.rules.ClassifyPath(lineage, classify.ContextFinancing)
		return sectionFinancing, tag, financingTag(tag)
	}
}

func financingTag(b classify.Bucket) string {
	switch b {
	case classify.BucketLoan, classify.BucketCapital, classify.BucketDividend:
		return string(b)
	}
	return "other"
}
