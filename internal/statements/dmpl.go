package statements

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-statements/internal/ledger"
	"github.com/odyssey-erp/odyssey-statements/internal/statements/classify"
)

// Movement is a row of the changes-in-equity table.
type Movement string

const (
	MovementCapitalIncrease     Movement = "capital_increase"
	MovementCapitalDecrease     Movement = "capital_decrease"
	MovementProfitForYear       Movement = "profit_for_year"
	MovementDividends           Movement = "dividends"
	MovementReserveConstitution Movement = "reserve_constitution"
	MovementReserveReversal     Movement = "reserve_reversal"
	MovementOther               Movement = "other"
)

var movementOrder = []Movement{
	MovementCapitalIncrease,
	MovementCapitalDecrease,
	MovementProfitForYear,
	MovementDividends,
	MovementReserveConstitution,
	MovementReserveReversal,
	MovementOther,
}

var movementLabels = map[Movement]string{
	MovementCapitalIncrease:     "Aumento de capital",
	MovementCapitalDecrease:     "Redução de capital",
	MovementProfitForYear:       "Lucro líquido do exercício",
	MovementDividends:           "Dividendos distribuídos",
	MovementReserveConstitution: "Constituição de reservas",
	MovementReserveReversal:     "Reversão de reservas",
	MovementOther:               "Outras movimentações",
}

// EquityColumns lists the DMPL columns in display order; ColumnTotal follows them.
var EquityColumns = []classify.Bucket{
	classify.BucketShareCapital,
	classify.BucketCapitalReserve,
	classify.BucketProfitReserve,
	classify.BucketRetainedEarnings,
	classify.BucketValuationAdjustments,
	classify.BucketOtherEquity,
}

// ColumnTotal is the row total column of the DMPL table.
const ColumnTotal = "total"

// movementFor buckets an equity delta (credit positive) by column and sign.
func movementFor(column classify.Bucket, delta decimal.Decimal) Movement {
	increase := delta.IsPositive()
	switch column {
	case classify.BucketShareCapital:
		if increase {
			return MovementCapitalIncrease
		}
		return MovementCapitalDecrease
	case classify.BucketRetainedEarnings:
		if increase {
			return MovementProfitForYear
		}
		return MovementDividends
	case classify.BucketCapitalReserve, classify.BucketProfitReserve:
		if increase {
			return MovementReserveConstitution
		}
		return MovementReserveReversal
	}
	return MovementOther
}

func newEquityValues() map[string]decimal.Decimal {
	values := make(map[string]decimal.Decimal, len(EquityColumns)+1)
	for _, col := range EquityColumns {
		values[string(col)] = decimal.Zero
	}
	values[ColumnTotal] = decimal.Zero
	return values
}

func addEquityValue(values map[string]decimal.Decimal, column classify.Bucket, v decimal.Decimal) {
	values[string(column)] = values[string(column)].Add(v)
	values[ColumnTotal] = values[ColumnTotal].Add(v)
}

func (s *Service) equityChanges(ctx context.Context, req Request) (Payload, error) {
	chart, err := s.loadChart(ctx, req.ChartVersion, ledger.Kinds...)
	if err != nil {
		return Payload{}, err
	}
	opening, closing, err := s.loadBoundaries(ctx, chart, req)
	if err != nil {
		return Payload{}, err
	}

	placed, orphans, err := s.placedAccounts(req, chart, chart.Analytic(ledger.KindEquity), opening.Balance, closing.Balance)
	if err != nil {
		return Payload{}, err
	}

	openingValues := newEquityValues()
	closingValues := newEquityValues()
	movements := make(map[Movement]*EquityRow)
	record := func(code, name string, column classify.Bucket, openBal, closeBal decimal.Decimal, mv Movement) {
		addEquityValue(openingValues, column, openBal)
		addEquityValue(closingValues, column, closeBal)
		delta := closeBal.Sub(openBal)
		if delta.IsZero() {
			return
		}
		row, ok := movements[mv]
		if !ok {
			row = &EquityRow{Kind: LineItem, Movement: mv, Description: movementLabels[mv], Values: newEquityValues()}
			movements[mv] = row
		}
		addEquityValue(row.Values, column, delta)
		row.Contributions = append(row.Contributions, Item{
			Code:    code,
			Name:    name,
			Section: string(column),
			Bucket:  column,
			Tag:     string(mv),
			Amount:  delta,
		})
	}

	for _, acc := range placed {
		column := s.rules.ClassifyPath(chart.Lineage(acc.Code), classify.ContextEquity)
		openBal := opening.Balance(acc.Code).Neg()
		closeBal := closing.Balance(acc.Code).Neg()
		record(acc.Code, acc.Name, column, openBal, closeBal, movementFor(column, closeBal.Sub(openBal)))
	}
	// The result still carried by temporary accounts belongs to retained
	// earnings and always moves as profit for the year.
	record(unclosedResultCode, unclosedResultName, classify.BucketRetainedEarnings,
		unclosedResult(chart, opening), unclosedResult(chart, closing), MovementProfitForYear)

	columns := make([]string, 0, len(EquityColumns)+1)
	for _, col := range EquityColumns {
		columns = append(columns, string(col))
	}
	columns = append(columns, ColumnTotal)

	table := &EquityTable{Columns: columns}
	table.Rows = append(table.Rows, EquityRow{Kind: LineSubtotal, Description: "Saldo inicial", Values: openingValues})
	totals := map[string]decimal.Decimal{
		TotalOpeningEquity: openingValues[ColumnTotal],
		TotalClosingEquity: closingValues[ColumnTotal],
	}
	lines := []Line{subtotalLine("SALDO INICIAL DO PATRIMÔNIO LÍQUIDO", openingValues[ColumnTotal], 0)}
	movementTotal := decimal.Zero
	rolled := newEquityValues()
	for col, v := range openingValues {
		rolled[col] = v
	}
	for _, mv := range movementOrder {
		row, ok := movements[mv]
		if !ok {
			continue
		}
		table.Rows = append(table.Rows, *row)
		total := row.Values[ColumnTotal]
		movementTotal = movementTotal.Add(total)
		totals["movement_"+string(mv)] = total
		lines = append(lines, itemLine("", row.Description, total, 1))
		for col, v := range row.Values {
			rolled[col] = rolled[col].Add(v)
		}
	}
	table.Rows = append(table.Rows, EquityRow{Kind: LineSubtotal, Description: "Saldo final", Values: closingValues})
	lines = append(lines, resultLine("SALDO FINAL DO PATRIMÔNIO LÍQUIDO", closingValues[ColumnTotal], 0))
	totals[TotalEquityMovements] = movementTotal

	balanced := true
	for col, v := range closingValues {
		if !rolled[col].Equal(v) {
			balanced = false
		}
	}

	return Payload{
		Lines:       lines,
		Totals:      totals,
		Table:       table,
		Diagnostics: Diagnostics{Balanced: boolPtr(balanced), Orphans: orphans},
	}, nil
}
