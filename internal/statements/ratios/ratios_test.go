package ratios

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-statements/internal/statements"
	"github.com/odyssey-erp/odyssey-statements/internal/statements/rollup"
	_ "github.com/odyssey-erp/odyssey-statements/testing"
)

type mockReader struct {
	docs map[statements.Type]statements.Document
}

func (m mockReader) Get(ctx context.Context, typ statements.Type, periodKey, version string) (statements.Document, error) {
	doc, ok := m.docs[typ]
	if !ok || doc.PeriodKey != periodKey || doc.BalanceteVersion != version {
		return statements.Document{}, statements.ErrNotFound
	}
	return doc, nil
}

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func node(code, name string, balance int64, children ...rollup.Node) rollup.Node {
	level := 2
	if len(children) > 0 {
		level = 1
	}
	return rollup.Node{Code: code, Name: name, Level: level, Balance: d(balance), Children: children}
}

func fixtureDocs() map[statements.Type]statements.Document {
	bp := statements.Document{
		Type:             statements.TypeBP,
		PeriodKey:        "2024-12",
		BalanceteVersion: "b1",
		Payload: statements.Payload{
			Totals: map[string]decimal.Decimal{
				statements.TotalAssets:      d(5000),
				statements.TotalLiabilities: d(2000),
				statements.TotalEquity:      d(3000),
			},
			Sections: map[string][]rollup.Node{
				"assets": {node("1", "Ativo", 5000,
					node("1.1", "Ativo Circulante", 3000),
					node("1.2", "Ativo Não Circulante", 2000),
				)},
				"liabilities": {node("2", "Passivo", 2000,
					node("2.1", "Passivo Circulante", 1000),
					node("2.2", "Passivo Não Circulante", 1000),
				)},
			},
		},
	}
	dre := statements.Document{
		Type:             statements.TypeDRE,
		PeriodKey:        "2024-12",
		BalanceteVersion: "b1",
		Payload: statements.Payload{Totals: map[string]decimal.Decimal{
			statements.TotalRevenue:     d(10000),
			statements.TotalGrossProfit: d(4500),
			statements.TotalNetProfit:   d(1200),
		}},
	}
	return map[statements.Type]statements.Document{statements.TypeBP: bp, statements.TypeDRE: dre}
}

func TestEngineComputesFromStoredStatements(t *testing.T) {
	engine := NewEngine(mockReader{docs: fixtureDocs()}, nil)

	report, err := engine.Compute(context.Background(), "2024-12", "b1")
	require.NoError(t, err)
	assert.Equal(t, "3000", report.Inputs.CurrentAssets.String())
	assert.Equal(t, "1000", report.Inputs.CurrentLiabilities.String())
	require.Len(t, report.Ratios, 10)

	want := map[string]struct {
		value  string
		rating Rating
	}{
		CurrentRatio:         {"3.00", RatingExcellent},
		GeneralLiquidity:     {"5.00", RatingExcellent},
		GrossMargin:          {"45.00", RatingExcellent},
		NetMargin:            {"12.00", RatingGood},
		ReturnOnAssets:       {"24.00", RatingExcellent},
		ReturnOnEquity:       {"40.00", RatingExcellent},
		GeneralIndebtedness:  {"40.00", RatingGood},
		DebtComposition:      {"66.67", RatingAdequate},
		AssetTurnover:        {"2.00", RatingExcellent},
		CurrentAssetTurnover: {"3.33", RatingGood},
	}
	for name, w := range want {
		r, ok := report.Ratio(name)
		require.True(t, ok, name)
		assert.True(t, r.Defined, name)
		assert.Equal(t, w.value, r.Value.StringFixed(2), name)
		assert.Equal(t, w.rating, r.Rating, name)
	}
}

func TestEngineRequiresBothStatements(t *testing.T) {
	docs := fixtureDocs()
	delete(docs, statements.TypeDRE)
	engine := NewEngine(mockReader{docs: docs}, nil)

	_, err := engine.Compute(context.Background(), "2024-12", "b1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, statements.ErrNotFound))
	assert.Equal(t, statements.KindNotFound, statements.KindOf(err))

	_, err = NewEngine(mockReader{docs: fixtureDocs()}, nil).Compute(context.Background(), "2024-11", "b1")
	assert.ErrorIs(t, err, statements.ErrNotFound)
}

func TestComputeZeroDenominators(t *testing.T) {
	for _, r := range Compute(Inputs{NetProfit: d(100)}) {
		assert.False(t, r.Defined, r.Name)
		assert.Equal(t, RatingUndefined, r.Rating, r.Name)
		assert.True(t, r.Value.IsZero(), r.Name)
	}
}

func TestBandBoundaries(t *testing.T) {
	current := ascending(2.0, 1.5, 1.0)
	assert.Equal(t, RatingExcellent, current.rate(decimal.RequireFromString("2.00")))
	assert.Equal(t, RatingGood, current.rate(decimal.RequireFromString("1.50")))
	assert.Equal(t, RatingAdequate, current.rate(decimal.RequireFromString("1.00")))
	assert.Equal(t, RatingPoor, current.rate(decimal.RequireFromString("0.99")))

	debt := descending(30, 50, 70)
	assert.Equal(t, RatingExcellent, debt.rate(d(30)))
	assert.Equal(t, RatingGood, debt.rate(d(50)))
	assert.Equal(t, RatingAdequate, debt.rate(d(70)))
	assert.Equal(t, RatingPoor, debt.rate(decimal.RequireFromString("70.01")))
}

func TestComputeNegativeProfit(t *testing.T) {
	in := Inputs{Revenue: d(1000), NetProfit: d(-50), TotalAssets: d(500), Equity: d(250)}
	out := Compute(in)
	byName := make(map[string]Ratio, len(out))
	for _, r := range out {
		byName[r.Name] = r
	}
	assert.Equal(t, "-5.00", byName[NetMargin].Value.StringFixed(2))
	assert.Equal(t, RatingPoor, byName[NetMargin].Rating)
	assert.Equal(t, "-20.00", byName[ReturnOnEquity].Value.StringFixed(2))
	assert.False(t, byName[CurrentRatio].Defined)
}
