// Package ratios derives liquidity, profitability, indebtedness and activity
// ratios from stored BP and DRE documents, and runs horizontal and vertical
// analyses over ledger snapshots.
package ratios

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-statements/internal/statements"
	"github.com/odyssey-erp/odyssey-statements/internal/statements/classify"
	"github.com/odyssey-erp/odyssey-statements/internal/statements/rollup"
)

// Category groups ratios for display.
type Category string

const (
	CategoryLiquidity     Category = "liquidity"
	CategoryProfitability Category = "profitability"
	CategoryIndebtedness  Category = "indebtedness"
	CategoryActivity      Category = "activity"
)

// Rating is the qualitative band of a ratio.
type Rating string

const (
	RatingExcellent Rating = "excellent"
	RatingGood      Rating = "good"
	RatingAdequate  Rating = "adequate"
	RatingPoor      Rating = "poor"
	RatingUndefined Rating = "undefined"
)

// Ratio names.
const (
	CurrentRatio         = "current_ratio"
	GeneralLiquidity     = "general_liquidity"
	GrossMargin          = "gross_margin"
	NetMargin            = "net_margin"
	ReturnOnAssets       = "return_on_assets"
	ReturnOnEquity       = "return_on_equity"
	GeneralIndebtedness  = "general_indebtedness"
	DebtComposition      = "debt_composition"
	AssetTurnover        = "asset_turnover"
	CurrentAssetTurnover = "current_asset_turnover"
)

// Ratio is one computed indicator. Percent ratios are expressed in percent
// points. Defined is false when the denominator is zero.
type Ratio struct {
	Name     string          `json:"name"`
	Category Category        `json:"category"`
	Value    decimal.Decimal `json:"value"`
	Percent  bool            `json:"percent"`
	Defined  bool            `json:"defined"`
	Rating   Rating          `json:"rating"`
}

// Inputs are the statement totals the ratios are computed from.
type Inputs struct {
	CurrentAssets      decimal.Decimal `json:"current_assets"`
	CurrentLiabilities decimal.Decimal `json:"current_liabilities"`
	TotalAssets        decimal.Decimal `json:"total_assets"`
	TotalLiabilities   decimal.Decimal `json:"total_liabilities"`
	Equity             decimal.Decimal `json:"equity"`
	Revenue            decimal.Decimal `json:"revenue"`
	GrossProfit        decimal.Decimal `json:"gross_profit"`
	NetProfit          decimal.Decimal `json:"net_profit"`
}

// band maps a value to a rating. Cutoffs are ordered best first; ascending
// bands rate higher values better, descending bands rate lower values better.
type band struct {
	cutoffs    [3]decimal.Decimal
	descending bool
}

func ascending(excellent, good, adequate float64) band {
	return band{cutoffs: [3]decimal.Decimal{
		decimal.NewFromFloat(excellent), decimal.NewFromFloat(good), decimal.NewFromFloat(adequate),
	}}
}

func descending(excellent, good, adequate float64) band {
	b := ascending(excellent, good, adequate)
	b.descending = true
	return b
}

var ratings = [3]Rating{RatingExcellent, RatingGood, RatingAdequate}

func (b band) rate(v decimal.Decimal) Rating {
	for i, cut := range b.cutoffs {
		if (!b.descending && v.GreaterThanOrEqual(cut)) || (b.descending && v.LessThanOrEqual(cut)) {
			return ratings[i]
		}
	}
	return RatingPoor
}

type definition struct {
	name     string
	category Category
	percent  bool
	band     band
	num      func(Inputs) decimal.Decimal
	den      func(Inputs) decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

var definitions = []definition{
	{CurrentRatio, CategoryLiquidity, false, ascending(2.0, 1.5, 1.0),
		func(in Inputs) decimal.Decimal { return in.CurrentAssets },
		func(in Inputs) decimal.Decimal { return in.CurrentLiabilities }},
	{GeneralLiquidity, CategoryLiquidity, false, ascending(1.5, 1.5, 1.0),
		func(in Inputs) decimal.Decimal { return in.TotalAssets },
		func(in Inputs) decimal.Decimal { return in.CurrentLiabilities }},
	{GrossMargin, CategoryProfitability, true, ascending(40, 30, 20),
		func(in Inputs) decimal.Decimal { return in.GrossProfit },
		func(in Inputs) decimal.Decimal { return in.Revenue }},
	{NetMargin, CategoryProfitability, true, ascending(15, 10, 5),
		func(in Inputs) decimal.Decimal { return in.NetProfit },
		func(in Inputs) decimal.Decimal { return in.Revenue }},
	{ReturnOnAssets, CategoryProfitability, true, ascending(15, 10, 5),
		func(in Inputs) decimal.Decimal { return in.NetProfit },
		func(in Inputs) decimal.Decimal { return in.TotalAssets }},
	{ReturnOnEquity, CategoryProfitability, true, ascending(20, 15, 10),
		func(in Inputs) decimal.Decimal { return in.NetProfit },
		func(in Inputs) decimal.Decimal { return in.Equity }},
	{GeneralIndebtedness, CategoryIndebtedness, true, descending(30, 50, 70),
		func(in Inputs) decimal.Decimal { return in.TotalLiabilities },
		func(in Inputs) decimal.Decimal { return in.TotalAssets }},
	{DebtComposition, CategoryIndebtedness, true, descending(50, 50, 100),
		func(in Inputs) decimal.Decimal { return in.TotalLiabilities },
		func(in Inputs) decimal.Decimal { return in.Equity }},
	{AssetTurnover, CategoryActivity, false, ascending(2.0, 1.5, 1.0),
		func(in Inputs) decimal.Decimal { return in.Revenue },
		func(in Inputs) decimal.Decimal { return in.TotalAssets }},
	{CurrentAssetTurnover, CategoryActivity, false, ascending(4.0, 3.0, 2.0),
		func(in Inputs) decimal.Decimal { return in.Revenue },
		func(in Inputs) decimal.Decimal { return in.CurrentAssets }},
}

// Compute evaluates every ratio. Values are rounded to two decimals before
// rating.
func Compute(in Inputs) []Ratio {
	out := make([]Ratio, 0, len(definitions))
	for _, def := range definitions {
		r := Ratio{Name: def.name, Category: def.category, Percent: def.percent, Value: decimal.Zero, Rating: RatingUndefined}
		den := def.den(in)
		if !den.IsZero() {
			v := def.num(in).Div(den)
			if def.percent {
				v = v.Mul(hundred)
			}
			r.Value = v.Round(2)
			r.Defined = true
			r.Rating = def.band.rate(r.Value)
		}
		out = append(out, r)
	}
	return out
}

// Reader loads stored statement documents.
type Reader interface {
	Get(ctx context.Context, typ statements.Type, periodKey, balanceteVersion string) (statements.Document, error)
}

// Report is the ratio set of one period.
type Report struct {
	Period           string  `json:"period"`
	BalanceteVersion string  `json:"balancete_version"`
	Inputs           Inputs  `json:"inputs"`
	Ratios           []Ratio `json:"ratios"`
}

// Ratio returns the named ratio.
func (r Report) Ratio(name string) (Ratio, bool) {
	for _, ratio := range r.Ratios {
		if ratio.Name == name {
			return ratio, true
		}
	}
	return Ratio{}, false
}

// Engine computes ratio reports from stored statements.
type Engine struct {
	docs  Reader
	rules *classify.Classifier
}

// NewEngine constructs the engine. A nil classifier uses the built-in rules.
func NewEngine(docs Reader, rules *classify.Classifier) *Engine {
	if rules == nil {
		rules = classify.Default()
	}
	return &Engine{docs: docs, rules: rules}
}

// Compute reads the BP and DRE of the period and evaluates every ratio. A
// missing statement surfaces the reader's not-found error.
func (e *Engine) Compute(ctx context.Context, period, balanceteVersion string) (Report, error) {
	bp, err := e.docs.Get(ctx, statements.TypeBP, period, balanceteVersion)
	if err != nil {
		return Report{}, fmt.Errorf("ratios: load BP %s: %w", period, err)
	}
	dre, err := e.docs.Get(ctx, statements.TypeDRE, period, balanceteVersion)
	if err != nil {
		return Report{}, fmt.Errorf("ratios: load DRE %s: %w", period, err)
	}
	in := e.Inputs(bp, dre)
	return Report{
		Period:           period,
		BalanceteVersion: balanceteVersion,
		Inputs:           in,
		Ratios:           Compute(in),
	}, nil
}

// Inputs extracts ratio inputs from a BP and a DRE. Current balances are the
// level-2 subgroups classified as current.
func (e *Engine) Inputs(bp, dre statements.Document) Inputs {
	return Inputs{
		CurrentAssets:      e.currentTotal(bp.Payload.Sections["assets"]),
		CurrentLiabilities: e.currentTotal(bp.Payload.Sections["liabilities"]),
		TotalAssets:        bp.Total(statements.TotalAssets),
		TotalLiabilities:   bp.Total(statements.TotalLiabilities),
		Equity:             bp.Total(statements.TotalEquity),
		Revenue:            dre.Total(statements.TotalRevenue),
		GrossProfit:        dre.Total(statements.TotalGrossProfit),
		NetProfit:          dre.Total(statements.TotalNetProfit),
	}
}

func (e *Engine) currentTotal(groups []rollup.Node) decimal.Decimal {
	total := decimal.Zero
	for _, group := range groups {
		for _, sub := range group.Children {
			if e.rules.ClassifyPath([]string{sub.Name, group.Name}, classify.ContextTerm) == classify.BucketCurrent {
				total = total.Add(sub.Balance)
			}
		}
	}
	return total
}
