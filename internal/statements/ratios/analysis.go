package ratios

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-statements/internal/ledger"
	"github.com/odyssey-erp/odyssey-statements/internal/shared"
)

// Trend is the band of a period-over-period variation.
type Trend string

const (
	TrendStrongGrowth    Trend = "strong_growth"
	TrendModerateGrowth  Trend = "moderate_growth"
	TrendModerateDecline Trend = "moderate_decline"
	TrendStrongDecline   Trend = "strong_decline"
)

// Relevance is the band of an account's share of its element.
type Relevance string

const (
	RelevanceVeryHigh Relevance = "very_relevant"
	RelevanceHigh     Relevance = "relevant"
	RelevanceModerate Relevance = "moderately_relevant"
	RelevanceLow      Relevance = "low_relevance"
)

// summaryTop bounds the growth and decline highlights of a horizontal summary.
const summaryTop = 5

var (
	ten    = decimal.NewFromInt(10)
	twenty = decimal.NewFromInt(20)
	five   = decimal.NewFromInt(5)
)

// ClassifyTrend bands a percent variation. Bounds are exclusive.
func ClassifyTrend(percent decimal.Decimal) Trend {
	switch {
	case percent.GreaterThan(ten):
		return TrendStrongGrowth
	case percent.IsPositive():
		return TrendModerateGrowth
	case percent.GreaterThan(ten.Neg()):
		return TrendModerateDecline
	}
	return TrendStrongDecline
}

// ClassifyRelevance bands a percent share. Bounds are exclusive.
func ClassifyRelevance(percent decimal.Decimal) Relevance {
	switch {
	case percent.GreaterThan(twenty):
		return RelevanceVeryHigh
	case percent.GreaterThan(ten):
		return RelevanceHigh
	case percent.GreaterThan(five):
		return RelevanceModerate
	}
	return RelevanceLow
}

// Variation is one account of a horizontal analysis.
type Variation struct {
	Code     string          `json:"code"`
	Name     string          `json:"name"`
	Kind     ledger.Kind     `json:"kind"`
	Base     decimal.Decimal `json:"base"`
	Compared decimal.Decimal `json:"compared"`
	Absolute decimal.Decimal `json:"absolute"`
	Percent  decimal.Decimal `json:"percent"`
	Trend    Trend           `json:"trend"`
}

// HorizontalSummary counts growing and declining accounts and lists the
// largest movements in each direction.
type HorizontalSummary struct {
	Accounts   int         `json:"accounts"`
	Growing    int         `json:"growing"`
	Declining  int         `json:"declining"`
	TopGrowth  []Variation `json:"top_growth"`
	TopDecline []Variation `json:"top_decline"`
}

// HorizontalAnalysis compares the closing balances of two periods.
type HorizontalAnalysis struct {
	BasePeriod       string            `json:"base_period"`
	ComparedPeriod   string            `json:"compared_period"`
	BalanceteVersion string            `json:"balancete_version"`
	Variations       []Variation       `json:"variations"`
	Summary          HorizontalSummary `json:"summary"`
}

// Share is one account of a vertical analysis.
type Share struct {
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Balance   decimal.Decimal `json:"balance"`
	Percent   decimal.Decimal `json:"percent"`
	Relevance Relevance       `json:"relevance"`
}

// Element groups the shares of one account kind. Total is the sum of the
// absolute balances, so every share is non-negative.
type Element struct {
	Kind     ledger.Kind     `json:"kind"`
	Total    decimal.Decimal `json:"total"`
	Accounts []Share         `json:"accounts"`
	Relevant int             `json:"relevant"`
	Top3     decimal.Decimal `json:"top3_concentration"`
}

// VerticalAnalysis is the composition of one period by element.
type VerticalAnalysis struct {
	Period           string    `json:"period"`
	BalanceteVersion string    `json:"balancete_version"`
	Elements         []Element `json:"elements"`
}

// Element returns the group of kind.
func (v VerticalAnalysis) Element(kind ledger.Kind) (Element, bool) {
	for _, el := range v.Elements {
		if el.Kind == kind {
			return el, true
		}
	}
	return Element{}, false
}

// percentOf returns part/whole in percent points rounded to two decimals.
func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	return part.Div(whole).Mul(hundred).Round(2)
}

// CompareSnapshots builds the horizontal analysis of every analytic account
// carrying a balance in either snapshot. A zero base reads as 100% when the
// compared balance is not zero.
func CompareSnapshots(chart *ledger.Chart, base, compared ledger.Snapshot) HorizontalAnalysis {
	variations := make([]Variation, 0)
	for _, acc := range chart.Analytic(ledger.Kinds...) {
		b, c := base.Balance(acc.Code), compared.Balance(acc.Code)
		if b.IsZero() && c.IsZero() {
			continue
		}
		abs := c.Sub(b)
		pct := hundred
		if !b.IsZero() {
			pct = percentOf(abs, b.Abs())
		}
		variations = append(variations, Variation{
			Code:     acc.Code,
			Name:     acc.Name,
			Kind:     acc.Kind,
			Base:     b,
			Compared: c,
			Absolute: abs,
			Percent:  pct,
			Trend:    ClassifyTrend(pct),
		})
	}
	sort.SliceStable(variations, func(i, j int) bool {
		pi, pj := variations[i].Percent.Abs(), variations[j].Percent.Abs()
		if !pi.Equal(pj) {
			return pi.GreaterThan(pj)
		}
		return variations[i].Code < variations[j].Code
	})

	summary := HorizontalSummary{Accounts: len(variations), TopGrowth: []Variation{}, TopDecline: []Variation{}}
	for _, v := range variations {
		switch {
		case v.Percent.IsPositive():
			summary.Growing++
			if len(summary.TopGrowth) < summaryTop {
				summary.TopGrowth = append(summary.TopGrowth, v)
			}
		case v.Percent.IsNegative():
			summary.Declining++
			if len(summary.TopDecline) < summaryTop {
				summary.TopDecline = append(summary.TopDecline, v)
			}
		}
	}
	return HorizontalAnalysis{
		BasePeriod:       base.Period,
		ComparedPeriod:   compared.Period,
		BalanceteVersion: compared.BalanceteVersion,
		Variations:       variations,
		Summary:          summary,
	}
}

// Composition builds the vertical analysis of a snapshot. Elements follow
// the chart's kind order; kinds without balances are omitted.
func Composition(chart *ledger.Chart, snap ledger.Snapshot) VerticalAnalysis {
	out := VerticalAnalysis{Period: snap.Period, BalanceteVersion: snap.BalanceteVersion, Elements: []Element{}}
	for _, kind := range ledger.Kinds {
		el := Element{Kind: kind, Total: decimal.Zero, Top3: decimal.Zero}
		for _, acc := range chart.Analytic(kind) {
			bal := snap.Balance(acc.Code)
			if bal.IsZero() {
				continue
			}
			el.Accounts = append(el.Accounts, Share{Code: acc.Code, Name: acc.Name, Balance: bal})
			el.Total = el.Total.Add(bal.Abs())
		}
		if len(el.Accounts) == 0 {
			continue
		}
		for i := range el.Accounts {
			share := &el.Accounts[i]
			share.Percent = percentOf(share.Balance.Abs(), el.Total)
			share.Relevance = ClassifyRelevance(share.Percent)
			if share.Percent.GreaterThan(ten) {
				el.Relevant++
			}
		}
		sort.SliceStable(el.Accounts, func(i, j int) bool {
			if !el.Accounts[i].Percent.Equal(el.Accounts[j].Percent) {
				return el.Accounts[i].Percent.GreaterThan(el.Accounts[j].Percent)
			}
			return el.Accounts[i].Code < el.Accounts[j].Code
		})
		for i := 0; i < len(el.Accounts) && i < 3; i++ {
			el.Top3 = el.Top3.Add(el.Accounts[i].Percent)
		}
		out.Elements = append(out.Elements, el)
	}
	return out
}

// Analyzer runs horizontal and vertical analyses over ledger snapshots.
type Analyzer struct {
	accounts ledger.AccountRepository
	balances ledger.TrialBalanceStore
}

// NewAnalyzer constructs an analyzer over the ledger repositories.
func NewAnalyzer(accounts ledger.AccountRepository, balances ledger.TrialBalanceStore) *Analyzer {
	return &Analyzer{accounts: accounts, balances: balances}
}

// Horizontal compares the compared period against the base period.
func (a *Analyzer) Horizontal(ctx context.Context, chartVersion, base, compared, balanceteVersion string) (HorizontalAnalysis, error) {
	chart, err := ledger.LoadChart(ctx, a.accounts, chartVersion, ledger.Kinds...)
	if err != nil {
		return HorizontalAnalysis{}, fmt.Errorf("ratios: load chart %s: %w", chartVersion, err)
	}
	var baseSnap, comparedSnap ledger.Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		snap, err := a.snapshot(gctx, chart, base, balanceteVersion)
		baseSnap = snap
		return err
	})
	g.Go(func() error {
		snap, err := a.snapshot(gctx, chart, compared, balanceteVersion)
		comparedSnap = snap
		return err
	})
	if err := g.Wait(); err != nil {
		return HorizontalAnalysis{}, err
	}
	return CompareSnapshots(chart, baseSnap, comparedSnap), nil
}

// Vertical computes each account's share of its element for period.
func (a *Analyzer) Vertical(ctx context.Context, chartVersion, period, balanceteVersion string) (VerticalAnalysis, error) {
	chart, err := ledger.LoadChart(ctx, a.accounts, chartVersion, ledger.Kinds...)
	if err != nil {
		return VerticalAnalysis{}, fmt.Errorf("ratios: load chart %s: %w", chartVersion, err)
	}
	snap, err := a.snapshot(ctx, chart, period, balanceteVersion)
	if err != nil {
		return VerticalAnalysis{}, err
	}
	return Composition(chart, snap), nil
}

// snapshot loads a period after checking it exists, so a missing balancete
// surfaces ledger.ErrPeriodNotFound instead of an empty analysis.
func (a *Analyzer) snapshot(ctx context.Context, chart *ledger.Chart, period, balanceteVersion string) (ledger.Snapshot, error) {
	if _, err := shared.ParsePeriod(period); err != nil {
		return ledger.Snapshot{}, err
	}
	if _, err := a.balances.SumOfAllBalances(ctx, period, balanceteVersion); err != nil {
		return ledger.Snapshot{}, fmt.Errorf("ratios: balancete %s: %w", period, err)
	}
	snap, err := ledger.LoadSnapshot(ctx, a.balances, chart, period, balanceteVersion)
	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("ratios: snapshot %s: %w", period, err)
	}
	return snap, nil
}
