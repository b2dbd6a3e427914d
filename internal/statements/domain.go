package statements

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-statements/internal/shared"
	"github.com/odyssey-erp/odyssey-statements/internal/statements/classify"
	"github.com/odyssey-erp/odyssey-statements/internal/statements/rollup"
)

// Type identifies a statutory statement.
type Type string

const (
	TypeBP   Type = "BP"
	TypeDRE  Type = "DRE"
	TypeDRA  Type = "DRA"
	TypeDFC  Type = "DFC"
	TypeDMPL Type = "DMPL"
	TypeDVA  Type = "DVA"
)

// Types lists every statement type in generation order.
var Types = []Type{TypeBP, TypeDRE, TypeDRA, TypeDFC, TypeDMPL, TypeDVA}

// Valid reports whether t is a known statement type.
func (t Type) Valid() bool {
	for _, known := range Types {
		if known == t {
			return true
		}
	}
	return false
}

// Differential reports whether the statement compares two balancete periods.
func (t Type) Differential() bool {
	return t == TypeDFC || t == TypeDMPL
}

// CashFlowMethod selects how the DFC is derived.
type CashFlowMethod string

const (
	MethodIndirect CashFlowMethod = "indirect"
	MethodDirect   CashFlowMethod = "direct"
)

// Request asks for one statement. Single-period statements use Period;
// DFC and DMPL use PeriodStart (opening snapshot) and PeriodEnd (closing snapshot).
type Request struct {
	Type             Type           `json:"type" validate:"required,oneof=BP DRE DRA DFC DMPL DVA"`
	Period           string         `json:"period,omitempty" validate:"omitempty,datetime=2006-01"`
	PeriodStart      string         `json:"period_start,omitempty" validate:"omitempty,datetime=2006-01"`
	PeriodEnd        string         `json:"period_end,omitempty" validate:"omitempty,datetime=2006-01"`
	BalanceteVersion string         `json:"balancete_version" validate:"required,max=32"`
	ChartVersion     string         `json:"chart_version" validate:"required,max=32"`
	Method           CashFlowMethod `json:"method,omitempty" validate:"omitempty,oneof=indirect direct"`
}

// PeriodKey returns the storage key of the requested document.
func (r Request) PeriodKey() string {
	if r.Type.Differential() {
		return shared.PeriodKey(r.PeriodStart, r.PeriodEnd)
	}
	return r.Period
}

// LockKey names the critical section of the requested document.
func (r Request) LockKey() string {
	return shared.StatementLockKey(string(r.Type), r.PeriodKey(), r.BalanceteVersion)
}

// Document is a persisted statement. It is keyed by (Type, PeriodKey,
// BalanceteVersion); regenerating overwrites in place.
type Document struct {
	ID               uuid.UUID `json:"id"`
	Type             Type      `json:"statement_type"`
	PeriodKey        string    `json:"period_key"`
	BalanceteVersion string    `json:"balancete_version"`
	ChartVersion     string    `json:"chart_version"`
	Payload          Payload   `json:"payload"`
	GeneratedAt      time.Time `json:"generated_at"`
}

// Total returns a payload total, zero when absent.
func (d Document) Total(key string) decimal.Decimal {
	return d.Payload.Total(key)
}

// LineKind classifies display lines.
type LineKind string

const (
	LineTitle    LineKind = "title"
	LineSubtotal LineKind = "subtotal"
	LineResult   LineKind = "result"
	LineItem     LineKind = "item"
)

// Line is one display row. Titles carry no value.
type Line struct {
	Kind        LineKind         `json:"kind"`
	Description string           `json:"description"`
	Code        string           `json:"code,omitempty"`
	Value       *decimal.Decimal `json:"value"`
	Level       int              `json:"level"`
}

// Item is a classified account contribution.
type Item struct {
	Code    string          `json:"code"`
	Name    string          `json:"name"`
	Section string          `json:"section"`
	Bucket  classify.Bucket `json:"bucket,omitempty"`
	Tag     string          `json:"tag,omitempty"`
	Amount  decimal.Decimal `json:"amount"`
}

// Diagnostics carries non-fatal consistency information.
type Diagnostics struct {
	Balanced    *bool            `json:"balanced,omitempty"`
	Reconciled  *bool            `json:"reconciled,omitempty"`
	Difference  *decimal.Decimal `json:"difference,omitempty"`
	Orphans     []rollup.Orphan  `json:"orphans,omitempty"`
	Unallocated []Item           `json:"unallocated,omitempty"`
}

// Payload is the structured statement body shared by every statement type.
// Maps marshal with sorted keys, so equal inputs give identical bytes.
type Payload struct {
	Lines       []Line                     `json:"lines"`
	Totals      map[string]decimal.Decimal `json:"totals"`
	Sections    map[string][]rollup.Node   `json:"sections,omitempty"`
	Items       []Item                     `json:"items,omitempty"`
	Table       *EquityTable               `json:"table,omitempty"`
	Diagnostics Diagnostics                `json:"diagnostics"`
}

// Total returns a total, zero when absent.
func (p Payload) Total(key string) decimal.Decimal {
	if v, ok := p.Totals[key]; ok {
		return v
	}
	return decimal.Zero
}

// EquityTable is the column-by-movement grid of the DMPL.
type EquityTable struct {
	Columns []string    `json:"columns"`
	Rows    []EquityRow `json:"rows"`
}

// EquityRow is an opening, movement or closing row of the DMPL.
type EquityRow struct {
	Kind          LineKind                   `json:"kind"`
	Movement      Movement                   `json:"movement,omitempty"`
	Description   string                     `json:"description"`
	Values        map[string]decimal.Decimal `json:"values"`
	Contributions []Item                     `json:"contributions,omitempty"`
}

// Store persists statement documents. Get returns ErrNotFound when absent;
// Upsert overwrites the document sharing its key.
type Store interface {
	Get(ctx context.Context, typ Type, periodKey, balanceteVersion string) (Document, error)
	Upsert(ctx context.Context, doc Document) error
}

// Payload total keys consumed across statements.
const (
	TotalAssets               = "total_assets"
	TotalLiabilities          = "total_liabilities"
	TotalEquity               = "total_equity"
	TotalLiabilitiesAndEquity = "total_liabilities_and_equity"
	TotalUnclosedResult       = "unclosed_result"
	TotalRevenue              = "revenue_total"
	TotalCost                 = "cost_total"
	TotalExpense              = "expense_total"
	TotalGrossProfit          = "gross_profit"
	TotalOperatingProfit      = "operating_profit"
	TotalNetProfit            = "net_profit"
	TotalOtherComprehensive   = "other_comprehensive_total"
	TotalComprehensiveIncome  = "comprehensive_income_total"
	TotalPriorUnclosedResult  = "prior_unclosed_result"
	TotalUnpresentedResult    = "unpresented_result"
	TotalNonCashAdjustments   = "non_cash_adjustments"
	TotalWorkingCapitalChange = "working_capital_change"
	TotalOperating            = "operating"
	TotalInvesting            = "investing"
	TotalFinancing            = "financing"
	TotalNetCashChange        = "net_cash_change"
	TotalOpeningCash          = "opening_cash"
	TotalClosingCash          = "closing_cash"
	TotalOpeningEquity        = "opening_equity"
	TotalClosingEquity        = "closing_equity"
	TotalEquityMovements      = "equity_movements"
	TotalDVARevenues          = "revenues"
	TotalThirdPartyInputs     = "third_party_inputs"
	TotalGrossValueAdded      = "gross_value_added"
	TotalDepreciation         = "depreciation"
	TotalNetValueAdded        = "net_value_added"
	TotalTransferredValue     = "transferred_value"
	TotalValueAdded           = "total_value_added"
	TotalPersonnel            = "personnel"
	TotalTaxes                = "taxes"
	TotalThirdPartyCapital    = "third_party_capital"
	TotalOwnCapital           = "own_capital"
	TotalDistributed          = "distributed_total"
	TotalUnallocated          = "unallocated_total"
)
