package classify

// Context selects the bucket family a name is classified into.
type Context string

const (
	// ContextTerm splits balance sheet accounts into current and non-current.
	ContextTerm Context = "term"
	// ContextCashFlow finds cash equivalents and non-cash charges for the indirect cash flow.
	ContextCashFlow Context = "cash_flow"
	// ContextFinancing tags financing movements.
	ContextFinancing Context = "financing"
	// ContextEquity assigns equity accounts to a column of the changes-in-equity table.
	ContextEquity Context = "equity"
	// ContextComprehensive finds other comprehensive income accounts.
	ContextComprehensive Context = "comprehensive"
	// ContextValueAdded distributes expense accounts in the value-added statement.
	ContextValueAdded Context = "value_added"
	// ContextRevenue types revenue accounts in the value-added statement.
	ContextRevenue Context = "revenue"
)

// Contexts lists every context in a stable order.
var Contexts = []Context{
	ContextTerm,
	ContextCashFlow,
	ContextFinancing,
	ContextEquity,
	ContextComprehensive,
	ContextValueAdded,
	ContextRevenue,
}

// Bucket is a semantic class produced by the classifier. The set is closed:
// every bucket belongs to exactly one context.
type Bucket string

const (
	BucketCurrent    Bucket = "current"
	BucketNonCurrent Bucket = "non_current"

	BucketCash          Bucket = "cash"
	BucketNonCashCharge Bucket = "non_cash_charge"
	BucketOperating     Bucket = "operating"

	BucketLoan           Bucket = "loan"
	BucketCapital        Bucket = "capital"
	BucketDividend       Bucket = "dividend"
	BucketOtherFinancing Bucket = "other_financing"

	BucketShareCapital         Bucket = "share_capital"
	BucketCapitalReserve       Bucket = "capital_reserve"
	BucketProfitReserve        Bucket = "profit_reserve"
	BucketRetainedEarnings     Bucket = "retained_earnings"
	BucketValuationAdjustments Bucket = "valuation_adjustments"
	BucketOtherEquity          Bucket = "other_equity"

	BucketTranslationAdjustment Bucket = "translation_adjustment"
	BucketValuationAdjustment   Bucket = "valuation_adjustment"
	BucketActuarial             Bucket = "actuarial_gain_loss"
	BucketNotComprehensive      Bucket = "not_comprehensive"

	BucketDepreciation      Bucket = "depreciation"
	BucketThirdPartyInput   Bucket = "third_party_input"
	BucketPersonnel         Bucket = "personnel"
	BucketTaxes             Bucket = "taxes"
	BucketThirdPartyCapital Bucket = "third_party_capital"
	BucketUnallocated       Bucket = "unallocated"

	BucketFinancialRevenue Bucket = "financial_revenue"
	BucketProducts         Bucket = "products"
	BucketServices         Bucket = "services"
	BucketMerchandise      Bucket = "merchandise"
	BucketOtherRevenue     Bucket = "other_revenue"
)

var bucketContext = map[Bucket]Context{
	BucketCurrent:    ContextTerm,
	BucketNonCurrent: ContextTerm,

	BucketCash:          ContextCashFlow,
	BucketNonCashCharge: ContextCashFlow,
	BucketOperating:     ContextCashFlow,

	BucketLoan:           ContextFinancing,
	BucketCapital:        ContextFinancing,
	BucketDividend:       ContextFinancing,
	BucketOtherFinancing: ContextFinancing,

	BucketShareCapital:         ContextEquity,
	BucketCapitalReserve:       ContextEquity,
	BucketProfitReserve:        ContextEquity,
	BucketRetainedEarnings:     ContextEquity,
	BucketValuationAdjustments: ContextEquity,
	BucketOtherEquity:          ContextEquity,

	BucketTranslationAdjustment: ContextComprehensive,
	BucketValuationAdjustment:   ContextComprehensive,
	BucketActuarial:             ContextComprehensive,
	BucketNotComprehensive:      ContextComprehensive,

	BucketDepreciation:      ContextValueAdded,
	BucketThirdPartyInput:   ContextValueAdded,
	BucketPersonnel:         ContextValueAdded,
	BucketTaxes:             ContextValueAdded,
	BucketThirdPartyCapital: ContextValueAdded,
	BucketUnallocated:       ContextValueAdded,

	BucketFinancialRevenue: ContextRevenue,
	BucketProducts:         ContextRevenue,
	BucketServices:         ContextRevenue,
	BucketMerchandise:      ContextRevenue,
	BucketOtherRevenue:     ContextRevenue,
}

// Context returns the context the bucket belongs to.
func (b Bucket) Context() (Context, bool) {
	ctx, ok := bucketContext[b]
	return ctx, ok
}

// Valid reports whether ctx is a known context.
func (c Context) Valid() bool {
	for _, known := range Contexts {
		if known == c {
			return true
		}
	}
	return false
}

// Buckets returns the buckets of a context.
func (c Context) Buckets() []Bucket {
	out := make([]Bucket, 0)
	for b, ctx := range bucketContext {
		if ctx == c {
			out = append(out, b)
		}
	}
	sortBuckets(out)
	return out
}
