package classify

// DefaultTables returns the built-in rule tables. Order matters: the first
// matching rule wins, so narrower rules precede broader ones ("não
// circulante" before "circulante", "reserva de capital" before "capital").
func DefaultTables() map[Context]Table {
	return map[Context]Table{
		ContextTerm: {
			Default: BucketCurrent,
			Rules: []Rule{
				{Bucket: BucketNonCurrent, Any: []string{"não circulante", "longo prazo", "imobilizado", "intangível", "investimentos", "non-current", "noncurrent"}},
				{Bucket: BucketCurrent, Any: []string{"circulante", "curto prazo", "current"}},
			},
		},
		ContextCashFlow: {
			Default: BucketOperating,
			Rules: []Rule{
				{Bucket: BucketNonCashCharge, Any: []string{"depreciação", "amortização", "exaustão"}, All: []string{"acumulad"}},
				{Bucket: BucketNonCashCharge, Any: []string{"provisão", "provisões", "perdas estimadas", "pcld", "pdd"}},
				{Bucket: BucketCash, Any: []string{"caixa", "banco", "disponível", "disponibilidades", "equivalentes", "cash", "bank"}},
			},
		},
		ContextFinancing: {
			Default: BucketOtherFinancing,
			Rules: []Rule{
				{Bucket: BucketDividend, Any: []string{"dividendo", "juros sobre capital próprio"}},
				{Bucket: BucketLoan, Any: []string{"empréstimo", "financiamento", "debênture"}},
				{Bucket: BucketCapital, Any: []string{"capital"}},
			},
		},
		ContextEquity: {
			Default: BucketOtherEquity,
			Rules: []Rule{
				{Bucket: BucketValuationAdjustments, All: []string{"ajuste", "avaliação"}},
				{Bucket: BucketCapitalReserve, All: []string{"reserva", "capital"}},
				{Bucket: BucketProfitReserve, Any: []string{"reserva"}},
				{Bucket: BucketRetainedEarnings, Any: []string{"lucro", "prejuízo"}, All: []string{"acumulad"}},
				{Bucket: BucketShareCapital, Any: []string{"capital"}},
			},
		},
		ContextComprehensive: {
			Default: BucketNotComprehensive,
			Rules: []Rule{
				{Bucket: BucketTranslationAdjustment, All: []string{"ajuste", "conversão"}},
				{Bucket: BucketValuationAdjustment, All: []string{"ajuste", "avaliação"}},
				{Bucket: BucketActuarial, Any: []string{"atuarial", "atuariais"}},
			},
		},
		ContextValueAdded: {
			Default: BucketUnallocated,
			Rules: []Rule{
				{Bucket: BucketDepreciation, Any: []string{"depreciação", "amortização", "exaustão"}},
				{Bucket: BucketThirdPartyInput, Any: []string{"material", "energia", "telefone", "água", "combustível", "manutenção", "terceirizado", "serviços de terceiros", "consultoria", "auditoria"}},
				{Bucket: BucketThirdPartyCapital, Any: []string{"financeir"}, All: []string{"encargo"}},
				{Bucket: BucketPersonnel, Any: []string{"salário", "encargo", "benefício", "férias", "13º", "pessoal", "ordenado"}},
				{Bucket: BucketTaxes, Any: []string{"imposto", "taxa", "contribuição", "tributo"}},
				{Bucket: BucketThirdPartyCapital, Any: []string{"juro", "aluguel", "financeira", "arrendamento"}},
			},
		},
		ContextRevenue: {
			Default: BucketOtherRevenue,
			Rules: []Rule{
				{Bucket: BucketFinancialRevenue, Any: []string{"financeira", "rendimento", "juros ativos"}},
				{Bucket: BucketServices, Any: []string{"serviço"}},
				{Bucket: BucketMerchandise, Any: []string{"mercadoria"}},
				{Bucket: BucketProducts, Any: []string{"venda", "produto"}},
			},
		},
	}
}
