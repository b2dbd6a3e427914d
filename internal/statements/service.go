// Package statements derives the statutory financial statements (BP, DRE,
// DRA, DFC, DMPL, DVA) from a balancete and a versioned chart of accounts.
package statements

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/odyssey-statements/internal/ledger"
	"github.com/odyssey-erp/odyssey-statements/internal/shared"
	"github.com/odyssey-erp/odyssey-statements/internal/statements/classify"
	"github.com/odyssey-erp/odyssey-statements/internal/statements/rollup"
)

// OrphanPolicy decides what happens to analytic accounts the hierarchy
// builder cannot place.
type OrphanPolicy string

const (
	// OrphanPolicyFail aborts generation with ErrOrphanedAccount.
	OrphanPolicyFail OrphanPolicy = "fail"
	// OrphanPolicyReport excludes orphans from totals and lists them in diagnostics.
	OrphanPolicyReport OrphanPolicy = "report"
)

// Tolerance is the monetary tolerance of every consistency check.
var Tolerance = decimal.New(1, -2)

// Service generates, persists and reads statement documents.
type Service struct {
	accounts  ledger.AccountRepository
	balances  ledger.TrialBalanceStore
	store     Store
	rules     *classify.Classifier
	logger    *slog.Logger
	validate  *validator.Validate
	now       func() time.Time
	newID     func() uuid.UUID
	policy    OrphanPolicy
	autoChain bool

	locks  shared.KeyedMutex
	flight singleflight.Group
}

// Option customises a Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClassifier replaces the built-in keyword rules.
func WithClassifier(rules *classify.Classifier) Option {
	return func(s *Service) {
		if rules != nil {
			s.rules = rules
		}
	}
}

// WithOrphanPolicy selects how orphaned accounts are handled.
func WithOrphanPolicy(policy OrphanPolicy) Option {
	return func(s *Service) {
		if policy == OrphanPolicyReport {
			s.policy = policy
		}
	}
}

// WithAutoChain makes derived statements generate a missing DRE instead of
// failing with ErrNotFound.
func WithAutoChain(enabled bool) Option {
	return func(s *Service) { s.autoChain = enabled }
}

// WithClock overrides the generation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService builds the statement service.
func NewService(accounts ledger.AccountRepository, balances ledger.TrialBalanceStore, store Store, opts ...Option) *Service {
	s := &Service{
		accounts: accounts,
		balances: balances,
		store:    store,
		rules:    classify.Default(),
		logger:   slog.Default(),
		validate: validator.New(),
		now:      time.Now,
		newID:    uuid.New,
		policy:   OrphanPolicyFail,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate computes the requested statement and upserts it. Concurrent calls
// for the same document key are coalesced and serialised; a failed call never
// writes a document.
func (s *Service) Generate(ctx context.Context, req Request) (Document, error) {
	req, err := s.normalize(req)
	if err != nil {
		return Document{}, err
	}
	key := req.LockKey()
	// The flight outlives any single caller; each caller still honours its
	// own ctx in the select below.
	flightCtx := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(key, func() (interface{}, error) {
		return s.generateLocked(flightCtx, key, req)
	})
	select {
	case <-ctx.Done():
		return Document{}, classifyError(ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return Document{}, res.Err
		}
		return res.Val.(Document), nil
	}
}

func (s *Service) generateLocked(ctx context.Context, key string, req Request) (Document, error) {
	release := s.locks.Lock(key)
	defer release()

	started := s.now()
	doc, err := s.compute(ctx, req)
	if err != nil {
		s.logger.Warn("statement generation failed",
			slog.String("statement", string(req.Type)),
			slog.String("period_key", req.PeriodKey()),
			slog.String("balancete_version", req.BalanceteVersion),
			slog.String("kind", string(KindOf(err))),
			slog.Any("error", err),
		)
		return Document{}, err
	}
	if err := s.store.Upsert(ctx, doc); err != nil {
		return Document{}, classifyError(fmt.Errorf("statements: upsert %s %s: %w", doc.Type, doc.PeriodKey, err))
	}
	s.logger.Info("statement generated",
		slog.String("statement", string(doc.Type)),
		slog.String("period_key", doc.PeriodKey),
		slog.String("balancete_version", doc.BalanceteVersion),
		slog.Duration("elapsed", s.now().Sub(started)),
	)
	return doc, nil
}

func (s *Service) compute(ctx context.Context, req Request) (doc Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("statement generation panicked",
				slog.String("statement", string(req.Type)),
				slog.String("period_key", req.PeriodKey()),
				slog.Any("panic", r),
			)
			doc = Document{}
			err = newError(KindComputation, "unexpected fault generating %s: %v", req.Type, r)
		}
	}()

	var payload Payload
	switch req.Type {
	case TypeBP:
		payload, err = s.balanceSheet(ctx, req)
	case TypeDRE:
		payload, err = s.incomeStatement(ctx, req)
	case TypeDRA:
		payload, err = s.comprehensiveIncome(ctx, req)
	case TypeDFC:
		payload, err = s.cashFlow(ctx, req)
	case TypeDMPL:
		payload, err = s.equityChanges(ctx, req)
	case TypeDVA:
		payload, err = s.valueAdded(ctx, req)
	default:
		err = newError(KindInvalidRequest, "unknown statement type %q", req.Type)
	}
	if err != nil {
		return Document{}, classifyError(err)
	}
	return Document{
		ID:               s.newID(),
		Type:             req.Type,
		PeriodKey:        req.PeriodKey(),
		BalanceteVersion: req.BalanceteVersion,
		ChartVersion:     req.ChartVersion,
		Payload:          payload,
		GeneratedAt:      s.now().UTC(),
	}, nil
}

func (s *Service) normalize(req Request) (Request, error) {
	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s(%s)", fe.Field(), fe.Tag()))
			}
			return Request{}, &Error{Kind: KindInvalidRequest, Message: "invalid fields: " + strings.Join(fields, ", "), Err: err}
		}
		return Request{}, &Error{Kind: KindInvalidRequest, Message: "invalid request", Err: err}
	}
	if req.Type.Differential() {
		if req.PeriodStart == "" || req.PeriodEnd == "" {
			return Request{}, newError(KindInvalidRequest, "%s requires period_start and period_end", req.Type)
		}
		if err := shared.ValidatePeriodRange(req.PeriodStart, req.PeriodEnd); err != nil {
			return Request{}, &Error{Kind: KindInvalidRequest, Message: "invalid period range", Err: err}
		}
		req.Period = ""
	} else {
		if req.Period == "" {
			return Request{}, newError(KindInvalidRequest, "%s requires period", req.Type)
		}
		req.PeriodStart, req.PeriodEnd = "", ""
	}
	if req.Type == TypeDFC {
		if req.Method == "" {
			req.Method = MethodIndirect
		}
		if req.Method == MethodDirect {
			return Request{}, newError(KindUnsupportedMethod, "direct-method cash flow is not supported; use %q", MethodIndirect)
		}
	} else {
		req.Method = ""
	}
	return req, nil
}

// Get returns a previously generated document.
func (s *Service) Get(ctx context.Context, typ Type, periodKey, balanceteVersion string) (Document, error) {
	if !typ.Valid() {
		return Document{}, newError(KindInvalidRequest, "unknown statement type %q", typ)
	}
	if _, _, err := shared.SplitPeriodKey(periodKey); err != nil {
		return Document{}, classifyError(err)
	}
	doc, err := s.store.Get(ctx, typ, periodKey, balanceteVersion)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Document{}, &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %s version %s has not been generated", typ, periodKey, balanceteVersion), Err: err}
		}
		return Document{}, classifyError(err)
	}
	return doc, nil
}

// ClosureReport is the outcome of the double-entry closure check.
type ClosureReport struct {
	Period           string          `json:"period"`
	BalanceteVersion string          `json:"balancete_version"`
	Sum              decimal.Decimal `json:"sum"`
	Balanced         bool            `json:"balanced"`
}

// CheckClosure sums every closing balance of the period. An unbalanced
// period is reported, not returned as an error.
func (s *Service) CheckClosure(ctx context.Context, period, balanceteVersion string) (ClosureReport, error) {
	if _, err := shared.ParsePeriod(period); err != nil {
		return ClosureReport{}, classifyError(err)
	}
	sum, err := s.balances.SumOfAllBalances(ctx, period, balanceteVersion)
	if err != nil {
		if errors.Is(err, ledger.ErrPeriodNotFound) {
			return ClosureReport{}, &Error{Kind: KindNotFound, Message: fmt.Sprintf("no trial balance for %s version %s", period, balanceteVersion), Err: err}
		}
		return ClosureReport{}, classifyError(err)
	}
	return ClosureReport{
		Period:           period,
		BalanceteVersion: balanceteVersion,
		Sum:              sum,
		Balanced:         sum.Abs().LessThanOrEqual(Tolerance),
	}, nil
}

func (s *Service) requireClosure(ctx context.Context, period, balanceteVersion string) error {
	report, err := s.CheckClosure(ctx, period, balanceteVersion)
	if err != nil {
		return err
	}
	if !report.Balanced {
		return imbalanceError(KindUnbalancedTrialBalance, report.Sum,
			"closing balances of %s version %s sum to %s", period, balanceteVersion, report.Sum.StringFixed(2))
	}
	return nil
}

// requirePeriod fails with ErrNotFound when the balancete has no rows.
func (s *Service) requirePeriod(ctx context.Context, period, balanceteVersion string) error {
	_, err := s.CheckClosure(ctx, period, balanceteVersion)
	return err
}

func (s *Service) loadChart(ctx context.Context, version string, kinds ...ledger.Kind) (*ledger.Chart, error) {
	chart, err := ledger.LoadChart(ctx, s.accounts, version, kinds...)
	if err != nil {
		return nil, fmt.Errorf("statements: load chart %s: %w", version, err)
	}
	return chart, nil
}

func (s *Service) loadSnapshot(ctx context.Context, chart *ledger.Chart, period, balanceteVersion string) (ledger.Snapshot, error) {
	snap, err := ledger.LoadSnapshot(ctx, s.balances, chart, period, balanceteVersion)
	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("statements: load snapshot %s: %w", period, err)
	}
	return snap, nil
}

// priorIncomeStatement returns the stored DRE for period, generating it first
// when auto-chaining is enabled.
func (s *Service) priorIncomeStatement(ctx context.Context, period string, req Request) (Document, error) {
	doc, err := s.store.Get(ctx, TypeDRE, period, req.BalanceteVersion)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Document{}, fmt.Errorf("statements: load DRE %s: %w", period, err)
	}
	if !s.autoChain {
		return Document{}, &Error{
			Kind:    KindNotFound,
			Message: fmt.Sprintf("%s requires the DRE for %s version %s, which has not been generated", req.Type, period, req.BalanceteVersion),
			Err:     err,
		}
	}
	s.logger.Info("generating prerequisite DRE",
		slog.String("statement", string(req.Type)),
		slog.String("period", period),
	)
	return s.Generate(ctx, Request{
		Type:             TypeDRE,
		Period:           period,
		BalanceteVersion: req.BalanceteVersion,
		ChartVersion:     req.ChartVersion,
	})
}

// placeOrphans applies the orphan policy to the trees of one statement.
func (s *Service) placeOrphans(req Request, trees ...rollup.Tree) ([]rollup.Orphan, error) {
	orphans := make([]rollup.Orphan, 0)
	for _, tree := range trees {
		orphans = append(orphans, tree.Orphans...)
	}
	return s.applyOrphanPolicy(req, orphans)
}

// placedAccounts runs the lineage check for statements that walk analytic
// accounts directly instead of building a tree. Only placed accounts are
// returned for summation.
func (s *Service) placedAccounts(req Request, chart *ledger.Chart, accounts []ledger.Account, balances ...rollup.BalanceFunc) ([]ledger.Account, []rollup.Orphan, error) {
	placed, orphans := rollup.Partition(chart, accounts, Tolerance, balances...)
	orphans, err := s.applyOrphanPolicy(req, orphans)
	if err != nil {
		return nil, nil, err
	}
	return placed, orphans, nil
}

func (s *Service) applyOrphanPolicy(req Request, orphans []rollup.Orphan) ([]rollup.Orphan, error) {
	if len(orphans) == 0 {
		return nil, nil
	}
	sort.SliceStable(orphans, func(i, j int) bool { return orphans[i].Code < orphans[j].Code })
	if s.policy == OrphanPolicyReport {
		s.logger.Warn("orphaned accounts excluded from totals",
			slog.String("statement", string(req.Type)),
			slog.String("period_key", req.PeriodKey()),
			slog.Int("count", len(orphans)),
		)
		return orphans, nil
	}
	codes := make([]string, 0, len(orphans))
	for _, o := range orphans {
		codes = append(codes, fmt.Sprintf("%s (%s)", o.Code, o.Reason))
	}
	err := newError(KindOrphanedAccount, "%d analytic account(s) cannot be placed in the hierarchy: %s", len(orphans), strings.Join(codes, ", "))
	err.Orphans = orphans
	return nil, err
}
