package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository reads the chart of accounts and balancete rows from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a ledger repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const accountColumns = `code, name, kind, nature, level, is_analytic, COALESCE(parent_code, ''), version, active`

// AccountsByKind returns the active accounts of a kind ordered by code.
func (r *Repository) AccountsByKind(ctx context.Context, kind Kind, version string) ([]Account, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+accountColumns+`
FROM chart_accounts
WHERE kind = $1 AND version = $2 AND active
ORDER BY code`, string(kind), version)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	accounts := make([]Account, 0)
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acc)
	}
	return accounts, rows.Err()
}

// AccountByCode returns the active account for code.
func (r *Repository) AccountByCode(ctx context.Context, code, version string) (Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+`
FROM chart_accounts
WHERE code = $1 AND version = $2 AND active`, code, version)
	acc, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	return acc, nil
}

// Balance returns the closing balance of one account, zero when absent.
func (r *Repository) Balance(ctx context.Context, code, period, balanceteVersion string) (decimal.Decimal, error) {
	var raw string
	err := r.pool.QueryRow(ctx, `SELECT closing_balance::text
FROM trial_balances
WHERE account_code = $1 AND period = $2 AND balancete_version = $3`, code, period, balanceteVersion).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return parseAmount(raw)
}

// SumOfAllBalances adds every closing balance of the period.
func (r *Repository) SumOfAllBalances(ctx context.Context, period, balanceteVersion string) (decimal.Decimal, error) {
	var (
		count int64
		raw   string
	)
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(closing_balance), 0)::text
FROM trial_balances
WHERE period = $1 AND balancete_version = $2`, period, balanceteVersion).Scan(&count, &raw)
	if err != nil {
		return decimal.Zero, err
	}
	if count == 0 {
		return decimal.Zero, ErrPeriodNotFound
	}
	return parseAmount(raw)
}

// ClosingBalances returns every non-zero closing balance of the period.
func (r *Repository) ClosingBalances(ctx context.Context, period, balanceteVersion string) (map[string]decimal.Decimal, error) {
	rows, err := r.pool.Query(ctx, `SELECT account_code, closing_balance::text
FROM trial_balances
WHERE period = $1 AND balancete_version = $2 AND closing_balance <> 0`, period, balanceteVersion)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	balances := make(map[string]decimal.Decimal)
	for rows.Next() {
		var code, raw string
		if err := rows.Scan(&code, &raw); err != nil {
			return nil, err
		}
		amount, err := parseAmount(raw)
		if err != nil {
			return nil, err
		}
		balances[code] = balances[code].Add(amount)
	}
	return balances, rows.Err()
}

func scanAccount(row pgx.Row) (Account, error) {
	var (
		acc    Account
		kind   string
		nature string
	)
	if err := row.Scan(&acc.Code, &acc.Name, &kind, &nature, &acc.Level, &acc.Analytic, &acc.ParentCode, &acc.Version, &acc.Active); err != nil {
		return Account{}, err
	}
	acc.Kind = Kind(kind)
	acc.Nature = Nature(nature)
	return acc, nil
}

func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ledger: parse amount %q: %w", raw, err)
	}
	return amount, nil
}
