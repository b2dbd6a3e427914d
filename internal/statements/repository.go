package statements

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-statements/internal/platform/db"
	"github.com/odyssey-erp/odyssey-statements/internal/shared"
)

// Repository persists statement documents in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get loads the document stored under the key.
func (r *Repository) Get(ctx context.Context, typ Type, periodKey, balanceteVersion string) (Document, error) {
	var (
		doc     Document
		typText string
		payload []byte
	)
	err := r.pool.QueryRow(ctx, `SELECT id, statement_type, period_key, balancete_version, chart_version, payload, generated_at
FROM financial_statements
WHERE statement_type = $1 AND period_key = $2 AND balancete_version = $3`, string(typ), periodKey, balanceteVersion).
		Scan(&doc.ID, &typText, &doc.PeriodKey, &doc.BalanceteVersion, &doc.ChartVersion, &payload, &doc.GeneratedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	doc.Type = Type(typText)
	if err := json.Unmarshal(payload, &doc.Payload); err != nil {
		return Document{}, fmt.Errorf("statements: decode payload %s %s: %w", typ, periodKey, err)
	}
	return doc, nil
}

// Upsert writes the document, replacing any document with the same key. The
// advisory lock keeps concurrent writers from different processes serialised
// per key.
func (r *Repository) Upsert(ctx context.Context, doc Document) error {
	payload, err := json.Marshal(doc.Payload)
	if err != nil {
		return fmt.Errorf("statements: encode payload: %w", err)
	}
	lockID := shared.AdvisoryLockID(shared.StatementLockKey(string(doc.Type), doc.PeriodKey, doc.BalanceteVersion))
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, lockID); err != nil {
			return fmt.Errorf("statements: advisory lock: %w", err)
		}
		_, err := tx.Exec(ctx, `INSERT INTO financial_statements (id, statement_type, period_key, balancete_version, chart_version, payload, generated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (statement_type, period_key, balancete_version) DO UPDATE
SET chart_version = EXCLUDED.chart_version,
    payload = EXCLUDED.payload,
    generated_at = EXCLUDED.generated_at`,
			doc.ID, string(doc.Type), doc.PeriodKey, doc.BalanceteVersion, doc.ChartVersion, payload, doc.GeneratedAt)
		return err
	})
}
