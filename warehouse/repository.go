package warehouse

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"miniledger/ledger"
)

// ErrRunNotFound signals the requested run does not exist.
var ErrRunNotFound = errors.New("warehouse: run not found")

// Repository persists run snapshots to Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository wires a pgxpool-backed repository implementation.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsureSchema creates the warehouse tables when they are missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS reconciliation_runs (
			id          UUID PRIMARY KEY,
			source      TEXT NOT NULL,
			accepted    BIGINT NOT NULL,
			dropped     BIGINT NOT NULL,
			started_at  TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS account_summaries (
			run_id    UUID NOT NULL REFERENCES reconciliation_runs (id) ON DELETE CASCADE,
			client    INTEGER NOT NULL,
			available NUMERIC(20, 4) NOT NULL,
			held      NUMERIC(20, 4) NOT NULL,
			total     NUMERIC(20, 4) NOT NULL,
			locked    BOOLEAN NOT NULL,
			PRIMARY KEY (run_id, client)
		)`,
	}

	for _, stmt := range ddl {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("warehouse: ensure schema: %w", err)
		}
	}
	return nil
}

// InsertRun stores the run header row.
func (r *Repository) InsertRun(ctx context.Context, run Run) error {
	const query = `
		INSERT INTO reconciliation_runs (id, source, accepted, dropped, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		run.ID, run.Source, run.Accepted, run.Dropped, run.StartedAt, run.FinishedAt)
	if err != nil {
		return fmt.Errorf("warehouse: insert run: %w", err)
	}
	return nil
}

// UpsertAccount stores one account summary row for the given run.
func (r *Repository) UpsertAccount(ctx context.Context, runID string, a ledger.Account) error {
	const query = `
		INSERT INTO account_summaries (run_id, client, available, held, total, locked)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (run_id, client) DO UPDATE
		SET available = EXCLUDED.available,
		    held      = EXCLUDED.held,
		    total     = EXCLUDED.total,
		    locked    = EXCLUDED.locked
	`

	_, err := r.pool.Exec(ctx, query,
		runID,
		int32(a.Client),
		a.Available.StringFixed(4),
		a.Held.StringFixed(4),
		a.Total().StringFixed(4),
		a.Locked,
	)
	if err != nil {
		return fmt.Errorf("warehouse: upsert account %d: %w", a.Client, err)
	}
	return nil
}

// GetRun fetches a run header by id.
func (r *Repository) GetRun(ctx context.Context, runID string) (Run, error) {
	const query = `
		SELECT id, source, accepted, dropped, started_at, finished_at
		FROM reconciliation_runs
		WHERE id = $1
	`

	var run Run
	err := r.pool.QueryRow(ctx, query, runID).Scan(
		&run.ID, &run.Source, &run.Accepted, &run.Dropped, &run.StartedAt, &run.FinishedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Run{}, ErrRunNotFound
		}
		return Run{}, fmt.Errorf("warehouse: get run: %w", err)
	}
	return run, nil
}

// ListAccounts returns the account summaries for a run in ascending client
// order.
func (r *Repository) ListAccounts(ctx context.Context, runID string) ([]ledger.Account, error) {
	const query = `
		SELECT client, available::text, held::text, locked
		FROM account_summaries
		WHERE run_id = $1
		ORDER BY client
	`

	rows, err := r.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("warehouse: list accounts: %w", err)
	}
	defer rows.Close()

	out := make([]ledger.Account, 0, 8)
	for rows.Next() {
		var (
			client    int32
			available string
			held      string
			locked    bool
		)
		if err := rows.Scan(&client, &available, &held, &locked); err != nil {
			return nil, fmt.Errorf("warehouse: scan account: %w", err)
		}

		a := ledger.Account{Client: ledger.ClientID(client), Locked: locked}
		if a.Available, err = decimal.NewFromString(available); err != nil {
			return nil, fmt.Errorf("warehouse: decode available: %w", err)
		}
		if a.Held, err = decimal.NewFromString(held); err != nil {
			return nil, fmt.Errorf("warehouse: decode held: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("warehouse: iterate accounts: %w", err)
	}
	return out, nil
}
