package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/soinglobal/callscope/internal/domain"
)

const defaultPageSize = 500

// schema is the call_events table this source reads. EnsureSchema applies it
// for fresh deployments; production tables are owned by the ingestion side.
const schema = `
CREATE TABLE IF NOT EXISTS call_events (
	id                   BIGSERIAL PRIMARY KEY,
	contract_address     TEXT        NOT NULL,
	actor                TEXT        NOT NULL,
	channel              TEXT,
	message              TEXT,
	occurred_at          TIMESTAMPTZ NOT NULL,
	baseline_price_usd   DOUBLE PRECISION,
	baseline_market_cap  DOUBLE PRECISION,
	baseline_chain_id    TEXT,
	baseline_observed_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS call_events_occurred_at_idx ON call_events (occurred_at, id);
CREATE INDEX IF NOT EXISTS call_events_contract_idx ON call_events (contract_address);
`

// PostgresSource reads call events from the call_events table, streaming
// pages ordered by (occurred_at, id) so a scan never materializes the whole
// table.
type PostgresSource struct {
	db       *sqlx.DB
	timeout  time.Duration
	pageSize int
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// NewPostgresSource creates a call event source over an open connection.
// timeout bounds each page query; pageSize <= 0 uses the default.
func NewPostgresSource(db *sqlx.DB, timeout time.Duration, pageSize int) *PostgresSource {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &PostgresSource{db: db, timeout: timeout, pageSize: pageSize}
}

// EnsureSchema creates the call_events table and indexes if absent.
func (s *PostgresSource) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

type callEventRow struct {
	ID              int64           `db:"id"`
	ContractAddress string          `db:"contract_address"`
	Actor           string          `db:"actor"`
	Channel         sql.NullString  `db:"channel"`
	Message         sql.NullString  `db:"message"`
	OccurredAt      time.Time       `db:"occurred_at"`
	BaselinePrice   sql.NullFloat64 `db:"baseline_price_usd"`
	BaselineCap     sql.NullFloat64 `db:"baseline_market_cap"`
	BaselineChain   sql.NullString  `db:"baseline_chain_id"`
	BaselineAt      sql.NullTime    `db:"baseline_observed_at"`
}

// Scan implements CallSource via keyset pagination.
func (s *PostgresSource) Scan(ctx context.Context, f Filter, fn func(domain.CallEvent) error) error {
	var (
		afterAt time.Time
		afterID int64
	)
	for {
		rows, err := s.fetchPage(ctx, f, afterAt, afterID)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		for _, row := range rows {
			if err := fn(row.toEvent()); err != nil {
				return err
			}
		}
		last := rows[len(rows)-1]
		afterAt, afterID = last.OccurredAt, last.ID
		if len(rows) < s.pageSize {
			return nil
		}
	}
}

func (s *PostgresSource) fetchPage(ctx context.Context, f Filter, afterAt time.Time, afterID int64) ([]callEventRow, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `
		SELECT id, contract_address, actor, channel, message, occurred_at,
		       baseline_price_usd, baseline_market_cap, baseline_chain_id, baseline_observed_at
		FROM call_events
		WHERE (occurred_at, id) > ($1, $2)`
	args := []interface{}{afterAt, afterID}

	if f.ContractAddress != "" {
		args = append(args, f.ContractAddress)
		query += fmt.Sprintf(" AND contract_address = $%d", len(args))
	}
	if len(f.Chains) > 0 {
		args = append(args, pq.Array(lowerAll(f.Chains)))
		query += fmt.Sprintf(" AND LOWER(baseline_chain_id) = ANY($%d)", len(args))
	}
	if len(f.Actors) > 0 {
		args = append(args, pq.Array(f.Actors))
		query += fmt.Sprintf(" AND actor = ANY($%d)", len(args))
	}
	if len(f.Channels) > 0 {
		args = append(args, pq.Array(f.Channels))
		query += fmt.Sprintf(" AND channel = ANY($%d)", len(args))
	}
	if !f.Since.IsZero() {
		args = append(args, f.Since)
		query += fmt.Sprintf(" AND occurred_at >= $%d", len(args))
	}
	if !f.Until.IsZero() {
		args = append(args, f.Until)
		query += fmt.Sprintf(" AND occurred_at <= $%d", len(args))
	}

	args = append(args, s.pageSize)
	query += fmt.Sprintf(" ORDER BY occurred_at, id LIMIT $%d", len(args))

	var page []callEventRow
	if err := s.db.SelectContext(ctx, &page, query, args...); err != nil {
		return nil, fmt.Errorf("scan call events: %w", err)
	}
	return page, nil
}

func (r callEventRow) toEvent() domain.CallEvent {
	e := domain.CallEvent{
		ContractAddress: r.ContractAddress,
		Actor:           r.Actor,
		Channel:         r.Channel.String,
		Message:         r.Message.String,
		OccurredAt:      r.OccurredAt,
	}
	if r.BaselinePrice.Valid || r.BaselineCap.Valid || r.BaselineChain.Valid {
		snap := &domain.MarketSnapshot{
			Provenance: domain.ProvenanceEmbedded,
			ChainID:    r.BaselineChain.String,
			ObservedAt: r.OccurredAt,
		}
		if r.BaselinePrice.Valid {
			snap.PriceUsd = domain.Float64(r.BaselinePrice.Float64)
		}
		if r.BaselineCap.Valid {
			snap.MarketCap = domain.Float64(r.BaselineCap.Float64)
		}
		if r.BaselineAt.Valid {
			snap.ObservedAt = r.BaselineAt.Time
		}
		e.Baseline = snap
	}
	return e
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
