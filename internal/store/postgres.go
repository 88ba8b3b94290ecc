package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/KRFH/vrp-cpsat-app/internal/model"
)

// Postgres stores solve history in a single table with the request and
// routes as JSONB documents.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	p := &Postgres{db: db}
	if err := p.ensureSchema(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Postgres) ensureSchema() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := p.db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS solves (
            id             UUID PRIMARY KEY,
            created_at     TIMESTAMPTZ NOT NULL,
            outcome        TEXT NOT NULL,
            objective      DOUBLE PRECISION NOT NULL,
            total_distance DOUBLE PRECISION NOT NULL,
            duration_ms    BIGINT NOT NULL,
            request        JSONB NOT NULL,
            routes         JSONB
        );
        CREATE INDEX IF NOT EXISTS solves_created_at_idx ON solves (created_at DESC);
    `)
	return err
}

func (p *Postgres) SaveSolve(ctx context.Context, rec model.SolveRecord) error {
	reqJSON, err := json.Marshal(rec.Request)
	if err != nil {
		return err
	}
	var routesJSON []byte
	if rec.Routes != nil {
		if routesJSON, err = json.Marshal(rec.Routes); err != nil {
			return err
		}
	}
	_, err = p.db.ExecContext(ctx, `
        INSERT INTO solves (id, created_at, outcome, objective, total_distance, duration_ms, request, routes)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.CreatedAt, string(rec.Outcome), rec.Objective, rec.TotalDistance, rec.DurationMs, reqJSON, routesJSON)
	return err
}

func (p *Postgres) GetSolve(ctx context.Context, id string) (model.SolveRecord, error) {
	var rec model.SolveRecord
	var outcome string
	var reqJSON []byte
	var routesJSON []byte
	err := p.db.QueryRowContext(ctx, `
        SELECT id::text, created_at, outcome, objective, total_distance, duration_ms, request, routes
        FROM solves WHERE id=$1`, id).
		Scan(&rec.ID, &rec.CreatedAt, &outcome, &rec.Objective, &rec.TotalDistance, &rec.DurationMs, &reqJSON, &routesJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return model.SolveRecord{}, ErrNotFound
	}
	if err != nil {
		return model.SolveRecord{}, err
	}
	rec.Outcome = model.Outcome(outcome)
	if err := json.Unmarshal(reqJSON, &rec.Request); err != nil {
		return model.SolveRecord{}, err
	}
	if len(routesJSON) > 0 {
		if err := json.Unmarshal(routesJSON, &rec.Routes); err != nil {
			return model.SolveRecord{}, err
		}
	}
	return rec, nil
}

func (p *Postgres) ListSolves(ctx context.Context, cursor string, limit int) ([]model.SolveSummary, string, error) {
	if limit <= 0 {
		limit = 100
	}
	args := []any{limit}
	q := `
        SELECT id::text, created_at, outcome, total_distance, request
        FROM solves`
	if cursor != "" {
		q += ` WHERE created_at < (SELECT created_at FROM solves WHERE id=$2)`
		args = append(args, cursor)
	}
	q += ` ORDER BY created_at DESC LIMIT $1`
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	out := []model.SolveSummary{}
	next := ""
	for rows.Next() {
		var rec model.SolveRecord
		var outcome string
		var reqJSON []byte
		if err := rows.Scan(&rec.ID, &rec.CreatedAt, &outcome, &rec.TotalDistance, &reqJSON); err != nil {
			return nil, "", err
		}
		rec.Outcome = model.Outcome(outcome)
		if err := json.Unmarshal(reqJSON, &rec.Request); err != nil {
			return nil, "", err
		}
		out = append(out, summarize(rec))
		next = rec.ID
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}
	if len(out) < limit {
		next = ""
	}
	return out, next, nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) Close() { _ = p.db.Close() }
