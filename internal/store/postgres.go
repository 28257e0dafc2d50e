package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/intake-cli/internal/db"
	"github.com/sells-group/intake-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: pool.Close}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS cases (
	session_id TEXT PRIMARY KEY,
	status     TEXT NOT NULL DEFAULT 'queued',
	case_data  JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS case_phases (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	session_id TEXT NOT NULL REFERENCES cases(session_id),
	name       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	result     JSONB,
	started_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_cases_status ON cases(status);
CREATE INDEX IF NOT EXISTS idx_case_phases_session_id ON case_phases(session_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateCase(ctx context.Context, c *model.Case) (*model.StoredCase, error) {
	now := time.Now().UTC()

	caseJSON, err := json.Marshal(c)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal case")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO cases (session_id, status, case_data, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		c.SessionID, string(model.CaseStatusQueued), caseJSON, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert case")
	}

	return &model.StoredCase{
		SessionID: c.SessionID,
		Status:    model.CaseStatusQueued,
		Case:      c,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) UpdateCaseStatus(ctx context.Context, sessionID string, status model.CaseStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE cases SET status = $1, updated_at = $2 WHERE session_id = $3`,
		string(status), time.Now().UTC(), sessionID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update case status %s", sessionID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("case not found: %s", sessionID)
	}
	return nil
}

func (s *PostgresStore) SaveCase(ctx context.Context, c *model.Case, status model.CaseStatus) error {
	caseJSON, err := json.Marshal(c)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal case")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE cases SET case_data = $1, status = $2, updated_at = $3 WHERE session_id = $4`,
		caseJSON, string(status), time.Now().UTC(), c.SessionID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: save case %s", c.SessionID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("case not found: %s", c.SessionID)
	}
	return nil
}

func (s *PostgresStore) GetCase(ctx context.Context, sessionID string) (*model.StoredCase, error) {
	var sc model.StoredCase
	var caseJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT session_id, status, case_data, created_at, updated_at FROM cases WHERE session_id = $1`,
		sessionID,
	).Scan(&sc.SessionID, &sc.Status, &caseJSON, &sc.CreatedAt, &sc.UpdatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get case %s", sessionID)
	}

	sc.Case = &model.Case{}
	if err := json.Unmarshal(caseJSON, sc.Case); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal case")
	}
	return &sc, nil
}

func (s *PostgresStore) ListCases(ctx context.Context, filter CaseFilter) ([]model.StoredCase, error) {
	query := `SELECT session_id, status, case_data, created_at, updated_at FROM cases WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.Company != "" {
		query += fmt.Sprintf(` AND case_data->'detected_company'->>'company' = $%d`, argIdx)
		args = append(args, filter.Company)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
		argIdx++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list cases")
	}
	defer rows.Close()

	var cases []model.StoredCase
	for rows.Next() {
		var sc model.StoredCase
		var caseJSON []byte
		if err := rows.Scan(&sc.SessionID, &sc.Status, &caseJSON, &sc.CreatedAt, &sc.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan case")
		}
		sc.Case = &model.Case{}
		if err := json.Unmarshal(caseJSON, sc.Case); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal case")
		}
		cases = append(cases, sc)
	}
	return cases, eris.Wrap(rows.Err(), "postgres: list cases iterate")
}

func (s *PostgresStore) CreatePhase(ctx context.Context, sessionID string, name string) (*model.CasePhase, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO case_phases (id, session_id, name, status, started_at) VALUES ($1, $2, $3, $4, $5)`,
		id, sessionID, name, string(model.PhaseStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert phase for case %s", sessionID)
	}

	return &model.CasePhase{
		ID:        id,
		SessionID: sessionID,
		Name:      name,
		Status:    model.PhaseStatusRunning,
		StartedAt: now,
	}, nil
}

func (s *PostgresStore) CompletePhase(ctx context.Context, phaseID string, result *model.PhaseResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal phase result")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE case_phases SET status = $1, result = $2 WHERE id = $3`,
		string(result.Status), resultJSON, phaseID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete phase %s", phaseID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("phase not found: %s", phaseID)
	}
	return nil
}
