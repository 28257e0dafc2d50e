package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/intake-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS cases (
	session_id TEXT PRIMARY KEY,
	status     TEXT NOT NULL DEFAULT 'queued',
	case_data  TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS case_phases (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES cases(session_id),
	name       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	result     TEXT,
	started_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_cases_status ON cases(status);
CREATE INDEX IF NOT EXISTS idx_case_phases_session_id ON case_phases(session_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateCase(ctx context.Context, c *model.Case) (*model.StoredCase, error) {
	now := time.Now().UTC()

	caseJSON, err := json.Marshal(c)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal case")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO cases (session_id, status, case_data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		c.SessionID, string(model.CaseStatusQueued), string(caseJSON), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert case")
	}

	return &model.StoredCase{
		SessionID: c.SessionID,
		Status:    model.CaseStatusQueued,
		Case:      c,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) UpdateCaseStatus(ctx context.Context, sessionID string, status model.CaseStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE cases SET status = ?, updated_at = ? WHERE session_id = ?`,
		string(status), time.Now().UTC(), sessionID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update case status %s", sessionID)
	}
	return checkRowsAffected(res, "case", sessionID)
}

func (s *SQLiteStore) SaveCase(ctx context.Context, c *model.Case, status model.CaseStatus) error {
	caseJSON, err := json.Marshal(c)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal case")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE cases SET case_data = ?, status = ?, updated_at = ? WHERE session_id = ?`,
		string(caseJSON), string(status), time.Now().UTC(), c.SessionID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: save case %s", c.SessionID)
	}
	return checkRowsAffected(res, "case", c.SessionID)
}

func (s *SQLiteStore) GetCase(ctx context.Context, sessionID string) (*model.StoredCase, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT session_id, status, case_data, created_at, updated_at FROM cases WHERE session_id = ?`,
		sessionID,
	)
	return scanCase(row)
}

func (s *SQLiteStore) ListCases(ctx context.Context, filter CaseFilter) ([]model.StoredCase, error) {
	query := `SELECT session_id, status, case_data, created_at, updated_at FROM cases WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Company != "" {
		query += ` AND json_extract(case_data, '$.detected_company.company') = ?`
		args = append(args, filter.Company)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list cases")
	}
	defer rows.Close()

	var cases []model.StoredCase
	for rows.Next() {
		sc, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		cases = append(cases, *sc)
	}
	return cases, eris.Wrap(rows.Err(), "sqlite: list cases iterate")
}

func (s *SQLiteStore) CreatePhase(ctx context.Context, sessionID string, name string) (*model.CasePhase, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO case_phases (id, session_id, name, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		id, sessionID, name, string(model.PhaseStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert phase for case %s", sessionID)
	}

	return &model.CasePhase{
		ID:        id,
		SessionID: sessionID,
		Name:      name,
		Status:    model.PhaseStatusRunning,
		StartedAt: now,
	}, nil
}

func (s *SQLiteStore) CompletePhase(ctx context.Context, phaseID string, result *model.PhaseResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal phase result")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE case_phases SET status = ?, result = ? WHERE id = ?`,
		string(result.Status), string(resultJSON), phaseID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete phase %s", phaseID)
	}
	return checkRowsAffected(res, "phase", phaseID)
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanCase(row scannable) (*model.StoredCase, error) {
	var sc model.StoredCase
	var caseJSON string

	err := row.Scan(&sc.SessionID, &sc.Status, &caseJSON, &sc.CreatedAt, &sc.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("case not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan case")
	}

	sc.Case = &model.Case{}
	if err := json.Unmarshal([]byte(caseJSON), sc.Case); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal case")
	}
	return &sc, nil
}
