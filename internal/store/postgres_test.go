package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/intake-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_CreateCase(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	c := model.NewCase()
	mock.ExpectExec(`INSERT INTO cases`).
		WithArgs(c.SessionID, "queued", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	sc, err := s.CreateCase(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, model.CaseStatusQueued, sc.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateCaseStatus_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE cases SET status`).
		WithArgs("escalated", pgxmock.AnyArg(), "missing-session").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateCaseStatus(context.Background(), "missing-session", model.CaseStatusEscalated)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "case not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCase(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	c := model.NewCase()
	c.SetField(model.FieldContact, "john@x.com")
	caseJSON, err := json.Marshal(c)
	require.NoError(t, err)

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT session_id, status, case_data, created_at, updated_at FROM cases WHERE session_id = \$1`).
		WithArgs(c.SessionID).
		WillReturnRows(pgxmock.NewRows([]string{"session_id", "status", "case_data", "created_at", "updated_at"}).
			AddRow(c.SessionID, "resolved", caseJSON, now, now))

	sc, err := s.GetCase(context.Background(), c.SessionID)
	require.NoError(t, err)
	assert.Equal(t, model.CaseStatusResolved, sc.Status)
	assert.Equal(t, "john@x.com", sc.Case.Field(model.FieldContact))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCase_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT session_id, status, case_data, created_at, updated_at FROM cases`).
		WithArgs("nonexistent").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetCase(context.Background(), "nonexistent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get case")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompletePhase(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE case_phases SET status`).
		WithArgs("complete", pgxmock.AnyArg(), "phase-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.CompletePhase(context.Background(), "phase-1", &model.PhaseResult{
		Name:   "verify",
		Status: model.PhaseStatusComplete,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
