package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/intake-cli/internal/config"
	"github.com/sells-group/intake-cli/internal/model"
	"github.com/sells-group/intake-cli/internal/pipeline"
	"github.com/sells-group/intake-cli/internal/registry"
	"github.com/sells-group/intake-cli/internal/store"
)

func newTestRouter(t *testing.T) (http.Handler, store.Store) {
	t.Helper()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "intake.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	testCfg := &config.Config{
		Intake: config.IntakeConfig{MaxQuestions: 6},
		Detect: config.DetectConfig{ConfidenceThreshold: 0.5},
		Verify: config.VerifyConfig{MismatchThreshold: 3},
	}
	p := pipeline.New(testCfg, st, nil,
		registry.DefaultCompanyRules(),
		registry.DefaultDirectory(),
		registry.DefaultEscalationTable(),
		registry.DefaultProtocols(),
	)
	return newRouter(p, st), st
}

func TestServeHealth(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestServeIntake(t *testing.T) {
	router, st := newTestRouter(t)

	body := `{
		"customer_info": {"name": "John Doe", "email": "john.doe@email.com"},
		"complaint_details": {"description": "my amazon echo stopped responding", "category": "hardware_issue", "product_name": "echo dot"}
	}`
	req := httptest.NewRequest(http.MethodPost, "/intake", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result model.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, model.ResultResolved, result.Status)
	assert.NotEmpty(t, result.CaseID)

	// Processed case is queryable afterwards.
	sc, err := st.GetCase(context.Background(), result.CaseID)
	require.NoError(t, err)
	assert.Equal(t, model.CaseStatusResolved, sc.Status)
}

func TestServeIntakeBadBody(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/intake", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServeCases(t *testing.T) {
	router, st := newTestRouter(t)

	c := model.NewCase()
	c.Detection = &model.Detection{Company: "apple", Confidence: 0.6}
	_, err := st.CreateCase(context.Background(), c)
	require.NoError(t, err)
	require.NoError(t, st.SaveCase(context.Background(), c, model.CaseStatusEscalated))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cases?status=escalated", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var cases []model.StoredCase
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cases))
	require.Len(t, cases, 1)
	assert.Equal(t, c.SessionID, cases[0].SessionID)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cases/"+c.SessionID, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cases/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
