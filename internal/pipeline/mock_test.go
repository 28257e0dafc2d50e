package pipeline

import (
	"context"
	"io"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/intake-cli/internal/model"
	"github.com/sells-group/intake-cli/internal/registry"
	"github.com/sells-group/intake-cli/internal/store"
)

// --- Generator mock ---

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string) (string, model.TokenUsage, error) {
	args := m.Called(ctx, prompt)
	usage, _ := args.Get(1).(model.TokenUsage)
	return args.String(0), usage, args.Error(2)
}

// --- AnswerSource helpers ---

// scriptedAnswers replays a fixed list of answers, then reports exhaustion.
type scriptedAnswers struct {
	answers []string
	next    int
}

func (s *scriptedAnswers) Ask(ctx context.Context, question string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.next >= len(s.answers) {
		return "", io.EOF
	}
	a := s.answers[s.next]
	s.next++
	return a, nil
}

// --- Store stub ---

// memStore is an in-memory Store for pipeline tests.
type memStore struct {
	mu     sync.Mutex
	cases  map[string]*model.StoredCase
	phases []model.CasePhase
}

func newMemStore() *memStore {
	return &memStore{cases: make(map[string]*model.StoredCase)}
}

func (s *memStore) CreateCase(ctx context.Context, c *model.Case) (*model.StoredCase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc := &model.StoredCase{SessionID: c.SessionID, Status: model.CaseStatusQueued, Case: c}
	s.cases[c.SessionID] = sc
	return sc, nil
}

func (s *memStore) UpdateCaseStatus(ctx context.Context, sessionID string, status model.CaseStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sc, ok := s.cases[sessionID]; ok {
		sc.Status = status
	}
	return nil
}

func (s *memStore) SaveCase(ctx context.Context, c *model.Case, status model.CaseStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cases[c.SessionID] = &model.StoredCase{SessionID: c.SessionID, Status: status, Case: c}
	return nil
}

func (s *memStore) GetCase(ctx context.Context, sessionID string) (*model.StoredCase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cases[sessionID], nil
}

func (s *memStore) ListCases(ctx context.Context, filter store.CaseFilter) ([]model.StoredCase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.StoredCase
	for _, sc := range s.cases {
		out = append(out, *sc)
	}
	return out, nil
}

func (s *memStore) CreatePhase(ctx context.Context, sessionID string, name string) (*model.CasePhase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	phase := model.CasePhase{ID: sessionID + "/" + name, SessionID: sessionID, Name: name, Status: model.PhaseStatusRunning}
	s.phases = append(s.phases, phase)
	return &phase, nil
}

func (s *memStore) CompletePhase(ctx context.Context, phaseID string, result *model.PhaseResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.phases {
		if s.phases[i].ID == phaseID {
			s.phases[i].Status = result.Status
			s.phases[i].Result = result
		}
	}
	return nil
}

func (s *memStore) Migrate(ctx context.Context) error { return nil }
func (s *memStore) Close() error                      { return nil }

func (s *memStore) status(sessionID string) model.CaseStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sc, ok := s.cases[sessionID]; ok {
		return sc.Status
	}
	return ""
}

// --- Fixture data ---

func testDirectory() *registry.Directory {
	return registry.NewDirectory(map[string][]model.CustomerRecord{
		"apple": {
			{ID: "c-100", Contact: "john@x.com", Status: model.RecordStatusActive, History: []string{"2025-12: battery swap"}},
		},
		"amazon": {
			{ID: "c-200", Contact: "+1 (555) 123-4567", Status: model.RecordStatusActive},
		},
	})
}

var _ store.Store = (*memStore)(nil)
