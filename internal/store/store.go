package store

import (
	"context"

	"github.com/sells-group/intake-cli/internal/model"
)

// CaseFilter specifies criteria for listing cases.
type CaseFilter struct {
	Status  model.CaseStatus `json:"status,omitempty"`
	Company string           `json:"company,omitempty"`
	Limit   int              `json:"limit,omitempty"`
	Offset  int              `json:"offset,omitempty"`
}

// Store defines the persistence interface for the intake pipeline: the case
// archive plus the per-phase audit trail.
type Store interface {
	// Cases
	CreateCase(ctx context.Context, c *model.Case) (*model.StoredCase, error)
	UpdateCaseStatus(ctx context.Context, sessionID string, status model.CaseStatus) error
	SaveCase(ctx context.Context, c *model.Case, status model.CaseStatus) error
	GetCase(ctx context.Context, sessionID string) (*model.StoredCase, error)
	ListCases(ctx context.Context, filter CaseFilter) ([]model.StoredCase, error)

	// Phases
	CreatePhase(ctx context.Context, sessionID string, name string) (*model.CasePhase, error)
	CompletePhase(ctx context.Context, phaseID string, result *model.PhaseResult) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
