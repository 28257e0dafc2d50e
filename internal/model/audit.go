package model

import "time"

// PhaseStatus represents the current state of a pipeline phase.
type PhaseStatus string

const (
	PhaseStatusRunning  PhaseStatus = "running"
	PhaseStatusComplete PhaseStatus = "complete"
	PhaseStatusFailed   PhaseStatus = "failed"
	PhaseStatusSkipped  PhaseStatus = "skipped"
)

// PhaseResult holds the outcome of a pipeline phase for the audit trail.
type PhaseResult struct {
	Name       string         `json:"name"`
	Status     PhaseStatus    `json:"status"`
	Duration   int64          `json:"duration_ms"`
	TokenUsage TokenUsage     `json:"token_usage"`
	Error      string         `json:"error,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// CasePhase is one persisted phase row for a session.
type CasePhase struct {
	ID        string       `json:"id"`
	SessionID string       `json:"session_id"`
	Name      string       `json:"name"`
	Status    PhaseStatus  `json:"status"`
	Result    *PhaseResult `json:"result,omitempty"`
	StartedAt time.Time    `json:"started_at"`
}

// StoredCase is the persisted view of a session: the case aggregate plus
// its lifecycle status and timestamps.
type StoredCase struct {
	SessionID string     `json:"session_id"`
	Status    CaseStatus `json:"status"`
	Case      *Case      `json:"case"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TokenUsage tracks token consumption across LLM calls.
type TokenUsage struct {
	InputTokens         int     `json:"input_tokens"`
	OutputTokens        int     `json:"output_tokens"`
	CacheCreationTokens int     `json:"cache_creation_tokens"`
	CacheReadTokens     int     `json:"cache_read_tokens"`
	Cost                float64 `json:"cost"`
}

// Add merges token usage from another instance.
func (t *TokenUsage) Add(other TokenUsage) {
	t.InputTokens += other.InputTokens
	t.OutputTokens += other.OutputTokens
	t.CacheCreationTokens += other.CacheCreationTokens
	t.CacheReadTokens += other.CacheReadTokens
	t.Cost += other.Cost
}
