package model

// ResultStatus is the terminal disposition of a case.
type ResultStatus string

const (
	ResultResolved  ResultStatus = "resolved"
	ResultEscalated ResultStatus = "escalated"
	ResultError     ResultStatus = "error"
)

// Result is the terminal artifact emitted for a case: either a direct
// resolution message or an escalation record with its routing target.
// Setting it makes the session terminal.
type Result struct {
	Status   ResultStatus      `json:"status"`
	CaseID   string            `json:"case_id"`
	Priority Priority          `json:"priority"`
	Category string            `json:"category"`
	Message  string            `json:"message"`
	Target   *EscalationTarget `json:"escalation_target,omitempty"`
	Error    string            `json:"error,omitempty"`
}
