package model

// EscalationTarget identifies the specialist a non-resolvable case is
// routed to. Entries come from the static escalation table; the pipeline
// never invents targets at runtime.
type EscalationTarget struct {
	Name    string `json:"name" yaml:"name"`
	Role    string `json:"role" yaml:"role"`
	Contact string `json:"contact" yaml:"contact"`
}
