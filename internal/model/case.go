package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// CaseStatus represents the current state of an intake session.
type CaseStatus string

const (
	CaseStatusQueued      CaseStatus = "queued"
	CaseStatusCollecting  CaseStatus = "collecting"
	CaseStatusDetecting   CaseStatus = "detecting"
	CaseStatusVerifying   CaseStatus = "verifying"
	CaseStatusClassifying CaseStatus = "classifying"
	CaseStatusComposing   CaseStatus = "composing"
	CaseStatusResolved    CaseStatus = "resolved"
	CaseStatusEscalated   CaseStatus = "escalated"
	CaseStatusError       CaseStatus = "error"
	CaseStatusAborted     CaseStatus = "aborted"
)

// Extracted field keys. The dialogue collector fills these in priority order;
// downstream stages read them by key.
const (
	FieldName        = "name"
	FieldContact     = "contact"
	FieldDescription = "description"
	FieldCategory    = "category"
	FieldUrgency     = "urgency"
	FieldOrderID     = "order_id"
	FieldProduct     = "product_name"
	FieldPurchaseAt  = "purchase_date"
	FieldCompany     = "company_name"
	FieldNotes       = "notes"
)

// Turn is a single question/answer exchange in the dialogue.
type Turn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Detection is the company-detection outcome. Confidence is in [0,1];
// Company is CompanyUnknown when no confident match exists.
type Detection struct {
	Company    string  `json:"company"`
	Confidence float64 `json:"confidence"`
}

// CompanyUnknown marks a session whose target company could not be inferred.
const CompanyUnknown = "unknown"

// Unknown reports whether the detection failed to name a company.
func (d Detection) Unknown() bool {
	return d.Company == "" || d.Company == CompanyUnknown
}

// VerificationResult is the outcome of the contact lookup against the
// detected company's customer directory.
type VerificationResult struct {
	Matched        bool         `json:"matched"`
	FraudSuspected bool         `json:"fraud_suspected"`
	Confidence     float64      `json:"confidence"`
	RecordStatus   RecordStatus `json:"record_status,omitempty"`
	History        []string     `json:"history,omitempty"`
}

// Decision is the solvability classification outcome. Target is non-nil
// exactly when Resolvable is false.
type Decision struct {
	Resolvable bool              `json:"resolvable"`
	Category   string            `json:"category"`
	Reason     string            `json:"reason"`
	Target     *EscalationTarget `json:"escalation_target,omitempty"`
}

// Case is the root aggregate for one complaint session. It is created at
// session start, mutated by each pipeline stage in order, and terminal once
// Result is set.
type Case struct {
	SessionID    string              `json:"session_id"`
	Turns        []Turn              `json:"turns"`
	Fields       map[string]string   `json:"extracted_fields"`
	Detection    *Detection          `json:"detected_company,omitempty"`
	Verification *VerificationResult `json:"verification,omitempty"`
	Decision     *Decision           `json:"decision,omitempty"`
	Result       *Result             `json:"result,omitempty"`

	// UnmatchedContacts records distinct normalized contacts that failed
	// directory lookup during this session, in attempt order.
	UnmatchedContacts []string `json:"unmatched_contacts,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// NewCase creates an empty case with a fresh session id.
func NewCase() *Case {
	return &Case{
		SessionID: uuid.New().String(),
		Fields:    make(map[string]string),
		CreatedAt: time.Now().UTC(),
	}
}

// AppendTurn records one question/answer exchange. The transcript is
// append-only; turns are never edited or removed.
func (c *Case) AppendTurn(question, answer string) {
	c.Turns = append(c.Turns, Turn{Question: question, Answer: answer})
}

// SetField stores an extracted value. A previously filled field is never
// cleared by a later empty extraction; non-empty values may overwrite
// earlier partials. Reports whether the field changed.
func (c *Case) SetField(key, value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	if c.Fields == nil {
		c.Fields = make(map[string]string)
	}
	if c.Fields[key] == value {
		return false
	}
	c.Fields[key] = value
	return true
}

// MergeFields applies SetField for every entry in updates.
func (c *Case) MergeFields(updates map[string]string) {
	for k, v := range updates {
		c.SetField(k, v)
	}
}

// Field returns the extracted value for key, or "" if unset.
func (c *Case) Field(key string) string {
	return c.Fields[key]
}

// Transcript renders the full dialogue for audit logging and for
// transcript-wide extraction and detection passes.
func (c *Case) Transcript() string {
	var b strings.Builder
	for _, t := range c.Turns {
		if t.Question != "" {
			b.WriteString("agent: " + t.Question + "\n")
		}
		b.WriteString("customer: " + t.Answer + "\n")
	}
	return b.String()
}

// Terminal reports whether a result has been attached.
func (c *Case) Terminal() bool {
	return c.Result != nil
}
