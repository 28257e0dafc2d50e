package registry

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/intake-cli/internal/model"
)

// Protocol is the per-category resolution playbook: the concrete actions a
// direct resolution may take, the compensation it may offer, and the
// timeframe it commits to. The composer's deterministic templates and its
// minimum-content check both draw from this table.
type Protocol struct {
	Actions      []string `yaml:"actions"`
	Compensation []string `yaml:"compensation"`
	Timeframe    string   `yaml:"timeframe"`
}

// ProtocolTable maps normalized issue category to its protocol.
type ProtocolTable map[string]Protocol

// LoadProtocols reads the protocol table from a YAML file.
func LoadProtocols(path string) (ProtocolTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "registry: read protocol table")
	}

	var raw map[string]Protocol
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrap(err, "registry: unmarshal protocol table")
	}

	t := make(ProtocolTable, len(raw))
	for cat, p := range raw {
		t[model.NormalizeCompany(cat)] = p
	}
	return t, nil
}

// Lookup returns the protocol for a category, falling back to the
// general-inquiry protocol when the category has no entry of its own.
func (t ProtocolTable) Lookup(category string) Protocol {
	if p, ok := t[model.NormalizeCompany(category)]; ok {
		return p
	}
	return t["general_inquiry"]
}

// DefaultProtocols returns the built-in per-category resolution playbooks.
func DefaultProtocols() ProtocolTable {
	return ProtocolTable{
		"shipping_delays": {
			Actions:      []string{"expedite shipping", "provide tracking", "issue a partial refund"},
			Compensation: []string{"partial refund", "free shipping upgrade", "store credit"},
			Timeframe:    "2 business days",
		},
		"refunds_returns": {
			Actions:      []string{"process a full refund", "generate a return label", "schedule a pickup"},
			Compensation: []string{"full refund", "store credit", "product exchange"},
			Timeframe:    "3-5 business days",
		},
		"account_issues": {
			Actions:      []string{"reset your password", "restore account access", "verify your identity"},
			Compensation: []string{"account restoration", "security enhancement"},
			Timeframe:    "24 hours",
		},
		"payment_issues": {
			Actions:      []string{"reverse the charge", "re-run the payment", "update billing details"},
			Compensation: []string{"fee waiver", "store credit"},
			Timeframe:    "3 business days",
		},
		"content_moderation": {
			Actions:      []string{"review the content decision", "restore the post", "explain the policy"},
			Compensation: []string{"content restoration", "policy clarification"},
			Timeframe:    "5 business days",
		},
		"hardware_issue": {
			Actions:      []string{"arrange a repair", "ship a replacement", "schedule a diagnostic"},
			Compensation: []string{"free repair", "replacement device"},
			Timeframe:    "5-7 business days",
		},
		"general_inquiry": {
			Actions:      []string{"review your request", "follow up with details"},
			Compensation: []string{},
			Timeframe:    "2 business days",
		},
	}
}
