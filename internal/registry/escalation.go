package registry

import (
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/intake-cli/internal/model"
)

// CompanyTargets is the escalation routing data for one company: the
// security and account-verification specialists, per-category specialists,
// and the categories that must always escalate.
type CompanyTargets struct {
	Security            *model.EscalationTarget           `yaml:"security"`
	AccountVerification *model.EscalationTarget           `yaml:"account_verification"`
	Categories          map[string]model.EscalationTarget `yaml:"categories"`
	AlwaysEscalate      []string                          `yaml:"always_escalate"`
}

// EscalationTable is the static routing table consulted by the classifier.
// It is loaded once and never mutated at runtime; a missing entry for a
// required lookup is a configuration gap, never a silent default.
type EscalationTable struct {
	GenericIntake *model.EscalationTarget   `yaml:"generic_intake"`
	Companies     map[string]CompanyTargets `yaml:"companies"`
}

// LoadEscalationTable reads the routing table from a YAML file and
// normalizes company and category keys.
func LoadEscalationTable(path string) (*EscalationTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "registry: read escalation table")
	}

	var t EscalationTable
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, eris.Wrap(err, "registry: unmarshal escalation table")
	}
	t.normalize()

	zap.L().Info("registry: escalation table loaded",
		zap.Int("companies", len(t.Companies)),
		zap.Bool("generic_intake", t.GenericIntake != nil),
	)
	return &t, nil
}

func (t *EscalationTable) normalize() {
	companies := make(map[string]CompanyTargets, len(t.Companies))
	for company, ct := range t.Companies {
		cats := make(map[string]model.EscalationTarget, len(ct.Categories))
		for cat, target := range ct.Categories {
			cats[model.NormalizeCompany(cat)] = target
		}
		ct.Categories = cats
		for i, cat := range ct.AlwaysEscalate {
			ct.AlwaysEscalate[i] = model.NormalizeCompany(cat)
		}
		companies[model.NormalizeCompany(company)] = ct
	}
	t.Companies = companies
}

// Generic returns the generic intake specialist for sessions whose company
// could not be inferred.
func (t *EscalationTable) Generic() (model.EscalationTarget, bool) {
	if t.GenericIntake == nil {
		return model.EscalationTarget{}, false
	}
	return *t.GenericIntake, true
}

// Security returns the company's security/fraud specialist.
func (t *EscalationTable) Security(company string) (model.EscalationTarget, bool) {
	ct, ok := t.Companies[model.NormalizeCompany(company)]
	if !ok || ct.Security == nil {
		return model.EscalationTarget{}, false
	}
	return *ct.Security, true
}

// AccountVerification returns the company's account-verification specialist.
func (t *EscalationTable) AccountVerification(company string) (model.EscalationTarget, bool) {
	ct, ok := t.Companies[model.NormalizeCompany(company)]
	if !ok || ct.AccountVerification == nil {
		return model.EscalationTarget{}, false
	}
	return *ct.AccountVerification, true
}

// Category returns the specialist mapped to (company, category).
func (t *EscalationTable) Category(company, category string) (model.EscalationTarget, bool) {
	ct, ok := t.Companies[model.NormalizeCompany(company)]
	if !ok {
		return model.EscalationTarget{}, false
	}
	target, ok := ct.Categories[model.NormalizeCompany(category)]
	return target, ok
}

// AlwaysEscalate reports whether the category is marked mandatory-escalation
// for the company.
func (t *EscalationTable) AlwaysEscalate(company, category string) bool {
	ct, ok := t.Companies[model.NormalizeCompany(company)]
	if !ok {
		return false
	}
	category = model.NormalizeCompany(category)
	for _, cat := range ct.AlwaysEscalate {
		if cat == category {
			return true
		}
	}
	return false
}

// DefaultEscalationTable returns the built-in routing table used when no
// table file is configured.
func DefaultEscalationTable() *EscalationTable {
	t := &EscalationTable{
		GenericIntake: &model.EscalationTarget{
			Name:    "Priya Nair",
			Role:    "Intake Triage Lead",
			Contact: "triage@intake.example.com",
		},
		Companies: map[string]CompanyTargets{
			"amazon": {
				Security: &model.EscalationTarget{
					Name:    "Jessica Williams",
					Role:    "Head of Account Security",
					Contact: "j.williams@amazon.com",
				},
				AccountVerification: &model.EscalationTarget{
					Name:    "Tom Becker",
					Role:    "Account Verification Lead",
					Contact: "t.becker@amazon.com",
				},
				Categories: map[string]model.EscalationTarget{
					"shipping_delays": {
						Name:    "Sarah Mitchell",
						Role:    "Head of Logistics",
						Contact: "s.mitchell@amazon.com",
					},
					"refunds_returns": {
						Name:    "Michael Chen",
						Role:    "Head of Customer Refunds",
						Contact: "m.chen@amazon.com",
					},
					"payment_issues": {
						Name:    "David Rodriguez",
						Role:    "Head of Payment Services",
						Contact: "d.rodriguez@amazon.com",
					},
				},
				AlwaysEscalate: []string{"payment_issues"},
			},
			"apple": {
				Security: &model.EscalationTarget{
					Name:    "Dana Kowalski",
					Role:    "Fraud Prevention Lead",
					Contact: "d.kowalski@apple.com",
				},
				AccountVerification: &model.EscalationTarget{
					Name:    "Ravi Patel",
					Role:    "Account Verification Lead",
					Contact: "r.patel@apple.com",
				},
				Categories: map[string]model.EscalationTarget{
					"account_issues": {
						Name:    "Elena Fischer",
						Role:    "Head of Account Support",
						Contact: "e.fischer@apple.com",
					},
				},
			},
			"facebook": {
				Security: &model.EscalationTarget{
					Name:    "Lisa Thompson",
					Role:    "Head of Privacy & Security",
					Contact: "l.thompson@facebook.com",
				},
				AccountVerification: &model.EscalationTarget{
					Name:    "Emily Davis",
					Role:    "Head of Account Appeals",
					Contact: "e.davis@facebook.com",
				},
				Categories: map[string]model.EscalationTarget{
					"content_moderation": {
						Name:    "Robert Johnson",
						Role:    "Head of Content Policy",
						Contact: "r.johnson@facebook.com",
					},
				},
				AlwaysEscalate: []string{"content_moderation"},
			},
		},
	}
	t.normalize()
	return t
}
