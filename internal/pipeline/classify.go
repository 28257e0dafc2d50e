package pipeline

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/intake-cli/internal/model"
	"github.com/sells-group/intake-cli/internal/registry"
)

// defaultCategory is assumed when no issue category was extracted.
const defaultCategory = "general_inquiry"

// Classifier maps (detection, verification, category) to a resolve/escalate
// decision. The transition rules run in fixed order and the first match
// wins; all routing data comes from the escalation table, never from code.
type Classifier struct {
	table     *registry.EscalationTable
	threshold float64
}

// NewClassifier builds a classifier. threshold is the detection confidence
// below which a named company still counts as unresolved.
func NewClassifier(table *registry.EscalationTable, threshold float64) *Classifier {
	return &Classifier{table: table, threshold: threshold}
}

// Classify decides whether the case is directly resolvable. A missing
// escalation-table entry for a required lookup returns ErrConfigurationGap;
// the classifier never invents a specialist.
func (cl *Classifier) Classify(c *model.Case) (model.Decision, error) {
	category := model.NormalizeCompany(c.Field(model.FieldCategory))
	if category == "" {
		category = defaultCategory
	}

	var det model.Detection
	if c.Detection != nil {
		det = *c.Detection
	}

	// Rule 1: unknown or under-confident company → generic intake.
	if det.Unknown() || det.Confidence < cl.threshold {
		target, ok := cl.table.Generic()
		if !ok {
			return model.Decision{}, eris.Wrap(ErrConfigurationGap, "classify: no generic intake specialist")
		}
		return model.Decision{
			Category: category,
			Reason:   "company could not be inferred with confidence",
			Target:   &target,
		}, nil
	}

	var ver model.VerificationResult
	if c.Verification != nil {
		ver = *c.Verification
	}

	// Rule 2: suspected fraud → security specialist, regardless of category.
	if ver.FraudSuspected {
		target, ok := cl.table.Security(det.Company)
		if !ok {
			return model.Decision{}, eris.Wrapf(ErrConfigurationGap, "classify: no security specialist for %s", det.Company)
		}
		return model.Decision{
			Category: category,
			Reason:   "contact pattern consistent with fraud or probing",
			Target:   &target,
		}, nil
	}

	// Rule 3: unverified customer → account-verification specialist.
	if !ver.Matched {
		target, ok := cl.table.AccountVerification(det.Company)
		if !ok {
			return model.Decision{}, eris.Wrapf(ErrConfigurationGap, "classify: no account-verification specialist for %s", det.Company)
		}
		return model.Decision{
			Category: category,
			Reason:   "contact not found in customer records",
			Target:   &target,
		}, nil
	}

	// Rule 4: mandatory-escalation category → mapped specialist.
	if cl.table.AlwaysEscalate(det.Company, category) {
		target, ok := cl.table.Category(det.Company, category)
		if !ok {
			return model.Decision{}, eris.Wrapf(ErrConfigurationGap, "classify: no %s specialist for %s", category, det.Company)
		}
		return model.Decision{
			Category: category,
			Reason:   "category requires specialist handling",
			Target:   &target,
		}, nil
	}

	// Rule 5: directly resolvable.
	return model.Decision{
		Resolvable: true,
		Category:   category,
		Reason:     "verified customer with a directly resolvable issue",
	}, nil
}
