package pipeline

import (
	"github.com/sells-group/intake-cli/internal/model"
	"github.com/sells-group/intake-cli/internal/registry"
)

// Detector infers the target company from keyword matches over the
// transcript and extracted fields. Pure function of its inputs: identical
// fields and transcript always yield the same detection.
type Detector struct {
	rules     []registry.CompanyRule
	threshold float64
}

// NewDetector builds a detector. threshold is the confidence below which
// the classifier treats the company as unresolved.
func NewDetector(rules []registry.CompanyRule, threshold float64) *Detector {
	return &Detector{rules: rules, threshold: threshold}
}

// Threshold returns the configured confidence threshold.
func (d *Detector) Threshold() float64 {
	return d.threshold
}

// Detect scores every company's keyword set against the transcript plus the
// product and description fields. An explicit company_name field that names
// a known company short-circuits with full confidence. Ties between
// companies fall back to the longest matched term; an unresolved tie means
// (unknown, 0).
func (d *Detector) Detect(fields map[string]string, transcript string) model.Detection {
	if explicit := model.NormalizeCompany(fields[model.FieldCompany]); explicit != "" {
		for _, rule := range d.rules {
			if rule.Name == explicit {
				return model.Detection{Company: rule.Name, Confidence: 1.0}
			}
		}
	}

	folded := foldWords(transcript + " " + fields[model.FieldProduct] + " " + fields[model.FieldDescription])

	type candidate struct {
		name    string
		score   float64
		longest int
	}

	// All candidates tied on the top score stay in play until the
	// longest-term comparison; ties collapse easily once scores hit the cap.
	var top []candidate
	var bestScore float64

	for _, rule := range d.rules {
		var c candidate
		c.name = rule.Name
		for _, kw := range rule.Keywords {
			if !containsWord(folded, kw) {
				continue
			}
			// Longer keywords are more specific, so they contribute more.
			c.score += 0.3 + 0.05*float64(len(kw))
			if len(kw) > c.longest {
				c.longest = len(kw)
			}
		}
		if c.score == 0 {
			continue
		}
		if c.score > 1.0 {
			c.score = 1.0
		}
		switch {
		case c.score > bestScore:
			bestScore = c.score
			top = append(top[:0], c)
		case c.score == bestScore:
			top = append(top, c)
		}
	}

	if len(top) == 0 {
		return model.Detection{Company: model.CompanyUnknown, Confidence: 0}
	}

	// Tied top scores: the longest matched term wins; a full tie is
	// surfaced as unknown for manual handling.
	winner := top[0]
	ambiguous := false
	for _, c := range top[1:] {
		switch {
		case c.longest > winner.longest:
			winner = c
			ambiguous = false
		case c.longest == winner.longest:
			ambiguous = true
		}
	}
	if ambiguous {
		return model.Detection{Company: model.CompanyUnknown, Confidence: 0}
	}

	return model.Detection{Company: winner.name, Confidence: winner.score}
}
