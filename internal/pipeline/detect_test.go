package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/intake-cli/internal/model"
	"github.com/sells-group/intake-cli/internal/registry"
)

func TestDetectKeywordScoring(t *testing.T) {
	d := NewDetector(registry.DefaultCompanyRules(), 0.5)

	det := d.Detect(map[string]string{}, "customer: My iphone screen is cracked\n")
	assert.Equal(t, "apple", det.Company)
	assert.InDelta(t, 0.6, det.Confidence, 1e-9)

	det = d.Detect(map[string]string{}, "customer: My echo stopped responding\n")
	assert.Equal(t, "amazon", det.Company)
	assert.InDelta(t, 0.5, det.Confidence, 1e-9)
}

func TestDetectReadsProductAndDescriptionFields(t *testing.T) {
	d := NewDetector(registry.DefaultCompanyRules(), 0.5)

	det := d.Detect(map[string]string{
		model.FieldProduct:     "Galaxy S24",
		model.FieldDescription: "battery drains overnight",
	}, "")
	assert.Equal(t, "samsung", det.Company)
}

func TestDetectExplicitCompanyField(t *testing.T) {
	d := NewDetector(registry.DefaultCompanyRules(), 0.5)

	det := d.Detect(map[string]string{model.FieldCompany: "  Apple "}, "nothing branded here")
	assert.Equal(t, "apple", det.Company)
	assert.Equal(t, 1.0, det.Confidence)

	// An explicit name outside the rule table falls through to keyword scoring.
	det = d.Detect(map[string]string{model.FieldCompany: "acme"}, "my kindle broke")
	assert.Equal(t, "amazon", det.Company)
}

func TestDetectNoMatch(t *testing.T) {
	d := NewDetector(registry.DefaultCompanyRules(), 0.5)

	det := d.Detect(map[string]string{}, "customer: the thing stopped working\n")
	assert.Equal(t, model.CompanyUnknown, det.Company)
	assert.Zero(t, det.Confidence)
	assert.True(t, det.Unknown())
}

func TestDetectDeterministic(t *testing.T) {
	d := NewDetector(registry.DefaultCompanyRules(), 0.5)
	fields := map[string]string{model.FieldDescription: "my kindle and echo both died"}

	first := d.Detect(fields, "transcript text")
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, d.Detect(fields, "transcript text"))
	}
}

func TestDetectConfidenceCapped(t *testing.T) {
	d := NewDetector(registry.DefaultCompanyRules(), 0.5)

	det := d.Detect(map[string]string{}, "customer: amazon prime kindle echo alexa all broken\n")
	assert.Equal(t, "amazon", det.Company)
	assert.Equal(t, 1.0, det.Confidence)
}

func TestDetectTieBrokenByLongestTerm(t *testing.T) {
	rules := []registry.CompanyRule{
		// 0.3 + 0.05*12 = 0.9
		{Name: "longco", Keywords: []string{"extendedbran"}},
		// 0.45 twice = 0.9, longest term is 3
		{Name: "shortco", Keywords: []string{"aaa", "bbb"}},
	}
	d := NewDetector(rules, 0.5)

	det := d.Detect(map[string]string{}, "customer: extendedbran aaa bbb\n")
	assert.Equal(t, "longco", det.Company)
	assert.InDelta(t, 0.9, det.Confidence, 1e-9)
}

func TestDetectThreeWayCapTieKeepsLongestTerm(t *testing.T) {
	// All three cap at 1.0, so only the term lengths (16, 18, 20) can
	// separate them. Every tied candidate must survive to that comparison.
	rules := []registry.CompanyRule{
		{Name: "alpha", Keywords: []string{"superworkstation"}},
		{Name: "beta", Keywords: []string{"megaworkstationpro"}},
		{Name: "gamma", Keywords: []string{"gigaworkstationprime"}},
	}
	d := NewDetector(rules, 0.5)

	det := d.Detect(map[string]string{},
		"customer: my superworkstation megaworkstationpro gigaworkstationprime all failed\n")
	assert.Equal(t, "gamma", det.Company)
	assert.Equal(t, 1.0, det.Confidence)
}

func TestDetectFullTieIsUnknown(t *testing.T) {
	rules := []registry.CompanyRule{
		{Name: "alpha", Keywords: []string{"gizmo"}},
		{Name: "beta", Keywords: []string{"doodo"}},
	}
	d := NewDetector(rules, 0.5)

	// Both score 0.55 with a longest term of 5.
	det := d.Detect(map[string]string{}, "customer: the gizmo and the doodo\n")
	assert.Equal(t, model.CompanyUnknown, det.Company)
	assert.Zero(t, det.Confidence)
}
