package pipeline

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/intake-cli/internal/model"
)

func TestVerifyMatchedContact(t *testing.T) {
	ch := NewChecker(testDirectory(), 3)

	fields := map[string]string{
		model.FieldContact:     "john@x.com",
		model.FieldName:        "John",
		model.FieldDescription: "cracked screen",
		model.FieldProduct:     "iphone 15",
	}
	ver, unmatched := ch.Verify("apple", fields, nil)

	assert.True(t, ver.Matched)
	assert.False(t, ver.FraudSuspected)
	assert.InDelta(t, 0.9, ver.Confidence, 1e-9)
	assert.Equal(t, model.RecordStatusActive, ver.RecordStatus)
	assert.Equal(t, []string{"2025-12: battery swap"}, ver.History)
	assert.Empty(t, unmatched)
}

func TestVerifyNormalizesContactForms(t *testing.T) {
	ch := NewChecker(testDirectory(), 3)

	ver, _ := ch.Verify("apple", map[string]string{model.FieldContact: "  John@X.COM "}, nil)
	assert.True(t, ver.Matched)

	// Directory record is "+1 (555) 123-4567"; digits alone must match.
	ver, _ = ch.Verify("amazon", map[string]string{model.FieldContact: "+1 555 123 4567"}, nil)
	assert.True(t, ver.Matched)
}

func TestVerifyUnmatchedIsNotFraudByItself(t *testing.T) {
	ch := NewChecker(testDirectory(), 3)

	ver, unmatched := ch.Verify("amazon", map[string]string{model.FieldContact: "unknown@nowhere.com"}, nil)
	assert.False(t, ver.Matched)
	assert.False(t, ver.FraudSuspected)
	assert.Equal(t, []string{"unknown@nowhere.com"}, unmatched)
}

func TestVerifyEmptyContact(t *testing.T) {
	ch := NewChecker(testDirectory(), 3)

	ver, unmatched := ch.Verify("apple", map[string]string{}, []string{"prior@x.com"})
	assert.Equal(t, model.VerificationResult{}, ver)
	assert.Equal(t, []string{"prior@x.com"}, unmatched)
}

func TestVerifyRepeatedMismatchesAcrossSession(t *testing.T) {
	ch := NewChecker(testDirectory(), 3)

	var unmatched []string
	var ver model.VerificationResult
	for i := 0; i < 3; i++ {
		fields := map[string]string{model.FieldContact: fmt.Sprintf("probe%d@example.com", i)}
		ver, unmatched = ch.Verify("apple", fields, unmatched)
	}
	assert.Len(t, unmatched, 3)
	assert.True(t, ver.FraudSuspected, "third distinct mismatch must trip the fraud flag")
}

func TestVerifyUnlistedCompanyAccumulatesNoMismatches(t *testing.T) {
	ch := NewChecker(testDirectory(), 3)

	// The directory has no table for google, so failed lookups say nothing
	// about probing behavior.
	var unmatched []string
	var ver model.VerificationResult
	for i := 0; i < 4; i++ {
		fields := map[string]string{model.FieldContact: fmt.Sprintf("probe%d@example.com", i)}
		ver, unmatched = ch.Verify("google", fields, unmatched)
	}
	assert.False(t, ver.Matched)
	assert.False(t, ver.FraudSuspected)
	assert.Empty(t, unmatched)

	// A fraud signature still fires regardless of directory coverage.
	ver, _ = ch.Verify("google", map[string]string{model.FieldContact: "burner@mailinator.com"}, nil)
	assert.True(t, ver.FraudSuspected)
}

func TestVerifySameContactRepeatedCountsOnce(t *testing.T) {
	ch := NewChecker(testDirectory(), 3)

	var unmatched []string
	var ver model.VerificationResult
	fields := map[string]string{model.FieldContact: "probe@example.com"}
	for i := 0; i < 5; i++ {
		ver, unmatched = ch.Verify("apple", fields, unmatched)
	}
	assert.Equal(t, []string{"probe@example.com"}, unmatched)
	assert.False(t, ver.FraudSuspected)
}

func TestFraudSignatures(t *testing.T) {
	tests := []struct {
		contact string
		fraud   bool
	}{
		{"bob@mailinator.com", true},
		{"bob@guerrillamail.com", true},
		{"bob@gmail.com", false},
		{"1111111111", true},
		{"+2222222", true},
		{"1234567890", true},
		{"8901234567", true},
		{"5551234567", false},
		{"123456", false}, // too short to judge
	}
	for _, tt := range tests {
		t.Run(tt.contact, func(t *testing.T) {
			assert.Equal(t, tt.fraud, isFraudSignature(model.NormalizeContact(tt.contact)))
		})
	}
}

func TestVerifyFraudSignatureFiresImmediately(t *testing.T) {
	ch := NewChecker(testDirectory(), 3)

	ver, unmatched := ch.Verify("apple", map[string]string{model.FieldContact: "throwaway@tempmail.com"}, nil)
	assert.False(t, ver.Matched)
	assert.True(t, ver.FraudSuspected)
	assert.Len(t, unmatched, 1)
}
