package pipeline

import (
	"strings"

	"github.com/sells-group/intake-cli/internal/model"
	"github.com/sells-group/intake-cli/internal/registry"
)

// Checker verifies the extracted contact against the detected company's
// customer directory. It is a pure function of the directory and its
// inputs: no network calls, no directory mutation.
type Checker struct {
	dir               *registry.Directory
	mismatchThreshold int
}

// NewChecker builds a checker. mismatchThreshold is the number of distinct
// unmatched contacts in one session that signals probing behavior; a
// non-positive value defaults to 3.
func NewChecker(dir *registry.Directory, mismatchThreshold int) *Checker {
	if mismatchThreshold <= 0 {
		mismatchThreshold = 3
	}
	return &Checker{dir: dir, mismatchThreshold: mismatchThreshold}
}

// Verify looks up the contact by exact normalized match. priorUnmatched is
// the session's distinct unmatched-contact history; the returned slice is
// the updated history. fraud_suspected fires when an unmatched contact
// carries a known fraud signature, or when the distinct mismatch count
// reaches the threshold. Mismatches only accumulate against companies the
// directory actually covers: failing lookups into a missing table says
// nothing about probing.
func (ch *Checker) Verify(company string, fields map[string]string, priorUnmatched []string) (model.VerificationResult, []string) {
	contact := model.NormalizeContact(fields[model.FieldContact])
	if contact == "" {
		return model.VerificationResult{}, priorUnmatched
	}

	if rec, ok := ch.dir.Lookup(company, contact); ok {
		return model.VerificationResult{
			Matched:      true,
			Confidence:   matchConfidence(fields),
			RecordStatus: rec.Status,
			History:      rec.History,
		}, priorUnmatched
	}

	unmatched := priorUnmatched
	if ch.dir.HasCompany(company) {
		unmatched = appendDistinct(priorUnmatched, contact)
	}
	return model.VerificationResult{
		Matched:        false,
		FraudSuspected: isFraudSignature(contact) || len(unmatched) >= ch.mismatchThreshold,
	}, unmatched
}

// matchConfidence combines match exactness with field completeness: an
// exact contact match starts at 0.6 and each corroborating field adds 0.1.
func matchConfidence(fields map[string]string) float64 {
	conf := 0.6
	for _, f := range []string{model.FieldName, model.FieldDescription, model.FieldProduct, model.FieldOrderID} {
		if strings.TrimSpace(fields[f]) != "" {
			conf += 0.1
		}
	}
	if conf > 1.0 {
		conf = 1.0
	}
	return conf
}

func appendDistinct(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}

// disposableDomains are email domains associated with throwaway identities.
var disposableDomains = map[string]bool{
	"mailinator.com":    true,
	"guerrillamail.com": true,
	"tempmail.com":      true,
	"10minutemail.com":  true,
	"trashmail.com":     true,
}

// isFraudSignature reports whether a normalized contact matches a known
// fabrication pattern: a disposable email domain, or a phone number made of
// a single repeated digit or a straight ascending run.
func isFraudSignature(contact string) bool {
	if at := strings.LastIndex(contact, "@"); at >= 0 {
		return disposableDomains[contact[at+1:]]
	}

	digits := strings.TrimPrefix(contact, "+")
	if len(digits) < 7 {
		return false
	}

	repeated := true
	ascending := true
	for i := 1; i < len(digits); i++ {
		if digits[i] != digits[0] {
			repeated = false
		}
		if digits[i] != '0'+(digits[i-1]-'0'+1)%10 {
			ascending = false
		}
	}
	return repeated || ascending
}
