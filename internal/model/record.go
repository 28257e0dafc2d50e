package model

import (
	"strings"

	"golang.org/x/text/cases"
)

// RecordStatus is a customer account standing within a company directory.
type RecordStatus string

const (
	RecordStatusActive    RecordStatus = "active"
	RecordStatusSuspended RecordStatus = "suspended"
	RecordStatusFlagged   RecordStatus = "flagged"
)

// CustomerRecord is one entry in a company's customer directory. The
// directory is read-only for the duration of a pipeline run; refreshes
// replace the whole table atomically.
type CustomerRecord struct {
	ID      string       `json:"id" yaml:"id"`
	Contact string       `json:"contact" yaml:"contact"`
	Status  RecordStatus `json:"status" yaml:"status"`
	History []string     `json:"history" yaml:"history"`
}

var contactFolder = cases.Fold()

// NormalizeContact canonicalizes a phone number or email address for exact
// directory lookup: emails are case-folded, phone numbers are stripped of
// separators and a leading country "+" prefix kept as-is.
func NormalizeContact(contact string) string {
	contact = strings.TrimSpace(contact)
	if contact == "" {
		return ""
	}
	if strings.Contains(contact, "@") {
		return contactFolder.String(contact)
	}
	var b strings.Builder
	for i, r := range contact {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeCompany canonicalizes a company name for table lookups.
func NormalizeCompany(name string) string {
	return contactFolder.String(strings.TrimSpace(name))
}

// LooksLikeContact reports whether s is a syntactically plausible phone
// number or email address. Extraction uses it to reject contact values that
// would never match a directory record.
func LooksLikeContact(s string) bool {
	s = strings.TrimSpace(s)
	if strings.Count(s, "@") == 1 && strings.Contains(s[strings.Index(s, "@"):], ".") {
		return true
	}
	digits := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= 7
}
