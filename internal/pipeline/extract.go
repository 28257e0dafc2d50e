package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/intake-cli/internal/model"
	"github.com/sells-group/intake-cli/internal/registry"
)

const extractPrompt = `Extract structured complaint fields from the dialogue transcript below.

Transcript:
%s

Return a JSON object with exactly these keys, using "" for anything not mentioned:
{"name": "", "contact": "", "description": "", "category": "", "urgency": "", "order_id": "", "product_name": "", "purchase_date": "", "company_name": ""}

Rules:
- contact is a single phone number or email address
- category is one of: shipping_delays, refunds_returns, account_issues, payment_issues, content_moderation, hardware_issue, general_inquiry
- urgency is one of: low, medium, high, critical`

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?\d[\d\s\-().]{6,}\d`)
	namePattern  = regexp.MustCompile(`(?i)(?:my name is|name is|i am|i'm|this is)\s+([A-Za-z]+(?:\s+[A-Za-z]+)?)`)
)

// Extractor turns free-text answers into structured case fields. The LLM
// path works over the whole transcript; when it fails or returns malformed
// output the extractor degrades to pattern rules over the latest answer, so
// a collection turn never aborts on extraction failure.
type Extractor struct {
	gen   Generator
	rules []registry.CompanyRule
}

// NewExtractor builds an extractor. rules feed the company-name fallback.
func NewExtractor(gen Generator, rules []registry.CompanyRule) *Extractor {
	return &Extractor{gen: gen, rules: rules}
}

// Extract returns field updates for the case after one answer, plus the
// tokens spent on the attempt. Empty values are omitted; the caller merges
// under the non-regression rule.
func (e *Extractor) Extract(ctx context.Context, c *model.Case, answer string) (map[string]string, model.TokenUsage) {
	if e.gen != nil {
		fields, usage, err := e.llmExtract(ctx, c.Transcript())
		if err == nil {
			return fields, usage
		}
		zap.L().Warn("extract: falling back to pattern rules",
			zap.String("session_id", c.SessionID),
			zap.Error(err),
		)
		// Tokens were spent even when the output was unusable.
		return e.ruleExtract(c, answer), usage
	}
	return e.ruleExtract(c, answer), model.TokenUsage{}
}

func (e *Extractor) llmExtract(ctx context.Context, transcript string) (map[string]string, model.TokenUsage, error) {
	text, usage, err := e.gen.Generate(ctx, fmt.Sprintf(extractPrompt, transcript))
	if err != nil {
		return nil, usage, err
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(cleanJSON(text)), &raw); err != nil {
		return nil, usage, err
	}

	fields := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			fields[k] = strings.TrimSpace(s)
		}
	}
	// Drop hallucinated contacts: only a plausible phone or email may
	// reach the verification lookup.
	if v, ok := fields[model.FieldContact]; ok && !model.LooksLikeContact(v) {
		delete(fields, model.FieldContact)
	}
	return fields, usage, nil
}

// ruleExtract applies direct pattern rules to the latest answer.
func (e *Extractor) ruleExtract(c *model.Case, answer string) map[string]string {
	fields := make(map[string]string)

	if m := emailPattern.FindString(answer); m != "" {
		fields[model.FieldContact] = m
	} else if m := phonePattern.FindString(answer); m != "" {
		fields[model.FieldContact] = strings.TrimSpace(m)
	}

	if m := namePattern.FindStringSubmatch(answer); m != nil {
		fields[model.FieldName] = strings.TrimSpace(m[1])
	}

	if company := e.companyFromText(answer); company != "" {
		fields[model.FieldCompany] = company
	}

	if product := e.productFromText(answer); product != "" {
		fields[model.FieldProduct] = product
	}

	if cat := categoryFromText(answer); cat != "" {
		fields[model.FieldCategory] = cat
	}

	if urg := urgencyFromText(answer); urg != "" {
		fields[model.FieldUrgency] = urg
	}

	// A substantial free-text answer doubles as the problem description
	// when none has been captured yet.
	if c.Field(model.FieldDescription) == "" && len(strings.Fields(answer)) >= 4 {
		fields[model.FieldDescription] = strings.TrimSpace(answer)
	}

	return fields
}

func (e *Extractor) companyFromText(text string) string {
	folded := foldWords(text)
	for _, rule := range e.rules {
		for _, kw := range rule.Keywords {
			if containsWord(folded, kw) {
				return rule.Name
			}
		}
	}
	return ""
}

// productFromText recognizes product mentions via the company keyword lists.
// Keywords equal to the company name itself are brand references, not
// products, and are skipped.
func (e *Extractor) productFromText(text string) string {
	folded := foldWords(text)
	for _, rule := range e.rules {
		for _, kw := range rule.Keywords {
			if kw == rule.Name {
				continue
			}
			if containsWord(folded, kw) {
				return kw
			}
		}
	}
	return ""
}

// categoryKeywords is the issue-category fallback table used when the LLM
// yields no category.
var categoryKeywords = []struct {
	category string
	keywords []string
}{
	{"shipping_delays", []string{"shipping", "delivery", "delayed", "package", "shipment", "tracking", "never arrived"}},
	{"refunds_returns", []string{"refund", "return", "money back", "exchange"}},
	{"payment_issues", []string{"payment", "charged", "billing", "overcharged", "transaction", "credit card"}},
	{"account_issues", []string{"account", "login", "password", "suspended", "locked out"}},
	{"content_moderation", []string{"post removed", "content", "banned", "moderation", "taken down"}},
	{"hardware_issue", []string{"broken", "cracked", "screen", "battery", "defective", "not working", "won't turn on"}},
}

func categoryFromText(text string) string {
	folded := foldWords(text)
	for _, entry := range categoryKeywords {
		for _, kw := range entry.keywords {
			if containsWord(folded, kw) {
				return entry.category
			}
		}
	}
	return ""
}

var urgencyKeywords = []struct {
	urgency  string
	keywords []string
}{
	{"critical", []string{"emergency", "critical", "immediately", "right now"}},
	{"high", []string{"urgent", "asap", "furious", "angry", "unacceptable", "right away"}},
	{"low", []string{"no rush", "whenever", "not urgent", "no hurry"}},
}

func urgencyFromText(text string) string {
	folded := foldWords(text)
	for _, entry := range urgencyKeywords {
		for _, kw := range entry.keywords {
			if containsWord(folded, kw) {
				return entry.urgency
			}
		}
	}
	return ""
}

// foldWords lowercases text and collapses punctuation so keyword matching
// works on word boundaries.
func foldWords(text string) string {
	var b strings.Builder
	b.Grow(len(text) + 2)
	b.WriteByte(' ')
	lastSpace := true
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '\'' {
			b.WriteRune(r)
			lastSpace = false
		} else if !lastSpace {
			b.WriteByte(' ')
			lastSpace = true
		}
	}
	if !lastSpace {
		b.WriteByte(' ')
	}
	return b.String()
}

// containsWord reports whether the folded text contains the keyword on word
// boundaries. Multi-word keywords match as a phrase.
func containsWord(folded, keyword string) bool {
	needle := strings.TrimSpace(foldWords(keyword))
	if needle == "" {
		return false
	}
	return strings.Contains(folded, " "+needle+" ")
}
