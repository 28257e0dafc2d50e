package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/intake-cli/internal/model"
	"github.com/sells-group/intake-cli/internal/registry"
)

const composePrompt = `Write a short, empathetic customer-service resolution message.

Customer name: %s
Issue category: %s
Issue description: %s
Action we will take: %s
Compensation we can offer: %s
Expected timeframe: %s

Requirements:
1. Acknowledge the specific issue.
2. State the concrete action being taken.
3. Mention the expected timeframe.
4. Keep it under 120 words, plain text, no subject line.`

// Follow-up windows promised in escalation messages. High and critical
// cases get the tighter window. Escalation prose is fully deterministic: it
// draws on the static target data and case priority, nothing else.
const (
	escalationFollowUp       = "2 business days"
	escalationFollowUpUrgent = "1 business day"
)

// Composer produces the terminal result artifact. Resolution prose comes
// from the generator under a minimum-content contract; when the output
// fails the contract the composer falls back to a deterministic template.
type Composer struct {
	gen       Generator
	protocols registry.ProtocolTable
}

// NewComposer builds a composer over the per-category protocol table.
func NewComposer(gen Generator, protocols registry.ProtocolTable) *Composer {
	return &Composer{gen: gen, protocols: protocols}
}

// Compose renders the result for a classified case. It never fails: every
// path ends in a message. The returned usage covers the resolution-prose
// generation, if any.
func (cp *Composer) Compose(ctx context.Context, c *model.Case) (model.Result, model.TokenUsage) {
	decision := c.Decision
	category := defaultCategory
	if decision != nil && decision.Category != "" {
		category = decision.Category
	}

	result := model.Result{
		CaseID:   c.SessionID,
		Category: category,
		Priority: model.PriorityFromUrgency(c.Field(model.FieldUrgency)),
	}

	if decision != nil && decision.Resolvable {
		result.Status = model.ResultResolved
		msg, usage := cp.resolutionMessage(ctx, c, category)
		result.Message = msg
		return result, usage
	}

	result.Status = model.ResultEscalated
	if decision != nil {
		result.Target = decision.Target
	}
	result.Message = escalationMessage(result.Target, category, result.Priority)
	return result, model.TokenUsage{}
}

func (cp *Composer) resolutionMessage(ctx context.Context, c *model.Case, category string) (string, model.TokenUsage) {
	protocol := cp.protocols.Lookup(category)

	var usage model.TokenUsage
	if cp.gen != nil {
		prompt := fmt.Sprintf(composePrompt,
			c.Field(model.FieldName),
			humanCategory(category),
			c.Field(model.FieldDescription),
			strings.Join(protocol.Actions, ", "),
			strings.Join(protocol.Compensation, ", "),
			protocol.Timeframe,
		)
		text, genUsage, err := cp.gen.Generate(ctx, prompt)
		usage = genUsage
		if err == nil && meetsContentContract(text, category, protocol) {
			return strings.TrimSpace(text), usage
		}
		zap.L().Warn("compose: falling back to template",
			zap.String("session_id", c.SessionID),
			zap.String("category", category),
			zap.Error(err),
		)
	}

	return resolutionTemplate(c.Field(model.FieldName), category, protocol), usage
}

// meetsContentContract checks the minimum-content contract: the message
// must reference the complaint category and at least one concrete action.
func meetsContentContract(text, category string, protocol registry.Protocol) bool {
	folded := foldWords(text)
	if strings.TrimSpace(folded) == "" {
		return false
	}
	if !containsWord(folded, humanCategory(category)) && !containsWord(folded, category) {
		return false
	}
	// A concrete action counts as referenced when its distinctive words
	// show up, even if the prose rephrases the verb.
	for _, action := range protocol.Actions {
		for _, word := range strings.Fields(foldWords(action)) {
			if len(word) >= 5 && containsWord(folded, word) {
				return true
			}
		}
	}
	return false
}

// resolutionTemplate is the deterministic fallback for the RESOLVE path.
func resolutionTemplate(name, category string, protocol registry.Protocol) string {
	greeting := "Hello"
	if name != "" {
		greeting = "Hello " + name
	}
	action := "review your request"
	if len(protocol.Actions) > 0 {
		action = protocol.Actions[0]
	}
	timeframe := protocol.Timeframe
	if timeframe == "" {
		timeframe = "3 business days"
	}
	msg := fmt.Sprintf("%s, thank you for reporting this %s issue. We will %s, and you can expect this to be completed within %s.",
		greeting, humanCategory(category), action, timeframe)
	if len(protocol.Compensation) > 0 {
		msg += fmt.Sprintf(" As an apology for the inconvenience, we are also offering a %s.", protocol.Compensation[0])
	}
	return msg
}

// escalationMessage names the specialist, role, and contact channel drawn
// from the static escalation target, plus the priority-dependent follow-up
// window, and nothing more.
func escalationMessage(target *model.EscalationTarget, category string, priority model.Priority) string {
	followUp := escalationFollowUp
	if priority.AtLeast(model.PriorityHigh) {
		followUp = escalationFollowUpUrgent
	}
	if target == nil {
		return fmt.Sprintf("Your %s case has been escalated for specialist review. You will receive a follow-up within %s.",
			humanCategory(category), followUp)
	}
	return fmt.Sprintf("Your %s case has been escalated to %s (%s). They will review the details and follow up within %s. You can reach them directly at %s.",
		humanCategory(category), target.Name, target.Role, followUp, target.Contact)
}

// humanCategory renders a category key as prose ("shipping_delays" →
// "shipping delays").
func humanCategory(category string) string {
	return strings.ReplaceAll(category, "_", " ")
}
