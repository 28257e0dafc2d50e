package pipeline

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/intake-cli/internal/model"
)

// AnswerSource supplies one customer answer per posed question. Ask returns
// io.EOF when no further answers are available; the collector then proceeds
// with whatever fields it has.
type AnswerSource interface {
	Ask(ctx context.Context, question string) (string, error)
}

// NoAnswers is an AnswerSource with nothing to say. Batch intakes use it so
// pre-seeded fields flow through collection untouched.
type NoAnswers struct{}

func (NoAnswers) Ask(context.Context, string) (string, error) {
	return "", io.EOF
}

// questionSpec pairs an intake question with the field it primarily targets.
type questionSpec struct {
	field string
	text  string
}

// questionPlan fixes the asking order: identity, contact, problem
// description, product, timeline, then a catch-all.
var questionPlan = []questionSpec{
	{model.FieldName, "Hello! I'm here to help you with your complaint today. To get started, could you please tell me your name and briefly describe the issue you're experiencing?"},
	{model.FieldContact, "Could you please provide your phone number or email address so we can contact you about the resolution?"},
	{model.FieldDescription, "Can you tell me more details about what exactly happened with your product or service?"},
	{model.FieldProduct, "What is the name or model of the product you're having issues with?"},
	{model.FieldPurchaseAt, "When did you purchase this product or when did this issue start occurring?"},
	{model.FieldNotes, "Is there anything else you'd like to add about this issue that might help us resolve it better?"},
}

// requiredFields must be non-empty for early termination of the dialogue.
var requiredFields = []string{
	model.FieldName,
	model.FieldContact,
	model.FieldDescription,
	model.FieldProduct,
}

// Collector runs the bounded question/answer loop.
type Collector struct {
	extractor    *Extractor
	maxQuestions int
}

// NewCollector builds a collector with the given question budget. A
// non-positive budget defaults to 6.
func NewCollector(extractor *Extractor, maxQuestions int) *Collector {
	if maxQuestions <= 0 {
		maxQuestions = 6
	}
	return &Collector{extractor: extractor, maxQuestions: maxQuestions}
}

// Collect poses at most maxQuestions questions, extracting fields after each
// answer. It stops early when every required field is filled, when the
// source is exhausted, or at a turn boundary if the context is cancelled.
// Reaching the budget with missing fields is not an error. The returned
// usage is the sum across the session's extraction calls.
func (col *Collector) Collect(ctx context.Context, c *model.Case, src AnswerSource) (model.TokenUsage, error) {
	log := zap.L().With(zap.String("session_id", c.SessionID))

	var usage model.TokenUsage
	asked := make(map[string]bool, len(questionPlan))
	for len(c.Turns) < col.maxQuestions {
		if ctx.Err() != nil {
			return usage, eris.Wrap(ErrAborted, "collect: context cancelled")
		}

		q, ok := col.nextQuestion(c, asked)
		if !ok {
			break
		}
		asked[q.field] = true

		answer, err := src.Ask(ctx, q.text)
		if errors.Is(err, io.EOF) {
			log.Debug("collect: answer source exhausted", zap.Int("turns", len(c.Turns)))
			break
		}
		if err != nil {
			return usage, eris.Wrap(err, "collect: ask")
		}

		answer = strings.TrimSpace(answer)
		c.AppendTurn(q.text, answer)
		if answer == "" {
			continue
		}

		fields, turnUsage := col.extractor.Extract(ctx, c, answer)
		usage.Add(turnUsage)
		c.MergeFields(fields)
		log.Debug("collect: turn complete",
			zap.String("target_field", q.field),
			zap.Int("fields_filled", len(c.Fields)),
		)
	}

	log.Info("collect: dialogue finished",
		zap.Int("turns", len(c.Turns)),
		zap.Bool("required_complete", col.requiredComplete(c)),
	)
	return usage, nil
}

// nextQuestion picks the first unasked question whose target field is still
// unset. The catch-all runs only when everything before it was covered.
func (col *Collector) nextQuestion(c *model.Case, asked map[string]bool) (questionSpec, bool) {
	if col.requiredComplete(c) {
		return questionSpec{}, false
	}
	for _, q := range questionPlan {
		if asked[q.field] {
			continue
		}
		if q.field != model.FieldNotes && c.Field(q.field) != "" {
			continue
		}
		return q, true
	}
	return questionSpec{}, false
}

func (col *Collector) requiredComplete(c *model.Case) bool {
	for _, f := range requiredFields {
		if c.Field(f) == "" {
			return false
		}
	}
	return true
}
