package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/intake-cli/internal/model"
	"github.com/sells-group/intake-cli/internal/registry"
)

func resolvableCase(category string) *model.Case {
	c := model.NewCase()
	c.SetField(model.FieldName, "John")
	c.SetField(model.FieldUrgency, "high")
	c.SetField(model.FieldDescription, "package never arrived")
	c.Decision = &model.Decision{Resolvable: true, Category: category}
	return c
}

func TestComposeUsesGeneratedMessageWhenContractMet(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).
		Return("Hi John, sorry about the shipping delays. We will expedite your order and follow up within 2 business days.",
			model.TokenUsage{InputTokens: 350, OutputTokens: 90, Cost: 0.002}, nil)

	cp := NewComposer(gen, registry.DefaultProtocols())
	result, usage := cp.Compose(context.Background(), resolvableCase("shipping_delays"))

	assert.Equal(t, model.ResultResolved, result.Status)
	assert.Contains(t, result.Message, "expedite")
	assert.Equal(t, model.PriorityHigh, result.Priority)
	assert.Equal(t, 350, usage.InputTokens)
	assert.InDelta(t, 0.002, usage.Cost, 1e-9)
	gen.AssertExpectations(t)
}

func TestComposeFallsBackWhenContractUnmet(t *testing.T) {
	gen := new(mockGenerator)
	// Pleasant but content-free: names neither the category nor any action.
	gen.On("Generate", mock.Anything, mock.Anything).
		Return("Thank you for contacting us. Have a great day!", model.TokenUsage{}, nil)

	cp := NewComposer(gen, registry.DefaultProtocols())
	result, _ := cp.Compose(context.Background(), resolvableCase("shipping_delays"))

	assert.Equal(t, model.ResultResolved, result.Status)
	assert.Contains(t, result.Message, "Hello John")
	assert.Contains(t, result.Message, "shipping delays")
	assert.Contains(t, result.Message, "expedite shipping")
	assert.Contains(t, result.Message, "2 business days")
}

func TestComposeFallsBackOnGeneratorError(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return("", model.TokenUsage{}, assert.AnError)

	cp := NewComposer(gen, registry.DefaultProtocols())
	result, _ := cp.Compose(context.Background(), resolvableCase("refunds_returns"))

	assert.Equal(t, model.ResultResolved, result.Status)
	assert.Contains(t, result.Message, "refunds returns")
	assert.Contains(t, result.Message, "process a full refund")
}

func TestComposeWithoutGenerator(t *testing.T) {
	cp := NewComposer(nil, registry.DefaultProtocols())
	result, _ := cp.Compose(context.Background(), resolvableCase("hardware_issue"))

	assert.Equal(t, model.ResultResolved, result.Status)
	assert.Contains(t, result.Message, "arrange a repair")
	assert.Contains(t, result.Message, "5-7 business days")
}

func TestComposeEscalationMessageIsDeterministic(t *testing.T) {
	c := model.NewCase()
	c.SetField(model.FieldUrgency, "low")
	target := &model.EscalationTarget{
		Name:    "Jessica Williams",
		Role:    "Head of Account Security",
		Contact: "j.williams@amazon.com",
	}
	c.Decision = &model.Decision{Category: "payment_issues", Target: target}

	// The generator must never be consulted on the escalation path.
	gen := new(mockGenerator)
	cp := NewComposer(gen, registry.DefaultProtocols())

	result, _ := cp.Compose(context.Background(), c)
	require.Equal(t, model.ResultEscalated, result.Status)
	assert.Equal(t, target, result.Target)
	assert.Equal(t, model.PriorityLow, result.Priority)
	assert.Contains(t, result.Message, "Jessica Williams")
	assert.Contains(t, result.Message, "Head of Account Security")
	assert.Contains(t, result.Message, "j.williams@amazon.com")
	assert.Contains(t, result.Message, "payment issues")
	gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)

	again, _ := cp.Compose(context.Background(), c)
	assert.Equal(t, result.Message, again.Message)
}

func TestComposeEscalationFollowUpTightensWithPriority(t *testing.T) {
	c := model.NewCase()
	c.SetField(model.FieldUrgency, "critical")
	c.Decision = &model.Decision{
		Category: "payment_issues",
		Target:   &model.EscalationTarget{Name: "Jessica Williams", Role: "Head of Account Security", Contact: "j.williams@amazon.com"},
	}

	cp := NewComposer(nil, registry.DefaultProtocols())
	result, _ := cp.Compose(context.Background(), c)

	assert.Equal(t, model.PriorityCritical, result.Priority)
	assert.Contains(t, result.Message, "1 business day")
	assert.NotContains(t, result.Message, "2 business days")
}

func TestComposeEscalationWithoutTarget(t *testing.T) {
	c := model.NewCase()
	c.Decision = &model.Decision{Category: "account_issues"}

	cp := NewComposer(nil, registry.DefaultProtocols())
	result, _ := cp.Compose(context.Background(), c)

	assert.Equal(t, model.ResultEscalated, result.Status)
	assert.Nil(t, result.Target)
	assert.Contains(t, result.Message, "account issues")
	assert.Contains(t, result.Message, escalationFollowUp)
}

func TestComposeMissingDecisionDefaults(t *testing.T) {
	c := model.NewCase()

	cp := NewComposer(nil, registry.DefaultProtocols())
	result, _ := cp.Compose(context.Background(), c)

	assert.Equal(t, model.ResultEscalated, result.Status)
	assert.Equal(t, defaultCategory, result.Category)
	assert.Equal(t, model.PriorityMedium, result.Priority)
	assert.NotEmpty(t, result.Message)
}

func TestMeetsContentContract(t *testing.T) {
	protocols := registry.DefaultProtocols()

	tests := []struct {
		name     string
		category string
		text     string
		ok       bool
	}{
		{"category and action", "shipping_delays", "We apologize for the shipping delays and will expedite your order.", true},
		{"category only", "refunds_returns", "Sorry about the refunds returns trouble, thanks for your patience.", false},
		{"action only", "shipping_delays", "We will expedite the package right away.", false},
		{"empty", "shipping_delays", "   ", false},
		{"rephrased action verb still counts", "shipping_delays", "Regarding the shipping delays, we are issuing tracking details today.", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.ok, meetsContentContract(tt.text, tt.category, protocols.Lookup(tt.category)))
		})
	}
}
