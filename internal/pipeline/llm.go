package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/intake-cli/internal/model"
	"github.com/sells-group/intake-cli/internal/resilience"
	"github.com/sells-group/intake-cli/pkg/anthropic"
)

// Generator is the narrow text-generation collaborator used for field
// extraction and resolution prose. Implementations must honor the context
// deadline; the pipeline treats failures as recoverable. The returned usage
// reports tokens spent on the call and feeds the per-phase audit trail.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, model.TokenUsage, error)
}

const generatorSystemText = "You are the language engine of a customer-complaint intake system. Follow the instructions in each request exactly. When asked for JSON, return only valid JSON with no commentary."

// LLMGenerator implements Generator on the Anthropic messages API with a
// bounded timeout and a single retry on transient failure.
type LLMGenerator struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	timeout   time.Duration
}

// NewLLMGenerator builds a generator for the given model. A zero timeout
// defaults to 30s.
func NewLLMGenerator(client anthropic.Client, model string, maxTokens int64, timeout time.Duration) *LLMGenerator {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &LLMGenerator{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
		timeout:   timeout,
	}
}

func (g *LLMGenerator) Generate(ctx context.Context, prompt string) (string, model.TokenUsage, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req := anthropic.MessageRequest{
		Model:     g.model,
		MaxTokens: g.maxTokens,
		System:    anthropic.BuildCachedSystemBlocks(generatorSystemText),
		Messages: []anthropic.Message{
			{Role: "user", Content: prompt},
		},
	}

	resp, err := resilience.DoVal(ctx, resilience.DefaultConfig("anthropic.create_message"),
		func(ctx context.Context) (*anthropic.MessageResponse, error) {
			return g.client.CreateMessage(ctx, req)
		})
	if err != nil {
		return "", model.TokenUsage{}, eris.Wrap(err, "llm: generate")
	}

	resp.Usage.LogCost(g.model, "generate")
	usage := model.TokenUsage{
		InputTokens:         int(resp.Usage.InputTokens),
		OutputTokens:        int(resp.Usage.OutputTokens),
		CacheCreationTokens: int(resp.Usage.CacheCreationInputTokens),
		CacheReadTokens:     int(resp.Usage.CacheReadInputTokens),
		Cost:                resp.Usage.EstimateCost(g.model),
	}
	return extractText(resp), usage, nil
}

// extractText joins the text blocks of a message response.
func extractText(resp *anthropic.MessageResponse) string {
	if resp == nil {
		return ""
	}
	var parts []string
	for _, block := range resp.Content {
		if block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// cleanJSON attempts to extract a JSON object from text that may contain
// markdown code fences or other wrapping.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	// Strip markdown code fences.
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	// Find first { and last }.
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
