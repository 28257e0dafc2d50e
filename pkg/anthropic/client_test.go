package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateCost(t *testing.T) {
	usage := TokenUsage{
		InputTokens:  1_000_000,
		OutputTokens: 500_000,
	}

	cost := usage.EstimateCost("claude-haiku-4-5-20251001")
	assert.InDelta(t, 0.80+2.00, cost, 0.001)

	assert.Zero(t, TokenUsage{InputTokens: 100}.EstimateCost("unknown-model"))
}

func TestEstimateCostWithCache(t *testing.T) {
	usage := TokenUsage{
		CacheCreationInputTokens: 1_000_000,
		CacheReadInputTokens:     1_000_000,
	}

	cost := usage.EstimateCost("claude-sonnet-4-5-20250929")
	assert.InDelta(t, 3.00*1.25+3.00*0.1, cost, 0.001)
}

func TestBuildCachedSystemBlocks(t *testing.T) {
	blocks := BuildCachedSystemBlocks("You are an intake agent.")
	assert.Len(t, blocks, 1)
	assert.Equal(t, "You are an intake agent.", blocks[0].Text)
	assert.NotNil(t, blocks[0].CacheControl)
	assert.Equal(t, "1h", blocks[0].CacheControl.TTL)
}

func TestNewClientLimiter(t *testing.T) {
	c := NewClient("test-key", 2).(*sdkClient)
	assert.NotNil(t, c.limiter)

	c = NewClient("test-key", 0).(*sdkClient)
	assert.Nil(t, c.limiter)
}
