package analyzer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sony/gobreaker"

	"feedmill/internal/domain/entity"
	"feedmill/internal/infra/apithrottle"
	"feedmill/internal/resilience/circuitbreaker"
	"feedmill/internal/resilience/retry"
)

const claudeModel = anthropic.ModelClaudeSonnet4_5_20250929

// Claude implements Analyzer using Anthropic's Claude API, grounded on the
// teacher's summarizer.Claude: circuit breaker + retry around a single call,
// generating structured JSON instead of a free-text Japanese summary.
// Temperature 0, per spec §6.
type Claude struct {
	client         anthropic.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	throttle       *apithrottle.Throttle
	maxTokens      int64
	timeout        time.Duration
}

// NewClaude builds a Claude analyzer. callsPerMinute throttles outbound
// calls via apithrottle, independent of the circuit breaker's failure-rate
// protection.
func NewClaude(apiKey string, callsPerMinute int) *Claude {
	return &Claude{
		client:         anthropic.NewClient(option.WithAPIKey(apiKey)),
		circuitBreaker: circuitbreaker.New(circuitbreaker.ClaudeAPIConfig()),
		retryConfig:    retry.AnalysisConfig(),
		throttle:       apithrottle.New("claude-api", callsPerMinute, time.Minute),
		maxTokens:      2048,
		timeout:        time.Minute,
	}
}

func (c *Claude) Analyze(ctx context.Context, articleText string) (entity.Analysis, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.throttle.Wait(ctx); err != nil {
		return entity.Analysis{}, fmt.Errorf("analyzer: throttle: %w", err)
	}

	var raw string
	retryErr := retry.WithBackoff(ctx, c.retryConfig, func() error {
		result, err := c.circuitBreaker.Execute(func() (interface{}, error) {
			return c.doAnalyze(ctx, articleText)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				return fmt.Errorf("analyzer: claude unavailable: circuit breaker open")
			}
			return err
		}
		raw = result.(string)
		return nil
	})
	if retryErr != nil {
		return entity.Analysis{}, fmt.Errorf("analyzer: claude analyze failed: %w", retryErr)
	}

	return parseAnalysis(raw)
}

func (c *Claude) doAnalyze(ctx context.Context, articleText string) (string, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       claudeModel,
		MaxTokens:   c.maxTokens,
		Temperature: anthropic.Float(0),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildUserPrompt(articleText))),
		},
	})
	if err != nil {
		return "", fmt.Errorf("claude api error: %w", err)
	}
	if len(message.Content) == 0 {
		return "", ErrEmptyResponse
	}
	textBlock, ok := message.Content[0].AsAny().(anthropic.TextBlock)
	if !ok {
		return "", ErrEmptyResponse
	}
	return textBlock.Text, nil
}
