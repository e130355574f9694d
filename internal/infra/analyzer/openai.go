package analyzer

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"feedmill/internal/domain/entity"
	"feedmill/internal/infra/apithrottle"
	"feedmill/internal/resilience/circuitbreaker"
	"feedmill/internal/resilience/retry"
)

const openAIModel = openai.GPT4oMini

// OpenAI implements Analyzer using OpenAI's chat completion API with a
// JSON-object response format, grounded on the teacher's summarizer.OpenAI:
// circuit breaker + retry around a single call. Temperature 0, per spec §6.
type OpenAI struct {
	client         *openai.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	throttle       *apithrottle.Throttle
	timeout        time.Duration
}

// NewOpenAI builds an OpenAI analyzer.
func NewOpenAI(apiKey string, callsPerMinute int) *OpenAI {
	return &OpenAI{
		client:         openai.NewClient(apiKey),
		circuitBreaker: circuitbreaker.New(circuitbreaker.OpenAIAPIConfig()),
		retryConfig:    retry.AnalysisConfig(),
		throttle:       apithrottle.New("openai-api", callsPerMinute, time.Minute),
		timeout:        time.Minute,
	}
}

func (o *OpenAI) Analyze(ctx context.Context, articleText string) (entity.Analysis, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	if err := o.throttle.Wait(ctx); err != nil {
		return entity.Analysis{}, fmt.Errorf("analyzer: throttle: %w", err)
	}

	var raw string
	retryErr := retry.WithBackoff(ctx, o.retryConfig, func() error {
		result, err := o.circuitBreaker.Execute(func() (interface{}, error) {
			return o.doAnalyze(ctx, articleText)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				return fmt.Errorf("analyzer: openai unavailable: circuit breaker open")
			}
			return err
		}
		raw = result.(string)
		return nil
	})
	if retryErr != nil {
		return entity.Analysis{}, fmt.Errorf("analyzer: openai analyze failed: %w", retryErr)
	}

	return parseAnalysis(raw)
}

func (o *OpenAI) doAnalyze(ctx context.Context, articleText string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       openAIModel,
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(articleText)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}
