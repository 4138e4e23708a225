package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"text/template"
	"time"

	"google.golang.org/genai"

	"github.com/fableforge/fable-api/internal/config"
	"github.com/fableforge/fable-api/internal/domain"
	"github.com/fableforge/fable-api/internal/generation"
)

// contentCaller abstracts the single Gemini API call the generator makes.
// The production implementation wraps *genai.Client; tests substitute a stub.
type contentCaller interface {
	generateContent(ctx context.Context, model, prompt string) (*genai.GenerateContentResponse, error)
}

// genaiCaller is the production contentCaller backed by the genai client.
type genaiCaller struct {
	client *genai.Client
}

func (c *genaiCaller) generateContent(
	ctx context.Context,
	model, prompt string,
) (*genai.GenerateContentResponse, error) {
	return c.client.Models.GenerateContent(ctx, model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
}

// NovelGenerator implements the generation.Generator interface using
// Google's Gemini API to generate novel content for each task kind.
type NovelGenerator struct {
	// logger is used for structured logging
	logger *slog.Logger

	// config contains LLM-specific configuration
	config config.LLMConfig

	// promptTemplates holds the parsed prompt template for each task kind
	promptTemplates map[domain.TaskKind]*template.Template

	// caller performs the Gemini API request
	caller contentCaller

	// model is the name of the Gemini model to use
	model string
}

// Compile-time check that NovelGenerator satisfies the Generator interface.
var _ generation.Generator = (*NovelGenerator)(nil)

// NewNovelGenerator creates a new instance of NovelGenerator with the provided
// dependencies.
//
// Parameters:
//   - ctx: Context for the operation, which can be used for cancellation
//   - logger: A structured logger for operation logging
//   - config: LLM configuration containing API key, model name, and other settings
//
// Returns:
//   - A properly initialized NovelGenerator or an error if initialization fails
func NewNovelGenerator(ctx context.Context, logger *slog.Logger, config config.LLMConfig) (*NovelGenerator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	// Validate configuration
	if config.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	if config.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	templates, err := buildPromptTemplates()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", generation.ErrInvalidConfig, err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			generation.ErrInvalidConfig, err)
	}

	return &NovelGenerator{
		logger:          logger.With("component", "novel_generator"),
		config:          config,
		promptTemplates: templates,
		caller:          &genaiCaller{client: client},
		model:           config.ModelName,
	}, nil
}

// Generate produces the content payload for one task kind.
//
// It renders the kind's prompt template with the task parameters, calls the
// Gemini API with retry, and returns the model's JSON payload verbatim.
func (g *NovelGenerator) Generate(
	ctx context.Context,
	kind domain.TaskKind,
	parameters map[string]any,
) (json.RawMessage, error) {
	prompt, err := g.createPrompt(ctx, kind, parameters)
	if err != nil {
		return nil, err
	}

	payload, err := g.callGeminiWithRetry(ctx, prompt)
	if err != nil {
		return nil, err
	}

	g.logger.InfoContext(ctx, "content generated",
		"kind", kind,
		"payload_bytes", len(payload))
	return payload, nil
}

// createPrompt renders the prompt template for the given kind with the task
// parameters.
func (g *NovelGenerator) createPrompt(
	ctx context.Context,
	kind domain.TaskKind,
	parameters map[string]any,
) (string, error) {
	promptTemplate, ok := g.promptTemplates[kind]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}

	g.logger.DebugContext(ctx, "rendering prompt template",
		"kind", kind,
		"parameter_count", len(parameters))

	var promptBuffer bytes.Buffer
	if err := promptTemplate.Execute(&promptBuffer, parameters); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}

	prompt := promptBuffer.String()
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}

	g.logger.DebugContext(ctx, "prompt rendered",
		"kind", kind,
		"prompt_length", len(prompt))
	return prompt, nil
}

// callGeminiWithRetry makes a call to the Gemini API with exponential backoff
// retry logic.
//
// It attempts the call up to config.MaxRetries times, using exponential
// backoff with jitter between retries for transient errors. Permanent errors
// (like content being blocked by safety filters) are returned immediately
// without retrying.
func (g *NovelGenerator) callGeminiWithRetry(ctx context.Context, prompt string) (json.RawMessage, error) {
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}

	maxRetries := g.config.MaxRetries
	baseDelaySeconds := g.config.RetryDelaySeconds
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	// Validate retry configuration
	if maxRetries < 0 {
		g.logger.WarnContext(ctx, "invalid max retries value, using default", "max_retries", 3)
		maxRetries = 3
	}

	if baseDelaySeconds < 1 {
		baseDelaySeconds = 2
	}

	for attempt := 0; ; attempt++ {
		attemptNum := attempt + 1 // For logging (1-based)
		g.logger.InfoContext(ctx, "making Gemini API call",
			"attempt", attemptNum,
			"max_attempts", maxRetries+1)

		payload, transient, err := g.callOnce(ctx, prompt)
		if err == nil {
			g.logger.InfoContext(ctx, "Gemini API call successful", "attempt", attemptNum)
			return payload, nil
		}

		g.logger.ErrorContext(ctx, "Gemini API call failed",
			"attempt", attemptNum,
			"error", err)

		if !transient {
			g.logger.WarnContext(ctx, "permanent error occurred, not retrying")
			return nil, err
		}

		if attempt >= maxRetries {
			g.logger.WarnContext(ctx, "maximum retry attempts reached",
				"max_retries", maxRetries)
			return nil, fmt.Errorf("%w: exceeded maximum retry attempts (%d)",
				generation.ErrTransientFailure, maxRetries)
		}

		// delay = baseDelay * (2^attempt) * (0.5 + rand(0, 0.5))
		backoffSeconds := float64(baseDelaySeconds) * math.Pow(2, float64(attempt))
		jitterFactor := 0.5 + rng.Float64()*0.5
		delay := time.Duration(backoffSeconds * jitterFactor * float64(time.Second))

		g.logger.InfoContext(ctx, "retrying after delay",
			"attempt", attemptNum,
			"delay_seconds", delay.Seconds())

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			g.logger.WarnContext(ctx, "API call cancelled during retry delay",
				"attempt", attemptNum,
				"ctx_err", ctx.Err())
			return nil, fmt.Errorf("%w: %v", generation.ErrTransientFailure, ctx.Err())
		}
	}
}

// callOnce performs a single API call and classifies the outcome. The second
// return value reports whether a failure may resolve on retry.
func (g *NovelGenerator) callOnce(ctx context.Context, prompt string) (json.RawMessage, bool, error) {
	resp, err := g.caller.generateContent(ctx, g.model, prompt)
	if err != nil {
		// Network and API errors are assumed transient.
		return nil, true, fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
	}

	if resp == nil {
		return nil, false, fmt.Errorf("%w: nil response", generation.ErrInvalidResponse)
	}

	if len(resp.Candidates) == 0 {
		return nil, false, fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return nil, false, fmt.Errorf("%w: content blocked by safety filters", generation.ErrContentBlocked)
	}

	if candidate.Content == nil {
		return nil, false, fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			text.WriteString(part.Text)
		}
	}

	payload := extractJSONPayload(text.String())
	if payload == nil {
		return nil, false, fmt.Errorf("%w: response is not valid JSON", generation.ErrInvalidResponse)
	}

	return payload, false, nil
}

// extractJSONPayload validates the model output as JSON, tolerating a
// markdown code fence around the document. Returns nil when no valid JSON
// document is present.
func extractJSONPayload(text string) json.RawMessage {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
		trimmed = strings.TrimSpace(trimmed)
	}

	if trimmed == "" || !json.Valid([]byte(trimmed)) {
		return nil
	}
	return json.RawMessage(trimmed)
}
