package gemini

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/fableforge/fable-api/internal/config"
	"github.com/fableforge/fable-api/internal/domain"
	"github.com/fableforge/fable-api/internal/generation"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// stubCaller returns one canned outcome per call, in order. The last outcome
// repeats once the script runs out.
type stubCaller struct {
	mu       sync.Mutex
	outcomes []stubOutcome
	calls    int
	prompts  []string
}

type stubOutcome struct {
	resp *genai.GenerateContentResponse
	err  error
}

func (c *stubCaller) generateContent(
	ctx context.Context,
	model, prompt string,
) (*genai.GenerateContentResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.prompts = append(c.prompts, prompt)
	index := c.calls
	if index >= len(c.outcomes) {
		index = len(c.outcomes) - 1
	}
	c.calls++
	outcome := c.outcomes[index]
	return outcome.resp, outcome.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{{Text: text}}}},
		},
	}
}

func newTestGenerator(t *testing.T, caller contentCaller, maxRetries int) *NovelGenerator {
	t.Helper()

	templates, err := buildPromptTemplates()
	require.NoError(t, err)

	return &NovelGenerator{
		logger:          testLogger(),
		config:          config.LLMConfig{MaxRetries: maxRetries, RetryDelaySeconds: 1},
		promptTemplates: templates,
		caller:          caller,
		model:           "gemini-test",
	}
}

func TestNewNovelGenerator_Validation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("nil logger", func(t *testing.T) {
		t.Parallel()
		_, err := NewNovelGenerator(ctx, nil, config.LLMConfig{GeminiAPIKey: "key", ModelName: "model"})
		assert.Error(t, err)
	})

	t.Run("missing API key", func(t *testing.T) {
		t.Parallel()
		_, err := NewNovelGenerator(ctx, testLogger(), config.LLMConfig{ModelName: "model"})
		assert.ErrorIs(t, err, generation.ErrInvalidConfig)
	})

	t.Run("missing model name", func(t *testing.T) {
		t.Parallel()
		_, err := NewNovelGenerator(ctx, testLogger(), config.LLMConfig{GeminiAPIKey: "key"})
		assert.ErrorIs(t, err, generation.ErrInvalidConfig)
	})
}

func TestNovelGenerator_Generate(t *testing.T) {
	t.Parallel()

	t.Run("returns the model payload", func(t *testing.T) {
		t.Parallel()

		caller := &stubCaller{outcomes: []stubOutcome{{resp: textResponse(`{"ideas":[{"title":"A"}]}`)}}}
		generator := newTestGenerator(t, caller, 0)

		payload, err := generator.Generate(context.Background(), domain.KindBrainstorm,
			map[string]any{"num_ideas": 2, "genre": "mystery"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"ideas":[{"title":"A"}]}`, string(payload))

		require.Len(t, caller.prompts, 1)
		assert.Contains(t, caller.prompts[0], "2 distinct novel ideas")
		assert.Contains(t, caller.prompts[0], "mystery")
	})

	t.Run("strips a markdown fence", func(t *testing.T) {
		t.Parallel()

		fenced := "```json\n{\"content\":\"text\"}\n```"
		caller := &stubCaller{outcomes: []stubOutcome{{resp: textResponse(fenced)}}}
		generator := newTestGenerator(t, caller, 0)

		payload, err := generator.Generate(context.Background(), domain.KindChapter,
			map[string]any{"chapter_number": 3})
		require.NoError(t, err)
		assert.JSONEq(t, `{"content":"text"}`, string(payload))
	})

	t.Run("unknown kind", func(t *testing.T) {
		t.Parallel()

		generator := newTestGenerator(t, &stubCaller{outcomes: []stubOutcome{{}}}, 0)
		_, err := generator.Generate(context.Background(), domain.TaskKind("saga"), nil)
		assert.ErrorIs(t, err, ErrUnknownKind)
	})

	t.Run("every kind has a template", func(t *testing.T) {
		t.Parallel()

		caller := &stubCaller{outcomes: []stubOutcome{{resp: textResponse(`{}`)}}}
		generator := newTestGenerator(t, caller, 0)

		for _, kind := range domain.Kinds() {
			_, err := generator.Generate(context.Background(), kind, map[string]any{"content": "x"})
			require.NoError(t, err, "kind %s", kind)
		}
	})
}

func TestNovelGenerator_ErrorClassification(t *testing.T) {
	t.Parallel()

	t.Run("safety block is permanent", func(t *testing.T) {
		t.Parallel()

		blocked := &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}},
		}
		caller := &stubCaller{outcomes: []stubOutcome{{resp: blocked}}}
		generator := newTestGenerator(t, caller, 3)

		_, err := generator.Generate(context.Background(), domain.KindPlot, nil)
		assert.ErrorIs(t, err, generation.ErrContentBlocked)
		assert.Equal(t, 1, caller.calls)
	})

	t.Run("malformed payload is permanent", func(t *testing.T) {
		t.Parallel()

		caller := &stubCaller{outcomes: []stubOutcome{{resp: textResponse("not json at all")}}}
		generator := newTestGenerator(t, caller, 3)

		_, err := generator.Generate(context.Background(), domain.KindScore,
			map[string]any{"content": "chapter"})
		assert.ErrorIs(t, err, generation.ErrInvalidResponse)
		assert.Equal(t, 1, caller.calls)
	})

	t.Run("empty candidate list is permanent", func(t *testing.T) {
		t.Parallel()

		caller := &stubCaller{outcomes: []stubOutcome{{resp: &genai.GenerateContentResponse{}}}}
		generator := newTestGenerator(t, caller, 3)

		_, err := generator.Generate(context.Background(), domain.KindEdit,
			map[string]any{"content": "chapter"})
		assert.ErrorIs(t, err, generation.ErrInvalidResponse)
		assert.Equal(t, 1, caller.calls)
	})

	t.Run("API error exhausts retries", func(t *testing.T) {
		t.Parallel()

		caller := &stubCaller{outcomes: []stubOutcome{{err: errors.New("connection reset")}}}
		generator := newTestGenerator(t, caller, 0)

		_, err := generator.Generate(context.Background(), domain.KindOutline,
			map[string]any{"plot": "three acts"})
		assert.ErrorIs(t, err, generation.ErrTransientFailure)
		assert.Equal(t, 1, caller.calls)
	})

	t.Run("transient error then success", func(t *testing.T) {
		t.Parallel()

		caller := &stubCaller{outcomes: []stubOutcome{
			{err: errors.New("deadline exceeded")},
			{resp: textResponse(`{"character":{"name":"Ava"}}`)},
		}}
		generator := newTestGenerator(t, caller, 2)

		payload, err := generator.Generate(context.Background(), domain.KindCharacter,
			map[string]any{"role": "antagonist"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"character":{"name":"Ava"}}`, string(payload))
		assert.Equal(t, 2, caller.calls)
	})

	t.Run("cancellation during retry delay", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		caller := &stubCaller{outcomes: []stubOutcome{{err: errors.New("unavailable")}}}
		generator := newTestGenerator(t, caller, 2)

		_, err := generator.Generate(ctx, domain.KindBrainstorm, nil)
		assert.ErrorIs(t, err, generation.ErrTransientFailure)
		assert.Equal(t, 1, caller.calls)
	})
}

func TestExtractJSONPayload(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `{"a":1}`, string(extractJSONPayload("  {\"a\":1}\n")))
	assert.Equal(t, `[1,2]`, string(extractJSONPayload("```\n[1,2]\n```")))
	assert.Nil(t, extractJSONPayload(""))
	assert.Nil(t, extractJSONPayload("```json\n```"))
	assert.Nil(t, extractJSONPayload(strings.Repeat("x", 10)))
}
