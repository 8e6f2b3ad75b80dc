package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/phrazzld/scry-tutor/internal/config"
	"github.com/phrazzld/scry-tutor/internal/generation"
)

// DefaultRetryBackoff is used when the configured backoff is not positive.
const DefaultRetryBackoff = 500 * time.Millisecond

// models is the subset of *genai.Models the client calls.
type models interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Client talks to Gemini on behalf of all three generation roles.
type Client struct {
	// logger is used for structured logging
	logger *slog.Logger

	// models issues the actual API calls
	models models

	// model is the name of the Gemini model to use
	model string

	maxRetries int
	backoff    time.Duration
	limiter    *rate.Limiter
	prompts    *prompts
}

var (
	_ generation.ContentGenerator = (*Client)(nil)
	_ generation.NoteExtractor    = (*Client)(nil)
	_ generation.Profiler         = (*Client)(nil)
)

// NewClient creates a Gemini-backed client from the LLM configuration.
//
// Parameters:
//   - ctx: Context for the operation, which can be used for cancellation
//   - cfg: LLM configuration containing API key, model name and retry policy
//   - logger: A structured logger for operation logging
//
// Returns:
//   - A properly initialized Client or an error wrapping generation.ErrInvalidConfig
func NewClient(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (*Client, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}

	return newClient(gc.Models, cfg, logger)
}

func newClient(m models, cfg config.LLMConfig, logger *slog.Logger) (*Client, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}

	p, err := loadPrompts()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", generation.ErrInvalidConfig, err)
	}

	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = DefaultRetryBackoff
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	return &Client{
		logger:     logger.With(slog.String("component", "gemini"), slog.String("model", cfg.Model)),
		models:     m,
		model:      cfg.Model,
		maxRetries: maxRetries,
		backoff:    backoff,
		limiter:    rate.NewLimiter(limit, burst),
		prompts:    p,
	}, nil
}

// generateJSON sends prompt and decodes the JSON reply into out, retrying
// transient failures with exponential backoff and jitter:
// delay = backoff * 2^attempt * [0.5, 1.0).
func (c *Client) generateJSON(ctx context.Context, role, prompt string, out any) error {
	if strings.TrimSpace(prompt) == "" {
		return generation.ErrEmptyInput
	}

	temperature := float32(0.4)
	genConfig := &genai.GenerateContentConfig{
		Temperature:      &temperature,
		ResponseMIMEType: "application/json",
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
		}

		c.logger.DebugContext(ctx, "making Gemini API call",
			slog.String("role", role),
			slog.Int("attempt", attempt+1),
			slog.Int("max_attempts", c.maxRetries+1))

		resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(prompt), genConfig)
		if err == nil {
			var text string
			text, err = responseText(resp)
			if err == nil {
				if jsonErr := json.Unmarshal([]byte(text), out); jsonErr != nil {
					err = fmt.Errorf("%w: failed to parse JSON response: %v", generation.ErrInvalidResponse, jsonErr)
				}
			}
			if err == nil {
				return nil
			}
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, generation.ErrContentBlocked) || errors.Is(err, generation.ErrInvalidResponse) {
			c.logger.WarnContext(ctx, "permanent Gemini error, not retrying",
				slog.String("role", role),
				slog.String("error", err.Error()))
			return err
		}

		lastErr = err
		c.logger.WarnContext(ctx, "Gemini API call failed",
			slog.String("role", role),
			slog.Int("attempt", attempt+1),
			slog.String("error", err.Error()))

		if attempt == c.maxRetries {
			break
		}

		delay := time.Duration(float64(c.backoff) * math.Pow(2, float64(attempt)) * (0.5 + rand.Float64()*0.5))
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}

	return fmt.Errorf("%w: exceeded maximum retry attempts (%d): %v",
		generation.ErrTransientFailure, c.maxRetries, lastErr)
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%w: nil response", generation.ErrInvalidResponse)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: prompt blocked (%s)", generation.ErrContentBlocked, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: content blocked by safety filters", generation.ErrContentBlocked)
	}
	if candidate.Content == nil {
		return "", fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("%w: response has no text parts", generation.ErrInvalidResponse)
	}
	return b.String(), nil
}
