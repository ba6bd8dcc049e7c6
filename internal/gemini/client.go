// Package gemini implements the model boundary using Google's Gemini
// API. It translates assembled turn sequences to the wire format and
// classifies overload responses so callers can route to a fallback.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"

	"github.com/dgmulei/obi-slv2/internal/config"
	"github.com/dgmulei/obi-slv2/internal/turn"
)

// sdkClient implements turn.Generator against the Gemini SDK.
type sdkClient struct {
	genaiClient *genai.Client
	log         *slog.Logger
	temperature float32
	maxTokens   int32
	timeout     time.Duration
}

// NewClient creates a Gemini-backed generator with the provided
// configuration. It initializes the connection to the Gemini API and
// sets up generation parameters.
func NewClient(ctx context.Context, cfg config.GeminiConfig, log *slog.Logger) (turn.Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	gi, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	logger := log.With("component", "gemini_client")
	logger.Info("Gemini client initialized successfully",
		"primary_model", cfg.PrimaryModel, "fallback_model", cfg.FallbackModel)
	return &sdkClient{
		genaiClient: gi,
		log:         logger,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxOutputTokens,
		timeout:     cfg.Timeout,
	}, nil
}

// Generate sends one assembled sequence to the named model and returns
// the response text. Overload-class failures (HTTP 429, 500, 503) are
// reported as turn.ErrOverloaded so the caller can retry elsewhere.
func (c *sdkClient) Generate(ctx context.Context, model string, seq turn.Sequence) (string, error) {
	contents, cfg := c.translateSequence(seq)

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	c.log.DebugContext(ctx, "Generating response", "model", model, "turns", len(seq))

	resp, err := c.genaiClient.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		var apiErr *genai.APIError
		if errors.As(err, &apiErr) && isOverloadCode(apiErr.Code) {
			c.log.WarnContext(ctx, "Gemini model overloaded", "model", model, "code", apiErr.Code)
			return "", fmt.Errorf("%w: model %s (code %d)", turn.ErrOverloaded, model, apiErr.Code)
		}
		c.log.ErrorContext(ctx, "Gemini API call failed", "model", model, "error", err)
		return "", fmt.Errorf("gemini API call failed: %w", err)
	}

	return c.extractTextFromResponse(ctx, resp)
}

// translateSequence maps the ordered turn entries to the wire format.
// The system turn becomes the request's system instruction, the
// calibration turn is attributed to the model role, and context and
// user turns carry the user role.
func (c *sdkClient) translateSequence(seq turn.Sequence) ([]*genai.Content, *genai.GenerateContentConfig) {
	cfg := &genai.GenerateContentConfig{
		Temperature:     &c.temperature,
		MaxOutputTokens: c.maxTokens,

		SafetySettings: []*genai.SafetySetting{
			{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockNone},
		},
	}

	var contents []*genai.Content
	for _, entry := range seq {
		switch entry.Kind {
		case turn.SystemTurn:
			cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: entry.Content}}}
		case turn.CalibrationTurn:
			contents = append(contents, genai.NewContentFromText(entry.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(entry.Content, genai.RoleUser))
		}
	}
	return contents, cfg
}

func isOverloadCode(code int) bool {
	return code == 429 || code == 500 || code == 503
}

func (c *sdkClient) extractTextFromResponse(ctx context.Context, resp *genai.GenerateContentResponse) (string, error) {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		reasonMsg := fmt.Sprintf("%v", resp.PromptFeedback.BlockReason)
		if resp.PromptFeedback.BlockReasonMessage != "" {
			reasonMsg = resp.PromptFeedback.BlockReasonMessage
		}
		c.log.ErrorContext(ctx, "Gemini request blocked", "reason", reasonMsg)
		return "", fmt.Errorf("generation blocked by safety filter: %s", reasonMsg)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		finishReason := "unknown"
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != genai.FinishReasonUnspecified {
			finishReason = fmt.Sprintf("%v", resp.Candidates[0].FinishReason)
		}
		c.log.WarnContext(ctx, "Gemini response missing candidates or content", "finish_reason", finishReason)
		return "", fmt.Errorf("generation returned no content, finish reason: %s", finishReason)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("generation returned empty text")
	}
	return text, nil
}
