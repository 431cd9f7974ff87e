package extract

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// DefaultVisionModel is used when no model is configured
const DefaultVisionModel = "gpt-4o-mini"

const visionPrompt = `You read photographed electrical materials lists for UK electricians.
Transcribe the list exactly, one material per line, keeping quantities and units as written
(for example "10m 2.5mm T&E cable" or "5x double socket outlets").
Do not add prices, headings, commentary or items that are not on the list.
If the photo contains no materials list, reply with nothing.`

var ErrEmptyResponse = errors.New("vision model returned no choices")

// OpenAIVision extracts materials lists from photos with an OpenAI vision model
type OpenAIVision struct {
	client     *openai.Client
	model      string
	maxRetries int
	backoff    func(attempt int) time.Duration
	logger     *slog.Logger
}

// NewOpenAIVision creates an extractor using the public OpenAI API
func NewOpenAIVision(apiKey, model string, logger *slog.Logger) *OpenAIVision {
	return newOpenAIVision(openai.NewClient(apiKey), model, logger)
}

// NewOpenAIVisionWithConfig allows a custom base URL, e.g. an Azure or
// self-hosted compatible endpoint
func NewOpenAIVisionWithConfig(cfg openai.ClientConfig, model string, logger *slog.Logger) *OpenAIVision {
	return newOpenAIVision(openai.NewClientWithConfig(cfg), model, logger)
}

func newOpenAIVision(client *openai.Client, model string, logger *slog.Logger) *OpenAIVision {
	if model == "" {
		model = DefaultVisionModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenAIVision{
		client:     client,
		model:      model,
		maxRetries: 3,
		logger:     logger,
		backoff: func(attempt int) time.Duration {
			base := time.Duration(attempt) * time.Second
			jitter := time.Duration(rand.Intn(500)) * time.Millisecond
			return base + jitter
		},
	}
}

// ExtractText sends the image inline as a data URL and returns the
// transcribed list
func (v *OpenAIVision) ExtractText(ctx context.Context, image []byte, contentType string) (string, error) {
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(image)
	}
	dataURL := "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(image)

	req := openai.ChatCompletionRequest{
		Model: v.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: visionPrompt,
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: "Transcribe this materials list.",
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURL,
							Detail: openai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
		Temperature: 0,
	}

	var resp openai.ChatCompletionResponse
	var err error
	for attempt := 1; attempt <= v.maxRetries; attempt++ {
		resp, err = v.client.CreateChatCompletion(ctx, req)
		if err == nil && len(resp.Choices) > 0 {
			break
		}
		if err == nil {
			err = ErrEmptyResponse
		}
		if !retryable(err) || attempt == v.maxRetries {
			break
		}

		wait := v.backoff(attempt)
		v.logger.Warn("vision extraction attempt failed",
			"attempt", attempt, "error", err, "retry_in", wait)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}
	}
	if err != nil {
		return "", fmt.Errorf("vision extraction failed: %w", err)
	}

	return cleanTranscript(resp.Choices[0].Message.Content), nil
}

// retryable is false for client errors other than rate limiting
func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// cleanTranscript drops markdown fences the model sometimes wraps output in
func cleanTranscript(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```text")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
