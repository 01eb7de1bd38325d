package editor

import (
	"context"
	"errors"
	"fmt"

	"github.com/phambaophuc/product-studio/internal/models"
	"github.com/phambaophuc/product-studio/internal/services/processor"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.5-flash-image"

// GeminiEditor edits images with a Gemini image model.
type GeminiEditor struct {
	client    *genai.Client
	model     string
	processor *processor.ImageProcessor
	logger    *zap.Logger
}

func NewGeminiEditor(ctx context.Context, apiKey, model string, p *processor.ImageProcessor, logger *zap.Logger) (*GeminiEditor, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API_KEY environment variable is not set")
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiEditor{
		client:    client,
		model:     model,
		processor: p,
		logger:    logger,
	}, nil
}

func (e *GeminiEditor) Model() string {
	return e.model
}

func (e *GeminiEditor) Edit(ctx context.Context, req models.EditRequest) (*models.EditedImage, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(req.Data, req.MIMEType),
			genai.NewPartFromText(req.Instruction),
		}, genai.RoleUser),
	}

	resp, err := e.client.Models.GenerateContent(ctx, e.model, contents, &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE"},
	})
	if err != nil {
		e.logger.Error("Error calling Gemini API", zap.String("model", e.model), zap.Error(err))
		return nil, Transport(err)
	}

	blob, err := extractImage(resp)
	if err != nil {
		e.logger.Warn("Gemini returned no image", zap.String("model", e.model), zap.Error(err))
		return nil, err
	}

	data, err := e.processor.NormalizePNG(blob.Data, blob.MIMEType)
	if err != nil {
		return nil, NoOutput(err)
	}

	return &models.EditedImage{Data: data, MIMEType: processor.MIMETypePNG}, nil
}

// extractImage finds the first inline image part of the first candidate and
// classifies its absence.
func extractImage(resp *genai.GenerateContentResponse) (*genai.Blob, error) {
	if resp == nil {
		return nil, NoOutput(errors.New("empty response"))
	}

	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" && fb.BlockReason != "BLOCKED_REASON_UNSPECIFIED" {
		return nil, Blocked(fmt.Errorf("prompt blocked: %s", fb.BlockReason))
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return nil, NoOutput(errors.New("no candidates"))
	}
	candidate := resp.Candidates[0]

	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData, nil
			}
		}
	}

	if candidate.FinishReason == genai.FinishReasonSafety {
		return nil, Blocked(fmt.Errorf("finish reason %s", candidate.FinishReason))
	}
	for _, rating := range candidate.SafetyRatings {
		if rating == nil {
			continue
		}
		if rating.Blocked || !harmless(rating.Probability) {
			return nil, Blocked(fmt.Errorf("safety rating %s: %s", rating.Category, rating.Probability))
		}
	}

	return nil, NoOutput(fmt.Errorf("no inline image data (finish reason %q)", candidate.FinishReason))
}

func harmless(p genai.HarmProbability) bool {
	switch p {
	case "", "HARM_PROBABILITY_UNSPECIFIED", genai.HarmProbabilityNegligible:
		return true
	}
	return false
}
