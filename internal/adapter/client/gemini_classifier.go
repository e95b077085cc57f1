package client

import (
	"context"
	"encoding/json"
	"estimator-core/internal/domain/entity"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

var sentimentLabels = []string{"positive", "neutral", "negative"}

// GeminiClassifier asks a Gemini model for sentiment scores over the positive/neutral/negative label set.
type GeminiClassifier struct {
	client *genai.Client
	model  string
}

func NewGeminiClassifierFromClient(c *genai.Client, model string) *GeminiClassifier {
	return &GeminiClassifier{
		client: c,
		model:  model,
	}
}

// Ping checks that the model exists and the credentials can reach it.
func (g *GeminiClassifier) Ping(ctx context.Context) error {
	if _, err := g.client.Models.Get(ctx, g.model, nil); err != nil {
		return fmt.Errorf("%w: %s: %v", entity.ErrClassifierNotReady, g.model, err)
	}
	return nil
}

func (g *GeminiClassifier) Classify(ctx context.Context, text string) ([]entity.LabelScore, error) {
	instruction := `Classify the sentiment of the following software project description.
    Return a JSON array with exactly one entry per label: "positive", "neutral", "negative".
    Each entry has a "label" and a "score" between 0 and 1; scores sum to 1. Do not explain.`

	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0),
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"label": {Type: genai.TypeString, Enum: sentimentLabels},
					"score": {Type: genai.TypeNumber},
				},
				Required: []string{"label", "score"},
			},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(instruction+"\nDescription: "+text), config)
	if err != nil {
		return nil, markTransient(err)
	}
	return parseLabelScores(resp.Text())
}

func parseLabelScores(raw string) ([]entity.LabelScore, error) {
	var scores []entity.LabelScore
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &scores); err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrUnexpectedOutput, err)
	}
	return scores, nil
}

// stripCodeFence removes a markdown ```json fence some models wrap JSON in.
func stripCodeFence(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimSuffix(strings.TrimPrefix(raw, "```"), "```")
	return strings.TrimSpace(raw)
}
