package client

import (
	"context"
	"encoding/json"
	"strings"

	"google.golang.org/genai"
)

// GeminiExtractor tags a project description so similar-estimate lookups only compare like with like.
type GeminiExtractor struct {
	client *genai.Client
	model  string
}

func NewGeminiExtractor(client *genai.Client, model string) *GeminiExtractor {
	return &GeminiExtractor{client: client, model: model}
}

func (e *GeminiExtractor) ExtractMetadata(ctx context.Context, description string) map[string]string {
	instruction := `Extract the kind of software project described below as a flat JSON object of lowercase strings.
    Use only the keys 'platform' (web, mobile, desktop, cli, api) and 'category' (e.g. ecommerce, blog, saas, game).
    If not found, omit the key. Do not explain.
    Example: "An online shop for handmade soap with Stripe checkout" -> {"platform": "web", "category": "ecommerce"}`

	resp, err := e.client.Models.GenerateContent(ctx, e.model, genai.Text(instruction+"\nDescription: "+description), nil)
	if err != nil {
		return nil
	}
	return parseMetadata(resp.Text())
}

func parseMetadata(raw string) map[string]string {
	var metadata map[string]string
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &metadata); err != nil {
		return nil
	}

	out := make(map[string]string, 2)
	for _, key := range []string{"platform", "category"} {
		if v := strings.ToLower(strings.TrimSpace(metadata[key])); v != "" {
			out[key] = v
		}
	}
	return out
}
