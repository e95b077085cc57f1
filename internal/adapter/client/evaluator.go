package client

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

type GeminiEvaluator struct {
	client *genai.Client
	model  string
}

func NewGeminiEvaluator(client *genai.Client, model string) *GeminiEvaluator {
	return &GeminiEvaluator{client: client, model: model}
}

// IsMatch asks whether two descriptions call for the same amount of work.
func (e *GeminiEvaluator) IsMatch(ctx context.Context, description, cachedDescription string) bool {
	instruction := `You are a Project Scope Judge.
    Compare the following two software project descriptions.
    Would building them take the same amount of work, even if phrased differently?
    - If the scope is the same, respond ONLY with "YES".
    - If one asks for features, integrations or scale the other does not, respond ONLY with "NO".`

	prompt := fmt.Sprintf("%s\n\nProject 1: %s\nProject 2: %s", instruction, description, cachedDescription)

	resp, err := e.client.Models.GenerateContent(ctx, e.model, genai.Text(prompt), nil)
	if err != nil {
		return false // Default to 'No Match' on error
	}
	return isYes(resp.Text())
}

func isYes(answer string) bool {
	result := strings.TrimSpace(strings.ToUpper(answer))
	return strings.HasPrefix(result, "YES")
}
