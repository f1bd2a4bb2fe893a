// Package ai extracts transactions from slip images and summarizes spending
// through Gemini.
package ai

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// DefaultModelName is used when no model is configured.
const DefaultModelName = "gemini-2.5-flash"

// ErrNotConfigured is returned by every call when no API key was supplied.
var ErrNotConfigured = errors.New("gemini api key not configured")

// Generator sends one structured-output request and returns the raw text.
type Generator interface {
	Generate(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (string, error)
}

// GeminiGenerator calls the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
}

// NewGeminiGenerator builds a client for the Gemini Developer API.
func NewGeminiGenerator(ctx context.Context, apiKey string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiGenerator{client: client}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return resp.Text(), nil
}

func jsonConfig(schema *genai.Schema) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	}
}

var slipSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"type": {
			Type:        genai.TypeString,
			Enum:        []string{"income", "expense"},
			Description: "expense for a transfer or payment to someone else, income for money received",
		},
		"category": {Type: genai.TypeString},
		"amount":   {Type: genai.TypeNumber},
		"note": {
			Type:        genai.TypeString,
			Description: "short memo such as the payee or payer name",
		},
	},
	Required: []string{"type", "category", "amount", "note"},
}

var summarySchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"summary": {
			Type:        genai.TypeString,
			Description: "A brief summary of spending habits, in Thai.",
		},
		"topExpenseCategories": {
			Type:        genai.TypeArray,
			Description: "Top 3-5 expense categories, sorted by amount descending.",
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"category":   {Type: genai.TypeString},
					"amount":     {Type: genai.TypeNumber},
					"percentage": {Type: genai.TypeNumber, Description: "Percentage of total expense."},
				},
				Required: []string{"category", "amount", "percentage"},
			},
		},
		"savingsSuggestions": {
			Type:        genai.TypeArray,
			Description: "Personalized saving suggestions, in Thai.",
			Items:       &genai.Schema{Type: genai.TypeString},
		},
		"monthlyChartData": {
			Type:        genai.TypeObject,
			Description: "Total income and expense for the period.",
			Properties: map[string]*genai.Schema{
				"income":  {Type: genai.TypeNumber},
				"expense": {Type: genai.TypeNumber},
			},
			Required: []string{"income", "expense"},
		},
	},
	Required: []string{"summary", "topExpenseCategories", "savingsSuggestions", "monthlyChartData"},
}
