package services

import (
	"context"
	"encoding/json"
	"fmt"
	"receipt-split-backend/config"
	"receipt-split-backend/models"
	"strings"
	"sync"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ReceiptExtractor turns a receipt photo into structured line items.
type ReceiptExtractor interface {
	ExtractReceipt(imageData []byte, contentType string) (*models.ExtractedReceipt, error)
}

// GeminiExtractor implements ReceiptExtractor using Google Gemini
type GeminiExtractor struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

var (
	extractorOnce sync.Once
	extractor     ReceiptExtractor
	extractorErr  error
)

// GetExtractor returns the shared Gemini-backed extractor, creating it on first use.
func GetExtractor() (ReceiptExtractor, error) {
	extractorOnce.Do(func() {
		extractor, extractorErr = NewGeminiExtractor(config.AppConfig.GeminiAPIKey, config.AppConfig.GeminiModel)
	})
	return extractor, extractorErr
}

func NewGeminiExtractor(apiKey string, modelName string) (*GeminiExtractor, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.ResponseMIMEType = "application/json"

	return &GeminiExtractor{
		client: client,
		model:  model,
	}, nil
}

// ExtractReceipt sends the receipt image and the analysis prompt to Gemini
// and decodes the JSON it returns.
func (g *GeminiExtractor) ExtractReceipt(imageData []byte, contentType string) (*models.ExtractedReceipt, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	// genai.ImageData expects just the format suffix (e.g. "png"),
	// not the full MIME type
	format := strings.TrimPrefix(contentType, "image/")
	parts := []genai.Part{
		genai.ImageData(format, imageData),
		genai.Text(analysisPrompt()),
	}

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	return parseExtractedReceipt(responseText.String())
}

// Close closes the Gemini client
func (g *GeminiExtractor) Close() error {
	return g.client.Close()
}

// parseExtractedReceipt decodes the model's JSON, tolerating markdown fences
// around it.
func parseExtractedReceipt(text string) (*models.ExtractedReceipt, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end < start {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	text = text[start : end+1]

	var extracted models.ExtractedReceipt
	if err := json.Unmarshal([]byte(text), &extracted); err != nil {
		return nil, fmt.Errorf("unmarshaling receipt json: %w", err)
	}

	extracted.RestaurantName = strings.TrimSpace(extracted.RestaurantName)
	if extracted.RestaurantName == "" {
		extracted.RestaurantName = "Unknown Restaurant"
	}
	if extracted.Currency == "" {
		extracted.Currency = "MYR"
	}
	for i := range extracted.Items {
		if extracted.Items[i].Quantity <= 0 {
			extracted.Items[i].Quantity = 1
		}
	}

	return &extracted, nil
}
