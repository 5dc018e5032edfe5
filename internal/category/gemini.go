package category

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/spendtrail/spendtrail/internal/model"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// generator is the subset of *genai.Models the labeler calls.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiLabeler asks a Gemini model to pick a label.
type GeminiLabeler struct {
	models  generator
	model   string
	limiter *rate.Limiter
}

// GeminiOptions configures NewGeminiLabeler.
type GeminiOptions struct {
	APIKey string  // empty falls back to GEMINI_API_KEY / GOOGLE_API_KEY
	Model  string  // empty uses DefaultModel
	RPS    float64 // requests per second; <= 0 disables limiting
}

// NewGeminiLabeler creates a labeler backed by the Gemini API.
func NewGeminiLabeler(ctx context.Context, opts GeminiOptions) (*GeminiLabeler, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return newGeminiLabeler(client.Models, opts), nil
}

func newGeminiLabeler(models generator, opts GeminiOptions) *GeminiLabeler {
	name := opts.Model
	if name == "" {
		name = DefaultModel
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RPS), 1)
	}
	return &GeminiLabeler{models: models, model: name, limiter: limiter}
}

// Label implements Labeler.
func (g *GeminiLabeler) Label(ctx context.Context, description string, amount decimal.Decimal) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting for rate limiter: %w", err)
	}

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(labelPrompt(description, amount)), &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.3),
		MaxOutputTokens: 10,
	})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	reply := strings.TrimSpace(resp.Text())
	if reply == "" {
		return "", errors.New("empty response from model")
	}
	return strings.TrimRight(reply, "."), nil
}

func labelPrompt(description string, amount decimal.Decimal) string {
	names := make([]string, 0, 9)
	for _, c := range model.Categories() {
		names = append(names, string(c))
	}
	return fmt.Sprintf("Categorize this expense into one category: \n%s.\n\nDescription: %s\nAmount: ₹%s\n\nReply ONLY with the category name.",
		strings.Join(names, ", "), description, amount.StringFixed(2))
}
