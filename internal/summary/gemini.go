package summary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shaiso/kycdoc/internal/domain"
	"google.golang.org/genai"
)

// DefaultModel — модель Gemini по умолчанию.
const DefaultModel = "gemini-2.0-flash"

const systemInstruction = "You are a professional summary generator. Generate a concise and professional summary."

// ErrEmptyResponse — модель не вернула текста.
var ErrEmptyResponse = errors.New("empty model response")

// modelsAPI — часть *genai.Models, которой пользуется GeminiGenerator.
type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiConfig — настройки GeminiGenerator.
type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration // default: 20s
	Logger  *slog.Logger
}

// GeminiGenerator генерирует описание через Gemini API.
type GeminiGenerator struct {
	models  modelsAPI
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

// NewGeminiGenerator создаёт клиента Gemini API.
func NewGeminiGenerator(ctx context.Context, cfg GeminiConfig) (*GeminiGenerator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return newGeminiGenerator(client.Models, cfg), nil
}

func newGeminiGenerator(models modelsAPI, cfg GeminiConfig) *GeminiGenerator {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &GeminiGenerator{
		models:  models,
		model:   model,
		timeout: timeout,
		logger:  logger.With("component", "summary.gemini"),
	}
}

// Generate запрашивает у модели описание заявителя.
func (g *GeminiGenerator) Generate(ctx context.Context, app *domain.Application) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(Prompt(app)), &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		},
	})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		return "", ErrEmptyResponse
	}

	g.logger.Debug("summary generated", "model", g.model, "length", len(text))
	return text, nil
}

// responseText склеивает текстовые части первого кандидата.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(b.String())
}
