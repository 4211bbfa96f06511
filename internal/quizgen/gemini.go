package quizgen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/mind-engage/formquiz/internal/content"
	"github.com/mind-engage/formquiz/internal/logger"
)

// GeminiModel calls the Gemini API.
type GeminiModel struct {
	client *genai.Client
	model  *genai.GenerativeModel
	log    *logger.Logger
}

func NewGeminiModel(ctx context.Context, apiKey, name string, log *logger.Logger, opts ...option.ClientOption) (*GeminiModel, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key not set")
	}
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	m := client.GenerativeModel(name)
	m.SetTemperature(0.4)
	return &GeminiModel{client: client, model: m, log: logger.OrNop(log)}, nil
}

func (g *GeminiModel) Close() error {
	return g.client.Close()
}

func (g *GeminiModel) Generate(ctx context.Context, frags []content.Fragment) (string, error) {
	resp, err := g.model.GenerateContent(ctx, toParts(frags)...)
	if err != nil {
		var blocked *genai.BlockedError
		if errors.As(err, &blocked) {
			g.log.Warn("gemini blocked the request", "error", err)
			return "", nil
		}
		return "", err
	}
	if resp.UsageMetadata != nil {
		g.log.Debug("gemini token usage",
			"prompt", resp.UsageMetadata.PromptTokenCount,
			"candidates", resp.UsageMetadata.CandidatesTokenCount,
			"total", resp.UsageMetadata.TotalTokenCount,
		)
	}
	return replyText(resp), nil
}

func toParts(frags []content.Fragment) []genai.Part {
	parts := make([]genai.Part, 0, len(frags))
	for _, f := range frags {
		switch v := f.(type) {
		case content.Text:
			parts = append(parts, genai.Text(string(v)))
		case content.Image:
			parts = append(parts, genai.Blob{MIMEType: v.MIMEType, Data: v.Data})
		}
	}
	return parts
}

func replyText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String()
}
