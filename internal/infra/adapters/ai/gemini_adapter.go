package ai

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"

	"catalog-console/internal/domain/model"
	"catalog-console/internal/domain/ports/adapter"
)

var _ adapter.GenerationService = (*GeminiAdapter)(nil)

// GeminiAdapter implements the generation port with the official Gemini SDK.
type GeminiAdapter struct {
	client       *genai.Client
	defaultModel string
	maxOut       int
}

func NewGeminiAdapter(ctx context.Context, apiKey, baseURL, defaultModel string, maxOut int) (*GeminiAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	if maxOut <= 0 {
		maxOut = 2048
	}
	return &GeminiAdapter{client: c, defaultModel: defaultModel, maxOut: maxOut}, nil
}

func (g *GeminiAdapter) ListModels(ctx context.Context) ([]string, error) {
	models := g.client.Models.All(ctx)
	var out []string
	for m := range models {
		if m.Name != "" {
			out = append(out, m.Name)
		}
	}
	if len(out) == 0 && g.defaultModel != "" {
		// Best-effort fallback to default
		out = []string{g.defaultModel}
	}
	return out, nil
}

func (g *GeminiAdapter) Generate(ctx context.Context, params adapter.GenerateParams) ([]*model.ContentItem, error) {
	count := params.Count
	if count <= 0 {
		count = 1
	}
	content, err := g.generateText(ctx, params.Model, generatePrompt(params))
	if err != nil {
		return nil, err
	}
	payloads, err := parsePayloads(content, count)
	if err != nil {
		return nil, err
	}
	items := make([]*model.ContentItem, 0, len(payloads))
	for _, p := range payloads {
		if strings.TrimSpace(p.Title) == "" {
			continue
		}
		item := model.NewContentItem(p.Title, p.Body, params.CategoryID, params.ContentType)
		for _, t := range p.Tags {
			item.AddTag(strings.ToLower(strings.TrimSpace(t)))
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return nil, errors.New("model produced no usable item")
	}
	return items, nil
}

func (g *GeminiAdapter) Rewrite(ctx context.Context, item *model.ContentItem, modelName string) (*model.ContentItem, error) {
	content, err := g.generateText(ctx, modelName, rewritePrompt(item))
	if err != nil {
		return nil, err
	}
	payloads, err := parsePayloads(content, 1)
	if err != nil {
		return nil, err
	}
	p := payloads[0]
	if strings.TrimSpace(p.Title) == "" {
		return nil, errors.New("rewrite produced an empty title")
	}
	out := *item
	out.Title = strings.TrimSpace(p.Title)
	out.Body = p.Body
	out.Summary = model.Summarize(p.Body)
	return &out, nil
}

func (g *GeminiAdapter) generateText(ctx context.Context, modelName, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(
		ctx,
		modelOrDefault(modelName, g.defaultModel),
		[]*genai.Content{{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{{Text: systemPrompt + "\n\n" + prompt}},
		}},
		&genai.GenerateContentConfig{
			MaxOutputTokens: int32(g.maxOut),
		},
	)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) && apiErr.Code == adapter.StatusTooManyRequests {
			return "", &adapter.ServiceError{Status: adapter.StatusTooManyRequests, Message: apiErr.Message}
		}
		return "", err
	}
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil && len(resp.Candidates[0].Content.Parts) > 0 {
		if t := resp.Candidates[0].Content.Parts[0].Text; t != "" {
			return t, nil
		}
	}
	return "", errors.New("gemini: empty candidate")
}

func modelOrDefault(modelName, def string) string {
	if strings.TrimSpace(modelName) != "" {
		return modelName
	}
	return def
}
