package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"catalog-console/internal/domain/model"
	"catalog-console/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.GenerationService = (*OpenAIAdapter)(nil)

// OpenAIAdapter implements adapter.GenerationService against any
// OpenAI-compatible Chat Completions endpoint.
type OpenAIAdapter struct {
	apiKey string
	base   string // e.g., https://api.openai.com/v1
	model  string
	client *http.Client
}

func NewOpenAIAdapter(apiKey, model, baseURL string) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAIAdapter{
		apiKey: apiKey,
		base:   baseURL,
		model:  model,
		client: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (o *OpenAIAdapter) ListModels(ctx context.Context) ([]string, error) {
	return []string{o.model}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// generatedPayload is the JSON the model is instructed to produce.
type generatedPayload struct {
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Tags  []string `json:"tags"`
}

func (o *OpenAIAdapter) Generate(ctx context.Context, params adapter.GenerateParams) ([]*model.ContentItem, error) {
	modelName := params.Model
	if modelName == "" {
		modelName = o.model
	}
	count := params.Count
	if count <= 0 {
		count = 1
	}

	prompt := generatePrompt(params)
	content, err := o.chat(ctx, modelName, []chatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: prompt},
	})
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

func (o *OpenAIAdapter) Rewrite(ctx context.Context, item *model.ContentItem, modelName string) (*model.ContentItem, error) {
	if modelName == "" {
		modelName = o.model
	}
	content, err := o.chat(ctx, modelName, []chatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: rewritePrompt(item)},
	})
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

	// Content is replaced; identity and non-content fields stay with the
	// caller's copy.
	out := *item
	out.Title = strings.TrimSpace(p.Title)
	out.Body = p.Body
	out.Summary = model.Summarize(p.Body)
	return &out, nil
}

func (o *OpenAIAdapter) chat(ctx context.Context, modelName string, messages []chatMessage) (string, error) {
	reqBody := struct {
		Model    string        `json:"model"`
		Messages []chatMessage `json:"messages"`
	}{Model: modelName, Messages: messages}

	b, _ := json.Marshal(reqBody)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, o.base+"/chat/completions", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		se := &adapter.ServiceError{
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("chat completions returned %d", resp.StatusCode),
		}
		if resp.StatusCode == adapter.StatusTooManyRequests {
			if secs, _ := strconv.Atoi(resp.Header.Get("Retry-After")); secs > 0 {
				se.RetryAfter = time.Duration(secs) * time.Second
			}
		}
		return "", se
	}

	var payload struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	for _, c := range payload.Choices {
		if c.Message.Content != "" {
			return c.Message.Content, nil
		}
	}
	return "", errors.New("no choice content")
}

// parsePayloads tolerates a single object, an array, or fenced JSON.
func parsePayloads(content string, want int) ([]generatedPayload, error) {
	s := strings.TrimSpace(content)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "[") {
		var many []generatedPayload
		if err := json.Unmarshal([]byte(s), &many); err != nil {
			return nil, fmt.Errorf("parse generated items: %w", err)
		}
		if len(many) == 0 {
			return nil, errors.New("empty generated item list")
		}
		if want > 0 && len(many) > want {
			many = many[:want]
		}
		return many, nil
	}

	var one generatedPayload
	if err := json.Unmarshal([]byte(s), &one); err != nil {
		return nil, fmt.Errorf("parse generated item: %w", err)
	}
	return []generatedPayload{one}, nil
}
