package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/haziqlabs/haziq-ai/internal/domain"
)

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// toOpenAIMessages translates the canonical turn list into the
// chat-completions wire shape, renaming model to assistant.
func toOpenAIMessages(turns []domain.ChatTurn) []openAIMessage {
	msgs := make([]openAIMessage, 0, len(turns))
	for _, t := range turns {
		role := "user"
		if t.Role == domain.RoleModel {
			role = "assistant"
		}
		msgs = append(msgs, openAIMessage{Role: role, Content: t.Text})
	}
	return msgs
}

// fromOpenAIMessages is the inverse mapping; assistant maps back to model.
func fromOpenAIMessages(msgs []openAIMessage) []domain.ChatTurn {
	turns := make([]domain.ChatTurn, 0, len(msgs))
	for _, m := range msgs {
		role := domain.RoleUser
		if m.Role == "assistant" {
			role = domain.RoleModel
		}
		turns = append(turns, domain.ChatTurn{Role: role, Text: m.Content})
	}
	return turns
}

// openAICompatAdapter posts to a fixed chat-completions endpoint with a fixed
// model id and a bearer credential. HuggingFace, Groq, OpenRouter, and
// DeepSeek all share this shape and differ only in endpoint and extras.
type openAICompatAdapter struct {
	provider    domain.Provider
	url         string
	model       string
	maxTokens   int     // 0 means omit
	temperature float64 // used only when maxTokens is set
	hc          *http.Client
}

func newHuggingFaceAdapter(baseURL, model string, hc *http.Client) *openAICompatAdapter {
	return &openAICompatAdapter{
		provider:    domain.ProviderHuggingFace,
		url:         fmt.Sprintf("%s/models/%s/v1/chat/completions", baseURL, model),
		model:       model,
		maxTokens:   1024,
		temperature: 0.7,
		hc:          hc,
	}
}

func newGroqAdapter(baseURL, model string, hc *http.Client) *openAICompatAdapter {
	return &openAICompatAdapter{
		provider: domain.ProviderGroq,
		url:      baseURL + "/chat/completions",
		model:    model,
		hc:       hc,
	}
}

func newOpenRouterAdapter(baseURL, model string, hc *http.Client) *openAICompatAdapter {
	return &openAICompatAdapter{
		provider: domain.ProviderOpenRouter,
		url:      baseURL + "/chat/completions",
		model:    model,
		hc:       hc,
	}
}

func newDeepSeekAdapter(baseURL, model string, hc *http.Client) *openAICompatAdapter {
	return &openAICompatAdapter{
		provider: domain.ProviderDeepSeek,
		url:      baseURL + "/chat/completions",
		model:    model,
		hc:       hc,
	}
}

func (a *openAICompatAdapter) Call(ctx domain.Context, key string, turns []domain.ChatTurn) (completion, error) {
	payload := map[string]any{
		"model":    a.model,
		"messages": toOpenAIMessages(turns),
	}
	if a.maxTokens > 0 {
		payload["max_tokens"] = a.maxTokens
		payload["temperature"] = a.temperature
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return completion{}, fmt.Errorf("op=ai.%s.marshal: %w", a.provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return completion{}, fmt.Errorf("op=ai.%s.request: %w", a.provider, err)
	}
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.hc.Do(req)
	if err != nil {
		return completion{}, fmt.Errorf("op=ai.%s: %w", a.provider, err)
	}
	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	_ = resp.Body.Close()
	if readErr != nil {
		return completion{}, fmt.Errorf("op=ai.%s.read: %w", a.provider, readErr)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return completion{}, &domain.ProviderHTTPError{
			Provider: a.provider,
			Status:   resp.StatusCode,
			Body:     snippet(respBody),
		}
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return completion{}, fmt.Errorf("op=ai.%s.decode: %w", a.provider, err)
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return completion{}, fmt.Errorf("op=ai.%s model=%s: %w", a.provider, a.model, domain.ErrEmptyCompletion)
	}
	return completion{Text: out.Choices[0].Message.Content, Model: a.model}, nil
}
