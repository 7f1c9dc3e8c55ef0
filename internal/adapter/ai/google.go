package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/haziqlabs/haziq-ai/internal/domain"
)

const maxBodySnippet = 512

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

// googleAdapter calls the Gemini-style generateContent endpoint. It keeps the
// canonical `model` role name and authenticates via query string, not bearer.
type googleAdapter struct {
	baseURL string
	models  []string
	hc      *http.Client
}

func newGoogleAdapter(baseURL string, models []string, hc *http.Client) *googleAdapter {
	return &googleAdapter{baseURL: baseURL, models: models, hc: hc}
}

// Call tries the configured model ids in order with the same credential. A 404
// means the model id is gone upstream and the next alias is tried; any other
// non-2xx fails the credential immediately so key rotation can move on.
func (g *googleAdapter) Call(ctx domain.Context, key string, turns []domain.ChatTurn) (completion, error) {
	contents := make([]geminiContent, 0, len(turns))
	for _, t := range turns {
		contents = append(contents, geminiContent{Role: string(t.Role), Parts: []geminiPart{{Text: t.Text}}})
	}
	body, err := json.Marshal(map[string]any{"contents": contents})
	if err != nil {
		return completion{}, fmt.Errorf("op=ai.google.marshal: %w", err)
	}

	var lastErr error
	for _, model := range g.models {
		url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, model, key)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return completion{}, fmt.Errorf("op=ai.google.request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := g.hc.Do(req)
		if err != nil {
			return completion{}, fmt.Errorf("op=ai.google: %w", err)
		}
		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		_ = resp.Body.Close()
		if readErr != nil {
			return completion{}, fmt.Errorf("op=ai.google.read: %w", readErr)
		}

		if resp.StatusCode == http.StatusNotFound {
			slog.Warn("gemini model not found, trying next alias",
				slog.String("model", model))
			lastErr = fmt.Errorf("%w: %s", domain.ErrModelNotFound, model)
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return completion{}, &domain.ProviderHTTPError{
				Provider: domain.ProviderGoogle,
				Status:   resp.StatusCode,
				Body:     snippet(respBody),
			}
		}

		var out struct {
			Candidates []struct {
				Content struct {
					Parts []geminiPart `json:"parts"`
				} `json:"content"`
			} `json:"candidates"`
		}
		if err := json.Unmarshal(respBody, &out); err != nil {
			return completion{}, fmt.Errorf("op=ai.google.decode: %w", err)
		}
		if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 || out.Candidates[0].Content.Parts[0].Text == "" {
			return completion{}, fmt.Errorf("op=ai.google model=%s: %w", model, domain.ErrEmptyCompletion)
		}
		return completion{Text: out.Candidates[0].Content.Parts[0].Text, Model: model}, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("op=ai.google: no models configured")
	}
	return completion{}, lastErr
}

func snippet(b []byte) string {
	if len(b) > maxBodySnippet {
		return string(b[:maxBodySnippet])
	}
	return string(b)
}
