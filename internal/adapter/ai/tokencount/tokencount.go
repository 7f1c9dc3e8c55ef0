// Package tokencount estimates token usage for chat dispatches.
//
// It uses tiktoken-go, a Go port of OpenAI's tiktoken library. None of the
// dispatched providers report usage on the free tiers, so counts are local
// estimates used for the chat_dispatch_tokens metrics and emitted events.
package tokencount

import (
	"log/slog"
	"strings"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
	tiktokenloader "github.com/pkoukk/tiktoken-go-loader"

	"github.com/haziqlabs/haziq-ai/internal/domain"
)

// The embedded BPE dictionaries keep encoding lookups off the network;
// tiktoken-go would otherwise download them on first use.
func init() {
	tiktoken.SetBpeLoader(tiktokenloader.NewOfflineLoader())
}

// Usage holds estimated token counts for one dispatch.
type Usage struct {
	PromptTokens int    `json:"prompt_tokens"`
	ReplyTokens  int    `json:"reply_tokens"`
	TotalTokens  int    `json:"total_tokens"`
	Model        string `json:"model"`
	Provider     string `json:"provider"`
}

// Counter caches tiktoken encodings per model. Safe for concurrent use.
type Counter struct {
	mu        sync.RWMutex
	encodings map[string]*tiktoken.Tiktoken
}

func NewCounter() *Counter {
	return &Counter{encodings: make(map[string]*tiktoken.Tiktoken)}
}

// DefaultCounter is a process-wide counter instance.
var DefaultCounter = NewCounter()

func (c *Counter) encodingFor(model string) (*tiktoken.Tiktoken, error) {
	name := normalizeModelName(model)

	c.mu.RLock()
	enc, ok := c.encodings[name]
	c.mu.RUnlock()
	if ok {
		return enc, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if enc, ok := c.encodings[name]; ok {
		return enc, nil
	}

	enc, err := tiktoken.EncodingForModel(name)
	if err != nil {
		slog.Debug("falling back to cl100k_base encoding",
			slog.String("model", model), slog.Any("error", err))
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}
	c.encodings[name] = enc
	return enc, nil
}

// normalizeModelName maps dispatched model ids onto tiktoken vocabularies.
// Gemini, Llama, and DeepSeek tokenizers are close enough to cl100k_base for
// estimation purposes, so everything funnels into the gpt-4 encoding.
func normalizeModelName(model string) string {
	model = strings.ToLower(model)

	// OpenRouter ids carry a provider prefix and sometimes a :free suffix,
	// e.g. "google/gemini-2.0-flash-exp:free".
	if i := strings.LastIndex(model, "/"); i >= 0 {
		model = model[i+1:]
	}
	model = strings.TrimSuffix(model, ":free")

	if strings.Contains(model, "gpt-3.5") {
		return "gpt-3.5-turbo"
	}
	return "gpt-4"
}

// CountText counts tokens in a plain string.
func (c *Counter) CountText(text, model string) (int, error) {
	enc, err := c.encodingFor(model)
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}

// CountTurns counts tokens in a chat turn list, including the per-message
// framing overhead used by chat-completions style APIs.
func (c *Counter) CountTurns(turns []domain.ChatTurn, model string) (int, error) {
	enc, err := c.encodingFor(model)
	if err != nil {
		return 0, err
	}

	// 3 tokens of framing per message plus 1 for the role, plus 3 tokens
	// priming the reply. Matches the OpenAI cookbook counting recipe.
	const tokensPerMessage, tokensPerRole, replyPrimer = 3, 1, 3

	n := replyPrimer
	for _, t := range turns {
		n += tokensPerMessage + tokensPerRole
		n += len(enc.Encode(string(t.Role), nil, nil))
		n += len(enc.Encode(t.Text, nil, nil))
	}
	return n, nil
}

// EstimateUsage computes prompt and reply token estimates for one dispatch.
// Encoding failures degrade to a chars/4 heuristic rather than erroring.
func (c *Counter) EstimateUsage(turns []domain.ChatTurn, reply, model, provider string) Usage {
	promptTokens, err := c.CountTurns(turns, model)
	if err != nil {
		slog.Warn("token count failed, using estimate",
			slog.String("model", model), slog.Any("error", err))
		for _, t := range turns {
			promptTokens += len(t.Text) / 4
		}
	}

	replyTokens, err := c.CountText(reply, model)
	if err != nil {
		replyTokens = len(reply) / 4
	}

	return Usage{
		PromptTokens: promptTokens,
		ReplyTokens:  replyTokens,
		TotalTokens:  promptTokens + replyTokens,
		Model:        model,
		Provider:     provider,
	}
}
