package ai

import (
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/haziqlabs/haziq-ai/internal/adapter/observability"
	"github.com/haziqlabs/haziq-ai/internal/config"
	"github.com/haziqlabs/haziq-ai/internal/domain"
)

// MsgNoCredentials is returned without any network call when the pool is empty.
const MsgNoCredentials = "Error: Tidak ada API Key yang tersedia. Hubungi admin."

// completion is a successful adapter result.
type completion struct {
	Text  string
	Model string
}

// caller is the common provider capability: one credential, the canonical
// message list, one text back or a descriptive error.
type caller interface {
	Call(ctx domain.Context, key string, turns []domain.ChatTurn) (completion, error)
}

// Dispatcher implements domain.Completer. It shuffles the credential pool,
// classifies each key, and tries adapters strictly sequentially until one
// yields text. All adapter errors are folded into the retry loop; the caller
// only ever sees a reply string.
type Dispatcher struct {
	adapters map[domain.Provider]caller
	shuffle  func([]string)
}

// NewDispatcher wires one adapter per provider from configuration. Outbound
// calls share a traced HTTP client with the configured timeout.
func NewDispatcher(cfg config.Config) *Dispatcher {
	transport := otelhttp.NewTransport(http.DefaultTransport,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return fmt.Sprintf("LLM %s %s", r.Method, r.URL.Host)
		}),
	)
	hc := &http.Client{Timeout: cfg.ProviderTimeout, Transport: transport}

	return &Dispatcher{
		adapters: map[domain.Provider]caller{
			domain.ProviderGoogle:      newGoogleAdapter(cfg.GoogleBaseURL, cfg.GoogleModels, hc),
			domain.ProviderHuggingFace: newHuggingFaceAdapter(cfg.HuggingFaceBaseURL, cfg.HuggingFaceModel, hc),
			domain.ProviderGroq:        newGroqAdapter(cfg.GroqBaseURL, cfg.GroqModel, hc),
			domain.ProviderOpenRouter:  newOpenRouterAdapter(cfg.OpenRouterBaseURL, cfg.OpenRouterModel, hc),
			domain.ProviderDeepSeek:    newDeepSeekAdapter(cfg.DeepSeekBaseURL, cfg.DeepSeekModel, hc),
		},
		shuffle: func(keys []string) {
			rand.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })
		},
	}
}

// Complete runs one dispatch: history (already truncated by the caller) plus
// the new prompt as a trailing user turn, against a uniformly shuffled copy of
// the key pool. The first adapter success wins; exhaustion yields an apology
// embedding the last recorded error. Trials are sequential by design so at
// most one billable call is in flight per dispatch.
func (d *Dispatcher) Complete(ctx domain.Context, prompt string, history []domain.ChatTurn, keys []string) domain.DispatchOutcome {
	if len(keys) == 0 {
		slog.Error("dispatch aborted: empty credential pool")
		observability.RecordDispatch("no_credentials")
		return domain.DispatchOutcome{Text: MsgNoCredentials, Failed: true}
	}

	turns := make([]domain.ChatTurn, 0, len(history)+1)
	turns = append(turns, history...)
	turns = append(turns, domain.ChatTurn{Role: domain.RoleUser, Text: prompt})

	shuffled := make([]string, len(keys))
	copy(shuffled, keys)
	d.shuffle(shuffled)

	slog.Info("dispatching completion", slog.Int("keys", len(shuffled)), slog.Int("turns", len(turns)))

	var lastErr error
	for _, key := range shuffled {
		provider := Classify(key)
		if provider == domain.ProviderUnknown {
			slog.Warn("unknown key format, skipping", slog.String("key", redactKey(key)))
			continue
		}
		adapter := d.adapters[provider]

		start := time.Now()
		out, err := adapter.Call(ctx, key, turns)
		observability.RecordAIRequest(string(provider), err == nil, time.Since(start))
		if err != nil {
			slog.Warn("provider call failed, rotating to next key",
				slog.String("provider", string(provider)),
				slog.String("key", redactKey(key)),
				slog.Any("error", err))
			lastErr = err
			continue
		}

		slog.Info("dispatch succeeded",
			slog.String("provider", string(provider)),
			slog.String("model", out.Model),
			slog.Duration("latency", time.Since(start)))
		observability.RecordDispatch("success")
		return domain.DispatchOutcome{Text: out.Text, Provider: provider, Model: out.Model}
	}

	reason := "Koneksi gagal"
	if lastErr != nil {
		reason = lastErr.Error()
	}
	slog.Error("all credentials exhausted", slog.Any("last_error", lastErr))
	observability.RecordDispatch("exhausted")
	return domain.DispatchOutcome{
		Text:   fmt.Sprintf("Maaf, sistem sedang sibuk atau mengalami error: %s. Mohon coba lagi.", reason),
		Failed: true,
	}
}
