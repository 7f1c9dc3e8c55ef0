// Package usecase contains application business logic services.
package usecase

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/haziqlabs/haziq-ai/internal/adapter/ai"
	"github.com/haziqlabs/haziq-ai/internal/adapter/ai/tokencount"
	"github.com/haziqlabs/haziq-ai/internal/adapter/observability"
	"github.com/haziqlabs/haziq-ai/internal/domain"
	"github.com/haziqlabs/haziq-ai/pkg/textx"
)

const sessionTitleMax = 50

// ChatService orchestrates one chat turn: session load, reference
// enrichment, dispatch, persistence, and the audit event.
type ChatService struct {
	Sessions  domain.SessionRepository
	AppConfig domain.AppConfigRepository
	Completer domain.Completer
	// Enrichers run in order; each sees the output of the previous one.
	Enrichers []domain.Enricher
	Events    domain.EventSink
	Counter   *tokencount.Counter

	// DefaultKeys is the env credential pool; admin-stored keys are
	// appended behind it at dispatch time.
	DefaultKeys     string
	HistoryMaxTurns int
	MaxPromptChars  int
}

// NewChatService constructs a ChatService with its dependencies.
func NewChatService(
	sessions domain.SessionRepository,
	appConfig domain.AppConfigRepository,
	completer domain.Completer,
	enrichers []domain.Enricher,
	events domain.EventSink,
	defaultKeys string,
	historyMaxTurns, maxPromptChars int,
) ChatService {
	return ChatService{
		Sessions:        sessions,
		AppConfig:       appConfig,
		Completer:       completer,
		Enrichers:       enrichers,
		Events:          events,
		Counter:         tokencount.DefaultCounter,
		DefaultKeys:     defaultKeys,
		HistoryMaxTurns: historyMaxTurns,
		MaxPromptChars:  maxPromptChars,
	}
}

// ChatResult is what the handler returns to the client after one turn.
type ChatResult struct {
	SessionID string
	Reply     string
	Provider  domain.Provider
	Model     string
	Failed    bool
}

// Send runs one chat turn. An empty sessionID starts a new conversation.
// The reply is best effort: provider exhaustion yields the apology text with
// Failed set, not an error. Errors are reserved for invalid input and
// storage problems.
func (s ChatService) Send(ctx domain.Context, studentID, sessionID, prompt string) (ChatResult, error) {
	prompt = textx.SanitizeText(prompt)
	if prompt == "" {
		return ChatResult{}, fmt.Errorf("%w: empty prompt", domain.ErrInvalidArgument)
	}
	if s.MaxPromptChars > 0 && len(prompt) > s.MaxPromptChars {
		return ChatResult{}, fmt.Errorf("%w: prompt exceeds %d chars", domain.ErrInvalidArgument, s.MaxPromptChars)
	}

	sess, err := s.loadOrCreateSession(ctx, studentID, sessionID, prompt)
	if err != nil {
		return ChatResult{}, err
	}

	history := truncateTurns(sess.Turns, s.HistoryMaxTurns)

	// Enrichment applies to what the provider sees, never to what is stored.
	enriched := prompt
	for _, e := range s.Enrichers {
		enriched = e.Enrich(ctx, enriched)
	}

	keys := s.keyPool(ctx)

	start := time.Now()
	out := s.Completer.Complete(ctx, enriched, history, keys)
	latency := time.Since(start)

	turns := append(sess.Turns,
		domain.ChatTurn{Role: domain.RoleUser, Text: prompt},
		domain.ChatTurn{Role: domain.RoleModel, Text: out.Text},
	)
	if err := s.Sessions.UpdateTurns(ctx, sess.ID, turns); err != nil {
		return ChatResult{}, err
	}

	s.record(ctx, sess, out, history, enriched, latency)

	return ChatResult{
		SessionID: sess.ID,
		Reply:     out.Text,
		Provider:  out.Provider,
		Model:     out.Model,
		Failed:    out.Failed,
	}, nil
}

func (s ChatService) loadOrCreateSession(ctx domain.Context, studentID, sessionID, prompt string) (domain.Session, error) {
	if sessionID == "" {
		sess := domain.Session{StudentID: studentID, Title: titleFromPrompt(prompt)}
		id, err := s.Sessions.Create(ctx, sess)
		if err != nil {
			return domain.Session{}, err
		}
		sess.ID = id
		return sess, nil
	}
	sess, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	// Ownership mismatch is indistinguishable from a missing session.
	if sess.StudentID != studentID {
		return domain.Session{}, fmt.Errorf("op=chat.send session=%s: %w", sessionID, domain.ErrNotFound)
	}
	return sess, nil
}

// keyPool merges the env pool with admin-stored keys. A config read failure
// degrades to the env pool alone rather than blocking the chat.
func (s ChatService) keyPool(ctx domain.Context) []string {
	var stored string
	if s.AppConfig != nil {
		c, err := s.AppConfig.Get(ctx)
		if err != nil {
			slog.Warn("app config read failed, using env keys only", slog.Any("error", err))
		} else {
			stored = c.APIKeys
		}
	}
	return ai.ParseKeyPool(s.DefaultKeys, stored)
}

func (s ChatService) record(ctx domain.Context, sess domain.Session, out domain.DispatchOutcome, history []domain.ChatTurn, enriched string, latency time.Duration) {
	counter := s.Counter
	if counter == nil {
		counter = tokencount.DefaultCounter
	}
	sent := append(append([]domain.ChatTurn{}, history...), domain.ChatTurn{Role: domain.RoleUser, Text: enriched})
	usage := counter.EstimateUsage(sent, out.Text, out.Model, string(out.Provider))
	observability.RecordDispatchTokens(usage.PromptTokens, usage.ReplyTokens)

	if s.Events == nil {
		return
	}
	err := s.Events.Publish(ctx, domain.ChatEvent{
		SessionID:    sess.ID,
		StudentID:    sess.StudentID,
		Provider:     string(out.Provider),
		Model:        out.Model,
		LatencyMS:    latency.Milliseconds(),
		PromptTokens: usage.PromptTokens,
		ReplyTokens:  usage.ReplyTokens,
		Failed:       out.Failed,
	})
	if err != nil {
		slog.Warn("chat event publish failed", slog.String("session_id", sess.ID), slog.Any("error", err))
	}
}

// truncateTurns keeps the newest max turns.
func truncateTurns(turns []domain.ChatTurn, max int) []domain.ChatTurn {
	if max <= 0 || len(turns) <= max {
		return turns
	}
	return turns[len(turns)-max:]
}

func titleFromPrompt(prompt string) string {
	r := []rune(prompt)
	if len(r) <= sessionTitleMax {
		return prompt
	}
	return string(r[:sessionTitleMax]) + "..."
}
