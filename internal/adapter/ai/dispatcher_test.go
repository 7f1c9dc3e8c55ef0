package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/haziqlabs/haziq-ai/internal/domain"
)

type fakeAdapter struct {
	calls int
	text  string
	err   error
}

func (f *fakeAdapter) Call(_ domain.Context, _ string, _ []domain.ChatTurn) (completion, error) {
	f.calls++
	if f.err != nil {
		return completion{}, f.err
	}
	return completion{Text: f.text, Model: "test-model"}, nil
}

func newTestDispatcher(adapters map[domain.Provider]caller) *Dispatcher {
	return &Dispatcher{
		adapters: adapters,
		// identity shuffle keeps trial order deterministic in tests
		shuffle: func([]string) {},
	}
}

func TestComplete_EmptyPool_NoNetwork(t *testing.T) {
	google := &fakeAdapter{text: "hi"}
	d := newTestDispatcher(map[domain.Provider]caller{domain.ProviderGoogle: google})

	out := d.Complete(context.Background(), "halo", nil, nil)
	require.True(t, out.Failed)
	require.Equal(t, MsgNoCredentials, out.Text)
	require.Zero(t, google.calls)
}

func TestComplete_StopsAtFirstSuccess(t *testing.T) {
	google := &fakeAdapter{err: errors.New("boom")}
	groq := &fakeAdapter{text: "jawaban"}
	deepseek := &fakeAdapter{text: "never"}
	d := newTestDispatcher(map[domain.Provider]caller{
		domain.ProviderGoogle:   google,
		domain.ProviderGroq:     groq,
		domain.ProviderDeepSeek: deepseek,
	})

	out := d.Complete(context.Background(), "halo", nil, []string{"AIzaA", "gsk_b", "sk-c"})
	require.False(t, out.Failed)
	require.Equal(t, "jawaban", out.Text)
	require.Equal(t, domain.ProviderGroq, out.Provider)
	require.Equal(t, 1, google.calls)
	require.Equal(t, 1, groq.calls)
	require.Zero(t, deepseek.calls, "no credential may be tried after the first success")
}

func TestComplete_OneWorkingKeyAmongBroken(t *testing.T) {
	// outcome must not depend on position; run with the working key at every slot
	for shift := 0; shift < 3; shift++ {
		broken := &fakeAdapter{err: errors.New("status 500")}
		working := &fakeAdapter{text: "ok"}
		d := newTestDispatcher(map[domain.Provider]caller{
			domain.ProviderGoogle: broken,
			domain.ProviderGroq:   working,
		})
		keys := []string{"AIzaA", "AIzaB", "AIzaC"}
		keys[shift] = "gsk_win"
		out := d.Complete(context.Background(), "halo", nil, keys)
		require.False(t, out.Failed)
		require.Equal(t, "ok", out.Text)
		require.Equal(t, 1, working.calls)
	}
}

func TestComplete_UnknownKeysSkipped(t *testing.T) {
	groq := &fakeAdapter{text: "ok"}
	d := newTestDispatcher(map[domain.Provider]caller{domain.ProviderGroq: groq})

	out := d.Complete(context.Background(), "halo", nil, []string{"bogus", "also-bogus", "gsk_x"})
	require.False(t, out.Failed)
	require.Equal(t, "ok", out.Text)
	require.Equal(t, 1, groq.calls)
}

func TestComplete_ExhaustionEmbedsLastError(t *testing.T) {
	google := &fakeAdapter{err: errors.New("google down")}
	groq := &fakeAdapter{err: errors.New("groq down")}
	d := newTestDispatcher(map[domain.Provider]caller{
		domain.ProviderGoogle: google,
		domain.ProviderGroq:   groq,
	})

	out := d.Complete(context.Background(), "halo", nil, []string{"AIzaA", "gsk_b"})
	require.True(t, out.Failed)
	require.True(t, strings.HasPrefix(out.Text, "Maaf, "), "apology prefix expected: %q", out.Text)
	require.Contains(t, out.Text, "groq down")
}

func TestComplete_OnlyUnknownKeys(t *testing.T) {
	d := newTestDispatcher(map[domain.Provider]caller{})
	out := d.Complete(context.Background(), "halo", nil, []string{"bogus1", "bogus2"})
	require.True(t, out.Failed)
	require.Contains(t, out.Text, "Koneksi gagal")
}

func TestComplete_AppendsPromptAsTrailingUserTurn(t *testing.T) {
	var seen []domain.ChatTurn
	capture := callerFunc(func(_ domain.Context, _ string, turns []domain.ChatTurn) (completion, error) {
		seen = turns
		return completion{Text: "ok", Model: "m"}, nil
	})
	d := newTestDispatcher(map[domain.Provider]caller{domain.ProviderGroq: capture})

	history := []domain.ChatTurn{
		{Role: domain.RoleUser, Text: "q1"},
		{Role: domain.RoleModel, Text: "a1"},
	}
	_ = d.Complete(context.Background(), "q2", history, []string{"gsk_x"})
	require.Len(t, seen, 3)
	require.Equal(t, domain.RoleUser, seen[2].Role)
	require.Equal(t, "q2", seen[2].Text)
}

type callerFunc func(domain.Context, string, []domain.ChatTurn) (completion, error)

func (f callerFunc) Call(ctx domain.Context, key string, turns []domain.ChatTurn) (completion, error) {
	return f(ctx, key, turns)
}

func TestNewDispatcher_ShuffleIsPermutation(t *testing.T) {
	d := NewDispatcher(testConfig())
	keys := []string{"a", "b", "c", "d", "e"}
	shuffled := make([]string, len(keys))
	copy(shuffled, keys)
	d.shuffle(shuffled)

	seen := map[string]int{}
	for _, k := range shuffled {
		seen[k]++
	}
	for _, k := range keys {
		require.Equal(t, 1, seen[k], "shuffle must be a permutation")
	}
}
