package tokencount

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haziqlabs/haziq-ai/internal/domain"
)

func TestCountText(t *testing.T) {
	t.Parallel()

	counter := NewCounter()

	tests := []struct {
		name     string
		text     string
		model    string
		minCount int
		maxCount int
	}{
		{
			name:     "short indonesian",
			text:     "Halo, apa kabar?",
			model:    "gemini-1.5-flash",
			minCount: 3,
			maxCount: 10,
		},
		{
			name:     "groq model id",
			text:     "The quick brown fox jumps over the lazy dog.",
			model:    "llama-3.3-70b-versatile",
			minCount: 8,
			maxCount: 12,
		},
		{
			name:     "openrouter model id",
			text:     "Hello, world!",
			model:    "google/gemini-2.0-flash-exp:free",
			minCount: 3,
			maxCount: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			count, err := counter.CountText(tt.text, tt.model)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, count, tt.minCount)
			assert.LessOrEqual(t, count, tt.maxCount)
		})
	}
}

func TestCountTurns(t *testing.T) {
	t.Parallel()

	counter := NewCounter()

	turns := []domain.ChatTurn{
		{Role: domain.RoleUser, Text: "Apa itu puasa?"},
		{Role: domain.RoleModel, Text: "Puasa adalah menahan diri dari makan dan minum."},
		{Role: domain.RoleUser, Text: "Kapan mulai?"},
	}

	count, err := counter.CountTurns(turns, "deepseek-chat")
	require.NoError(t, err)
	assert.Greater(t, count, 15, "turn count should include per-message overhead")

	// Empty list still carries the reply primer.
	empty, err := counter.CountTurns(nil, "deepseek-chat")
	require.NoError(t, err)
	assert.Equal(t, 3, empty)
}

func TestNormalizeModelName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected string
	}{
		{"gemini-1.5-flash", "gpt-4"},
		{"gemini-pro", "gpt-4"},
		{"llama-3.3-70b-versatile", "gpt-4"},
		{"google/gemini-2.0-flash-exp:free", "gpt-4"},
		{"meta-llama/Meta-Llama-3-8B-Instruct", "gpt-4"},
		{"deepseek-chat", "gpt-4"},
		{"gpt-3.5-turbo", "gpt-3.5-turbo"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, normalizeModelName(tt.input))
		})
	}
}

func TestEstimateUsage(t *testing.T) {
	t.Parallel()

	counter := NewCounter()

	turns := []domain.ChatTurn{{Role: domain.RoleUser, Text: "Apa ibukota Indonesia?"}}
	usage := counter.EstimateUsage(turns, "Ibukota Indonesia adalah Jakarta.", "gemini-1.5-flash", "google")

	assert.Greater(t, usage.PromptTokens, 0)
	assert.Greater(t, usage.ReplyTokens, 0)
	assert.Equal(t, usage.PromptTokens+usage.ReplyTokens, usage.TotalTokens)
	assert.Equal(t, "gemini-1.5-flash", usage.Model)
	assert.Equal(t, "google", usage.Provider)
}

func TestEstimateUsage_EmptyReply(t *testing.T) {
	t.Parallel()

	usage := DefaultCounter.EstimateUsage(nil, "", "deepseek-chat", "deepseek")
	assert.Equal(t, 0, usage.ReplyTokens)
	assert.GreaterOrEqual(t, usage.PromptTokens, 0)
}

func TestEncodingCache(t *testing.T) {
	t.Parallel()

	counter := NewCounter()

	count1, err := counter.CountText("Halo", "gemini-pro")
	require.NoError(t, err)
	count2, err := counter.CountText("Halo", "gemini-pro")
	require.NoError(t, err)
	assert.Equal(t, count1, count2)
}
