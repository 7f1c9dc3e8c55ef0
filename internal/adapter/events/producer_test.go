package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haziqlabs/haziq-ai/internal/domain"
)

func TestNewProducer_RequiresBrokers(t *testing.T) {
	t.Parallel()

	p, err := NewProducer(nil)
	require.Error(t, err)
	assert.Nil(t, p)
	assert.Contains(t, err.Error(), "no seed brokers")
}

func TestNopSink_Publish(t *testing.T) {
	t.Parallel()

	sink := NewNopSink()
	require.NoError(t, sink.Publish(context.Background(), domain.ChatEvent{SessionID: "s"}))
}

func TestChatEvent_WireShape(t *testing.T) {
	t.Parallel()

	e := domain.ChatEvent{
		SessionID:    "sess-1",
		StudentID:    "stu-1",
		Provider:     "groq",
		Model:        "llama-3.3-70b-versatile",
		LatencyMS:    120,
		PromptTokens: 42,
		ReplyTokens:  17,
	}
	b, err := json.Marshal(e)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, "sess-1", m["session_id"])
	assert.Equal(t, "groq", m["provider"])
	assert.EqualValues(t, 120, m["latency_ms"])
	assert.Equal(t, false, m["failed"])
}
