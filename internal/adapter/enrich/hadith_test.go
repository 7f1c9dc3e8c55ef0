package enrich

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectHadithRef(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prompt string
		slug   string
		number string
		ok     bool
	}{
		{"hr shorthand", "Apa isi HR Bukhari No 1?", "bukhari", "1", true},
		{"hadits nomor", "Hadits Muslim Nomor 50 tentang apa", "muslim", "50", true},
		{"riwayat form", "hr riwayat abu daud 10", "abu-daud", "10", true},
		{"alternate spelling", "hadist bukhori no 52", "bukhari", "52", true},
		{"hr dotted", "h.r tirmidzi no. 7", "tirmidzi", "7", true},
		{"unknown narrator", "HR Zaidi No 1", "", "", false},
		{"plain chat", "halo apa kabar", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slug, number, ok := detectHadithRef(tt.prompt)
			require.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.slug, slug)
			assert.Equal(t, tt.number, number)
		})
	}
}

func TestHadithEnricher_AppendsReferenceBlock(t *testing.T) {
	t.Parallel()

	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode(map[string]any{
			"code": 200,
			"data": map[string]any{
				"contents": map[string]any{"arab": "innama-arabic", "id": "Sesungguhnya amal itu tergantung niatnya"},
			},
		})
	}))
	defer srv.Close()

	h := NewHadithEnricher(srv.URL, srv.Client(), nil, time.Hour, time.Second)
	prompt := "Jelaskan HR Bukhari No 1"
	got := h.Enrich(context.Background(), prompt)

	require.True(t, strings.HasPrefix(got, prompt))
	assert.Equal(t, "/books/bukhari/1", gotPath)
	assert.Contains(t, got, "REFERENSI VALID HADITS")
	assert.Contains(t, got, "innama-arabic")
	assert.Contains(t, got, "HR. bukhari Nomor 1")
}

func TestHadithEnricher_UnknownNarrator_NoNetwork(t *testing.T) {
	t.Parallel()

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
	}))
	defer srv.Close()

	h := NewHadithEnricher(srv.URL, srv.Client(), nil, time.Hour, time.Second)
	prompt := "HR Zaidi No 1"
	assert.Equal(t, prompt, h.Enrich(context.Background(), prompt))
	assert.Zero(t, calls, "unsupported narrators must not reach the API")
}

func TestHadithEnricher_UpstreamFailureReturnsPromptUnchanged(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	h := NewHadithEnricher(srv.URL, srv.Client(), nil, time.Hour, 100*time.Millisecond)
	prompt := "HR Muslim No 3"
	assert.Equal(t, prompt, h.Enrich(context.Background(), prompt))
}

func TestHadithEnricher_NonOKCodeReturnsPromptUnchanged(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"code": 404})
	}))
	defer srv.Close()

	h := NewHadithEnricher(srv.URL, srv.Client(), nil, time.Hour, time.Second)
	prompt := "HR Malik No 99999"
	assert.Equal(t, prompt, h.Enrich(context.Background(), prompt))
}
