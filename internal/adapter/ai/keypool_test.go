package ai

import (
	"testing"

	"github.com/haziqlabs/haziq-ai/internal/domain"
)

func TestParseKeyPool_DropsBlanksKeepsOrder(t *testing.T) {
	got := ParseKeyPool("a,,b, ", "")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected pool: %v", got)
	}
}

func TestParseKeyPool_MergesDefaultsFirst(t *testing.T) {
	got := ParseKeyPool("AIzaOne, AIzaTwo", " gsk_three ,")
	want := []string{"AIzaOne", "AIzaTwo", "gsk_three"}
	if len(got) != len(want) {
		t.Fatalf("unexpected pool: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("pool[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParseKeyPool_Empty(t *testing.T) {
	if got := ParseKeyPool("", ""); len(got) != 0 {
		t.Fatalf("expected empty pool, got %v", got)
	}
	if got := ParseKeyPool(" , ,", ""); len(got) != 0 {
		t.Fatalf("expected empty pool, got %v", got)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		key  string
		want domain.Provider
	}{
		{"AIzaXYZ", domain.ProviderGoogle},
		{"hf_token", domain.ProviderHuggingFace},
		{"gsk_123", domain.ProviderGroq},
		{"sk-or-abc", domain.ProviderOpenRouter},
		{"sk-abc", domain.ProviderDeepSeek},
		{"xyz", domain.ProviderUnknown},
		{"", domain.ProviderUnknown},
	}
	for _, tc := range cases {
		if got := Classify(tc.key); got != tc.want {
			t.Fatalf("Classify(%q) = %v, want %v", tc.key, got, tc.want)
		}
	}
}
