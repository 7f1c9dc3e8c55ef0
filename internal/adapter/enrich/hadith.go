package enrich

import (
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/haziqlabs/haziq-ai/internal/adapter/observability"
	"github.com/haziqlabs/haziq-ai/internal/domain"
)

// narratorSlugs lists narrator spellings in match priority order, each with
// the gading.dev collection slug it resolves to. Narrators outside this list
// are not served by the API and leave the prompt untouched.
var narratorSlugs = []struct {
	alias string
	slug  string
}{
	{"bukhari", "bukhari"}, {"bukhori", "bukhari"}, {"imam-bukhari", "bukhari"},
	{"muslim", "muslim"}, {"imam-muslim", "muslim"},
	{"nasai", "nasai"}, {"an-nasai", "nasai"},
	{"abu-daud", "abu-daud"}, {"abudaud", "abu-daud"}, {"abu-dawud", "abu-daud"},
	{"tirmidzi", "tirmidzi"}, {"at-tirmidzi", "tirmidzi"}, {"tirmigi", "tirmidzi"},
	{"ibnu-majah", "ibnu-majah"}, {"ibnumajah", "ibnu-majah"},
	{"malik", "malik"}, {"imam-malik", "malik"},
	{"ahmad", "ahmad"}, {"imam-ahmad", "ahmad"},
	{"darimi", "darimi"}, {"ad-darimi", "darimi"},
}

// "HR Bukhari No 1", "Hadits Muslim Nomor 50", "H.R. Riwayat Abu Daud 10"
var hadithRe = regexp.MustCompile(`(?:hadits|hadist|hr|h\.r)\.?\s+(?:riwayat\s+)?([a-z\s-]+?)\s+(?:nomor|no|no\.|:)?\s*(\d+)`)

// detectHadithRef scans a prompt for a hadith citation and resolves the
// narrator to an API slug. Unknown narrators return false.
func detectHadithRef(prompt string) (slug, number string, ok bool) {
	m := hadithRe.FindStringSubmatch(strings.ToLower(prompt))
	if m == nil {
		return "", "", false
	}
	narrator := strings.Join(strings.Fields(strings.TrimSpace(m[1])), "-")
	for _, n := range narratorSlugs {
		if strings.Contains(narrator, n.alias) {
			return n.slug, m[2], true
		}
	}
	return "", "", false
}

// HadithEnricher appends verified hadith text from the api.hadith.gading.dev
// collection API.
type HadithEnricher struct {
	baseURL string
	f       *fetcher
}

func NewHadithEnricher(baseURL string, hc *http.Client, rdb redis.UniversalClient, ttl, retryMax time.Duration) *HadithEnricher {
	return &HadithEnricher{baseURL: baseURL, f: newFetcher(hc, rdb, ttl, retryMax)}
}

type hadithResponse struct {
	Code int `json:"code"`
	Data struct {
		Contents struct {
			Arab string `json:"arab"`
			ID   string `json:"id"`
		} `json:"contents"`
	} `json:"data"`
}

// Enrich returns prompt with an appended reference block when a known
// narrator citation resolves; otherwise the prompt comes back unchanged.
func (h *HadithEnricher) Enrich(ctx domain.Context, prompt string) string {
	slug, number, ok := detectHadithRef(prompt)
	if !ok {
		return prompt
	}

	slog.Debug("hadith citation detected",
		slog.String("book", slug), slog.String("number", number))

	var out hadithResponse
	url := fmt.Sprintf("%s/books/%s/%s", h.baseURL, slug, number)
	if err := h.f.getJSON(ctx, url, &out); err != nil {
		slog.Warn("hadith fetch failed", slog.Any("error", err))
		observability.RecordEnrichLookup("hadith", "error")
		return prompt
	}
	if out.Code != 200 || out.Data.Contents.Arab == "" {
		observability.RecordEnrichLookup("hadith", "error")
		return prompt
	}

	observability.RecordEnrichLookup("hadith", "success")
	return prompt + fmt.Sprintf(`
[SYSTEM DATA: REFERENSI VALID HADITS]
Berikut adalah data valid dari Database Hadits Digital untuk HR. %s Nomor %s:
Teks Arab: %s
Terjemahan: "%s"

INSTRUKSI: Gunakan teks Arab dan Terjemahan di atas sebagai referensi utama jawabanmu.
`, slug, number, out.Data.Contents.Arab, out.Data.Contents.ID)
}
