// Package ai implements the multi-provider completion dispatcher: credential
// classification, key rotation, provider adapters, and fallback policy.
package ai

import (
	"strings"

	"github.com/haziqlabs/haziq-ai/internal/domain"
)

// ParseKeyPool merges the default credential string with the admin-configured
// one, splits on comma, trims each token, and drops blanks. Order is
// preserved with defaults first. The result may be empty; callers must treat
// an empty pool as a configuration error and skip dispatch entirely.
func ParseKeyPool(defaults, extra string) []string {
	raw := defaults
	if extra != "" {
		if raw != "" {
			raw += ","
		}
		raw += extra
	}
	parts := strings.Split(raw, ",")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			keys = append(keys, p)
		}
	}
	return keys
}

// Classify maps a credential's syntactic prefix to its provider. Total and
// deterministic; prefixes are checked in a fixed order because `sk-or-` must
// win over the broader `sk-`. Unknown keys are never sent over the network.
func Classify(key string) domain.Provider {
	switch {
	case strings.HasPrefix(key, "AIza"):
		return domain.ProviderGoogle
	case strings.HasPrefix(key, "hf_"):
		return domain.ProviderHuggingFace
	case strings.HasPrefix(key, "gsk_"):
		return domain.ProviderGroq
	case strings.HasPrefix(key, "sk-or-"):
		return domain.ProviderOpenRouter
	case strings.HasPrefix(key, "sk-"):
		return domain.ProviderDeepSeek
	default:
		return domain.ProviderUnknown
	}
}

// redactKey keeps only the last few characters of a credential for logs.
func redactKey(key string) string {
	if len(key) <= 5 {
		return "..." + key
	}
	return "..." + key[len(key)-5:]
}
